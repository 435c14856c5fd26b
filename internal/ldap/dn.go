package ldap

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// EscapeDNValue escapes special characters in a DN attribute value according to RFC 4514.
//
// Escaped are , + " \ < > ; anywhere in the value, # at the start, a space at
// either end, and NUL as \00. Non-ASCII characters are left as they are.
//
// Examples:
//   - "Doe, John" → "Doe\, John"
//   - " John " → "\ John\ "
//   - "#123" → "\#123"
func EscapeDNValue(value string) string {
	if !NeedsDNEscaping(value) {
		return value
	}

	var b strings.Builder
	b.Grow(len(value) + 8)

	last := len(value) - 1
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == 0:
			b.WriteString(`\00`)
			continue
		case strings.IndexByte(`,+"\<>;`, c) >= 0:
			b.WriteByte('\\')
		case c == '#' && i == 0:
			b.WriteByte('\\')
		case c == ' ' && (i == 0 || i == last):
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// NeedsDNEscaping checks if a value contains characters that need DN escaping.
func NeedsDNEscaping(value string) bool {
	if value == "" {
		return false
	}

	if value[0] == ' ' || value[0] == '#' || value[len(value)-1] == ' ' {
		return true
	}

	return strings.ContainsAny(value, ",+\"\\<>;\x00")
}

// SafeDN parses dn and returns it re-encoded with every attribute value
// escaped per RFC 4514. Attribute type case and RDN order are preserved,
// insignificant whitespace around separators is dropped.
//
//	"uid=guest , ou=People,dc=example,dc=com" → "uid=guest,ou=People,dc=example,dc=com"
//	"cn=Doe\, John,dc=example" → "cn=Doe\, John,dc=example"
func SafeDN(dn string) (string, error) {
	dn = strings.TrimSpace(dn)
	if dn == "" {
		return "", fmt.Errorf("DN cannot be empty")
	}

	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return "", fmt.Errorf("invalid DN syntax %q: %w", dn, err)
	}

	if len(parsed.RDNs) == 0 {
		return "", fmt.Errorf("DN cannot be empty")
	}

	return formatDN(parsed), nil
}

func formatDN(dn *ldap.DN) string {
	rdns := make([]string, 0, len(dn.RDNs))
	for _, rdn := range dn.RDNs {
		attrs := make([]string, 0, len(rdn.Attributes))
		for _, attr := range rdn.Attributes {
			attrs = append(attrs, attr.Type+"="+EscapeDNValue(attr.Value))
		}
		rdns = append(rdns, strings.Join(attrs, "+"))
	}
	return strings.Join(rdns, ",")
}

// ValidateDNSyntax validates that a string is a properly formatted Distinguished Name.
func ValidateDNSyntax(dn string) error {
	if dn == "" {
		return fmt.Errorf("DN cannot be empty")
	}

	if _, err := ldap.ParseDN(dn); err != nil {
		return fmt.Errorf("invalid DN syntax: %w", err)
	}

	return nil
}

// LeafValue returns the value of the leaf RDN of dn. If attrType is not empty
// the leaf attribute type must match it case-insensitively.
//
//	LeafValue("fqdn=web1.example.com,cn=computers,...", "fqdn") → "web1.example.com"
func LeafValue(dn, attrType string) (string, error) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return "", fmt.Errorf("invalid DN syntax %q: %w", dn, err)
	}

	if len(parsed.RDNs) == 0 || len(parsed.RDNs[0].Attributes) == 0 {
		return "", fmt.Errorf("DN %q has no RDN", dn)
	}

	leaf := parsed.RDNs[0].Attributes[0]
	if attrType != "" && !strings.EqualFold(leaf.Type, attrType) {
		return "", fmt.Errorf("leaf RDN of %q is %s, expected %s", dn, leaf.Type, attrType)
	}

	return leaf.Value, nil
}

// IsDescendantOf reports whether childDN lies below parentDN, comparing
// attribute types and values case-insensitively. A DN is not its own descendant.
func IsDescendantOf(childDN, parentDN string) (bool, error) {
	child, err := ldap.ParseDN(childDN)
	if err != nil {
		return false, fmt.Errorf("invalid child DN syntax: %w", err)
	}

	parent, err := ldap.ParseDN(parentDN)
	if err != nil {
		return false, fmt.Errorf("invalid parent DN syntax: %w", err)
	}

	return parent.AncestorOfFold(child), nil
}

// EqualDN reports whether two DNs name the same entry.
func EqualDN(a, b string) bool {
	pa, err := ldap.ParseDN(a)
	if err != nil {
		return strings.EqualFold(a, b)
	}
	pb, err := ldap.ParseDN(b)
	if err != nil {
		return false
	}
	return pa.EqualFold(pb)
}
