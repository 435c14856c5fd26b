package entry

import (
	"strings"

	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
)

// ResolveDN substitutes {name} placeholders in template with the value of the
// named attribute and returns the normalized DN. "{{" and "}}" stand for
// literal braces.
//
// Every substituted value is escaped, so "cn={cn}" with cn "Doe, John"
// yields "cn=Doe\, John". Referencing a missing or multi-valued attribute is a
// *TemplateError, as is a result that is not a valid DN.
func ResolveDN(template string, attributes map[string][]string) (string, error) {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}

			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", &TemplateError{Template: template, Reason: "unclosed '{'"}
			}

			name := strings.TrimSpace(template[i+1 : i+1+end])
			value, err := placeholderValue(template, name, attributes)
			if err != nil {
				return "", err
			}

			b.WriteString(ldap.EscapeDNValue(value))
			i += end + 1

		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", &TemplateError{Template: template, Reason: "single '}' encountered"}

		default:
			b.WriteByte(c)
		}
	}

	dn, err := ldap.SafeDN(b.String())
	if err != nil {
		return "", &TemplateError{Template: template, Reason: "result is not a valid DN", Err: err}
	}

	return dn, nil
}

func placeholderValue(template, name string, attributes map[string][]string) (string, error) {
	if name == "" || strings.ContainsAny(name, "{") {
		return "", &TemplateError{Template: template, Attribute: name, Reason: "placeholders must name an attribute"}
	}

	values, ok := lookupFold(attributes, name)
	if !ok {
		return "", &TemplateError{Template: template, Attribute: name, Reason: "attribute '" + name + "' is not defined in attributes"}
	}

	switch len(values) {
	case 1:
		return values[0], nil
	case 0:
		return "", &TemplateError{Template: template, Attribute: name, Reason: "attribute '" + name + "' has no value"}
	default:
		return "", &TemplateError{Template: template, Attribute: name, Reason: "attribute '" + name + "' has more than one value"}
	}
}

// Placeholders returns the attribute names referenced by template, in order
// of first appearance.
func Placeholders(template string) []string {
	var names []string
	seen := map[string]bool{}

	for i := 0; i < len(template); i++ {
		if template[i] != '{' {
			continue
		}
		if i+1 < len(template) && template[i+1] == '{' {
			i++
			continue
		}
		end := strings.IndexByte(template[i+1:], '}')
		if end < 0 {
			break
		}
		name := strings.TrimSpace(template[i+1 : i+1+end])
		if name != "" && !seen[strings.ToLower(name)] {
			seen[strings.ToLower(name)] = true
			names = append(names, name)
		}
		i += end + 1
	}

	return names
}

// lookupFold finds an attribute by exact name, then case-insensitively.
func lookupFold(attributes map[string][]string, name string) ([]string, bool) {
	if values, ok := attributes[name]; ok {
		return values, true
	}
	for key, values := range attributes {
		if strings.EqualFold(key, name) {
			return values, true
		}
	}
	return nil, false
}
