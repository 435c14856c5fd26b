package ldap

import (
	"slices"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ObjectClassAttribute is the name of the object class attribute.
const ObjectClassAttribute = "objectClass"

// ValuesEqual reports whether two attribute value lists hold the same set of
// values. Order and duplicates are not significant, values compare exactly.
// A missing attribute equals an empty value list.
func ValuesEqual(a, b []string) bool {
	return slices.Equal(valueSet(a), valueSet(b))
}

func valueSet(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

// MissingValuesFold returns the values of want that are not in have, compared
// case-insensitively, in the order they appear in want. Used for object
// class names, which are case-insensitive.
func MissingValuesFold(want, have []string) []string {
	var missing []string
	for _, w := range want {
		found := slices.ContainsFunc(have, func(h string) bool {
			return strings.EqualFold(h, w)
		})
		if !found && !slices.ContainsFunc(missing, func(m string) bool { return strings.EqualFold(m, w) }) {
			missing = append(missing, w)
		}
	}
	return missing
}

// AttributeValues returns the values of the named attribute of entry, matching
// the attribute name case-insensitively. A nil entry has no values.
func AttributeValues(entry *ldap.Entry, name string) []string {
	if entry == nil {
		return nil
	}
	return entry.GetEqualFoldAttributeValues(name)
}

// EntryAttributes converts entry to a name to values mapping.
func EntryAttributes(entry *ldap.Entry) map[string][]string {
	if entry == nil {
		return nil
	}

	attrs := make(map[string][]string, len(entry.Attributes))
	for _, attr := range entry.Attributes {
		attrs[attr.Name] = slices.Clone(attr.Values)
	}
	return attrs
}
