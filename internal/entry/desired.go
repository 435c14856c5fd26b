package entry

import (
	"maps"
	"slices"
	"strings"

	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
)

// State is the desired presence of an entry.
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

// States lists the accepted states in the order they are reported.
var States = []string{string(StateAbsent), string(StatePresent)}

// Desired is the entry an invocation asks for. It is built once and not
// modified afterwards.
type Desired struct {
	DN            string              // DN, possibly with {attr} placeholders
	ObjectClasses []string            // Object classes the entry must carry
	Attributes    map[string][]string // Attribute values, objectClass excluded
	State         State
}

// NewDesired builds a desired entry. objectClass values found in attributes
// are merged into the object classes; the inputs are copied.
func NewDesired(dn string, objectClasses []string, attributes map[string][]string, state State) *Desired {
	d := &Desired{
		DN:            dn,
		ObjectClasses: slices.Clone(objectClasses),
		Attributes:    make(map[string][]string, len(attributes)),
		State:         state,
	}

	for _, name := range slices.Sorted(maps.Keys(attributes)) {
		values := attributes[name]
		if strings.EqualFold(name, ldap.ObjectClassAttribute) {
			d.ObjectClasses = append(d.ObjectClasses, ldap.MissingValuesFold(values, d.ObjectClasses)...)
			continue
		}
		d.Attributes[name] = slices.Clone(values)
	}

	if d.State == "" {
		d.State = StatePresent
	}

	return d
}

// Templated reports whether the DN is resolved from the attributes. This is
// the case when object classes, a DN and attributes are all given.
func (d *Desired) Templated() bool {
	return len(d.ObjectClasses) > 0 && d.DN != "" && len(d.Attributes) > 0
}

// TargetDN returns the normalized DN the entry lives at. A templated DN, and
// any DN of an entry that must be present, goes through ResolveDN; a bare DN
// of an entry to remove is only normalized.
func (d *Desired) TargetDN() (string, error) {
	if d.DN == "" {
		return "", &TemplateError{Template: d.DN, Reason: "dn is empty"}
	}

	if d.Templated() || d.State == StatePresent {
		return ResolveDN(d.DN, d.Attributes)
	}

	dn, err := ldap.SafeDN(d.DN)
	if err != nil {
		return "", &TemplateError{Template: d.DN, Reason: "not a valid DN", Err: err}
	}
	return dn, nil
}

// addAttributes returns the attribute set of a new entry.
func (d *Desired) addAttributes() map[string][]string {
	attrs := make(map[string][]string, len(d.Attributes)+1)
	for name, values := range d.Attributes {
		if len(values) > 0 {
			attrs[name] = slices.Clone(values)
		}
	}
	attrs[ldap.ObjectClassAttribute] = slices.Clone(d.ObjectClasses)
	return attrs
}
