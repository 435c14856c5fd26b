package entry

import (
	"slices"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldif"

	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
)

// Operation is the directory operation a reconciliation issues.
type Operation string

const (
	OperationNone   Operation = "none"
	OperationAdd    Operation = "add"
	OperationModify Operation = "modify"
	OperationDelete Operation = "delete"
)

// Plan is the change a reconciliation computed for one entry.
type Plan struct {
	Operation Operation
	DN        string
	Add       *ldap.AddRequest    // set for OperationAdd
	Modify    *ldap.ModifyRequest // set for OperationModify
}

// Redacted returns a copy of the plan with every value of a sensitive
// attribute replaced by mask. The plan itself is left untouched.
func (p *Plan) Redacted(mask string) *Plan {
	if p == nil {
		return nil
	}

	out := *p
	if p.Add != nil {
		out.Add = &ldap.AddRequest{
			DN:         p.Add.DN,
			Attributes: redactAttributes(p.Add.Attributes, mask),
		}
	}
	if p.Modify != nil {
		out.Modify = &ldap.ModifyRequest{
			DN:                p.Modify.DN,
			AddAttributes:     redactAttributes(p.Modify.AddAttributes, mask),
			ReplaceAttributes: redactAttributes(p.Modify.ReplaceAttributes, mask),
			DeleteAttributes:  slices.Clone(p.Modify.DeleteAttributes),
		}
	}
	return &out
}

func redactAttributes(attrs map[string][]string, mask string) map[string][]string {
	if attrs == nil {
		return nil
	}

	out := make(map[string][]string, len(attrs))
	for name, values := range attrs {
		if ldap.IsSensitiveAttribute(name) {
			out[name] = []string{mask}
			continue
		}
		out[name] = slices.Clone(values)
	}
	return out
}

// LDIF renders the plan as an LDIF change record. A plan without an
// operation renders as the empty string.
func (p *Plan) LDIF() (string, error) {
	if p == nil {
		return "", nil
	}

	var record *ldif.Entry
	switch p.Operation {
	case OperationAdd:
		record = &ldif.Entry{Add: p.Add.LDAPRequest()}
	case OperationModify:
		record = &ldif.Entry{Modify: p.Modify.LDAPRequest()}
	case OperationDelete:
		record = &ldif.Entry{Del: goldap.NewDelRequest(p.DN, nil)}
	default:
		return "", nil
	}

	return ldif.Marshal(&ldif.LDIF{Entries: []*ldif.Entry{record}})
}
