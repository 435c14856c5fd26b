package entry

import (
	"context"
	"fmt"
	"strings"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
)

// Subsystem is the tflog subsystem of the reconciler.
const Subsystem = "entry"

// lookupFilter matches any entry; the search is scoped to the target DN.
const lookupFilter = "(objectClass=*)"

// Result is the outcome of a reconciliation.
type Result struct {
	Changed bool
	Actions []string
	Plan    *Plan
}

// Reconciler brings one directory entry to its desired state.
type Reconciler struct {
	client    ldap.Client
	checkMode bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithCheckMode makes the reconciler compute and report changes without
// issuing add, modify or delete operations.
func WithCheckMode(enabled bool) Option {
	return func(r *Reconciler) {
		r.checkMode = enabled
	}
}

// NewReconciler creates a reconciler using a connected client.
func NewReconciler(client ldap.Client, opts ...Option) *Reconciler {
	r := &Reconciler{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile resolves the target DN, looks the entry up and creates, modifies
// or deletes it as needed. The DN is resolved before any directory I/O. Errors
// are returned as they occur; nothing is retried.
func (r *Reconciler) Reconcile(ctx context.Context, desired *Desired) (*Result, error) {
	dn, err := desired.TargetDN()
	if err != nil {
		return nil, err
	}

	ctx = tflog.SubsystemSetField(ctx, Subsystem, "dn", dn)
	tflog.SubsystemDebug(ctx, Subsystem, "Reconciling entry", map[string]any{
		"state":          string(desired.State),
		"object_classes": desired.ObjectClasses,
		"attributes":     len(desired.Attributes),
		"check_mode":     r.checkMode,
	})

	actual, err := r.Lookup(ctx, dn)
	if err != nil {
		return nil, err
	}

	plan := computePlan(dn, desired, actual)
	result := &Result{Actions: []string{}, Plan: plan}

	if plan.Operation == OperationNone {
		tflog.SubsystemDebug(ctx, Subsystem, "Entry is up to date")
		return result, nil
	}

	if !r.checkMode {
		if err := r.apply(ctx, plan); err != nil {
			return nil, err
		}
	}

	result.Changed = true
	result.Actions = append(result.Actions, plan.action())

	tflog.SubsystemInfo(ctx, Subsystem, "Entry reconciled", map[string]any{
		"operation":  string(plan.Operation),
		"check_mode": r.checkMode,
	})

	return result, nil
}

// Lookup returns the entry at dn with all user attributes, or nil if there is
// none.
func (r *Reconciler) Lookup(ctx context.Context, dn string) (*goldap.Entry, error) {
	res, err := r.client.Search(ctx, &ldap.SearchRequest{
		BaseDN:     dn,
		Scope:      ldap.ScopeBaseObject,
		Filter:     lookupFilter,
		Attributes: []string{"*"},
	})
	if err != nil {
		if ldap.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup of %s failed: %w", dn, err)
	}

	if len(res.Entries) == 0 {
		return nil, nil
	}

	return res.Entries[0], nil
}

func (r *Reconciler) apply(ctx context.Context, plan *Plan) error {
	var err error
	switch plan.Operation {
	case OperationAdd:
		err = r.client.Add(ctx, plan.Add)
	case OperationModify:
		err = r.client.Modify(ctx, plan.Modify)
	case OperationDelete:
		err = r.client.Delete(ctx, plan.DN)
	}
	if err != nil {
		return fmt.Errorf("could not %s dn '%s': %w", plan.Operation, plan.DN, err)
	}
	return nil
}

// computePlan implements the state machine:
//
//	absent,  not found: nothing
//	absent,  found:     delete
//	present, not found: add with all object classes and attributes
//	present, found:     one modify adding missing object classes and
//	                    replacing attributes whose values differ
func computePlan(dn string, desired *Desired, actual *goldap.Entry) *Plan {
	plan := &Plan{Operation: OperationNone, DN: dn}

	switch {
	case desired.State == StateAbsent && actual == nil:
		// already absent

	case desired.State == StateAbsent:
		plan.Operation = OperationDelete
		if actual.DN != "" {
			plan.DN = actual.DN
		}

	case actual == nil:
		plan.Operation = OperationAdd
		plan.Add = &ldap.AddRequest{DN: dn, Attributes: desired.addAttributes()}

	default:
		mod := diff(dn, desired, actual)
		if mod.HasChanges() {
			plan.Operation = OperationModify
			plan.Modify = mod
		}
	}

	return plan
}

func diff(dn string, desired *Desired, actual *goldap.Entry) *ldap.ModifyRequest {
	mod := &ldap.ModifyRequest{DN: dn}

	observed := ldap.AttributeValues(actual, ldap.ObjectClassAttribute)
	if missing := ldap.MissingValuesFold(desired.ObjectClasses, observed); len(missing) > 0 {
		mod.AddAttributes = map[string][]string{ldap.ObjectClassAttribute: missing}
	}

	for name, want := range desired.Attributes {
		if strings.EqualFold(name, ldap.ObjectClassAttribute) {
			continue
		}
		have := ldap.AttributeValues(actual, name)
		if ldap.ValuesEqual(want, have) {
			continue
		}
		if mod.ReplaceAttributes == nil {
			mod.ReplaceAttributes = make(map[string][]string)
		}
		mod.ReplaceAttributes[name] = want
	}

	return mod
}

func (p *Plan) action() string {
	switch p.Operation {
	case OperationAdd:
		return fmt.Sprintf("Created dn '%s'", p.DN)
	case OperationModify:
		return fmt.Sprintf("Modified dn '%s'", p.DN)
	case OperationDelete:
		return fmt.Sprintf("Deleted dn '%s'", p.DN)
	default:
		return ""
	}
}
