package ldaptest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	goldap "github.com/go-ldap/ldap/v3"

	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
)

// Directory is an in-memory ldap.Client. It supports base, one-level and
// subtree searches with equality, presence, AND and OR filters, and it
// records every write it applies.
type Directory struct {
	mu      sync.Mutex
	entries map[string]*goldap.Entry // keyed by folded DN

	// Writes lists the applied operations as "add <dn>", "modify <dn>" and
	// "delete <dn>".
	Writes []string
}

var _ ldap.Client = (*Directory)(nil)

// NewDirectory returns a directory holding entries.
func NewDirectory(entries ...*goldap.Entry) *Directory {
	d := &Directory{entries: make(map[string]*goldap.Entry)}
	for _, e := range entries {
		d.entries[key(e.DN)] = e
	}
	return d
}

// Entry returns the entry at dn.
func (d *Directory) Entry(dn string) *goldap.Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entries[key(dn)]
}

func (d *Directory) Connect(context.Context) error { return nil }
func (d *Directory) Close() error                  { return nil }

func (d *Directory) WhoAmI(context.Context) (*ldap.WhoAmIResult, error) {
	return &ldap.WhoAmIResult{AuthzID: "dn:cn=Directory Manager", DN: "cn=Directory Manager"}, nil
}

func (d *Directory) Search(_ context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	base, err := goldap.ParseDN(req.BaseDN)
	if err != nil {
		return nil, ldap.NewLDAPError("search", req.BaseDN, goldap.NewError(goldap.LDAPResultInvalidDNSyntax, err))
	}

	if req.Scope == ldap.ScopeBaseObject {
		e, ok := d.entries[key(req.BaseDN)]
		if !ok {
			return nil, notFound("search", req.BaseDN)
		}
		if !matches(req.Filter, e) {
			return &ldap.SearchResult{}, nil
		}
		return &ldap.SearchResult{Entries: []*goldap.Entry{e}, Total: 1}, nil
	}

	var found []*goldap.Entry
	for _, e := range d.entries {
		dn, err := goldap.ParseDN(e.DN)
		if err != nil || !(base.EqualFold(dn) || base.AncestorOfFold(dn)) {
			continue
		}
		if req.Scope == ldap.ScopeSingleLevel && len(dn.RDNs) != len(base.RDNs)+1 {
			continue
		}
		if matches(req.Filter, e) {
			found = append(found, e)
		}
	}

	slices.SortFunc(found, func(a, b *goldap.Entry) int { return strings.Compare(key(a.DN), key(b.DN)) })
	return &ldap.SearchResult{Entries: found, Total: len(found)}, nil
}

func (d *Directory) Add(_ context.Context, req *ldap.AddRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entries[key(req.DN)]; ok {
		return ldap.NewLDAPError("add", req.DN, goldap.NewError(goldap.LDAPResultEntryAlreadyExists, errors.New("entry already exists")))
	}

	d.entries[key(req.DN)] = goldap.NewEntry(req.DN, req.Attributes)
	d.Writes = append(d.Writes, "add "+req.DN)
	return nil
}

func (d *Directory) Modify(_ context.Context, req *ldap.ModifyRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[key(req.DN)]
	if !ok {
		return notFound("modify", req.DN)
	}

	attrs := ldap.EntryAttributes(e)
	set := func(name string, values []string) {
		for existing := range attrs {
			if strings.EqualFold(existing, name) {
				delete(attrs, existing)
			}
		}
		if len(values) > 0 {
			attrs[name] = values
		}
	}

	for name, values := range req.AddAttributes {
		set(name, append(ldap.AttributeValues(e, name), values...))
	}
	for name, values := range req.ReplaceAttributes {
		set(name, slices.Clone(values))
	}
	for _, name := range req.DeleteAttributes {
		set(name, nil)
	}

	d.entries[key(req.DN)] = goldap.NewEntry(e.DN, attrs)
	d.Writes = append(d.Writes, "modify "+req.DN)
	return nil
}

func (d *Directory) Delete(_ context.Context, dn string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entries[key(dn)]; !ok {
		return notFound("delete", dn)
	}

	parent, err := goldap.ParseDN(dn)
	if err == nil {
		for _, e := range d.entries {
			if child, err := goldap.ParseDN(e.DN); err == nil && parent.AncestorOfFold(child) {
				return ldap.NewLDAPError("delete", dn, goldap.NewError(goldap.LDAPResultNotAllowedOnNonLeaf, errors.New("subordinate entries exist")))
			}
		}
	}

	delete(d.entries, key(dn))
	d.Writes = append(d.Writes, "delete "+dn)
	return nil
}

func key(dn string) string {
	parsed, err := goldap.ParseDN(dn)
	if err != nil {
		return strings.ToLower(dn)
	}
	return strings.ToLower(parsed.String())
}

func notFound(op, dn string) error {
	return ldap.NewLDAPError(op, dn, goldap.NewError(goldap.LDAPResultNoSuchObject, fmt.Errorf("no such entry: %s", dn)))
}

var filterTerm = regexp.MustCompile(`^\(([^=()&|!]+)=([^()]*)\)$`)

// matches evaluates the filter subset used in this module.
func matches(filter string, e *goldap.Entry) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}

	if strings.HasPrefix(filter, "(&") || strings.HasPrefix(filter, "(|") {
		terms := splitTerms(filter[2 : len(filter)-1])
		if filter[1] == '&' {
			for _, t := range terms {
				if !matches(t, e) {
					return false
				}
			}
			return true
		}
		for _, t := range terms {
			if matches(t, e) {
				return true
			}
		}
		return false
	}

	m := filterTerm.FindStringSubmatch(filter)
	if m == nil {
		return false
	}

	values := e.GetEqualFoldAttributeValues(m[1])
	if m[2] == "*" {
		return len(values) > 0
	}
	return slices.ContainsFunc(values, func(v string) bool { return strings.EqualFold(v, m[2]) })
}

func splitTerms(s string) []string {
	var terms []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			if depth == 0 {
				start = i
			}
			depth++
		case ')':
			depth--
			if depth == 0 {
				terms = append(terms, s[start:i+1])
			}
		}
	}
	return terms
}
