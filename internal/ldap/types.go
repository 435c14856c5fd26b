package ldap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// ConnectionConfig holds configuration for the single directory connection of an invocation.
type ConnectionConfig struct {
	URL     string        // ldap://, ldaps:// or ldapi:// URL
	BaseDN  string        // Base DN for searches
	Timeout time.Duration // Dial and request timeout

	// Authentication settings
	AuthMethod     AuthMethod
	Username       string // Bind DN, or principal for Kerberos
	Password       string // Bind password
	KerberosRealm  string // Kerberos realm for GSSAPI authentication
	KerberosKeytab string // Path to Kerberos keytab file
	KerberosConfig string // Path to Kerberos config file (krb5.conf)
	KerberosCCache string // Path to Kerberos credential cache
	KerberosSPN    string // Service principal override

	// TLS settings
	TLSConfig     *tls.Config // Custom TLS configuration
	StartTLS      bool        // Upgrade ldap:// connections with StartTLS
	SkipTLSVerify bool        // Disable certificate verification
	TLSCACertFile string      // Path to CA certificate file
	TLSCACert     string      // CA certificate content (PEM)
}

// Validate checks that the configuration can be used to open a connection.
func (c *ConnectionConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("connection configuration cannot be nil")
	}

	if c.URL == "" {
		return fmt.Errorf("LDAP URL is required")
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid LDAP URL %q: %w", c.URL, err)
	}

	if !slices.Contains([]string{"ldap", "ldaps", "ldapi"}, strings.ToLower(u.Scheme)) {
		return fmt.Errorf("unsupported LDAP URL scheme %q (expected ldap, ldaps or ldapi)", u.Scheme)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}

	switch c.AuthMethod {
	case AuthMethodSimpleBind:
		if c.Username == "" {
			return fmt.Errorf("bind user is required for simple bind authentication")
		}
	case AuthMethodKerberos:
		if c.Username == "" {
			return fmt.Errorf("principal is required for Kerberos authentication")
		}
	case AuthMethodAnonymous:
	default:
		return fmt.Errorf("unsupported authentication method: %s", c.AuthMethod)
	}

	return nil
}

// Host returns the host part of the configured URL without the port.
func (c *ConnectionConfig) Host() string {
	u, err := url.Parse(c.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Client provides the directory operations used by the reconciler and inventory builder.
type Client interface {
	// Connection management
	Connect(ctx context.Context) error
	Close() error

	// Directory operations
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)
	Add(ctx context.Context, req *AddRequest) error
	Modify(ctx context.Context, req *ModifyRequest) error
	Delete(ctx context.Context, dn string) error

	// Identity
	WhoAmI(ctx context.Context) (*WhoAmIResult, error)
}

// SearchRequest represents an LDAP search request.
type SearchRequest struct {
	BaseDN     string
	Scope      SearchScope
	Filter     string
	Attributes []string
	SizeLimit  int
	TimeLimit  time.Duration
}

// SearchResult represents the result of an LDAP search.
type SearchResult struct {
	Entries []*ldap.Entry
	Total   int
}

// AddRequest represents an LDAP add request.
type AddRequest struct {
	DN         string
	Attributes map[string][]string
}

// LDAPRequest converts the request to a go-ldap add request. The objectClass
// attribute comes first, the remaining attributes follow in name order.
func (r *AddRequest) LDAPRequest() *ldap.AddRequest {
	req := ldap.NewAddRequest(r.DN, nil)
	for _, name := range sortedAttributeNames(r.Attributes) {
		req.Attribute(name, r.Attributes[name])
	}
	return req
}

// ModifyRequest represents an LDAP modify request.
type ModifyRequest struct {
	DN                string
	AddAttributes     map[string][]string
	ReplaceAttributes map[string][]string
	DeleteAttributes  []string
}

// HasChanges reports whether the request carries at least one change.
func (r *ModifyRequest) HasChanges() bool {
	return len(r.AddAttributes) > 0 || len(r.ReplaceAttributes) > 0 || len(r.DeleteAttributes) > 0
}

// LDAPRequest converts the request to a single go-ldap modify request with
// adds first, then replaces, then deletes, each group in attribute name order.
func (r *ModifyRequest) LDAPRequest() *ldap.ModifyRequest {
	req := ldap.NewModifyRequest(r.DN, nil)

	for _, name := range sortedAttributeNames(r.AddAttributes) {
		req.Add(name, r.AddAttributes[name])
	}

	for _, name := range sortedAttributeNames(r.ReplaceAttributes) {
		req.Replace(name, r.ReplaceAttributes[name])
	}

	deletes := slices.Clone(r.DeleteAttributes)
	slices.Sort(deletes)
	for _, name := range deletes {
		req.Delete(name, []string{})
	}

	return req
}

// WhoAmIResult holds the result of an RFC 4532 "Who am I?" request.
type WhoAmIResult struct {
	AuthzID string // Raw authorization identity, e.g. "dn:uid=admin,cn=users,..."
	DN      string // DN part of the identity if it has the "dn:" form
}

// SearchScope defines the scope of LDAP searches.
type SearchScope int

const (
	ScopeBaseObject   SearchScope = SearchScope(ldap.ScopeBaseObject)
	ScopeSingleLevel  SearchScope = SearchScope(ldap.ScopeSingleLevel)
	ScopeWholeSubtree SearchScope = SearchScope(ldap.ScopeWholeSubtree)
)

func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "sub"
	default:
		return "unknown"
	}
}

// AuthMethod defines authentication methods.
type AuthMethod int

const (
	AuthMethodSimpleBind AuthMethod = iota
	AuthMethodKerberos
	AuthMethodAnonymous
)

func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	case AuthMethodAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// AuthMethods lists the names accepted by ParseAuthMethod.
var AuthMethods = []string{"simple", "kerberos", "anonymous"}

// ParseAuthMethod parses an authentication method name case-insensitively.
func ParseAuthMethod(name string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "simple":
		return AuthMethodSimpleBind, nil
	case "kerberos", "gssapi":
		return AuthMethodKerberos, nil
	case "anonymous", "none":
		return AuthMethodAnonymous, nil
	default:
		return AuthMethodSimpleBind, fmt.Errorf("unknown authentication method %q (expected one of %s)",
			name, strings.Join(AuthMethods, ", "))
	}
}

// ConnectionError represents a failure to reach or authenticate against the directory.
type ConnectionError struct {
	message string
	cause   error
}

func (e *ConnectionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *ConnectionError) Unwrap() error {
	return e.cause
}

// NewConnectionError creates a new connection error.
func NewConnectionError(message string, cause error) *ConnectionError {
	return &ConnectionError{
		message: message,
		cause:   cause,
	}
}

// sortedAttributeNames returns the attribute names with objectClass first and
// the remaining names sorted case-insensitively.
func sortedAttributeNames(attrs map[string][]string) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}

	slices.SortFunc(names, func(a, b string) int {
		aOC, bOC := strings.EqualFold(a, ObjectClassAttribute), strings.EqualFold(b, ObjectClassAttribute)
		switch {
		case aOC && !bOC:
			return -1
		case bOC && !aOC:
			return 1
		}
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})

	return names
}
