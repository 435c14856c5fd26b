package ldap

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// conn is the subset of *ldap.Conn the client relies on.
type conn interface {
	Search(*ldap.SearchRequest) (*ldap.SearchResult, error)
	Add(*ldap.AddRequest) error
	Modify(*ldap.ModifyRequest) error
	Del(*ldap.DelRequest) error
	WhoAmI([]ldap.Control) (*ldap.WhoAmIResult, error)
	Close() error
}

// dialFunc opens and authenticates a connection.
type dialFunc func(ctx context.Context, cfg *ConnectionConfig) (conn, error)

// client implements the Client interface on top of exactly one connection.
type client struct {
	config *ConnectionConfig
	dial   dialFunc

	mu   sync.Mutex
	conn conn
}

// NewClient validates the configuration and returns a client. No network I/O
// happens until Connect is called.
func NewClient(ctx context.Context, config *ConnectionConfig) (Client, error) {
	if err := config.Validate(); err != nil {
		tflog.SubsystemError(ctx, Subsystem, "Invalid connection configuration", map[string]any{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("invalid connection configuration: %w", err)
	}

	tflog.SubsystemDebug(ctx, Subsystem, "Creating LDAP client", map[string]any{
		"url":         config.URL,
		"auth_method": config.AuthMethod.String(),
		"start_tls":   config.StartTLS,
		"timeout":     config.Timeout.String(),
	})

	return &client{
		config: config,
		dial:   dialAndBind,
	}, nil
}

// Connect opens and authenticates the connection. Calling Connect on a
// connected client is a no-op.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	fields := map[string]any{
		"url":         c.config.URL,
		"auth_method": c.config.AuthMethod.String(),
	}

	return LogOperation(ctx, Subsystem, "connect", fields, func() error {
		conn, err := c.dial(ctx, c.config)
		if err != nil {
			return err
		}
		c.conn = conn
		return nil
	})
}

// Close closes the connection. It is safe to call more than once.
func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *client) connection() (conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, NewConnectionError("not connected to "+c.config.URL, nil)
	}
	return c.conn, nil
}

// Search performs an LDAP search.
func (c *client) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req == nil {
		return nil, fmt.Errorf("search request cannot be nil")
	}

	conn, err := c.connection()
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"base_dn":    req.BaseDN,
		"scope":      req.Scope.String(),
		"filter":     req.Filter,
		"attributes": req.Attributes,
		"size_limit": req.SizeLimit,
	}

	start := time.Now()
	tflog.SubsystemTrace(ctx, Subsystem, "Starting search", fields)

	ldapReq := ldap.NewSearchRequest(
		req.BaseDN,
		int(req.Scope),
		ldap.NeverDerefAliases,
		req.SizeLimit,
		int(req.TimeLimit.Seconds()),
		false, // TypesOnly
		req.Filter,
		req.Attributes,
		nil, // Controls
	)

	result, err := conn.Search(ldapReq)
	fields["duration_ms"] = time.Since(start).Milliseconds()

	if err != nil {
		if IsNotFoundError(err) {
			tflog.SubsystemDebug(ctx, Subsystem, "Search base does not exist", fields)
		} else {
			LogLDAPError(ctx, Subsystem, "search", err, fields)
		}
		return nil, NewLDAPError("search", req.BaseDN, err)
	}

	fields["entries_found"] = len(result.Entries)
	tflog.SubsystemDebug(ctx, Subsystem, "Search completed", fields)

	return &SearchResult{
		Entries: result.Entries,
		Total:   len(result.Entries),
	}, nil
}

// Add creates a new LDAP entry.
func (c *client) Add(ctx context.Context, req *AddRequest) error {
	if req == nil {
		return fmt.Errorf("add request cannot be nil")
	}

	conn, err := c.connection()
	if err != nil {
		return err
	}

	fields := map[string]any{
		"dn":         req.DN,
		"attributes": len(req.Attributes),
	}

	return LogOperation(ctx, Subsystem, "add", fields, func() error {
		if err := conn.Add(req.LDAPRequest()); err != nil {
			LogLDAPError(ctx, Subsystem, "add", err, map[string]any{"dn": req.DN})
			return NewLDAPError("add", req.DN, err)
		}
		return nil
	})
}

// Modify applies all changes of req as a single modify request.
func (c *client) Modify(ctx context.Context, req *ModifyRequest) error {
	if req == nil {
		return fmt.Errorf("modify request cannot be nil")
	}

	if !req.HasChanges() {
		return nil
	}

	conn, err := c.connection()
	if err != nil {
		return err
	}

	fields := map[string]any{
		"dn":       req.DN,
		"adds":     len(req.AddAttributes),
		"replaces": len(req.ReplaceAttributes),
		"deletes":  len(req.DeleteAttributes),
	}

	return LogOperation(ctx, Subsystem, "modify", fields, func() error {
		if err := conn.Modify(req.LDAPRequest()); err != nil {
			LogLDAPError(ctx, Subsystem, "modify", err, map[string]any{"dn": req.DN})
			return NewLDAPError("modify", req.DN, err)
		}
		return nil
	})
}

// Delete removes an LDAP entry. Subordinate entries are not removed.
func (c *client) Delete(ctx context.Context, dn string) error {
	if dn == "" {
		return fmt.Errorf("DN cannot be empty")
	}

	conn, err := c.connection()
	if err != nil {
		return err
	}

	return LogOperation(ctx, Subsystem, "delete", map[string]any{"dn": dn}, func() error {
		if err := conn.Del(ldap.NewDelRequest(dn, nil)); err != nil {
			LogLDAPError(ctx, Subsystem, "delete", err, map[string]any{"dn": dn})
			return NewLDAPError("delete", dn, err)
		}
		return nil
	})
}

// WhoAmI returns the authorization identity of the connection.
func (c *client) WhoAmI(ctx context.Context) (*WhoAmIResult, error) {
	conn, err := c.connection()
	if err != nil {
		return nil, err
	}

	res, err := conn.WhoAmI(nil)
	if err != nil {
		LogLDAPError(ctx, Subsystem, "whoami", err, nil)
		return nil, NewLDAPError("whoami", "", err)
	}

	result := &WhoAmIResult{AuthzID: res.AuthzID}
	if dn, ok := strings.CutPrefix(res.AuthzID, "dn:"); ok {
		result.DN = dn
	}

	tflog.SubsystemDebug(ctx, Subsystem, "WhoAmI completed", map[string]any{
		"authz_id": res.AuthzID,
	})

	return result, nil
}

// dialAndBind opens a connection to cfg.URL and authenticates it.
func dialAndBind(ctx context.Context, cfg *ConnectionConfig) (conn, error) {
	tlsConfig, err := cfg.BuildTLSConfig()
	if err != nil {
		return nil, NewConnectionError("invalid TLS configuration", err)
	}

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	c, err := ldap.DialURL(cfg.URL, ldap.DialWithDialer(dialer), ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, NewConnectionError("failed to connect to "+cfg.URL, err)
	}

	c.SetTimeout(cfg.Timeout)

	if cfg.StartTLS && isPlainLDAP(cfg.URL) {
		if err := c.StartTLS(tlsConfig); err != nil {
			c.Close()
			return nil, NewConnectionError("StartTLS failed on "+cfg.URL, err)
		}
	}

	if err := authenticate(ctx, c, cfg); err != nil {
		c.Close()
		return nil, NewConnectionError(fmt.Sprintf("%s bind to %s failed", cfg.AuthMethod, cfg.URL), err)
	}

	return c, nil
}

// authenticate binds conn using the configured method.
func authenticate(ctx context.Context, conn *ldap.Conn, cfg *ConnectionConfig) error {
	tflog.SubsystemDebug(ctx, Subsystem, "Authenticating", map[string]any{
		"auth_method": cfg.AuthMethod.String(),
		"user":        cfg.Username,
	})

	switch cfg.AuthMethod {
	case AuthMethodSimpleBind:
		return conn.Bind(cfg.Username, cfg.Password)
	case AuthMethodKerberos:
		return performKerberosAuth(conn, cfg)
	case AuthMethodAnonymous:
		return conn.UnauthenticatedBind("")
	default:
		return fmt.Errorf("unsupported authentication method: %s", cfg.AuthMethod)
	}
}

func isPlainLDAP(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && strings.EqualFold(u.Scheme, "ldap")
}
