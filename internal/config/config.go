// Package config resolves ldap3-orm configuration files: it locates a file by
// name or path, lets the host decrypt it, parses the TOML, resolves the
// keyring password marker and validates the result.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
)

// Config is a resolved ldap3-orm configuration file.
type Config struct {
	URL             string              `toml:"url"`
	Domain          string              `toml:"domain"` // SRV discovery when url is empty
	BaseDN          string              `toml:"base_dn"`
	HostgroupBaseDN string              `toml:"hostgroup_base_dn"`
	HostBaseDN      string              `toml:"host_base_dn"`
	Conn            ConnConfig          `toml:"connconfig"`
	Classes         map[string]ClassDef `toml:"classes"`

	path       string
	authMethod ldap.AuthMethod
}

// ConnConfig holds the [connconfig] table.
type ConnConfig struct {
	User           string        `toml:"user"`
	Password       string        `toml:"password"`
	AuthMethod     string        `toml:"auth_method" default:"simple"`
	StartTLS       bool          `toml:"start_tls"`
	SkipTLSVerify  bool          `toml:"skip_tls_verify"`
	CACertFile     string        `toml:"ca_cert_file"`
	Timeout        time.Duration `toml:"timeout" default:"30s"`
	KerberosRealm  string        `toml:"kerberos_realm"`
	KerberosKeytab string        `toml:"kerberos_keytab"`
	KerberosConfig string        `toml:"kerberos_config"`
	KerberosCCache string        `toml:"kerberos_ccache"`
	KerberosSPN    string        `toml:"kerberos_spn"`
}

// ClassDef is a named entry class referenced by the cls parameter.
type ClassDef struct {
	DN          string     `toml:"dn"`
	ObjectClass StringList `toml:"objectClass"`
}

// StringList decodes from either a TOML string or an array of strings.
type StringList []string

func (l *StringList) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		*l = StringList{v}
	case []any:
		out := make(StringList, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected a list of strings, got element of type %T", item)
			}
			out = append(out, s)
		}
		*l = out
	default:
		return fmt.Errorf("expected a string or a list of strings, got %T", data)
	}
	return nil
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	decrypter Decrypter
	secret    SecretLookup
	discover  func(ctx context.Context, domain string) (string, error)
}

// WithDecrypter sets the hook that turns the located file into plaintext.
func WithDecrypter(d Decrypter) Option {
	return func(l *loader) {
		l.decrypter = d
	}
}

// WithSecretLookup replaces the keyring lookup used for the keyring marker.
func WithSecretLookup(fn SecretLookup) Option {
	return func(l *loader) {
		l.secret = fn
	}
}

// WithDiscovery replaces the DNS SRV lookup used when only domain is set.
func WithDiscovery(fn func(ctx context.Context, domain string) (string, error)) Option {
	return func(l *loader) {
		l.discover = fn
	}
}

// Load locates, decrypts, parses and validates a configuration file.
// Every failure is returned as *ConfigError.
func Load(ctx context.Context, nameOrPath string, opts ...Option) (*Config, error) {
	l := newLoader(opts)

	path, err := Locate(nameOrPath)
	if err != nil {
		return nil, err
	}

	data, err := l.decrypter.Decrypt(ctx, path)
	if err != nil {
		return nil, newConfigError(path, "decrypt", err)
	}

	cfg, err := Parse(ctx, data)
	if err != nil {
		return nil, newConfigError(path, "parse", err)
	}
	cfg.path = path

	if err := cfg.resolve(ctx, l); err != nil {
		return nil, err
	}

	tflog.Debug(ctx, "Loaded configuration", map[string]any{
		"path":        path,
		"url":         cfg.URL,
		"base_dn":     cfg.BaseDN,
		"auth_method": cfg.authMethod.String(),
		"user":        cfg.Conn.User,
		"classes":     len(cfg.Classes),
	})

	return cfg, nil
}

// Resolve applies defaults to a configuration built in code, then resolves
// and validates it like Load does for a file.
func Resolve(ctx context.Context, cfg *Config, opts ...Option) (*Config, error) {
	if err := defaults.Set(cfg); err != nil {
		return nil, newConfigError(cfg.path, "parse", fmt.Errorf("failed to set default values: %w", err))
	}

	if err := cfg.resolve(ctx, newLoader(opts)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLoader(opts []Option) *loader {
	l := &loader{
		decrypter: PlainFile{},
		secret:    KeyringLookup,
		discover:  ldap.NewSRVDiscovery().DiscoverURL,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Parse decodes TOML configuration data and applies defaults. The result is
// not yet resolved or validated.
func Parse(ctx context.Context, data []byte) (*Config, error) {
	cfg := &Config{}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		tflog.Warn(ctx, "Ignoring unknown configuration keys", map[string]any{
			"keys": keys,
		})
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to set default values: %w", err)
	}

	return cfg, nil
}

// resolve applies discovery, the keyring marker and derived defaults, then validates.
func (c *Config) resolve(ctx context.Context, l *loader) error {
	if c.URL == "" && c.Domain != "" {
		discovered, err := l.discover(ctx, c.Domain)
		if err != nil {
			return newConfigError(c.path, "discover", err)
		}
		c.URL = discovered
	}

	if err := c.validate(); err != nil {
		return newConfigError(c.path, "validate", err)
	}

	if c.Conn.Password == KeyringMarker {
		secret, err := l.secret(c.URL, c.Conn.User)
		if err != nil {
			return newConfigError(c.path, "secret", fmt.Errorf("keyring lookup for %s at %s: %w", c.Conn.User, c.URL, err))
		}
		c.Conn.Password = secret
	}

	if c.HostgroupBaseDN == "" && c.BaseDN != "" {
		c.HostgroupBaseDN = "cn=hostgroups," + c.BaseDN
	}
	if c.HostBaseDN == "" && c.BaseDN != "" {
		c.HostBaseDN = "cn=computers," + c.BaseDN
	}

	return nil
}

func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", c.URL, err)
	}
	if !slices.Contains([]string{"ldap", "ldaps", "ldapi"}, strings.ToLower(u.Scheme)) {
		return fmt.Errorf("url %q must use the ldap, ldaps or ldapi scheme", c.URL)
	}

	method, err := ldap.ParseAuthMethod(c.Conn.AuthMethod)
	if err != nil {
		return fmt.Errorf("connconfig.auth_method: %w", err)
	}
	c.authMethod = method

	if method != ldap.AuthMethodAnonymous && c.Conn.User == "" {
		return fmt.Errorf("connconfig.user is required for %s authentication", method)
	}

	if c.Conn.Timeout <= 0 {
		return fmt.Errorf("connconfig.timeout must be positive, got %s", c.Conn.Timeout)
	}

	for _, dn := range []struct{ key, value string }{
		{"base_dn", c.BaseDN},
		{"hostgroup_base_dn", c.HostgroupBaseDN},
		{"host_base_dn", c.HostBaseDN},
	} {
		if dn.value == "" {
			continue
		}
		if err := ldap.ValidateDNSyntax(dn.value); err != nil {
			return fmt.Errorf("%s: %w", dn.key, err)
		}
	}

	for name, class := range c.Classes {
		if class.DN == "" {
			return fmt.Errorf("classes.%s: dn is required", name)
		}
		if len(class.ObjectClass) == 0 {
			return fmt.Errorf("classes.%s: at least one objectClass is required", name)
		}
	}

	return nil
}

// Path returns the location the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Class returns the named entry class.
func (c *Config) Class(name string) (ClassDef, bool) {
	class, ok := c.Classes[name]
	return class, ok
}

// ConnectionConfig builds the directory connection settings of the
// configuration. It is only meaningful on a configuration returned by Load.
func (c *Config) ConnectionConfig() *ldap.ConnectionConfig {
	return &ldap.ConnectionConfig{
		URL:            c.URL,
		BaseDN:         c.BaseDN,
		Timeout:        c.Conn.Timeout,
		AuthMethod:     c.authMethod,
		Username:       c.Conn.User,
		Password:       c.Conn.Password,
		KerberosRealm:  c.Conn.KerberosRealm,
		KerberosKeytab: c.Conn.KerberosKeytab,
		KerberosConfig: c.Conn.KerberosConfig,
		KerberosCCache: c.Conn.KerberosCCache,
		KerberosSPN:    c.Conn.KerberosSPN,
		StartTLS:       c.Conn.StartTLS,
		SkipTLSVerify:  c.Conn.SkipTLSVerify,
		TLSCACertFile:  c.Conn.CACertFile,
	}
}
