package ldap

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
)

const defaultKrb5Conf = "/etc/krb5.conf"

// performKerberosAuth performs a GSSAPI bind on conn.
func performKerberosAuth(conn *ldap.Conn, cfg *ConnectionConfig) error {
	kcfg, err := prepareKerberosConfig(cfg)
	if err != nil {
		return fmt.Errorf("kerberos configuration error: %w", err)
	}

	gssapiClient, err := createGSSAPIClient(kcfg)
	if err != nil {
		return fmt.Errorf("failed to create GSSAPI client: %w", err)
	}
	defer func() {
		_ = gssapiClient.DeleteSecContext()
	}()

	spn, err := buildServicePrincipal(kcfg)
	if err != nil {
		return fmt.Errorf("failed to build service principal: %w", err)
	}

	if err := conn.GSSAPIBind(gssapiClient, spn, ""); err != nil {
		return fmt.Errorf("GSSAPI bind failed: %w", err)
	}

	return nil
}

// createGSSAPIClient creates a GSSAPI client.
// Priority order: explicit ccache, default ccache, explicit keytab, default keytab, password.
func createGSSAPIClient(cfg *ConnectionConfig) (*gssapi.Client, error) {
	krb5conf := cfg.KerberosConfig
	if !fileExists(krb5conf) {
		return nil, fmt.Errorf("kerberos configuration file not found at %s; set kerberos_config in connconfig", krb5conf)
	}

	if cfg.KerberosCCache != "" && fileExists(cfg.KerberosCCache) {
		return gssapi.NewClientFromCCache(cfg.KerberosCCache, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	if ccache := getDefaultCCachePath(); fileExists(ccache) {
		return gssapi.NewClientFromCCache(ccache, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	if cfg.KerberosKeytab != "" && fileExists(cfg.KerberosKeytab) {
		return gssapi.NewClientWithKeytab(cfg.Username, cfg.KerberosRealm, cfg.KerberosKeytab, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	if keytab := getDefaultKeytabPath(); fileExists(keytab) {
		return gssapi.NewClientWithKeytab(cfg.Username, cfg.KerberosRealm, keytab, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	if cfg.Password != "" {
		return gssapi.NewClientWithPassword(cfg.Username, cfg.KerberosRealm, cfg.Password, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	return nil, fmt.Errorf("no suitable credentials found for Kerberos authentication")
}

// buildServicePrincipal returns the SPN override or "ldap/<host>".
func buildServicePrincipal(cfg *ConnectionConfig) (string, error) {
	if cfg.KerberosSPN != "" {
		return cfg.KerberosSPN, nil
	}

	host := cfg.Host()
	if host == "" {
		return "", fmt.Errorf("no hostname found in URL %q", cfg.URL)
	}

	return "ldap/" + host, nil
}

// prepareKerberosConfig returns a copy of cfg with the krb5.conf default
// applied and the realm split off a "user@REALM" principal.
func prepareKerberosConfig(cfg *ConnectionConfig) (*ConnectionConfig, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	out := *cfg

	if out.KerberosConfig == "" {
		out.KerberosConfig = defaultKrb5Conf
	}

	if user, realm, ok := strings.Cut(out.Username, "@"); ok && out.KerberosRealm == "" {
		out.Username = user
		out.KerberosRealm = realm
	}

	if out.KerberosRealm == "" {
		return nil, fmt.Errorf("kerberos realm is required (set kerberos_realm or use user@REALM)")
	}

	if out.Username == "" {
		return nil, fmt.Errorf("principal is required for Kerberos authentication")
	}

	return &out, nil
}

// getDefaultCCachePath returns the default credential cache location.
func getDefaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

// getDefaultKeytabPath returns the default keytab location.
func getDefaultKeytabPath() string {
	if keytab := os.Getenv("KRB5_KTNAME"); keytab != "" {
		return strings.TrimPrefix(keytab, "FILE:")
	}
	return "/etc/krb5.keytab"
}

// fileExists checks if a file exists and is readable.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
