package provider_test

import (
	"strings"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/providerserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	this "github.com/l3o/terraform-provider-ldap3orm/internal/provider"
)

// TestProviderMetadata tests the provider metadata.
func TestProviderMetadata(t *testing.T) {
	p := &this.Ldap3ormProvider{Version: "test"}

	req := provider.MetadataRequest{}
	resp := &provider.MetadataResponse{}

	p.Metadata(t.Context(), req, resp)

	assert.Equal(t, "ldap3orm", resp.TypeName)
	assert.Equal(t, "test", resp.Version)
}

// TestProviderSchema tests the provider schema.
func TestProviderSchema(t *testing.T) {
	p := &this.Ldap3ormProvider{}

	req := provider.SchemaRequest{}
	resp := &provider.SchemaResponse{}

	p.Schema(t.Context(), req, resp)

	require.False(t, resp.Diagnostics.HasError(), "Schema creation failed: %v", resp.Diagnostics)

	attributes := []string{
		"config", "vault_password_file",
		"url", "domain", "base_dn", "bind_dn", "bind_password", "auth_method",
		"start_tls", "skip_tls_verify", "tls_ca_cert_file", "tls_ca_cert",
		"connect_timeout",
		"kerberos_realm", "kerberos_keytab", "kerberos_config", "kerberos_ccache", "kerberos_spn",
		"hostgroup_base_dn", "host_base_dn",
	}

	for _, attr := range attributes {
		assert.Contains(t, resp.Schema.Attributes, attr)
	}

	for name, attr := range resp.Schema.Attributes {
		assert.True(t, attr.IsOptional(), "attribute %s should be optional", name)
	}

	assert.True(t, resp.Schema.Attributes["bind_password"].IsSensitive())
}

// TestProviderResources tests the provider resources.
func TestProviderResources(t *testing.T) {
	p := &this.Ldap3ormProvider{}

	resources := p.Resources(t.Context())
	require.Len(t, resources, 1)

	for i, resourceFunc := range resources {
		assert.NotNil(t, resourceFunc(), "Resource function %d returned nil", i)
	}
}

// TestProviderDataSources tests the provider data sources.
func TestProviderDataSources(t *testing.T) {
	p := &this.Ldap3ormProvider{}

	dataSources := p.DataSources(t.Context())
	require.Len(t, dataSources, 3)

	for i, dataSourceFunc := range dataSources {
		assert.NotNil(t, dataSourceFunc(), "Data source function %d returned nil", i)
	}
}

// TestProviderConfigValidators tests the provider config validators.
func TestProviderConfigValidators(t *testing.T) {
	p := &this.Ldap3ormProvider{}

	validators := p.ConfigValidators(t.Context())
	require.NotEmpty(t, validators)

	for i, validator := range validators {
		assert.NotNil(t, validator, "Config validator %d is nil", i)
	}
}

// TestProviderFunctions tests the provider functions.
func TestProviderFunctions(t *testing.T) {
	p := &this.Ldap3ormProvider{}

	functions := p.Functions(t.Context())
	require.Len(t, functions, 1)
	assert.NotNil(t, functions[0]())
}

// TestNewProvider tests the New provider function.
func TestNewProvider(t *testing.T) {
	testCases := []struct {
		name    string
		version string
	}{
		{
			name:    "test version",
			version: "test",
		},
		{
			name:    "dev version",
			version: "dev",
		},
		{
			name:    "release version",
			version: "1.0.0",
		},
		{
			name:    "empty version",
			version: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			providerFunc := this.New(tc.version)
			require.NotNil(t, providerFunc)

			p, ok := providerFunc().(*this.Ldap3ormProvider)
			require.True(t, ok, "Provider is not of type *Ldap3ormProvider")
			assert.Equal(t, tc.version, p.Version)
		})
	}
}

// TestProviderServer tests provider server creation.
func TestProviderServer(t *testing.T) {
	serverFactory := providerserver.NewProtocol6WithError(this.New("test")())
	require.NotNil(t, serverFactory)

	server, err := serverFactory()
	require.NoError(t, err)
	assert.NotNil(t, server)
}

// TestProviderEnvironmentVariables checks that every environment variable is
// documented on its attribute.
func TestProviderEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"config":              this.EnvConfig,
		"vault_password_file": this.EnvVaultPasswordFile,
		"url":                 this.EnvURL,
		"domain":              this.EnvDomain,
		"base_dn":             this.EnvBaseDN,
		"bind_dn":             this.EnvBindDN,
		"bind_password":       this.EnvBindPassword,
		"auth_method":         this.EnvAuthMethod,
		"start_tls":           this.EnvStartTLS,
		"skip_tls_verify":     this.EnvSkipTLSVerify,
		"tls_ca_cert_file":    this.EnvTLSCACertFile,
		"tls_ca_cert":         this.EnvTLSCACert,
		"connect_timeout":     this.EnvConnectTimeout,
		"kerberos_realm":      this.EnvKerberosRealm,
		"kerberos_keytab":     this.EnvKerberosKeytab,
		"kerberos_config":     this.EnvKerberosConfig,
		"kerberos_ccache":     this.EnvKerberosCCache,
		"kerberos_spn":        this.EnvKerberosSPN,
		"hostgroup_base_dn":   this.EnvHostgroupBaseDN,
		"host_base_dn":        this.EnvHostBaseDN,
	}

	p := &this.Ldap3ormProvider{}
	resp := &provider.SchemaResponse{}
	p.Schema(t.Context(), provider.SchemaRequest{}, resp)

	for name, envVar := range envVars {
		attr, ok := resp.Schema.Attributes[name]
		require.True(t, ok, "attribute %s not in schema", name)
		assert.True(t, strings.Contains(attr.GetMarkdownDescription(), envVar),
			"attribute %s should document %s", name, envVar)
	}
}
