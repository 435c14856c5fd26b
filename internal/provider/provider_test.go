package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/providerserver"
	"github.com/hashicorp/terraform-plugin-framework/tfsdk"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-go/tfprotov6"
	"github.com/hashicorp/terraform-plugin-go/tftypes"
	"github.com/hashicorp/terraform-plugin-testing/helper/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap/ldaptest"
)

// testAccProtoV6ProviderFactories is used to instantiate a provider during acceptance testing.
// The factory function is called for each Terraform CLI command to create a provider
// server that the CLI can connect to and interact with.
var testAccProtoV6ProviderFactories = map[string]func() (tfprotov6.ProviderServer, error){
	"ldap3orm": providerserver.NewProtocol6WithError(New("test")()),
}

func testAccPreCheck(t *testing.T) {
	testAccPreCheckWithConfig(t)
}

// configureProvider runs Configure with the given attributes, all others null.
func configureProvider(t *testing.T, attrs map[string]tftypes.Value) *provider.ConfigureResponse {
	t.Helper()
	ctx := context.Background()

	p := New("test")()
	schemaResp := &provider.SchemaResponse{}
	p.Schema(ctx, provider.SchemaRequest{}, schemaResp)
	require.False(t, schemaResp.Diagnostics.HasError())

	objType := schemaResp.Schema.Type().TerraformType(ctx).(tftypes.Object)
	values := make(map[string]tftypes.Value, len(objType.AttributeTypes))
	for name, typ := range objType.AttributeTypes {
		if v, ok := attrs[name]; ok {
			values[name] = v
			continue
		}
		values[name] = tftypes.NewValue(typ, nil)
	}

	req := provider.ConfigureRequest{
		Config: tfsdk.Config{
			Schema: schemaResp.Schema,
			Raw:    tftypes.NewValue(objType, values),
		},
	}
	resp := &provider.ConfigureResponse{}
	p.Configure(ctx, req, resp)
	return resp
}

// useClient replaces the client constructor for the duration of the test.
func useClient(t *testing.T, client ldap.Client, captured **ldap.ConnectionConfig) {
	t.Helper()
	orig := newClient
	newClient = func(_ context.Context, cfg *ldap.ConnectionConfig) (ldap.Client, error) {
		if captured != nil {
			*captured = cfg
		}
		return client, nil
	}
	t.Cleanup(func() { newClient = orig })
}

// clearProviderEnv unsets every provider environment variable for the test.
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		EnvConfig, EnvURL, EnvDomain, EnvBaseDN, EnvBindDN, EnvBindPassword, EnvAuthMethod,
		EnvStartTLS, EnvSkipTLSVerify, EnvTLSCACertFile, EnvTLSCACert, EnvConnectTimeout,
		EnvKerberosRealm, EnvKerberosKeytab, EnvKerberosConfig, EnvKerberosCCache, EnvKerberosSPN,
		EnvHostgroupBaseDN, EnvHostBaseDN, EnvVaultPasswordFile,
	} {
		t.Setenv(env, "")
	}
}

func TestProviderConfigure_Inline(t *testing.T) {
	clearProviderEnv(t)

	dir := ldaptest.NewDirectory()
	var captured *ldap.ConnectionConfig
	useClient(t, dir, &captured)

	resp := configureProvider(t, map[string]tftypes.Value{
		"url":             tftypes.NewValue(tftypes.String, "ldaps://ipa.example.com"),
		"base_dn":         tftypes.NewValue(tftypes.String, "cn=accounts,dc=example,dc=com"),
		"bind_dn":         tftypes.NewValue(tftypes.String, "uid=admin,cn=users,cn=accounts,dc=example,dc=com"),
		"bind_password":   tftypes.NewValue(tftypes.String, "secret"),
		"connect_timeout": tftypes.NewValue(tftypes.Number, 5),
		"tls_ca_cert":     tftypes.NewValue(tftypes.String, "-----BEGIN CERTIFICATE-----"),
	})
	require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)

	data, ok := resp.ResourceData.(*ProviderData)
	require.True(t, ok)
	assert.Same(t, dir, data.Client)
	assert.Equal(t, resp.ResourceData, resp.DataSourceData)
	assert.Equal(t, "cn=hostgroups,cn=accounts,dc=example,dc=com", data.Config.HostgroupBaseDN)
	assert.Equal(t, "cn=computers,cn=accounts,dc=example,dc=com", data.Config.HostBaseDN)

	require.NotNil(t, captured)
	assert.Equal(t, "ldaps://ipa.example.com", captured.URL)
	assert.Equal(t, "uid=admin,cn=users,cn=accounts,dc=example,dc=com", captured.Username)
	assert.Equal(t, "secret", captured.Password)
	assert.Equal(t, ldap.AuthMethodSimpleBind, captured.AuthMethod)
	assert.Equal(t, 5*time.Second, captured.Timeout)
	assert.Equal(t, "-----BEGIN CERTIFICATE-----", captured.TLSCACert)
}

func TestProviderConfigure_ConfigFile(t *testing.T) {
	clearProviderEnv(t)

	path := filepath.Join(t.TempDir(), "ipa")
	require.NoError(t, os.WriteFile(path, []byte(`
url = "ldap://ipa.example.com"
base_dn = "cn=accounts,dc=example,dc=com"

[connconfig]
user = "uid=admin,cn=users,cn=accounts,dc=example,dc=com"
password = "secret"
start_tls = true
`), 0o600))

	var captured *ldap.ConnectionConfig
	useClient(t, ldaptest.NewDirectory(), &captured)

	resp := configureProvider(t, map[string]tftypes.Value{
		"config":       tftypes.NewValue(tftypes.String, path),
		"host_base_dn": tftypes.NewValue(tftypes.String, "cn=hosts,dc=example,dc=com"),
	})
	require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)

	data := resp.ResourceData.(*ProviderData)
	assert.Equal(t, path, data.Config.Path())
	assert.Equal(t, "cn=hosts,dc=example,dc=com", data.Config.HostBaseDN)
	assert.Equal(t, "cn=hostgroups,cn=accounts,dc=example,dc=com", data.Config.HostgroupBaseDN)

	require.NotNil(t, captured)
	assert.Equal(t, "ldap://ipa.example.com", captured.URL)
	assert.True(t, captured.StartTLS)
}

func TestProviderConfigure_Errors(t *testing.T) {
	clearProviderEnv(t)

	tests := []struct {
		name       string
		attrs      map[string]tftypes.Value
		connectErr error
		wantError  string
	}{
		{
			name: "missing config file",
			attrs: map[string]tftypes.Value{
				"config": tftypes.NewValue(tftypes.String, filepath.Join(t.TempDir(), "missing")),
			},
			wantError: "Invalid ldap3-orm Configuration",
		},
		{
			name: "bind dn required for simple auth",
			attrs: map[string]tftypes.Value{
				"url": tftypes.NewValue(tftypes.String, "ldaps://ipa.example.com"),
			},
			wantError: "Invalid ldap3-orm Configuration",
		},
		{
			name: "connect failure",
			attrs: map[string]tftypes.Value{
				"url":         tftypes.NewValue(tftypes.String, "ldaps://ipa.example.com"),
				"auth_method": tftypes.NewValue(tftypes.String, "anonymous"),
			},
			connectErr: errors.New("connection refused"),
			wantError:  "Unable to Connect to the Directory",
		},
		{
			name: "invalid credentials",
			attrs: map[string]tftypes.Value{
				"url":           tftypes.NewValue(tftypes.String, "ldaps://ipa.example.com"),
				"bind_dn":       tftypes.NewValue(tftypes.String, "uid=admin,cn=users,cn=accounts,dc=example,dc=com"),
				"bind_password": tftypes.NewValue(tftypes.String, "wrong"),
			},
			connectErr: ldap.NewLDAPError("bind", "uid=admin,cn=users,cn=accounts,dc=example,dc=com",
				goldap.NewError(goldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))),
			wantError: "Unable to Authenticate to the Directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &ldaptest.MockClient{}
			client.On("Connect", mock.Anything).Return(tt.connectErr).Maybe()
			useClient(t, client, nil)

			resp := configureProvider(t, tt.attrs)
			require.True(t, resp.Diagnostics.HasError())
			assert.Equal(t, tt.wantError, resp.Diagnostics.Errors()[0].Summary())
			assert.Nil(t, resp.ResourceData)
		})
	}
}

func TestConfigName(t *testing.T) {
	tests := []struct {
		name string
		data Ldap3ormProviderModel
		env  map[string]string
		want string
	}{
		{
			name: "default",
			want: defaultConfigName,
		},
		{
			name: "attribute wins over inline environment",
			data: Ldap3ormProviderModel{Config: types.StringValue("ipa")},
			env:  map[string]string{EnvURL: "ldap://localhost"},
			want: "ipa",
		},
		{
			name: "environment",
			env:  map[string]string{EnvConfig: "ipa"},
			want: "ipa",
		},
		{
			name: "inline url wins over environment config",
			env:  map[string]string{EnvConfig: "ipa", EnvURL: "ldap://localhost"},
			want: "",
		},
		{
			name: "inline domain",
			env:  map[string]string{EnvDomain: "example.com"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearProviderEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, configName(&tt.data))
		})
	}
}

// TestAccProvider_WhoAmI checks the provider binds as the configured account.
func TestAccProvider_WhoAmI(t *testing.T) {
	config := GetTestConfig()

	resource.Test(t, resource.TestCase{
		PreCheck:                 func() { testAccPreCheck(t) },
		ProtoV6ProviderFactories: testAccProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: TestProviderConfig() + `data "ldap3orm_whoami" "test" {}`,
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttrSet("data.ldap3orm_whoami.test", "authz_id"),
					resource.TestCheckResourceAttr("data.ldap3orm_whoami.test", "dn", config.BindDN),
				),
			},
		},
	})
}
