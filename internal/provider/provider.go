package provider

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/providervalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/function"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/l3o/terraform-provider-ldap3orm/internal/config"
	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
	"github.com/l3o/terraform-provider-ldap3orm/internal/provider/validators"
)

// Environment variables read when the matching provider attribute is unset.
const (
	EnvConfig            = "LDAP3_ORM_CONFIG"
	EnvURL               = "LDAP3_ORM_URL"
	EnvDomain            = "LDAP3_ORM_DOMAIN"
	EnvBaseDN            = "LDAP3_ORM_BASE_DN"
	EnvBindDN            = "LDAP3_ORM_BIND_DN"
	EnvBindPassword      = "LDAP3_ORM_BIND_PASSWORD"
	EnvAuthMethod        = "LDAP3_ORM_AUTH_METHOD"
	EnvStartTLS          = "LDAP3_ORM_START_TLS"
	EnvSkipTLSVerify     = "LDAP3_ORM_SKIP_TLS_VERIFY"
	EnvTLSCACertFile     = "LDAP3_ORM_TLS_CA_CERT_FILE"
	EnvTLSCACert         = "LDAP3_ORM_TLS_CA_CERT"
	EnvConnectTimeout    = "LDAP3_ORM_CONNECT_TIMEOUT"
	EnvKerberosRealm     = "LDAP3_ORM_KERBEROS_REALM"
	EnvKerberosKeytab    = "LDAP3_ORM_KERBEROS_KEYTAB"
	EnvKerberosConfig    = "LDAP3_ORM_KERBEROS_CONFIG"
	EnvKerberosCCache    = "LDAP3_ORM_KERBEROS_CCACHE"
	EnvKerberosSPN       = "LDAP3_ORM_KERBEROS_SPN"
	EnvHostgroupBaseDN   = "LDAP3_ORM_HOSTGROUP_BASE_DN"
	EnvHostBaseDN        = "LDAP3_ORM_HOST_BASE_DN"
	EnvVaultPasswordFile = "ANSIBLE_VAULT_PASSWORD_FILE"
)

// defaultConfigName is used when neither a configuration nor an inline
// server is given.
const defaultConfigName = "default"

// newClient is replaced in tests.
var newClient = ldap.NewClient

// Ensure Ldap3ormProvider satisfies various provider interfaces.
var _ provider.Provider = &Ldap3ormProvider{}
var _ provider.ProviderWithFunctions = &Ldap3ormProvider{}
var _ provider.ProviderWithConfigValidators = &Ldap3ormProvider{}

// Ldap3ormProvider defines the provider implementation.
type Ldap3ormProvider struct {
	// Version is set to the provider version on release, "dev" when the
	// provider is built and ran locally, and "test" when running acceptance
	// testing.
	Version string
}

// Ldap3ormProviderModel describes the provider data model.
type Ldap3ormProviderModel struct {
	// ldap3-orm configuration file, mutually exclusive with inline settings
	Config            types.String `tfsdk:"config"`
	VaultPasswordFile types.String `tfsdk:"vault_password_file"`

	// Inline connection settings
	URL          types.String `tfsdk:"url"`
	Domain       types.String `tfsdk:"domain"`
	BaseDN       types.String `tfsdk:"base_dn"`
	BindDN       types.String `tfsdk:"bind_dn"`
	BindPassword types.String `tfsdk:"bind_password"`
	AuthMethod   types.String `tfsdk:"auth_method"`

	// TLS settings
	StartTLS      types.Bool   `tfsdk:"start_tls"`
	SkipTLSVerify types.Bool   `tfsdk:"skip_tls_verify"`
	TLSCACertFile types.String `tfsdk:"tls_ca_cert_file"`
	TLSCACert     types.String `tfsdk:"tls_ca_cert"`

	ConnectTimeout types.Int64 `tfsdk:"connect_timeout"`

	// Kerberos settings
	KerberosRealm  types.String `tfsdk:"kerberos_realm"`
	KerberosKeytab types.String `tfsdk:"kerberos_keytab"`
	KerberosConfig types.String `tfsdk:"kerberos_config"`
	KerberosCCache types.String `tfsdk:"kerberos_ccache"`
	KerberosSPN    types.String `tfsdk:"kerberos_spn"`

	// FreeIPA containers, override the configuration
	HostgroupBaseDN types.String `tfsdk:"hostgroup_base_dn"`
	HostBaseDN      types.String `tfsdk:"host_base_dn"`
}

func (p *Ldap3ormProvider) Metadata(ctx context.Context, req provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "ldap3orm"
	resp.Version = p.Version
}

func (p *Ldap3ormProvider) Schema(ctx context.Context, req provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "The ldap3orm provider manages LDAP entries the way the ldap3-orm Ansible module does and reads " +
			"FreeIPA host groups as an inventory. Connection settings come from an ldap3-orm configuration file or from " +
			"the inline attributes below.",
		Attributes: map[string]schema.Attribute{
			"config": schema.StringAttribute{
				MarkdownDescription: "Name or path of an ldap3-orm configuration file. A bare name is looked up in " +
					"`$XDG_CONFIG_HOME/ldap3-orm/`. Mutually exclusive with `url` and `domain`. " +
					"Defaults to `default` when no inline server is given. Can be set via the `LDAP3_ORM_CONFIG` environment variable.",
				Optional: true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"vault_password_file": schema.StringAttribute{
				MarkdownDescription: "Password file passed to `ansible-vault` when the configuration file is vault encrypted. " +
					"Can be set via the `ANSIBLE_VAULT_PASSWORD_FILE` environment variable.",
				Optional: true,
			},
			"url": schema.StringAttribute{
				MarkdownDescription: "Directory URL (e.g., `ldaps://ipa.example.com`). " +
					"Can be set via the `LDAP3_ORM_URL` environment variable.",
				Optional: true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"domain": schema.StringAttribute{
				MarkdownDescription: "DNS domain whose `_ldap._tcp` SRV records locate the server when `url` is not set. " +
					"Can be set via the `LDAP3_ORM_DOMAIN` environment variable.",
				Optional: true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"base_dn": schema.StringAttribute{
				MarkdownDescription: "Base DN of the directory (e.g., `dc=example,dc=com`). " +
					"Can be set via the `LDAP3_ORM_BASE_DN` environment variable.",
				Optional: true,
				Validators: []validator.String{
					validators.IsValidDN(),
				},
			},
			"bind_dn": schema.StringAttribute{
				MarkdownDescription: "DN to bind as, or the principal for Kerberos authentication. " +
					"Can be set via the `LDAP3_ORM_BIND_DN` environment variable.",
				Optional: true,
			},
			"bind_password": schema.StringAttribute{
				MarkdownDescription: "Bind password. The value `keyring` reads the password from the system keyring. " +
					"Can be set via the `LDAP3_ORM_BIND_PASSWORD` environment variable.",
				Optional:  true,
				Sensitive: true,
			},
			"auth_method": schema.StringAttribute{
				MarkdownDescription: "Authentication method: `simple`, `kerberos` or `anonymous`. Defaults to `simple`. " +
					"Can be set via the `LDAP3_ORM_AUTH_METHOD` environment variable.",
				Optional: true,
				Validators: []validator.String{
					validators.CaseInsensitiveOneOf(ldap.AuthMethods...),
				},
			},

			// TLS settings
			"start_tls": schema.BoolAttribute{
				MarkdownDescription: "Upgrade `ldap://` connections with StartTLS. " +
					"Can be set via the `LDAP3_ORM_START_TLS` environment variable.",
				Optional: true,
			},
			"skip_tls_verify": schema.BoolAttribute{
				MarkdownDescription: "Skip verification of the server certificate. Not recommended for production. " +
					"Can be set via the `LDAP3_ORM_SKIP_TLS_VERIFY` environment variable.",
				Optional: true,
			},
			"tls_ca_cert_file": schema.StringAttribute{
				MarkdownDescription: "Path to a PEM CA certificate used to verify the server. " +
					"Can be set via the `LDAP3_ORM_TLS_CA_CERT_FILE` environment variable.",
				Optional: true,
			},
			"tls_ca_cert": schema.StringAttribute{
				MarkdownDescription: "PEM CA certificate used to verify the server. " +
					"Can be set via the `LDAP3_ORM_TLS_CA_CERT` environment variable.",
				Optional: true,
			},
			"connect_timeout": schema.Int64Attribute{
				MarkdownDescription: "Dial and request timeout in seconds. Defaults to `30`. " +
					"Can be set via the `LDAP3_ORM_CONNECT_TIMEOUT` environment variable.",
				Optional: true,
				Validators: []validator.Int64{
					int64validator.AtLeast(1),
				},
			},

			// Kerberos settings
			"kerberos_realm": schema.StringAttribute{
				MarkdownDescription: "Kerberos realm for GSSAPI authentication (e.g., `EXAMPLE.COM`). " +
					"Can be set via the `LDAP3_ORM_KERBEROS_REALM` environment variable.",
				Optional: true,
			},
			"kerberos_keytab": schema.StringAttribute{
				MarkdownDescription: "Path to a Kerberos keytab file. " +
					"Can be set via the `LDAP3_ORM_KERBEROS_KEYTAB` environment variable.",
				Optional: true,
			},
			"kerberos_config": schema.StringAttribute{
				MarkdownDescription: "Path to the Kerberos configuration file (krb5.conf). " +
					"Can be set via the `LDAP3_ORM_KERBEROS_CONFIG` environment variable.",
				Optional: true,
			},
			"kerberos_ccache": schema.StringAttribute{
				MarkdownDescription: "Path to a Kerberos credential cache. " +
					"Can be set via the `LDAP3_ORM_KERBEROS_CCACHE` environment variable.",
				Optional: true,
			},
			"kerberos_spn": schema.StringAttribute{
				MarkdownDescription: "Service principal of the directory server. Defaults to `ldap/<host>`. " +
					"Can be set via the `LDAP3_ORM_KERBEROS_SPN` environment variable.",
				Optional: true,
			},

			"hostgroup_base_dn": schema.StringAttribute{
				MarkdownDescription: "Container of the FreeIPA host groups. Defaults to `cn=hostgroups,<base_dn>`. " +
					"Can be set via the `LDAP3_ORM_HOSTGROUP_BASE_DN` environment variable.",
				Optional: true,
				Validators: []validator.String{
					validators.IsValidDN(),
				},
			},
			"host_base_dn": schema.StringAttribute{
				MarkdownDescription: "Container of the FreeIPA hosts. Defaults to `cn=computers,<base_dn>`. " +
					"Can be set via the `LDAP3_ORM_HOST_BASE_DN` environment variable.",
				Optional: true,
				Validators: []validator.String{
					validators.IsValidDN(),
				},
			},
		},
	}
}

func (p *Ldap3ormProvider) ConfigValidators(ctx context.Context) []provider.ConfigValidator {
	return []provider.ConfigValidator{
		// A configuration file carries its own server
		providervalidator.Conflicting(
			path.MatchRoot("config"),
			path.MatchRoot("url"),
		),
		providervalidator.Conflicting(
			path.MatchRoot("config"),
			path.MatchRoot("domain"),
		),
		providervalidator.Conflicting(
			path.MatchRoot("url"),
			path.MatchRoot("domain"),
		),
		providervalidator.Conflicting(
			path.MatchRoot("tls_ca_cert_file"),
			path.MatchRoot("tls_ca_cert"),
		),
	}
}

func (p *Ldap3ormProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var data Ldap3ormProviderModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	ctx = p.configureLogging(ctx)

	tflog.Info(ctx, "Configuring ldap3orm provider", map[string]any{
		"version": p.Version,
	})

	start := time.Now()
	cfg, err := p.resolveConfig(ctx, &data)
	if err != nil {
		tflog.Error(ctx, "Failed to resolve configuration", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		resp.Diagnostics.AddError(
			"Invalid ldap3-orm Configuration",
			"The provider could not resolve its directory configuration. "+
				"Please verify the configuration file or the inline connection settings.\n\n"+
				"Configuration Error: "+err.Error(),
		)
		return
	}

	connConfig := cfg.ConnectionConfig()
	if pem := getStringValue(data.TLSCACert, EnvTLSCACert); pem != "" {
		connConfig.TLSCACert = pem
	}

	start = time.Now()
	client, err := newClient(ctx, connConfig)
	if err != nil {
		tflog.Error(ctx, "Failed to create LDAP client", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		resp.Diagnostics.AddError(
			"Unable to Create LDAP Client",
			"An unexpected error occurred when creating the LDAP client. "+
				"If the error is not clear, please contact the provider developers.\n\n"+
				"LDAP Client Error: "+err.Error(),
		)
		return
	}

	if err := client.Connect(ctx); err != nil {
		tflog.Error(ctx, "Connection failed", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		resp.Diagnostics.AddError(connectErrorSummary(err),
			"The provider could not connect and bind to the directory server. "+
				"Please verify your connection and authentication settings.\n\n"+
				"Connection Error: "+err.Error(),
		)
		return
	}

	tflog.Info(ctx, "ldap3orm provider configured successfully", map[string]any{
		"url":         connConfig.URL,
		"auth_method": connConfig.AuthMethod.String(),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	providerData := &ProviderData{Client: client, Config: cfg}
	resp.DataSourceData = providerData
	resp.ResourceData = providerData
}

// connectErrorSummary names the stage of Connect that failed.
func connectErrorSummary(err error) string {
	switch {
	case ldap.IsAuthenticationError(err):
		return "Unable to Authenticate to the Directory"
	case ldap.IsPermissionError(err):
		return "Directory Bind Not Permitted"
	default:
		return "Unable to Connect to the Directory"
	}
}

// configureLogging adds the persistent provider fields.
func (p *Ldap3ormProvider) configureLogging(ctx context.Context) context.Context {
	ctx = tflog.SetField(ctx, "provider", "ldap3orm")
	ctx = tflog.SetField(ctx, "provider_version", p.Version)
	return ctx
}

// resolveConfig loads the configuration file, or builds the configuration
// from the inline attributes, and applies the FreeIPA container overrides.
func (p *Ldap3ormProvider) resolveConfig(ctx context.Context, data *Ldap3ormProviderModel) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if name := configName(data); name != "" {
		decrypter := config.VaultDecrypter{}
		if file := getStringValue(data.VaultPasswordFile, EnvVaultPasswordFile); file != "" {
			decrypter.Args = []string{"--vault-password-file", file}
		}

		tflog.Debug(ctx, "Loading ldap3-orm configuration file", map[string]any{
			"config": name,
		})
		cfg, err = config.Load(ctx, name, config.WithDecrypter(decrypter))
	} else {
		tflog.Debug(ctx, "Using inline connection settings")
		cfg, err = config.Resolve(ctx, inlineConfig(data))
	}
	if err != nil {
		return nil, err
	}

	if dn := getStringValue(data.HostgroupBaseDN, EnvHostgroupBaseDN); dn != "" {
		cfg.HostgroupBaseDN = dn
	}
	if dn := getStringValue(data.HostBaseDN, EnvHostBaseDN); dn != "" {
		cfg.HostBaseDN = dn
	}

	return cfg, nil
}

// configName returns the configuration file to load, or "" when the inline
// settings name a server. An explicit config attribute wins over inline
// environment variables, which win over LDAP3_ORM_CONFIG.
func configName(data *Ldap3ormProviderModel) string {
	if name := data.Config.ValueString(); name != "" {
		return name
	}
	if getStringValue(data.URL, EnvURL) != "" || getStringValue(data.Domain, EnvDomain) != "" {
		return ""
	}
	if name := os.Getenv(EnvConfig); name != "" {
		return name
	}
	return defaultConfigName
}

// inlineConfig builds an unresolved configuration from the provider
// attributes and their environment variables.
func inlineConfig(data *Ldap3ormProviderModel) *config.Config {
	cfg := &config.Config{
		URL:    getStringValue(data.URL, EnvURL),
		Domain: getStringValue(data.Domain, EnvDomain),
		BaseDN: getStringValue(data.BaseDN, EnvBaseDN),
		Conn: config.ConnConfig{
			User:           getStringValue(data.BindDN, EnvBindDN),
			Password:       getStringValue(data.BindPassword, EnvBindPassword),
			AuthMethod:     getStringValue(data.AuthMethod, EnvAuthMethod),
			StartTLS:       getBoolValue(data.StartTLS, EnvStartTLS, false),
			SkipTLSVerify:  getBoolValue(data.SkipTLSVerify, EnvSkipTLSVerify, false),
			CACertFile:     getStringValue(data.TLSCACertFile, EnvTLSCACertFile),
			KerberosRealm:  getStringValue(data.KerberosRealm, EnvKerberosRealm),
			KerberosKeytab: getStringValue(data.KerberosKeytab, EnvKerberosKeytab),
			KerberosConfig: getStringValue(data.KerberosConfig, EnvKerberosConfig),
			KerberosCCache: getStringValue(data.KerberosCCache, EnvKerberosCCache),
			KerberosSPN:    getStringValue(data.KerberosSPN, EnvKerberosSPN),
		},
	}

	if timeout := getInt64Value(data.ConnectTimeout, EnvConnectTimeout, 0); timeout > 0 {
		cfg.Conn.Timeout = time.Duration(timeout) * time.Second
	}

	return cfg
}

// Helper functions for configuration value resolution

func getStringValue(configValue types.String, envVar string) string {
	if !configValue.IsNull() && configValue.ValueString() != "" {
		return configValue.ValueString()
	}
	return os.Getenv(envVar)
}

func getBoolValue(configValue types.Bool, envVar string, defaultValue bool) bool {
	if !configValue.IsNull() && !configValue.IsUnknown() {
		return configValue.ValueBool()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseBool(envValue); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt64Value(configValue types.Int64, envVar string, defaultValue int64) int64 {
	if !configValue.IsNull() && !configValue.IsUnknown() {
		return configValue.ValueInt64()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseInt(envValue, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *Ldap3ormProvider) Resources(ctx context.Context) []func() resource.Resource {
	return []func() resource.Resource{
		NewEntryResource,
	}
}

func (p *Ldap3ormProvider) DataSources(ctx context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewEntryDataSource,
		NewHostgroupsDataSource,
		NewWhoAmIDataSource,
	}
}

func (p *Ldap3ormProvider) Functions(ctx context.Context) []func() function.Function {
	return []func() function.Function{
		NewResolveDNFunction,
	}
}

func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &Ldap3ormProvider{
			Version: version,
		}
	}
}
