package provider

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework-validators/listvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/l3o/terraform-provider-ldap3orm/internal/entry"
	ldapclient "github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
	"github.com/l3o/terraform-provider-ldap3orm/internal/provider/helpers"
	"github.com/l3o/terraform-provider-ldap3orm/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &EntryDataSource{}

func NewEntryDataSource() datasource.DataSource {
	return &EntryDataSource{}
}

// EntryDataSource defines the data source implementation.
type EntryDataSource struct {
	client ldapclient.Client
}

// EntryDataSourceModel describes the data source data model.
type EntryDataSourceModel struct {
	ID            types.String `tfsdk:"id"`             // Normalized DN
	DN            types.String `tfsdk:"dn"`             // Required - entry to read
	Attributes    types.List   `tfsdk:"attributes"`     // Optional - attributes to return
	ObjectClasses types.Set    `tfsdk:"object_classes"` // Computed
	Values        types.Map    `tfsdk:"values"`         // Computed - attribute values by name
}

func (d *EntryDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_entry"
}

func (d *EntryDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Reads one LDAP entry by DN. Fails when the entry does not exist.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The normalized DN of the entry.",
				Computed:            true,
			},
			"dn": schema.StringAttribute{
				MarkdownDescription: "The Distinguished Name of the entry. Example: `cn=webservers,cn=hostgroups,cn=accounts,dc=example,dc=com`",
				Required:            true,
				Validators: []validator.String{
					validators.IsValidDN(),
				},
			},
			"attributes": schema.ListAttribute{
				MarkdownDescription: "Names of the attributes to return. All user attributes are returned when omitted.",
				ElementType:         types.StringType,
				Optional:            true,
				Validators: []validator.List{
					listvalidator.UniqueValues(),
					listvalidator.ValueStringsAre(stringvalidator.LengthAtLeast(1)),
				},
			},
			"object_classes": schema.SetAttribute{
				MarkdownDescription: "The object classes of the entry.",
				ElementType:         types.StringType,
				Computed:            true,
			},
			"values": schema.MapAttribute{
				MarkdownDescription: "The attribute values of the entry by attribute name, `objectClass` excluded.",
				ElementType:         types.ListType{ElemType: types.StringType},
				Computed:            true,
			},
		},
	}
}

func (d *EntryDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	providerData := providerDataFrom(req.ProviderData, "Data Source", &resp.Diagnostics)
	if providerData == nil {
		return
	}

	d.client = providerData.Client
}

func (d *EntryDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data EntryDataSourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	dn, err := ldapclient.SafeDN(data.DN.ValueString())
	if err != nil {
		resp.Diagnostics.AddError(
			"Invalid Distinguished Name",
			fmt.Sprintf("Could not parse DN %q: %s", data.DN.ValueString(), err.Error()),
		)
		return
	}

	var names []string
	if !data.Attributes.IsNull() {
		resp.Diagnostics.Append(data.Attributes.ElementsAs(ctx, &names, false)...)
		if resp.Diagnostics.HasError() {
			return
		}
	}

	tflog.Debug(ctx, "Reading LDAP entry", map[string]any{
		"dn":         dn,
		"attributes": names,
	})

	actual, err := entry.NewReconciler(d.client).Lookup(ctx, dn)
	if err != nil {
		resp.Diagnostics.AddError(
			"Error Reading Entry",
			fmt.Sprintf("Could not read entry %s: %s", dn, err.Error()),
		)
		return
	}
	if actual == nil {
		resp.Diagnostics.AddError(
			"Entry Not Found",
			fmt.Sprintf("No entry exists at %s.", dn),
		)
		return
	}

	values := make(map[string][]string)
	for name, vals := range ldapclient.EntryAttributes(actual) {
		if strings.EqualFold(name, ldapclient.ObjectClassAttribute) {
			continue
		}
		if len(names) > 0 && !slices.ContainsFunc(names, func(n string) bool { return strings.EqualFold(n, name) }) {
			continue
		}
		values[name] = vals
	}

	var diags diag.Diagnostics
	data.ID = types.StringValue(dn)

	data.ObjectClasses, diags = types.SetValueFrom(ctx, types.StringType, ldapclient.AttributeValues(actual, ldapclient.ObjectClassAttribute))
	resp.Diagnostics.Append(diags...)

	data.Values, diags = helpers.StringListMapValue(ctx, values)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
