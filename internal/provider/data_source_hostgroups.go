package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/l3o/terraform-provider-ldap3orm/internal/config"
	"github.com/l3o/terraform-provider-ldap3orm/internal/inventory"
	ldapclient "github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
	"github.com/l3o/terraform-provider-ldap3orm/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &HostgroupsDataSource{}

func NewHostgroupsDataSource() datasource.DataSource {
	return &HostgroupsDataSource{}
}

// HostgroupsDataSource defines the data source implementation.
type HostgroupsDataSource struct {
	client ldapclient.Client
	config *config.Config
}

// HostgroupsDataSourceModel describes the data source data model.
type HostgroupsDataSourceModel struct {
	ID              types.String `tfsdk:"id"`                // Host-group base DN
	HostgroupBaseDN types.String `tfsdk:"hostgroup_base_dn"` // Optional - overrides the provider setting
	HostBaseDN      types.String `tfsdk:"host_base_dn"`      // Optional - overrides the provider setting
	Groups          types.List   `tfsdk:"groups"`            // Computed - list of hostgroupModel
	Hosts           types.List   `tfsdk:"hosts"`             // Computed - list of hostModel
}

// hostgroupModel represents one inventory group in the data source output.
type hostgroupModel struct {
	Name     types.String `tfsdk:"name"`
	Hosts    types.List   `tfsdk:"hosts"`
	Children types.List   `tfsdk:"children"`
}

// hostModel represents one inventory host in the data source output.
type hostModel struct {
	Name       types.String `tfsdk:"name"`
	MACAddress types.String `tfsdk:"macaddress"`
}

var hostgroupAttrTypes = map[string]attr.Type{
	"name":     types.StringType,
	"hosts":    types.ListType{ElemType: types.StringType},
	"children": types.ListType{ElemType: types.StringType},
}

var hostAttrTypes = map[string]attr.Type{
	"name":       types.StringType,
	"macaddress": types.StringType,
}

func (d *HostgroupsDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_hostgroups"
}

func (d *HostgroupsDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Builds an inventory from FreeIPA host groups. Every `ipaHostGroup` entry below the host-group base " +
			"becomes a group holding its member hosts; a host group that is a member of another host group becomes its child. " +
			"Hosts carry the hardware address of their `ieee802device` entry below the host base.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The host-group base DN the inventory was built from.",
				Computed:            true,
			},
			"hostgroup_base_dn": schema.StringAttribute{
				MarkdownDescription: "Subtree holding the host groups. Defaults to the provider `hostgroup_base_dn`, " +
					"or `cn=hostgroups,<base_dn>`.",
				Optional: true,
				Validators: []validator.String{
					validators.IsValidDN(),
				},
			},
			"host_base_dn": schema.StringAttribute{
				MarkdownDescription: "Subtree holding the host entries. Defaults to the provider `host_base_dn`, " +
					"or `cn=computers,<base_dn>`.",
				Optional: true,
				Validators: []validator.String{
					validators.IsValidDN(),
				},
			},
			"groups": schema.ListNestedAttribute{
				MarkdownDescription: "The groups of the inventory, sorted by name.",
				Computed:            true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"name": schema.StringAttribute{
							MarkdownDescription: "Group name, the `cn` of the host group.",
							Computed:            true,
						},
						"hosts": schema.ListAttribute{
							MarkdownDescription: "Fully qualified names of the direct member hosts, sorted.",
							ElementType:         types.StringType,
							Computed:            true,
						},
						"children": schema.ListAttribute{
							MarkdownDescription: "Names of the child groups, sorted.",
							ElementType:         types.StringType,
							Computed:            true,
						},
					},
				},
			},
			"hosts": schema.ListNestedAttribute{
				MarkdownDescription: "The hosts of the inventory, sorted by name.",
				Computed:            true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"name": schema.StringAttribute{
							MarkdownDescription: "Fully qualified host name.",
							Computed:            true,
						},
						"macaddress": schema.StringAttribute{
							MarkdownDescription: "Hardware address of the host, null when the host has no device entry.",
							Computed:            true,
						},
					},
				},
			},
		},
	}
}

func (d *HostgroupsDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	providerData := providerDataFrom(req.ProviderData, "Data Source", &resp.Diagnostics)
	if providerData == nil {
		return
	}

	d.client = providerData.Client
	d.config = providerData.Config
}

func (d *HostgroupsDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data HostgroupsDataSourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	var opts inventory.Options
	if d.config != nil {
		opts = inventory.OptionsFromConfig(d.config)
	}
	if v := data.HostgroupBaseDN.ValueString(); v != "" {
		opts.HostgroupBaseDN = v
	}
	if v := data.HostBaseDN.ValueString(); v != "" {
		opts.HostBaseDN = v
	}

	if opts.HostgroupBaseDN == "" || opts.HostBaseDN == "" {
		resp.Diagnostics.AddError(
			"Missing Directory Location",
			"Both the host-group base DN and the host base DN must be known. Set base_dn, hostgroup_base_dn and "+
				"host_base_dn in the provider configuration or set hostgroup_base_dn and host_base_dn on this data source.",
		)
		return
	}

	tflog.Debug(ctx, "Building host group inventory", map[string]any{
		"hostgroup_base_dn": opts.HostgroupBaseDN,
		"host_base_dn":      opts.HostBaseDN,
	})

	inv, err := inventory.NewBuilder(d.client, opts).Build(ctx)
	if err != nil {
		resp.Diagnostics.AddError(
			"Error Building Inventory",
			fmt.Sprintf("Could not build the host group inventory: %s", err.Error()),
		)
		return
	}

	data.ID = types.StringValue(opts.HostgroupBaseDN)

	var diags diag.Diagnostics
	data.Groups, diags = groupsValue(ctx, inv)
	resp.Diagnostics.Append(diags...)

	data.Hosts, diags = hostsValue(ctx, inv)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Built host group inventory", map[string]any{
		"groups": len(data.Groups.Elements()),
		"hosts":  len(data.Hosts.Elements()),
	})

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func groupsValue(ctx context.Context, inv *inventory.Inventory) (types.List, diag.Diagnostics) {
	var diags diag.Diagnostics
	groups := make([]hostgroupModel, 0, len(inv.Groups()))

	for _, name := range inv.Groups() {
		group, _ := inv.Group(name)

		hosts, d := types.ListValueFrom(ctx, types.StringType, group.Hosts())
		diags.Append(d...)
		children, d := types.ListValueFrom(ctx, types.StringType, group.Children())
		diags.Append(d...)

		groups = append(groups, hostgroupModel{
			Name:     types.StringValue(name),
			Hosts:    hosts,
			Children: children,
		})
	}

	list, d := types.ListValueFrom(ctx, types.ObjectType{AttrTypes: hostgroupAttrTypes}, groups)
	diags.Append(d...)
	return list, diags
}

func hostsValue(ctx context.Context, inv *inventory.Inventory) (types.List, diag.Diagnostics) {
	hosts := make([]hostModel, 0, len(inv.Hosts()))

	for _, name := range inv.Hosts() {
		host := hostModel{
			Name:       types.StringValue(name),
			MACAddress: types.StringNull(),
		}
		vars, _ := inv.HostVars(name)
		if mac, ok := vars[inventory.MACAddressVar].(string); ok {
			host.MACAddress = types.StringValue(mac)
		}
		hosts = append(hosts, host)
	}

	return types.ListValueFrom(ctx, types.ObjectType{AttrTypes: hostAttrTypes}, hosts)
}
