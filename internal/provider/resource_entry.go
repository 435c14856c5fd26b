package provider

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework-validators/mapvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/setvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	goldap "github.com/go-ldap/ldap/v3"

	"github.com/l3o/terraform-provider-ldap3orm/internal/entry"
	ldapclient "github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
	"github.com/l3o/terraform-provider-ldap3orm/internal/provider/helpers"
	"github.com/l3o/terraform-provider-ldap3orm/internal/provider/planmodifiers"
	customtypes "github.com/l3o/terraform-provider-ldap3orm/internal/provider/types"
	"github.com/l3o/terraform-provider-ldap3orm/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ resource.Resource = &EntryResource{}
var _ resource.ResourceWithImportState = &EntryResource{}

// templateEscaper turns a DN into a DN template that resolves to itself.
var templateEscaper = strings.NewReplacer("{", "{{", "}", "}}")

func NewEntryResource() resource.Resource {
	return &EntryResource{}
}

// EntryResource defines the resource implementation.
type EntryResource struct {
	client ldapclient.Client
}

// EntryResourceModel describes the resource data model.
type EntryResourceModel struct {
	ID            types.String              `tfsdk:"id"`             // Resolved DN (computed)
	DN            types.String              `tfsdk:"dn"`             // Required - DN template
	ObjectClasses types.Set                 `tfsdk:"object_classes"` // Required - classes the entry must carry
	Attributes    types.Map                 `tfsdk:"attributes"`     // Optional - managed attribute values
	ResolvedDN    customtypes.DNStringValue `tfsdk:"resolved_dn"`    // Computed - DN after template resolution
}

func (r *EntryResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_entry"
}

func (r *EntryResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Manages one LDAP entry. The entry is created with the given object classes and attributes if it " +
			"does not exist; otherwise missing object classes are added and attributes whose values differ are replaced " +
			"in a single modify operation. Attributes and object classes that are not listed are left untouched, and an " +
			"existing entry at the resolved DN is adopted.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The resolved DN of the entry.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					planmodifiers.ResolvedDN(),
				},
			},
			"dn": schema.StringAttribute{
				MarkdownDescription: "DN of the entry. `{name}` placeholders are replaced with the single value of the named " +
					"attribute, escaped for use in a DN (e.g., `uid={uid},ou=People,dc=example,dc=com`). " +
					"Use `{{` and `}}` for literal braces.",
				Required: true,
				Validators: []validator.String{
					validators.IsValidDNTemplate(),
				},
			},
			"object_classes": schema.SetAttribute{
				MarkdownDescription: "Object classes the entry must carry. Classes are compared case-insensitively and are " +
					"only ever added to an existing entry.",
				ElementType: types.StringType,
				Required:    true,
				Validators: []validator.Set{
					setvalidator.SizeAtLeast(1),
					setvalidator.ValueStringsAre(stringvalidator.LengthAtLeast(1)),
				},
			},
			"attributes": schema.MapAttribute{
				MarkdownDescription: "Attribute values by attribute name. Values are compared as sets, so order does not matter. " +
					"An empty list removes every value of the attribute. Use `object_classes` rather than `objectClass`. " +
					"Servers that hash `userPassword` never return the configured value, so managing it here shows a change on every plan.",
				ElementType: types.ListType{ElemType: types.StringType},
				Optional:    true,
				Validators: []validator.Map{
					mapvalidator.KeysAre(
						stringvalidator.LengthAtLeast(1),
						stringvalidator.NoneOfCaseInsensitive(ldapclient.ObjectClassAttribute),
					),
				},
			},
			"resolved_dn": schema.StringAttribute{
				MarkdownDescription: "The DN `dn` resolves to. A change of the resolved DN replaces the entry.",
				Computed:            true,
				CustomType:          customtypes.DNStringType{},
				PlanModifiers: []planmodifier.String{
					planmodifiers.ResolvedDN(),
				},
			},
		},
	}
}

func (r *EntryResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	providerData := providerDataFrom(req.ProviderData, "Resource", &resp.Diagnostics)
	if providerData == nil {
		return
	}

	r.client = providerData.Client
}

func (r *EntryResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data EntryResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Creating LDAP entry", map[string]any{
		"dn": data.DN.ValueString(),
	})

	result := r.reconcile(ctx, &data, &resp.Diagnostics, "Error Creating Entry")
	if resp.Diagnostics.HasError() {
		return
	}

	r.setResolvedDN(&data, result.Plan.DN)

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *EntryResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data EntryResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	dn := data.ResolvedDN.ValueString()
	if dn == "" {
		dn = data.ID.ValueString()
	}

	tflog.Debug(ctx, "Reading LDAP entry", map[string]any{
		"dn": dn,
	})

	actual, err := entry.NewReconciler(r.client).Lookup(ctx, dn)
	if err != nil {
		resp.Diagnostics.AddError(
			"Error Reading Entry",
			fmt.Sprintf("Could not read entry %s: %s", dn, err.Error()),
		)
		return
	}

	if actual == nil {
		tflog.Warn(ctx, "LDAP entry not found, removing from state", map[string]any{
			"dn": dn,
		})
		resp.State.RemoveResource(ctx)
		return
	}

	resp.Diagnostics.Append(r.refresh(ctx, &data, actual)...)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *EntryResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data EntryResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Updating LDAP entry", map[string]any{
		"dn": data.ResolvedDN.ValueString(),
	})

	result := r.reconcile(ctx, &data, &resp.Diagnostics, "Error Updating Entry")
	if resp.Diagnostics.HasError() {
		return
	}

	r.setResolvedDN(&data, result.Plan.DN)

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *EntryResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data EntryResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	dn := data.ResolvedDN.ValueString()

	tflog.Debug(ctx, "Deleting LDAP entry", map[string]any{
		"dn": dn,
	})

	desired := entry.NewDesired(dn, nil, nil, entry.StateAbsent)
	result, err := entry.NewReconciler(r.client).Reconcile(ctx, desired)
	if err != nil {
		if ldapclient.IsConflictError(err) {
			resp.Diagnostics.AddError(
				"Error Deleting Entry With Subordinates",
				fmt.Sprintf("Cannot delete entry %s because it still has subordinate entries. "+
					"Remove or move them before deleting this entry.\n\n%s", dn, err.Error()),
			)
			return
		}
		resp.Diagnostics.AddError(
			"Error Deleting Entry",
			"Could not delete LDAP entry, unexpected error: "+err.Error(),
		)
		return
	}

	tflog.Debug(ctx, "Deleted LDAP entry", map[string]any{
		"dn":      dn,
		"changed": result.Changed,
	})
}

func (r *EntryResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	ctx = initializeLogging(ctx)

	dn, err := ldapclient.SafeDN(strings.TrimSpace(req.ID))
	if err != nil {
		resp.Diagnostics.AddError(
			"Invalid Import ID",
			fmt.Sprintf("The import ID must be the DN of the entry: %s", err.Error()),
		)
		return
	}

	tflog.Debug(ctx, "Importing LDAP entry", map[string]any{
		"dn": dn,
	})

	actual, err := entry.NewReconciler(r.client).Lookup(ctx, dn)
	if err != nil {
		resp.Diagnostics.AddError(
			"Error Importing Entry",
			fmt.Sprintf("Could not import entry %s: %s", dn, err.Error()),
		)
		return
	}
	if actual == nil {
		resp.Diagnostics.AddError(
			"Cannot Import Non-Existent Entry",
			fmt.Sprintf("No entry exists at %s.", dn),
		)
		return
	}

	attributes := ldapclient.EntryAttributes(actual)
	for name := range attributes {
		if strings.EqualFold(name, ldapclient.ObjectClassAttribute) {
			delete(attributes, name)
		}
	}

	data := EntryResourceModel{
		DN: types.StringValue(templateEscaper.Replace(dn)),
	}
	r.setResolvedDN(&data, dn)

	var diags diag.Diagnostics
	data.ObjectClasses, diags = types.SetValueFrom(ctx, types.StringType, ldapclient.AttributeValues(actual, ldapclient.ObjectClassAttribute))
	resp.Diagnostics.Append(diags...)

	data.Attributes, diags = helpers.StringListMapValue(ctx, attributes)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Imported LDAP entry", map[string]any{
		"dn":         dn,
		"attributes": len(attributes),
	})

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

// desired builds the entry the model asks for.
func (r *EntryResource) desired(ctx context.Context, data *EntryResourceModel) (*entry.Desired, diag.Diagnostics) {
	classes, diags := helpers.Strings(ctx, data.ObjectClasses)
	if diags.HasError() {
		return nil, diags
	}

	attributes, known, d := helpers.StringListMap(ctx, data.Attributes)
	diags.Append(d...)
	if diags.HasError() {
		return nil, diags
	}
	if !known {
		diags.AddError("Unknown Attribute Values", "All attribute values must be known before the entry can be reconciled.")
		return nil, diags
	}

	return entry.NewDesired(data.DN.ValueString(), classes, attributes, entry.StatePresent), diags
}

// reconcile brings the entry of the model to state present.
func (r *EntryResource) reconcile(ctx context.Context, data *EntryResourceModel, diags *diag.Diagnostics, summary string) *entry.Result {
	desired, d := r.desired(ctx, data)
	diags.Append(d...)
	if diags.HasError() {
		return nil
	}

	result, err := entry.NewReconciler(r.client).Reconcile(ctx, desired)
	if err != nil {
		diags.AddError(summary, "Could not reconcile LDAP entry: "+err.Error())
		return nil
	}

	tflog.Debug(ctx, "Reconciled LDAP entry", map[string]any{
		"dn":        result.Plan.DN,
		"operation": string(result.Plan.Operation),
		"actions":   result.Actions,
	})

	return result
}

// setResolvedDN fills the computed DN attributes that the plan left unknown.
func (r *EntryResource) setResolvedDN(data *EntryResourceModel, dn string) {
	if data.ID.IsUnknown() || data.ID.IsNull() {
		data.ID = types.StringValue(dn)
	}
	if data.ResolvedDN.IsUnknown() || data.ResolvedDN.IsNull() {
		data.ResolvedDN = customtypes.DNString(dn)
	}
}

// refresh updates the managed object classes and attributes from the
// directory. Values that are equal as sets keep their configured order.
func (r *EntryResource) refresh(ctx context.Context, data *EntryResourceModel, actual *goldap.Entry) diag.Diagnostics {
	classes, diags := helpers.Strings(ctx, data.ObjectClasses)
	if diags.HasError() {
		return diags
	}

	actualClasses := ldapclient.AttributeValues(actual, ldapclient.ObjectClassAttribute)
	missing := ldapclient.MissingValuesFold(classes, actualClasses)
	present := slices.DeleteFunc(slices.Clone(classes), func(class string) bool {
		return slices.Contains(missing, class)
	})

	var d diag.Diagnostics
	data.ObjectClasses, d = types.SetValueFrom(ctx, types.StringType, present)
	diags.Append(d...)

	if data.Attributes.IsNull() {
		return diags
	}

	attributes, _, d := helpers.StringListMap(ctx, data.Attributes)
	diags.Append(d...)
	if diags.HasError() {
		return diags
	}

	for name, values := range attributes {
		actualValues := ldapclient.AttributeValues(actual, name)
		if !ldapclient.ValuesEqual(values, actualValues) {
			attributes[name] = actualValues
		}
	}

	data.Attributes, d = helpers.StringListMapValue(ctx, attributes)
	diags.Append(d...)

	return diags
}
