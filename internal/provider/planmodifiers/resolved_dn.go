package planmodifiers

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/l3o/terraform-provider-ldap3orm/internal/entry"
	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
	"github.com/l3o/terraform-provider-ldap3orm/internal/provider/helpers"
)

// resolvedDN implements the plan modifier.
type resolvedDN struct {
	template   path.Path
	attributes path.Path
}

// ResolvedDN returns a plan modifier that plans the DN an entry resolves to
// from the dn template and the attributes of the plan. The value stays
// unknown until both are known. A resolved DN naming a different entry than
// the one in state requires replacement.
//
// Template errors are reported at plan time, before the directory is
// contacted.
func ResolvedDN() planmodifier.String {
	return resolvedDN{
		template:   path.Root("dn"),
		attributes: path.Root("attributes"),
	}
}

// Description returns a human-readable description of the plan modifier.
func (m resolvedDN) Description(_ context.Context) string {
	return "resolves the dn template with the attributes; a different DN requires replacement"
}

// MarkdownDescription returns a markdown description of the plan modifier.
func (m resolvedDN) MarkdownDescription(_ context.Context) string {
	return "resolves the `dn` template with the `attributes`; a different DN requires replacement"
}

// PlanModifyString implements the plan modification logic.
func (m resolvedDN) PlanModifyString(ctx context.Context, req planmodifier.StringRequest, resp *planmodifier.StringResponse) {
	// Nothing to plan on destroy
	if req.Plan.Raw.IsNull() {
		return
	}

	var template types.String
	resp.Diagnostics.Append(req.Plan.GetAttribute(ctx, m.template, &template)...)

	var attributesValue types.Map
	resp.Diagnostics.Append(req.Plan.GetAttribute(ctx, m.attributes, &attributesValue)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if template.IsUnknown() || template.IsNull() {
		resp.PlanValue = types.StringUnknown()
		return
	}

	attributes, known, diags := helpers.StringListMap(ctx, attributesValue)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}
	if !known {
		resp.PlanValue = types.StringUnknown()
		return
	}

	dn, err := entry.ResolveDN(template.ValueString(), attributes)
	if err != nil {
		resp.Diagnostics.AddAttributeError(m.template, "DN Template Resolution Failed", err.Error())
		return
	}

	if state := req.StateValue; !state.IsNull() && !state.IsUnknown() {
		if ldap.EqualDN(state.ValueString(), dn) {
			// Keep the stored spelling of the same entry
			resp.PlanValue = state
			return
		}
		resp.RequiresReplace = true
	}

	resp.PlanValue = types.StringValue(dn)
}
