package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/function"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/l3o/terraform-provider-ldap3orm/internal/entry"
	"github.com/l3o/terraform-provider-ldap3orm/internal/provider/helpers"
)

var _ function.Function = &ResolveDNFunction{}

func NewResolveDNFunction() function.Function {
	return &ResolveDNFunction{}
}

// ResolveDNFunction implements the resolve_dn function.
type ResolveDNFunction struct{}

// Metadata returns the function name and signature.
func (f ResolveDNFunction) Metadata(_ context.Context, req function.MetadataRequest, resp *function.MetadataResponse) {
	resp.Name = "resolve_dn"
}

// Definition returns the function schema including parameters and return types.
func (f ResolveDNFunction) Definition(_ context.Context, req function.DefinitionRequest, resp *function.DefinitionResponse) {
	resp.Definition = function.Definition{
		Summary: "Resolve a DN template with attribute values",
		Description: "Replaces every {name} placeholder of the template with the single value of the named attribute, " +
			"escaped for use in a DN. Attribute names match case-insensitively.",
		MarkdownDescription: "Replaces every `{name}` placeholder of the template with the value of the named attribute.\n\n" +
			"- Attribute names match case-insensitively\n" +
			"- Values are escaped for use in a DN\n" +
			"- The attribute must have exactly one value\n" +
			"- `{{` and `}}` stand for literal braces",
		Parameters: []function.Parameter{
			function.StringParameter{
				Name:                "template",
				Description:         "DN template, e.g. uid={uid},cn=users,cn=accounts,dc=example,dc=com.",
				MarkdownDescription: "DN template, e.g. `uid={uid},cn=users,cn=accounts,dc=example,dc=com`.",
			},
			function.DynamicParameter{
				Name:                "attributes",
				Description:         "Object or map of attribute values. A value may be a string, number, bool or a list of those.",
				MarkdownDescription: "Object or map of attribute values. A value may be a string, number, bool or a list of those.",
			},
		},
		Return: function.StringReturn{},
	}
}

// Run implements the function logic.
func (f ResolveDNFunction) Run(ctx context.Context, req function.RunRequest, resp *function.RunResponse) {
	var template string
	var attributes types.Dynamic

	resp.Error = function.ConcatFuncErrors(resp.Error, req.Arguments.Get(ctx, &template, &attributes))
	if resp.Error != nil {
		return
	}

	if attributes.IsNull() || attributes.IsUnknown() {
		resp.Error = function.NewArgumentFuncError(1, "attributes parameter cannot be null or unknown")
		return
	}

	raw, err := helpers.DynamicValueToMap(ctx, attributes)
	if err != nil {
		resp.Error = function.NewArgumentFuncError(1, fmt.Sprintf("Failed to extract attributes: %s", err.Error()))
		return
	}

	values, err := entry.NormalizeAttributes(raw)
	if err != nil {
		resp.Error = function.NewArgumentFuncError(1, err.Error())
		return
	}

	dn, err := entry.ResolveDN(template, values)
	if err != nil {
		resp.Error = function.NewFuncError(err.Error())
		return
	}

	resp.Error = function.ConcatFuncErrors(resp.Error, resp.Result.Set(ctx, dn))
}
