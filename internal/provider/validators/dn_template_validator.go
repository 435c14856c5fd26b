package validators

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	"github.com/l3o/terraform-provider-ldap3orm/internal/entry"
)

var _ validator.String = dnTemplateValidator{}

// dnTemplateValidator checks the syntax of a DN template. Whether the
// placeholders can be filled depends on the attributes and is checked when
// the plan is built.
type dnTemplateValidator struct{}

func (v dnTemplateValidator) Description(_ context.Context) string {
	return "value must be a Distinguished Name, optionally with {attribute} placeholders"
}

func (v dnTemplateValidator) MarkdownDescription(_ context.Context) string {
	return "value must be a Distinguished Name, optionally with `{attribute}` placeholders"
}

func (v dnTemplateValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	template := request.ConfigValue.ValueString()

	sample := map[string][]string{}
	for _, name := range entry.Placeholders(template) {
		sample[name] = []string{"placeholder"}
	}

	if _, err := entry.ResolveDN(template, sample); err != nil {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid DN Template",
			fmt.Sprintf("The value %q is not a valid DN template: %s", template, err.Error()),
		)
	}
}

// IsValidDNTemplate returns a validator for DN templates such as
// "uid={uid},ou=People,dc=example,dc=com". "{{" and "}}" are literal braces.
//
// Unknown values and null values are skipped from validation.
func IsValidDNTemplate() validator.String {
	return dnTemplateValidator{}
}
