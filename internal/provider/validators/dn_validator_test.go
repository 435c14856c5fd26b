package validators_test

import (
	"strings"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/l3o/terraform-provider-ldap3orm/internal/provider/validators"
)

type stringValidatorCase struct {
	val         types.String
	expectError bool
	summary     string
	detail      string
}

func runStringValidator(t *testing.T, v validator.String, testCases map[string]stringValidatorCase) {
	t.Helper()

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			request := validator.StringRequest{
				Path:        path.Root("test"),
				ConfigValue: test.val,
			}
			response := validator.StringResponse{}

			v.ValidateString(t.Context(), request, &response)

			if !response.Diagnostics.HasError() && test.expectError {
				t.Fatal("expected error, got no error")
			}

			if response.Diagnostics.HasError() && !test.expectError {
				t.Fatalf("got unexpected error: %s", response.Diagnostics)
			}

			if test.expectError {
				if len(response.Diagnostics) != 1 {
					t.Fatalf("expected exactly 1 error, got %d", len(response.Diagnostics))
				}

				err := response.Diagnostics[0]
				if err.Summary() != test.summary {
					t.Errorf("expected summary %q, got %q", test.summary, err.Summary())
				}

				if test.detail != "" && !strings.HasPrefix(err.Detail(), test.detail) {
					t.Errorf("expected detail to start with %q, got %q", test.detail, err.Detail())
				}
			}
		})
	}
}

func TestDNValidator(t *testing.T) {
	t.Parallel()

	runStringValidator(t, validators.IsValidDN(), map[string]stringValidatorCase{
		"valid DN simple": {
			val: types.StringValue("uid=guest,ou=People,dc=example,dc=com"),
		},
		"valid DN FreeIPA": {
			val: types.StringValue("cn=webservers,cn=hostgroups,cn=accounts,dc=example,dc=com"),
		},
		"valid DN with escaped characters": {
			val: types.StringValue(`cn=Doe\, John,ou=People,dc=example,dc=com`),
		},
		"valid DN with spaces": {
			val: types.StringValue("cn=Guest User,ou=Domain Users,dc=example,dc=com"),
		},
		"invalid DN empty": {
			val:         types.StringValue(""),
			expectError: true,
			summary:     "Invalid Distinguished Name",
			detail:      "The value \"\" is not a valid Distinguished Name format: DN cannot be empty",
		},
		"invalid DN malformed": {
			val:         types.StringValue("invalid-dn"),
			expectError: true,
			summary:     "Invalid Distinguished Name",
			detail:      "The value \"invalid-dn\" is not a valid Distinguished Name format:",
		},
		"invalid DN missing attribute": {
			val:         types.StringValue("=guest,dc=example,dc=com"),
			expectError: true,
			summary:     "Invalid Distinguished Name",
			detail:      "The value \"=guest,dc=example,dc=com\" is not a valid Distinguished Name format:",
		},
		"null value": {
			val: types.StringNull(),
		},
		"unknown value": {
			val: types.StringUnknown(),
		},
	})
}

func TestDNTemplateValidator(t *testing.T) {
	t.Parallel()

	runStringValidator(t, validators.IsValidDNTemplate(), map[string]stringValidatorCase{
		"plain DN": {
			val: types.StringValue("ou=People,dc=example,dc=com"),
		},
		"single placeholder": {
			val: types.StringValue("uid={uid},ou=People,dc=example,dc=com"),
		},
		"multiple placeholders": {
			val: types.StringValue("cn={cn}+uid={ uid },ou={ou},dc=example,dc=com"),
		},
		"literal braces": {
			val: types.StringValue("cn={{literal}},dc=example,dc=com"),
		},
		"unclosed placeholder": {
			val:         types.StringValue("uid={uid,ou=People,dc=example,dc=com"),
			expectError: true,
			summary:     "Invalid DN Template",
			detail:      "The value \"uid={uid,ou=People,dc=example,dc=com\" is not a valid DN template:",
		},
		"stray closing brace": {
			val:         types.StringValue("uid=guest},dc=example,dc=com"),
			expectError: true,
			summary:     "Invalid DN Template",
		},
		"empty placeholder": {
			val:         types.StringValue("uid={},dc=example,dc=com"),
			expectError: true,
			summary:     "Invalid DN Template",
		},
		"not a DN": {
			val:         types.StringValue("{uid}"),
			expectError: true,
			summary:     "Invalid DN Template",
		},
		"null value": {
			val: types.StringNull(),
		},
		"unknown value": {
			val: types.StringUnknown(),
		},
	})
}

func TestDNValidatorDescription(t *testing.T) {
	validator := validators.IsValidDN()

	expected := "value must be a valid Distinguished Name (DN)"
	if validator.Description(t.Context()) != expected {
		t.Errorf("expected description %q, got %q", expected, validator.Description(t.Context()))
	}

	if validator.MarkdownDescription(t.Context()) != expected {
		t.Errorf("expected markdown description %q, got %q", expected, validator.MarkdownDescription(t.Context()))
	}
}
