package types

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/attr/xattr"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types/basetypes"
	"github.com/hashicorp/terraform-plugin-go/tftypes"

	ldapclient "github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
)

var (
	_ basetypes.StringTypable                    = DNStringType{}
	_ basetypes.StringValuableWithSemanticEquals = DNStringValue{}
	_ xattr.ValidateableAttribute                = DNStringValue{}
)

// DNStringType holds a Distinguished Name. Two values naming the same entry
// are semantically equal, so "UID=guest,OU=People,..." read back from the
// server does not show up as drift against "uid=guest,ou=People,...".
type DNStringType struct {
	basetypes.StringType
}

func (t DNStringType) String() string {
	return "DNStringType"
}

func (t DNStringType) ValueType(context.Context) attr.Value {
	return DNStringValue{}
}

func (t DNStringType) Equal(o attr.Type) bool {
	other, ok := o.(DNStringType)
	return ok && t.StringType.Equal(other.StringType)
}

func (t DNStringType) ValueFromString(_ context.Context, in basetypes.StringValue) (basetypes.StringValuable, diag.Diagnostics) {
	return DNStringValue{StringValue: in}, nil
}

func (t DNStringType) ValueFromTerraform(ctx context.Context, in tftypes.Value) (attr.Value, error) {
	v, err := t.StringType.ValueFromTerraform(ctx, in)
	if err != nil {
		return nil, err
	}

	s, ok := v.(basetypes.StringValue)
	if !ok {
		return nil, fmt.Errorf("unexpected value type %T for a DN string", v)
	}
	return DNStringValue{StringValue: s}, nil
}

// DNStringValue is a value of DNStringType.
type DNStringValue struct {
	basetypes.StringValue
}

func (v DNStringValue) Equal(o attr.Value) bool {
	other, ok := o.(DNStringValue)
	return ok && v.StringValue.Equal(other.StringValue)
}

func (v DNStringValue) Type(context.Context) attr.Type {
	return DNStringType{}
}

// StringSemanticEquals reports whether both values name the same entry.
// Null and unknown values only equal themselves.
func (v DNStringValue) StringSemanticEquals(_ context.Context, newValuable basetypes.StringValuable) (bool, diag.Diagnostics) {
	var diags diag.Diagnostics

	other, ok := newValuable.(DNStringValue)
	if !ok {
		diags.AddError(
			"Semantic Equality Check Error",
			fmt.Sprintf("Expected a DNStringValue to compare with, got %T. Please report this issue to the provider developers.", newValuable),
		)
		return false, diags
	}

	if !v.IsKnownValue() || !other.IsKnownValue() {
		return v.Equal(other), diags
	}
	return ldapclient.EqualDN(v.ValueString(), other.ValueString()), diags
}

// ValidateAttribute rejects configured values that do not parse as a DN.
func (v DNStringValue) ValidateAttribute(_ context.Context, req xattr.ValidateAttributeRequest, resp *xattr.ValidateAttributeResponse) {
	if !v.IsKnownValue() {
		return
	}

	if err := ldapclient.ValidateDNSyntax(v.ValueString()); err != nil {
		resp.Diagnostics.AddAttributeError(req.Path, "Invalid Distinguished Name",
			fmt.Sprintf("The value %q is not a valid DN: %s", v.ValueString(), err))
	}
}

// IsKnownValue reports whether the value is neither null nor unknown.
func (v DNStringValue) IsKnownValue() bool {
	return !v.IsNull() && !v.IsUnknown()
}

func DNString(value string) DNStringValue {
	return DNStringValue{StringValue: basetypes.NewStringValue(value)}
}

func DNStringNull() DNStringValue {
	return DNStringValue{StringValue: basetypes.NewStringNull()}
}

func DNStringUnknown() DNStringValue {
	return DNStringValue{StringValue: basetypes.NewStringUnknown()}
}
