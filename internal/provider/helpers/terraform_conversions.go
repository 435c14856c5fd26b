// Package helpers provides conversions between Terraform values and the
// plain Go values of the entry and inventory packages, shared by resources,
// data sources and functions.
package helpers

import (
	"context"
	"fmt"
	"maps"
	"math/big"
	"slices"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

// StringListMapType is the type of an LDAP attribute map: attribute name to
// list of values.
var StringListMapType = types.MapType{ElemType: types.ListType{ElemType: types.StringType}}

// TerraformValueToGo converts various Terraform attr.Value types to Go values.
// It recursively handles complex types like lists, maps, objects, and sets.
// Returns nil for null values and an error for unknown values.
func TerraformValueToGo(ctx context.Context, value attr.Value) (any, error) {
	if value.IsNull() {
		return nil, nil
	}
	if value.IsUnknown() {
		return nil, fmt.Errorf("cannot process unknown values")
	}

	switch v := value.(type) {
	case types.String:
		return v.ValueString(), nil
	case types.Int64:
		return v.ValueInt64(), nil
	case types.Float64:
		return v.ValueFloat64(), nil
	case types.Bool:
		return v.ValueBool(), nil
	case types.Number:
		bigFloat := v.ValueBigFloat()
		if bigFloat == nil {
			return nil, fmt.Errorf("number value is nil")
		}
		if bigFloat.IsInt() {
			if i, accuracy := bigFloat.Int64(); accuracy == big.Exact {
				return i, nil
			}
		}
		floatVal, _ := bigFloat.Float64()
		return floatVal, nil
	case types.List:
		return elementsToGo(ctx, v.Elements())
	case types.Set:
		return elementsToGo(ctx, v.Elements())
	case types.Tuple:
		return elementsToGo(ctx, v.Elements())
	case types.Map:
		return attributesToGo(ctx, v.Elements())
	case types.Object:
		return attributesToGo(ctx, v.Attributes())
	case types.Dynamic:
		return TerraformValueToGo(ctx, v.UnderlyingValue())
	default:
		return nil, fmt.Errorf("unsupported type: %T", value)
	}
}

func elementsToGo(ctx context.Context, elements []attr.Value) ([]any, error) {
	result := make([]any, len(elements))
	for i, elem := range elements {
		goVal, err := TerraformValueToGo(ctx, elem)
		if err != nil {
			return nil, err
		}
		result[i] = goVal
	}
	return result, nil
}

func attributesToGo(ctx context.Context, attributes map[string]attr.Value) (map[string]any, error) {
	result := make(map[string]any, len(attributes))
	for name, attrVal := range attributes {
		goVal, err := TerraformValueToGo(ctx, attrVal)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", name, err)
		}
		result[name] = goVal
	}
	return result, nil
}

// DynamicValueToMap converts a Terraform dynamic value to a Go map.
// The dynamic value must contain either an object or map type underneath.
// Returns an error if the value is null, unknown, or not a map/object type.
func DynamicValueToMap(ctx context.Context, value attr.Value) (map[string]any, error) {
	if value.IsNull() || value.IsUnknown() {
		return nil, fmt.Errorf("value cannot be null or unknown")
	}

	dynamicVal, ok := value.(types.Dynamic)
	if !ok {
		return nil, fmt.Errorf("expected dynamic value, got %T", value)
	}

	switch v := dynamicVal.UnderlyingValue().(type) {
	case types.Object:
		return attributesToGo(ctx, v.Attributes())
	case types.Map:
		return attributesToGo(ctx, v.Elements())
	default:
		return nil, fmt.Errorf("expected object or map value, got %T", v)
	}
}

// StringListMap converts an attribute map to Go. known is false when the map
// or any of its values is not known yet; a null map converts to an empty one.
func StringListMap(ctx context.Context, value types.Map) (attributes map[string][]string, known bool, diags diag.Diagnostics) {
	if value.IsUnknown() {
		return nil, false, diags
	}

	attributes = map[string][]string{}
	if value.IsNull() {
		return attributes, true, diags
	}

	for name, elem := range value.Elements() {
		list, ok := elem.(types.List)
		if !ok {
			diags.AddError("Unexpected Attribute Value Type", fmt.Sprintf("Expected a list of strings for %s, got: %T", name, elem))
			return nil, false, diags
		}
		if list.IsUnknown() {
			return nil, false, diags
		}

		values := []string{}
		for _, v := range list.Elements() {
			if v.IsUnknown() {
				return nil, false, diags
			}
			s, ok := v.(types.String)
			if !ok {
				diags.AddError("Unexpected Attribute Value Type", fmt.Sprintf("Expected a string value for %s, got: %T", name, v))
				return nil, false, diags
			}
			if !s.IsNull() {
				values = append(values, s.ValueString())
			}
		}
		attributes[name] = values
	}

	return attributes, true, diags
}

// StringListMapValue converts an attribute map to a Terraform map of lists,
// keeping value order.
func StringListMapValue(ctx context.Context, attributes map[string][]string) (types.Map, diag.Diagnostics) {
	var diags diag.Diagnostics

	elements := make(map[string]attr.Value, len(attributes))
	for _, name := range slices.Sorted(maps.Keys(attributes)) {
		list, d := types.ListValueFrom(ctx, types.StringType, nonNil(attributes[name]))
		diags.Append(d...)
		elements[name] = list
	}
	if diags.HasError() {
		return types.MapNull(StringListMapType.ElemType), diags
	}

	result, d := types.MapValue(StringListMapType.ElemType, elements)
	diags.Append(d...)
	return result, diags
}

// Strings returns the known, non-null string elements of a list or set.
func Strings(ctx context.Context, value attr.Value) ([]string, diag.Diagnostics) {
	var diags diag.Diagnostics
	var out []string

	switch v := value.(type) {
	case types.Set:
		if v.IsNull() || v.IsUnknown() {
			return nil, diags
		}
		diags.Append(v.ElementsAs(ctx, &out, false)...)
	case types.List:
		if v.IsNull() || v.IsUnknown() {
			return nil, diags
		}
		diags.Append(v.ElementsAs(ctx, &out, false)...)
	default:
		diags.AddError("Unexpected Value Type", fmt.Sprintf("Expected a list or set of strings, got: %T", value))
	}

	return out, diags
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
