package entry

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/l3o/terraform-provider-ldap3orm/internal/config"
)

// Params are the parameters of the ldap_entry module as Ansible passes them.
type Params struct {
	Config      string         `json:"config"`
	DN          *string        `json:"dn,omitempty"`
	ObjectClass any            `json:"objectClass,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	State       string         `json:"state,omitempty"`
	Cls         *string        `json:"cls,omitempty"`
}

// Validate checks the parameters in the order Ansible would: required and
// choice constraints, mutual exclusion, then the requirements of state=present.
func (p *Params) Validate() error {
	if strings.TrimSpace(p.Config) == "" {
		return validationError("missing required arguments: config")
	}

	if p.State == "" {
		p.State = string(StatePresent)
	}
	if !slices.Contains(States, p.State) {
		return validationError("value of state must be one of: %s, got: %s", strings.Join(States, ", "), p.State)
	}

	if p.Cls != nil {
		if p.ObjectClass != nil {
			return validationError("parameters are mutually exclusive: cls|objectClass")
		}
		if p.DN != nil {
			return validationError("parameters are mutually exclusive: cls|dn")
		}
		return nil
	}

	if p.State == string(StatePresent) {
		if p.ObjectClass == nil {
			return validationError("At least one objectClass must be provided.")
		}
		if p.DN == nil {
			return validationError("dn must be provided when using objectClass")
		}
	}

	if p.ObjectClass != nil {
		if _, err := objectClasses(p.ObjectClass); err != nil {
			return err
		}
	}

	if p.DN == nil {
		return validationError("one of the following is required: cls, dn")
	}

	return nil
}

// Desired validates the parameters and builds the desired entry. A cls
// parameter names a class of cfg that supplies the DN template and the
// object classes.
func (p *Params) Desired(cfg *config.Config) (*Desired, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	attributes, err := NormalizeAttributes(p.Attributes)
	if err != nil {
		return nil, err
	}

	var dn string
	var classes []string

	if p.Cls != nil {
		if cfg == nil {
			return nil, validationError("cls requires a configuration with classes")
		}
		class, ok := cfg.Class(*p.Cls)
		if !ok {
			return nil, validationError("unknown class '%s' (not defined in %s)", *p.Cls, cfg.Path())
		}
		dn = class.DN
		classes = class.ObjectClass
	} else {
		dn = *p.DN
		if p.ObjectClass != nil {
			classes, _ = objectClasses(p.ObjectClass)
		}
	}

	return NewDesired(dn, classes, attributes, State(p.State)), nil
}

// objectClasses accepts a string or a list of strings.
func objectClasses(v any) ([]string, error) {
	switch oc := v.(type) {
	case string:
		return []string{oc}, nil
	case []string:
		return oc, nil
	case []any:
		out := make([]string, 0, len(oc))
		for _, item := range oc {
			s, ok := item.(string)
			if !ok {
				return nil, validationError("objectClass must be either a string or a list.")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, validationError("objectClass must be either a string or a list.")
	}
}

// NormalizeAttributes converts decoded attribute values to string lists: a
// scalar becomes a list of one, numbers and booleans take their LDAP string
// form and null clears the attribute.
func NormalizeAttributes(attributes map[string]any) (map[string][]string, error) {
	out := make(map[string][]string, len(attributes))
	for name, value := range attributes {
		values, err := normalizeValue(value)
		if err != nil {
			return nil, validationError("attribute '%s': %v", name, err)
		}
		out[name] = values
	}
	return out, nil
}

func normalizeValue(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return slices.Clone(v), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, err := scalarString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		s, err := scalarString(v)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
}

func scalarString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", value)
	}
}
