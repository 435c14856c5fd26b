// Package ansible implements the file based protocol of Ansible binary
// modules: the arguments arrive as a JSON file named on the command line and
// the result is a single JSON document on stdout.
package ansible

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
)

const (
	// WrapperKey wraps the module arguments in newer Ansible releases.
	WrapperKey = "ANSIBLE_MODULE_ARGS"

	checkModeKey  = "_ansible_check_mode"
	diffKey       = "_ansible_diff"
	internalKeyPf = "_ansible_"
)

// Args are the arguments Ansible passed to a module invocation.
type Args struct {
	// Params holds the module parameters without the internal _ansible_ keys.
	Params    map[string]json.RawMessage
	CheckMode bool
	Diff      bool
}

// LoadArgs reads the arguments file at path. Both the wrapped form
// {"ANSIBLE_MODULE_ARGS": {...}} and a flat object are accepted.
func LoadArgs(path string) (*Args, error) {
	if path == "" {
		return nil, errors.New("no argument file provided")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read argument file: %w", err)
	}

	return ParseArgs(data)
}

// ParseArgs parses the content of an arguments file.
func ParseArgs(data []byte) (*Args, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("argument file is not a JSON object: %w", err)
	}

	if wrapped, ok := raw[WrapperKey]; ok {
		raw = nil
		if err := json.Unmarshal(wrapped, &raw); err != nil {
			return nil, fmt.Errorf("%s is not a JSON object: %w", WrapperKey, err)
		}
	}

	args := &Args{Params: make(map[string]json.RawMessage, len(raw))}
	for key, value := range raw {
		switch {
		case key == checkModeKey:
			if err := json.Unmarshal(value, &args.CheckMode); err != nil {
				return nil, fmt.Errorf("%s must be a boolean: %w", key, err)
			}
		case key == diffKey:
			if err := json.Unmarshal(value, &args.Diff); err != nil {
				return nil, fmt.Errorf("%s must be a boolean: %w", key, err)
			}
		case strings.HasPrefix(key, internalKeyPf):
			// other internal keys (verbosity, tmpdir, ...) are not used
		default:
			args.Params[key] = value
		}
	}

	return args, nil
}

// Decode decodes the module parameters into v. Numbers are kept as
// json.Number so integer attribute values do not lose precision.
func (a *Args) Decode(v any) error {
	data, err := json.Marshal(a.Params)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid module arguments: %w", err)
	}
	return nil
}

// ModuleArgs returns the parameters as reported back in the invocation
// field, with secret attribute values masked.
func (a *Args) ModuleArgs() map[string]any {
	out := make(map[string]any, len(a.Params))
	for key, value := range a.Params {
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			continue
		}
		if key == "attributes" {
			if attrs, ok := v.(map[string]any); ok {
				v = maskAttributes(attrs)
			}
		}
		out[key] = v
	}
	return out
}

// NoLogValue replaces secret values in module output, as Ansible does for
// no_log parameters.
const NoLogValue = "VALUE_SPECIFIED_IN_NO_LOG_PARAMETER"

func maskAttributes(attrs map[string]any) map[string]any {
	masked := make(map[string]any, len(attrs))
	for name, value := range ldap.SanitizeFields(attrs) {
		if value == "[REDACTED]" {
			value = NoLogValue
		}
		masked[name] = value
	}
	return masked
}

// Diff is the diff field of a module result.
type Diff struct {
	Prepared string `json:"prepared"`
}

// Invocation is the invocation field of a module result.
type Invocation struct {
	ModuleArgs map[string]any `json:"module_args"`
}

// Response is the JSON document a module prints on exit.
type Response struct {
	Changed    bool        `json:"changed"`
	Failed     bool        `json:"failed,omitempty"`
	Msg        string      `json:"msg,omitempty"`
	Actions    []string    `json:"actions"`
	Diff       *Diff       `json:"diff,omitempty"`
	Invocation *Invocation `json:"invocation,omitempty"`
}

// Exit writes resp to w.
func Exit(w io.Writer, resp *Response) error {
	if resp.Actions == nil {
		resp.Actions = []string{}
	}
	return json.NewEncoder(w).Encode(resp)
}

// Fail writes a failed result carrying msg to w. changed is always false.
func Fail(w io.Writer, msg string, invocation *Invocation) error {
	return Exit(w, &Response{Failed: true, Msg: msg, Invocation: invocation})
}
