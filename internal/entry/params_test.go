package entry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3o/terraform-provider-ldap3orm/internal/config"
)

func strPtr(s string) *string {
	return &s
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr string
	}{
		{
			name: "present with template",
			params: Params{
				Config:      "default",
				DN:          strPtr("uid={uid},ou=People,dc=example,dc=com"),
				ObjectClass: "inetOrgPerson",
				Attributes:  map[string]any{"uid": "guest"},
			},
		},
		{
			name:   "absent with dn only",
			params: Params{Config: "default", DN: strPtr("uid=guest,ou=People,dc=example,dc=com"), State: "absent"},
		},
		{
			name:   "cls only",
			params: Params{Config: "default", Cls: strPtr("posixuser")},
		},
		{
			name:    "missing config",
			params:  Params{DN: strPtr("uid=guest,dc=example,dc=com"), ObjectClass: "top"},
			wantErr: "missing required arguments: config",
		},
		{
			name:    "bad state",
			params:  Params{Config: "default", State: "gone"},
			wantErr: "value of state must be one of: absent, present, got: gone",
		},
		{
			name:    "cls with objectClass",
			params:  Params{Config: "default", Cls: strPtr("posixuser"), ObjectClass: "top"},
			wantErr: "parameters are mutually exclusive: cls|objectClass",
		},
		{
			name:    "cls with dn",
			params:  Params{Config: "default", Cls: strPtr("posixuser"), DN: strPtr("uid=guest,dc=example,dc=com")},
			wantErr: "parameters are mutually exclusive: cls|dn",
		},
		{
			name:    "present without objectClass",
			params:  Params{Config: "default", DN: strPtr("uid=guest,dc=example,dc=com")},
			wantErr: "At least one objectClass must be provided.",
		},
		{
			name:    "present without dn",
			params:  Params{Config: "default", ObjectClass: "top"},
			wantErr: "dn must be provided when using objectClass",
		},
		{
			name:    "objectClass of wrong type",
			params:  Params{Config: "default", DN: strPtr("uid=guest,dc=example,dc=com"), ObjectClass: map[string]any{"a": "b"}},
			wantErr: "objectClass must be either a string or a list.",
		},
		{
			name:    "objectClass list with non-string",
			params:  Params{Config: "default", DN: strPtr("uid=guest,dc=example,dc=com"), ObjectClass: []any{"top", 1.0}},
			wantErr: "objectClass must be either a string or a list.",
		},
		{
			name:    "absent without dn or cls",
			params:  Params{Config: "default", State: "absent"},
			wantErr: "one of the following is required: cls, dn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var valErr *ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tt.wantErr, valErr.Message)
		})
	}
}

func TestParams_Desired(t *testing.T) {
	var p Params
	require.NoError(t, json.Unmarshal([]byte(`{
		"config": "default",
		"dn": "uid={uid},ou=People,dc=example,dc=com",
		"objectClass": ["inetOrgPerson", "posixAccount"],
		"attributes": {
			"uid": "guest",
			"cn": "Guest User",
			"mail": ["guest@example.com", "g@example.com"],
			"uidNumber": 10001,
			"loginDisabled": false,
			"description": null,
			"objectclass": "top"
		}
	}`), &p))

	d, err := p.Desired(nil)
	require.NoError(t, err)

	assert.Equal(t, "uid={uid},ou=People,dc=example,dc=com", d.DN)
	assert.Equal(t, StatePresent, d.State)
	assert.Equal(t, []string{"inetOrgPerson", "posixAccount", "top"}, d.ObjectClasses)
	assert.Equal(t, map[string][]string{
		"uid":           {"guest"},
		"cn":            {"Guest User"},
		"mail":          {"guest@example.com", "g@example.com"},
		"uidNumber":     {"10001"},
		"loginDisabled": {"FALSE"},
		"description":   {},
	}, d.Attributes)
	assert.True(t, d.Templated())

	dn, err := d.TargetDN()
	require.NoError(t, err)
	assert.Equal(t, "uid=guest,ou=People,dc=example,dc=com", dn)
}

func TestParams_Desired_UnsupportedValue(t *testing.T) {
	p := Params{
		Config:      "default",
		DN:          strPtr("uid=guest,dc=example,dc=com"),
		ObjectClass: "top",
		Attributes:  map[string]any{"nested": map[string]any{"a": "b"}},
	}

	_, err := p.Desired(nil)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Message, "attribute 'nested'")
}

func TestParams_Desired_Class(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default")
	require.NoError(t, os.WriteFile(path, []byte(`
url = "ldaps://ipa.example.com"
base_dn = "cn=accounts,dc=example,dc=com"

[connconfig]
user = "uid=admin,cn=users,cn=accounts,dc=example,dc=com"
password = "secret"

[classes.posixuser]
dn = "uid={uid},cn=users,cn=accounts,dc=example,dc=com"
objectClass = ["inetOrgPerson", "posixAccount"]
`), 0o600))

	cfg, err := config.Load(context.Background(), path)
	require.NoError(t, err)

	p := Params{
		Config:     path,
		Cls:        strPtr("posixuser"),
		Attributes: map[string]any{"uid": "guest", "sn": "User", "cn": "Guest User"},
	}

	d, err := p.Desired(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"inetOrgPerson", "posixAccount"}, d.ObjectClasses)

	dn, err := d.TargetDN()
	require.NoError(t, err)
	assert.Equal(t, "uid=guest,cn=users,cn=accounts,dc=example,dc=com", dn)

	p.Cls = strPtr("unknown")
	_, err = p.Desired(cfg)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Message, "unknown class 'unknown'")
}

func TestDesired_TargetDN(t *testing.T) {
	t.Run("bare dn to remove is only normalized", func(t *testing.T) {
		d := NewDesired("uid=guest , ou=People,dc=example,dc=com", nil, nil, StateAbsent)
		dn, err := d.TargetDN()
		require.NoError(t, err)
		assert.Equal(t, "uid=guest,ou=People,dc=example,dc=com", dn)
	})

	t.Run("placeholder without attributes", func(t *testing.T) {
		d := NewDesired("uid={uid},ou=People,dc=example,dc=com", []string{"inetOrgPerson"}, nil, StatePresent)
		_, err := d.TargetDN()
		var tmplErr *TemplateError
		require.ErrorAs(t, err, &tmplErr)
		assert.Equal(t, "uid", tmplErr.Attribute)
	})

	t.Run("empty dn", func(t *testing.T) {
		_, err := NewDesired("", nil, nil, StateAbsent).TargetDN()
		assert.Error(t, err)
	})
}

func TestNewDesired_CopiesInput(t *testing.T) {
	classes := []string{"top"}
	attrs := map[string][]string{"sn": {"User"}}

	d := NewDesired("uid=guest,dc=example,dc=com", classes, attrs, "")
	classes[0] = "changed"
	attrs["sn"][0] = "changed"

	assert.Equal(t, []string{"top"}, d.ObjectClasses)
	assert.Equal(t, []string{"User"}, d.Attributes["sn"])
	assert.Equal(t, StatePresent, d.State)
}
