package entry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap/ldaptest"
)

func TestPlan_LDIF(t *testing.T) {
	t.Run("modify adds classes before replacing attributes", func(t *testing.T) {
		plan := &Plan{
			Operation: OperationModify,
			DN:        guestDN,
			Modify: &ldap.ModifyRequest{
				DN:                guestDN,
				AddAttributes:     map[string][]string{"objectClass": {"posixAccount"}},
				ReplaceAttributes: map[string][]string{"sn": {"User"}},
			},
		}

		out, err := plan.LDIF()
		require.NoError(t, err)

		assert.Contains(t, out, "dn: "+guestDN)
		assert.Contains(t, out, "changetype: modify")
		add := strings.Index(out, "add: objectClass")
		replace := strings.Index(out, "replace: sn")
		require.NotEqual(t, -1, add)
		require.NotEqual(t, -1, replace)
		assert.Less(t, add, replace)
		assert.Contains(t, out, "sn: User")
	})

	t.Run("add", func(t *testing.T) {
		plan := &Plan{
			Operation: OperationAdd,
			DN:        guestDN,
			Add:       &ldap.AddRequest{DN: guestDN, Attributes: guestDesired(StatePresent).addAttributes()},
		}

		out, err := plan.LDIF()
		require.NoError(t, err)
		assert.Contains(t, out, "dn: "+guestDN)
		assert.Contains(t, out, "objectClass: inetOrgPerson")
		assert.Contains(t, out, "cn: Guest User")
	})

	t.Run("delete", func(t *testing.T) {
		out, err := (&Plan{Operation: OperationDelete, DN: guestDN}).LDIF()
		require.NoError(t, err)
		assert.Contains(t, out, "dn: "+guestDN)
		assert.Contains(t, out, "changetype: delete")
	})

	t.Run("none", func(t *testing.T) {
		out, err := (&Plan{Operation: OperationNone, DN: guestDN}).LDIF()
		require.NoError(t, err)
		assert.Empty(t, out)

		var nilPlan *Plan
		out, err = nilPlan.LDIF()
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestReconcile_PlanIsReported(t *testing.T) {
	dir := ldaptest.NewDirectory(guestEntry(map[string][]string{"sn": {"Old"}}))

	result, err := NewReconciler(dir, WithCheckMode(true)).Reconcile(t.Context(), guestDesired(StatePresent))
	require.NoError(t, err)

	require.NotNil(t, result.Plan.Modify)
	assert.Equal(t, map[string][]string{"sn": {"User"}}, result.Plan.Modify.ReplaceAttributes)
	assert.Empty(t, dir.Writes)
	assert.Equal(t, "Old", dir.Entry(guestDN).GetAttributeValue("sn"))
}

func TestPlan_Redacted(t *testing.T) {
	plan := &Plan{
		Operation: OperationModify,
		DN:        guestDN,
		Modify: &ldap.ModifyRequest{
			DN:                guestDN,
			AddAttributes:     map[string][]string{"objectClass": {"posixAccount"}},
			ReplaceAttributes: map[string][]string{"sn": {"User"}, "userPassword": {"hunter2"}},
		},
	}

	redacted := plan.Redacted("********")
	assert.Equal(t, []string{"********"}, redacted.Modify.ReplaceAttributes["userPassword"])
	assert.Equal(t, []string{"User"}, redacted.Modify.ReplaceAttributes["sn"])
	assert.Equal(t, []string{"posixAccount"}, redacted.Modify.AddAttributes["objectClass"])
	assert.Equal(t, []string{"hunter2"}, plan.Modify.ReplaceAttributes["userPassword"], "original plan is unchanged")

	out, err := redacted.LDIF()
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")

	add := (&Plan{
		Operation: OperationAdd,
		DN:        guestDN,
		Add: &ldap.AddRequest{
			DN:         guestDN,
			Attributes: map[string][]string{"objectClass": {"inetOrgPerson"}, "userPassword": {"hunter2"}},
		},
	}).Redacted("********")
	assert.Equal(t, []string{"********"}, add.Add.Attributes["userPassword"])

	assert.Nil(t, (*Plan)(nil).Redacted("********"))
}
