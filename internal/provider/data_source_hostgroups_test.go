package provider

import (
	"context"
	"testing"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3o/terraform-provider-ldap3orm/internal/config"
	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap/ldaptest"
)

const (
	testHostgroupBase = "cn=hostgroups,cn=accounts,dc=example,dc=com"
	testHostBase      = "cn=computers,cn=accounts,dc=example,dc=com"
)

func hostgroupDirectory() *ldaptest.Directory {
	return ldaptest.NewDirectory(
		goldap.NewEntry("cn=webservers,"+testHostgroupBase, map[string][]string{
			"objectClass": {"ipaHostGroup"},
			"cn":          {"webservers"},
			"member": {
				"fqdn=web1.example.com," + testHostBase,
				"fqdn=web2.example.com," + testHostBase,
			},
			"memberOf": {"cn=production," + testHostgroupBase},
		}),
		goldap.NewEntry("cn=production,"+testHostgroupBase, map[string][]string{
			"objectClass": {"ipaHostGroup"},
			"cn":          {"production"},
		}),
		goldap.NewEntry("fqdn=web1.example.com,"+testHostBase, map[string][]string{
			"objectClass": {"ipaHost", "ieee802device"},
			"fqdn":        {"web1.example.com"},
			"macAddress":  {"52:54:00:00:00:01"},
		}),
	)
}

func emptyHostgroupsModel() *HostgroupsDataSourceModel {
	return &HostgroupsDataSourceModel{
		ID:              types.StringNull(),
		HostgroupBaseDN: types.StringNull(),
		HostBaseDN:      types.StringNull(),
		Groups:          types.ListNull(types.ObjectType{AttrTypes: hostgroupAttrTypes}),
		Hosts:           types.ListNull(types.ObjectType{AttrTypes: hostAttrTypes}),
	}
}

func TestHostgroupsDataSource_Metadata(t *testing.T) {
	resp := &datasource.MetadataResponse{}
	NewHostgroupsDataSource().Metadata(context.Background(), datasource.MetadataRequest{ProviderTypeName: "ldap3orm"}, resp)
	assert.Equal(t, "ldap3orm_hostgroups", resp.TypeName)
}

func TestHostgroupsDataSource_Read(t *testing.T) {
	ds := &HostgroupsDataSource{
		client: hostgroupDirectory(),
		config: &config.Config{HostgroupBaseDN: testHostgroupBase, HostBaseDN: testHostBase},
	}

	req, resp := dataSourceRequest(t, ds, emptyHostgroupsModel())
	ds.Read(context.Background(), req, resp)
	require.False(t, resp.Diagnostics.HasError(), resp.Diagnostics)

	var model HostgroupsDataSourceModel
	require.False(t, resp.State.Get(context.Background(), &model).HasError())
	assert.Equal(t, testHostgroupBase, model.ID.ValueString())

	var groups []hostgroupModel
	require.False(t, model.Groups.ElementsAs(context.Background(), &groups, false).HasError())
	require.Len(t, groups, 2)

	assert.Equal(t, "production", groups[0].Name.ValueString())
	assert.Empty(t, groups[0].Hosts.Elements())
	assert.Equal(t, []string{"webservers"}, listStrings(t, groups[0].Children))

	assert.Equal(t, "webservers", groups[1].Name.ValueString())
	assert.Equal(t, []string{"web1.example.com", "web2.example.com"}, listStrings(t, groups[1].Hosts))
	assert.Empty(t, groups[1].Children.Elements())

	var hosts []hostModel
	require.False(t, model.Hosts.ElementsAs(context.Background(), &hosts, false).HasError())
	require.Len(t, hosts, 2)
	assert.Equal(t, hostModel{Name: types.StringValue("web1.example.com"), MACAddress: types.StringValue("52:54:00:00:00:01")}, hosts[0])
	assert.Equal(t, hostModel{Name: types.StringValue("web2.example.com"), MACAddress: types.StringNull()}, hosts[1])
}

func TestHostgroupsDataSource_ReadOverrides(t *testing.T) {
	ds := &HostgroupsDataSource{client: hostgroupDirectory()}

	model := emptyHostgroupsModel()
	model.HostgroupBaseDN = types.StringValue("cn=webservers," + testHostgroupBase)
	model.HostBaseDN = types.StringValue(testHostBase)

	req, resp := dataSourceRequest(t, ds, model)
	ds.Read(context.Background(), req, resp)
	require.False(t, resp.Diagnostics.HasError(), resp.Diagnostics)

	var state HostgroupsDataSourceModel
	require.False(t, resp.State.Get(context.Background(), &state).HasError())

	var groups []hostgroupModel
	require.False(t, state.Groups.ElementsAs(context.Background(), &groups, false).HasError())
	require.Len(t, groups, 1)
	assert.Equal(t, "webservers", groups[0].Name.ValueString())
}

func TestHostgroupsDataSource_ReadMissingLocation(t *testing.T) {
	ds := &HostgroupsDataSource{client: hostgroupDirectory(), config: &config.Config{}}

	req, resp := dataSourceRequest(t, ds, emptyHostgroupsModel())
	ds.Read(context.Background(), req, resp)

	require.True(t, resp.Diagnostics.HasError())
	assert.Equal(t, "Missing Directory Location", resp.Diagnostics.Errors()[0].Summary())
}

func listStrings(t *testing.T, list types.List) []string {
	t.Helper()
	var out []string
	require.False(t, list.ElementsAs(context.Background(), &out, false).HasError())
	return out
}
