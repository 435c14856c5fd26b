package inventory

import (
	"context"
	"errors"
	"testing"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/l3o/terraform-provider-ldap3orm/internal/config"
	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap/ldaptest"
)

const (
	hgBase   = "cn=hostgroups,cn=accounts,dc=example,dc=com"
	hostBase = "cn=computers,cn=accounts,dc=example,dc=com"
)

var testOptions = Options{HostgroupBaseDN: hgBase, HostBaseDN: hostBase}

func hostGroup(cn string, members, memberOf []string) *goldap.Entry {
	return goldap.NewEntry("cn="+cn+","+hgBase, map[string][]string{
		"objectClass": {"top", "groupOfNames", "nestedGroup", "ipaHostGroup"},
		"cn":          {cn},
		"member":      members,
		"memberOf":    memberOf,
	})
}

func host(fqdn, mac string) *goldap.Entry {
	attrs := map[string][]string{
		"objectClass": {"top", "ipaHost", "nshComputer"},
		"fqdn":        {fqdn},
	}
	if mac != "" {
		attrs["objectClass"] = append(attrs["objectClass"], "ieee802device")
		attrs["macAddress"] = []string{mac}
	}
	return goldap.NewEntry("fqdn="+fqdn+","+hostBase, attrs)
}

func hostDN(fqdn string) string {
	return "fqdn=" + fqdn + "," + hostBase
}

func groupDN(cn string) string {
	return "cn=" + cn + "," + hgBase
}

func freeIPADirectory() *ldaptest.Directory {
	return ldaptest.NewDirectory(
		goldap.NewEntry(hgBase, map[string][]string{"objectClass": {"nsContainer"}, "cn": {"hostgroups"}}),
		goldap.NewEntry(hostBase, map[string][]string{"objectClass": {"nsContainer"}, "cn": {"computers"}}),

		hostGroup("webservers",
			[]string{hostDN("web1.example.com"), hostDN("web2.example.com")},
			[]string{groupDN("production"), "cn=admins,cn=groups,cn=accounts,dc=example,dc=com"}),
		hostGroup("dbservers",
			[]string{hostDN("db1.example.com"), hostDN("web1.example.com")},
			[]string{groupDN("production")}),
		hostGroup("production", nil, []string{groupDN("datacenter")}),
		hostGroup("datacenter", nil, nil),

		host("web1.example.com", "52:54:00:00:00:01"),
		host("web2.example.com", ""),
		host("db1.example.com", "52:54:00:00:00:03"),
	)
}

func TestBuilder_Build(t *testing.T) {
	inv, err := NewBuilder(freeIPADirectory(), testOptions).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"datacenter", "dbservers", "production", "webservers"}, inv.Groups())
	assert.Equal(t, []string{"db1.example.com", "web1.example.com", "web2.example.com"}, inv.Hosts())

	web, ok := inv.Group("webservers")
	require.True(t, ok)
	assert.Equal(t, []string{"web1.example.com", "web2.example.com"}, web.Hosts())

	db, ok := inv.Group("dbservers")
	require.True(t, ok)
	assert.Equal(t, []string{"db1.example.com", "web1.example.com"}, db.Hosts())

	vars, _ := inv.HostVars("web1.example.com")
	assert.Equal(t, "52:54:00:00:00:01", vars[MACAddressVar])
	vars, _ = inv.HostVars("db1.example.com")
	assert.Equal(t, "52:54:00:00:00:03", vars[MACAddressVar])
	vars, _ = inv.HostVars("web2.example.com")
	assert.NotContains(t, vars, MACAddressVar)

	// memberOf outside the host-group base is ignored
	_, ok = inv.Group("admins")
	assert.False(t, ok)
}

func TestBuilder_Build_NestingOneLevel(t *testing.T) {
	inv, err := NewBuilder(freeIPADirectory(), testOptions).Build(context.Background())
	require.NoError(t, err)

	production, _ := inv.Group("production")
	assert.Equal(t, []string{"dbservers", "webservers"}, production.Children())
	assert.Equal(t, []string{"production"}, inv.Parents("webservers"))
	assert.Equal(t, []string{"production"}, inv.Parents("dbservers"))

	datacenter, _ := inv.Group("datacenter")
	assert.Equal(t, []string{"production"}, datacenter.Children())
	assert.NotContains(t, datacenter.Children(), "webservers")
	assert.NotContains(t, inv.Parents("webservers"), "datacenter")
}

func TestBuilder_Build_DeviceLookupCached(t *testing.T) {
	client := &ldaptest.MockClient{}
	client.On("Search", mock.Anything, mock.MatchedBy(func(req *ldap.SearchRequest) bool {
		return req.BaseDN == hgBase && req.Filter == "(objectClass=ipaHostGroup)"
	})).Return(&ldap.SearchResult{Entries: []*goldap.Entry{
		hostGroup("a", []string{hostDN("web1.example.com")}, nil),
		hostGroup("b", []string{hostDN("web1.example.com")}, nil),
	}}, nil).Once()
	client.On("Search", mock.Anything, mock.MatchedBy(func(req *ldap.SearchRequest) bool {
		return req.BaseDN == hostBase &&
			req.Scope == ldap.ScopeWholeSubtree &&
			req.Filter == "(&(objectClass=ieee802device)(fqdn=web1.example.com))"
	})).Return(&ldap.SearchResult{Entries: []*goldap.Entry{host("web1.example.com", "52:54:00:00:00:01")}}, nil).Once()

	inv, err := NewBuilder(client, testOptions).Build(context.Background())
	require.NoError(t, err)

	client.AssertNumberOfCalls(t, "Search", 2)
	vars, _ := inv.HostVars("web1.example.com")
	assert.Equal(t, "52:54:00:00:00:01", vars[MACAddressVar])
}

func TestBuilder_Build_SkipsNonHostMembers(t *testing.T) {
	dir := ldaptest.NewDirectory(
		hostGroup("parent", []string{groupDN("child"), "uid=admin,cn=users,cn=accounts,dc=example,dc=com"}, nil),
	)

	inv, err := NewBuilder(dir, testOptions).Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, inv.Hosts())
	assert.Equal(t, []string{"parent"}, inv.Groups())
}

func TestBuilder_Build_SkipsReservedGroupNames(t *testing.T) {
	dir := ldaptest.NewDirectory(
		hostGroup("all", []string{hostDN("web1.example.com")}, []string{groupDN("production")}),
		hostGroup("_meta", []string{hostDN("web1.example.com")}, nil),
		hostGroup("webservers", []string{hostDN("web2.example.com")}, []string{groupDN("ungrouped")}),
		hostGroup("ungrouped", nil, nil),
		host("web1.example.com", "52:54:00:00:00:01"),
		host("web2.example.com", ""),
	)

	inv, err := NewBuilder(dir, testOptions).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"webservers"}, inv.Groups())
	assert.Equal(t, []string{"web2.example.com"}, inv.Hosts())

	data, err := inv.ListJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"_meta": {"hostvars": {"web2.example.com": {}}},
		"all": {"children": ["webservers"]},
		"webservers": {"hosts": ["web2.example.com"]}
	}`, string(data))
}

func TestBuilder_Build_Errors(t *testing.T) {
	t.Run("host group search", func(t *testing.T) {
		client := &ldaptest.MockClient{}
		client.On("Search", mock.Anything, mock.Anything).
			Return(nil, ldap.NewConnectionError("connection reset", nil))

		_, err := NewBuilder(client, testOptions).Build(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "host group search under "+hgBase)
		assert.True(t, ldap.IsConnectionError(err))
	})

	t.Run("device lookup", func(t *testing.T) {
		client := &ldaptest.MockClient{}
		client.On("Search", mock.Anything, mock.MatchedBy(func(req *ldap.SearchRequest) bool {
			return req.BaseDN == hgBase
		})).Return(&ldap.SearchResult{Entries: []*goldap.Entry{
			hostGroup("a", []string{hostDN("web1.example.com")}, nil),
		}}, nil)
		client.On("Search", mock.Anything, mock.MatchedBy(func(req *ldap.SearchRequest) bool {
			return req.BaseDN == hostBase
		})).Return(nil, ldap.NewLDAPError("search", hostBase,
			goldap.NewError(goldap.LDAPResultInsufficientAccessRights, errors.New("access denied"))))

		_, err := NewBuilder(client, testOptions).Build(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "device lookup of web1.example.com")
		assert.True(t, ldap.IsPermissionError(err))
	})

	t.Run("missing host base is not fatal", func(t *testing.T) {
		client := &ldaptest.MockClient{}
		client.On("Search", mock.Anything, mock.MatchedBy(func(req *ldap.SearchRequest) bool {
			return req.BaseDN == hgBase
		})).Return(&ldap.SearchResult{Entries: []*goldap.Entry{
			hostGroup("a", []string{hostDN("web1.example.com")}, nil),
		}}, nil)
		client.On("Search", mock.Anything, mock.MatchedBy(func(req *ldap.SearchRequest) bool {
			return req.BaseDN == hostBase
		})).Return(nil, ldap.NewLDAPError("search", hostBase,
			goldap.NewError(goldap.LDAPResultNoSuchObject, errors.New("no such entry"))))

		inv, err := NewBuilder(client, testOptions).Build(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"web1.example.com"}, inv.Hosts())
	})
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{HostgroupBaseDN: hgBase, HostBaseDN: hostBase}
	assert.Equal(t, testOptions, OptionsFromConfig(cfg))
}

func TestDeviceCache(t *testing.T) {
	c := newDeviceCache()

	_, ok := c.Get("web1.example.com")
	assert.False(t, ok)

	c.Put("web1.example.com", deviceEntry{MACAddress: "aa", Found: true})
	c.Put("WEB1.example.com", deviceEntry{MACAddress: "aa", Found: true})

	entry, ok := c.Get("Web1.Example.Com")
	require.True(t, ok)
	assert.Equal(t, "aa", entry.MACAddress)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Entries)
	assert.InDelta(t, 50.0, stats.HitRate, 0.001)
}
