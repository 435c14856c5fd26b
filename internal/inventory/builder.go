package inventory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/l3o/terraform-provider-ldap3orm/internal/config"
	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
)

// Subsystem is the tflog subsystem of the inventory builder.
const Subsystem = "inventory"

// MACAddressVar is the host variable holding the hardware address of a host.
const MACAddressVar = "macaddress"

const (
	hostGroupFilter = "(objectClass=ipaHostGroup)"
	deviceFilter    = "(&(objectClass=ieee802device)(fqdn=%s))"
)

// Options are the directory locations the builder reads.
type Options struct {
	HostgroupBaseDN string // Subtree holding ipaHostGroup entries
	HostBaseDN      string // Subtree holding host (ieee802device) entries
}

// OptionsFromConfig returns the locations of a resolved configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		HostgroupBaseDN: cfg.HostgroupBaseDN,
		HostBaseDN:      cfg.HostBaseDN,
	}
}

// Builder builds an Ansible inventory from FreeIPA host groups.
type Builder struct {
	client ldap.Client
	opts   Options
}

// NewBuilder creates a builder using a connected client.
func NewBuilder(client ldap.Client, opts Options) *Builder {
	return &Builder{client: client, opts: opts}
}

// Build walks every host group under the host-group base. Members become
// hosts of the group, with the macaddress variable set from the matching
// device entry. A host group that is a member of another group under the
// same base becomes a child of that group; nesting is resolved one level deep.
func (b *Builder) Build(ctx context.Context) (*Inventory, error) {
	start := time.Now()
	ctx = tflog.SubsystemSetField(ctx, Subsystem, "hostgroup_base_dn", b.opts.HostgroupBaseDN)

	res, err := b.client.Search(ctx, &ldap.SearchRequest{
		BaseDN:     b.opts.HostgroupBaseDN,
		Scope:      ldap.ScopeWholeSubtree,
		Filter:     hostGroupFilter,
		Attributes: []string{"cn", "member", "memberOf"},
	})
	if err != nil {
		return nil, fmt.Errorf("host group search under %s failed: %w", b.opts.HostgroupBaseDN, err)
	}

	inv := New()
	devices := newDeviceCache()
	parents := make(map[string][]string)

	for _, hg := range res.Entries {
		name := groupName(hg)
		if name == "" {
			tflog.SubsystemWarn(ctx, Subsystem, "Skipping host group without cn", map[string]any{"dn": hg.DN})
			continue
		}
		if IsReservedGroup(name) {
			tflog.SubsystemWarn(ctx, Subsystem, "Skipping host group with a reserved inventory name", map[string]any{
				"dn":   hg.DN,
				"name": name,
			})
			continue
		}
		inv.AddGroup(name)

		for _, member := range ldap.AttributeValues(hg, "member") {
			host, err := ldap.LeafValue(member, "fqdn")
			if err != nil {
				tflog.SubsystemDebug(ctx, Subsystem, "Skipping member that is not a host", map[string]any{
					"group":  name,
					"member": member,
				})
				continue
			}
			inv.AddHost(host, name)

			device, err := b.device(ctx, devices, host)
			if err != nil {
				return nil, err
			}
			if device.MACAddress != "" {
				inv.SetVariable(host, MACAddressVar, device.MACAddress)
			}
		}

		for _, parentDN := range ldap.AttributeValues(hg, "memberOf") {
			if under, err := ldap.IsDescendantOf(parentDN, b.opts.HostgroupBaseDN); err != nil || !under {
				continue
			}
			parent, err := ldap.LeafValue(parentDN, "cn")
			if err != nil || IsReservedGroup(parent) {
				continue
			}
			if !slices.Contains(parents[parent], name) {
				parents[parent] = append(parents[parent], name)
			}
		}
	}

	// one level only; grandparents are not followed
	for _, parent := range slices.Sorted(maps.Keys(parents)) {
		for _, child := range parents[parent] {
			inv.AddChild(parent, child)
		}
	}

	stats := devices.Stats()
	tflog.SubsystemInfo(ctx, Subsystem, "Inventory built", map[string]any{
		"groups":            len(inv.groups),
		"hosts":             len(inv.hosts),
		"device_lookups":    stats.Misses,
		"device_cache_hits": stats.Hits,
		"duration_ms":       time.Since(start).Milliseconds(),
	})

	return inv, nil
}

// device returns the device entry of host, searching the host base once per
// host and build.
func (b *Builder) device(ctx context.Context, cache *deviceCache, host string) (deviceEntry, error) {
	if entry, ok := cache.Get(host); ok {
		return entry, nil
	}

	res, err := b.client.Search(ctx, &ldap.SearchRequest{
		BaseDN:     b.opts.HostBaseDN,
		Scope:      ldap.ScopeWholeSubtree,
		Filter:     fmt.Sprintf(deviceFilter, goldap.EscapeFilter(host)),
		Attributes: []string{"macAddress"},
	})
	if err != nil && !ldap.IsNotFoundError(err) {
		return deviceEntry{}, fmt.Errorf("device lookup of %s failed: %w", host, err)
	}

	var entry deviceEntry
	if err == nil && len(res.Entries) > 0 {
		entry.Found = true
		if macs := ldap.AttributeValues(res.Entries[0], "macAddress"); len(macs) > 0 {
			entry.MACAddress = macs[0]
		}
	}

	cache.Put(host, entry)
	return entry, nil
}

func groupName(hg *goldap.Entry) string {
	if cn := ldap.AttributeValues(hg, "cn"); len(cn) > 0 {
		return cn[0]
	}
	name, err := ldap.LeafValue(hg.DN, "cn")
	if err != nil {
		return ""
	}
	return name
}
