package inventory

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// Ungrouped is the implicit group of hosts that belong to no other group.
const Ungrouped = "ungrouped"

// IsReservedGroup reports whether name is a key Ansible gives its own meaning
// in an inventory ("all", "ungrouped", "_meta"). Such groups are never
// rendered.
func IsReservedGroup(name string) bool {
	switch name {
	case "all", Ungrouped, "_meta":
		return true
	}
	return false
}

// Group is an inventory group with its direct hosts and child groups.
type Group struct {
	Name     string
	hosts    map[string]struct{}
	children map[string]struct{}
}

// Hosts returns the names of the direct hosts of the group, sorted.
func (g *Group) Hosts() []string {
	return slices.Sorted(maps.Keys(g.hosts))
}

// Children returns the names of the child groups, sorted.
func (g *Group) Children() []string {
	return slices.Sorted(maps.Keys(g.children))
}

// Inventory is a group and host tree. All mutations are set unions, so the
// order in which groups and hosts are registered does not change the result.
type Inventory struct {
	groups map[string]*Group
	hosts  map[string]map[string]any
}

// New returns an empty inventory.
func New() *Inventory {
	return &Inventory{
		groups: make(map[string]*Group),
		hosts:  make(map[string]map[string]any),
	}
}

// AddGroup registers a group and returns its name.
func (inv *Inventory) AddGroup(name string) string {
	if _, ok := inv.groups[name]; !ok {
		inv.groups[name] = &Group{
			Name:     name,
			hosts:    make(map[string]struct{}),
			children: make(map[string]struct{}),
		}
	}
	return name
}

// AddHost registers host and, unless group is empty, adds it to group.
func (inv *Inventory) AddHost(host, group string) {
	if _, ok := inv.hosts[host]; !ok {
		inv.hosts[host] = make(map[string]any)
	}
	if group == "" {
		return
	}
	inv.AddGroup(group)
	inv.groups[group].hosts[host] = struct{}{}
}

// SetVariable sets a host variable, registering the host if needed.
func (inv *Inventory) SetVariable(host, key string, value any) {
	inv.AddHost(host, "")
	inv.hosts[host][key] = value
}

// AddChild makes child a child group of parent. Both groups are created if
// they do not exist.
func (inv *Inventory) AddChild(parent, child string) {
	inv.AddGroup(parent)
	inv.AddGroup(child)
	inv.groups[parent].children[child] = struct{}{}
}

// Group returns the named group.
func (inv *Inventory) Group(name string) (*Group, bool) {
	g, ok := inv.groups[name]
	return g, ok
}

// Groups returns the names of all groups, sorted.
func (inv *Inventory) Groups() []string {
	return slices.Sorted(maps.Keys(inv.groups))
}

// Hosts returns the names of all hosts, sorted.
func (inv *Inventory) Hosts() []string {
	return slices.Sorted(maps.Keys(inv.hosts))
}

// HostVars returns a copy of the variables of host.
func (inv *Inventory) HostVars(host string) (map[string]any, bool) {
	vars, ok := inv.hosts[host]
	if !ok {
		return nil, false
	}
	return maps.Clone(vars), true
}

// Parents returns the groups that list name as a child, sorted.
func (inv *Inventory) Parents(name string) []string {
	var parents []string
	for _, g := range inv.groups {
		if _, ok := g.children[name]; ok {
			parents = append(parents, g.Name)
		}
	}
	slices.Sort(parents)
	return parents
}

// topLevel returns the groups that have no parent.
func (inv *Inventory) topLevel() []string {
	nested := make(map[string]struct{})
	for _, g := range inv.groups {
		for child := range g.children {
			nested[child] = struct{}{}
		}
	}

	var top []string
	for _, name := range inv.Groups() {
		if IsReservedGroup(name) {
			continue
		}
		if _, ok := nested[name]; !ok {
			top = append(top, name)
		}
	}
	return top
}

// ungrouped returns the hosts that belong to no group.
func (inv *Inventory) ungrouped() []string {
	grouped := make(map[string]struct{})
	for _, g := range inv.groups {
		if IsReservedGroup(g.Name) {
			continue
		}
		for host := range g.hosts {
			grouped[host] = struct{}{}
		}
	}

	var hosts []string
	for _, host := range inv.Hosts() {
		if _, ok := grouped[host]; !ok {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

type listGroup struct {
	Hosts    []string `json:"hosts,omitempty"`
	Children []string `json:"children,omitempty"`
}

type listMeta struct {
	HostVars map[string]map[string]any `json:"hostvars"`
}

// ListJSON renders the inventory in the format Ansible expects from
// `inventory --list`: one object per group, "all" with the top-level groups
// as children and "_meta.hostvars" with the variables of every host.
func (inv *Inventory) ListJSON() ([]byte, error) {
	out := make(map[string]any, len(inv.groups)+2)

	hostVars := make(map[string]map[string]any, len(inv.hosts))
	for host, vars := range inv.hosts {
		hostVars[host] = vars
	}
	out["_meta"] = listMeta{HostVars: hostVars}

	top := inv.topLevel()
	if hosts := inv.ungrouped(); len(hosts) > 0 {
		out[Ungrouped] = listGroup{Hosts: hosts}
		top = append(top, Ungrouped)
	}
	out["all"] = listGroup{Children: top}

	for name, g := range inv.groups {
		if IsReservedGroup(name) {
			continue
		}
		out[name] = listGroup{Hosts: g.Hosts(), Children: g.Children()}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode inventory: %w", err)
	}
	return data, nil
}

// HostJSON renders the variables of host as Ansible expects from
// `inventory --host <name>`. An unknown host yields an empty object.
func (inv *Inventory) HostJSON(host string) ([]byte, error) {
	vars, ok := inv.hosts[host]
	if !ok {
		vars = map[string]any{}
	}

	data, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode variables of host %s: %w", host, err)
	}
	return data, nil
}

// YAML renders the inventory in the Ansible YAML inventory format, nesting
// child groups below their parents.
func (inv *Inventory) YAML() ([]byte, error) {
	children := make(map[string]any)
	for _, name := range inv.topLevel() {
		children[name] = inv.yamlGroup(name, map[string]bool{})
	}
	if hosts := inv.ungrouped(); len(hosts) > 0 {
		children[Ungrouped] = map[string]any{"hosts": inv.yamlHosts(hosts)}
	}

	doc := map[string]any{
		"all": map[string]any{"children": children},
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inventory: %w", err)
	}
	return data, nil
}

func (inv *Inventory) yamlGroup(name string, path map[string]bool) map[string]any {
	g := inv.groups[name]
	node := make(map[string]any)

	if hosts := g.Hosts(); len(hosts) > 0 {
		node["hosts"] = inv.yamlHosts(hosts)
	}

	path[name] = true
	defer delete(path, name)

	if len(g.children) > 0 {
		children := make(map[string]any, len(g.children))
		for _, child := range g.Children() {
			if path[child] {
				// cycle; the child is already listed further up
				children[child] = map[string]any{}
				continue
			}
			children[child] = inv.yamlGroup(child, path)
		}
		node["children"] = children
	}

	return node
}

func (inv *Inventory) yamlHosts(hosts []string) map[string]any {
	out := make(map[string]any, len(hosts))
	for _, host := range hosts {
		out[host] = inv.hosts[host]
	}
	return out
}
