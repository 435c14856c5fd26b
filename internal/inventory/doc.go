// Package inventory builds an Ansible inventory from FreeIPA host groups.
//
// Every ipaHostGroup entry below the host-group base becomes a group. Its
// member DNs with an fqdn leaf become hosts of the group, and each host gets
// a macaddress variable when an ieee802device entry with the same fqdn
// exists below the host base. A host group whose memberOf points at another
// group below the host-group base is added as a child of that group. Only
// this one level is resolved; a grandparent is not linked to its grandchild.
package inventory
