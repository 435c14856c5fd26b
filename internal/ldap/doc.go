// Package ldap provides the directory client used by the entry reconciler,
// the FreeIPA inventory builder and the Terraform provider.
//
// # Connection model
//
// A Client owns exactly one connection for the lifetime of an invocation.
// NewClient only validates the ConnectionConfig; Connect dials the configured
// URL, optionally upgrades it with StartTLS and binds. There is no pool, no
// reconnect and no retry: any connection or bind failure is returned as a
// *ConnectionError and ends the invocation.
//
// # Authentication
//
// Three methods are supported:
//
//   - simple: bind DN and password
//   - kerberos: GSSAPI bind using a credential cache, a keytab or a password,
//     in that order of preference
//   - anonymous: unauthenticated bind
//
// # Errors
//
// Operations the server rejects are returned as *LDAPError. The error carries
// the result code, a category (see ErrorCategory) and the diagnostic message
// of the server verbatim in ServerMsg. IsNotFoundError reports result code 32
// (noSuchObject), which base-scope lookups use to detect absent entries.
//
// # Distinguished names
//
// SafeDN re-encodes a DN with RFC 4514 escaping; every DN passed to a
// directory operation by this module has been through it. LeafValue and
// IsDescendantOf parse DNs rather than splitting strings, so escaped commas
// in values are handled.
//
// # Attribute equality
//
// Attribute names are case-insensitive. Attribute values are compared as
// sets with ValuesEqual: order and duplicates are not significant.
//
// # Logging
//
// All operations log through tflog under the "ldap" subsystem. Inside
// Terraform the subsystem is set up by the provider; the Ansible binaries set
// up a root logger writing to stderr.
package ldap
