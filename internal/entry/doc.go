// Package entry reconciles a single directory entry against its desired
// state.
//
// A Desired entry names a DN, which may be a template such as
// "uid={uid},ou=People,dc=example,dc=com", the object classes the entry must
// carry and the attribute values it must have. Reconcile resolves the DN,
// looks the entry up with a base-scope search and then:
//
//   - creates a missing entry that should be present,
//   - deletes an existing entry that should be absent,
//   - adds missing object classes and replaces differing attributes of an
//     existing entry in a single modify request.
//
// Object classes are never removed and attributes not named in the desired
// state are left alone. Attribute values compare as sets, so a second run
// against a converged directory reports no change.
//
// Values are compared as stored. A server that hashes userPassword on write
// never returns the plaintext, so an entry that sets userPassword is modified
// on every run. Leave the password out of the desired attributes once the
// entry exists to keep runs idempotent.
package entry
