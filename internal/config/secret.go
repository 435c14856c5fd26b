package config

import (
	"github.com/zalando/go-keyring"
)

// KeyringMarker as the connconfig password means the password is stored in
// the system keyring under service <url> and user <user>.
const KeyringMarker = "keyring"

// SecretLookup returns the secret stored for service and user.
type SecretLookup func(service, user string) (string, error)

// KeyringLookup reads secrets from the system keyring.
func KeyringLookup(service, user string) (string, error) {
	return keyring.Get(service, user)
}
