// Package auth keeps reverse-engineered secrets, such as API passphrases,
// in the system keyring instead of the plain-text config file.
package auth

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const service = "vidsan-cli"

// ErrNotFound is returned when no secret is stored under a key.
var ErrNotFound = keyring.ErrNotFound

// SetSecret stores value under key.
func SetSecret(key, value string) error {
	return keyring.Set(service, key, value)
}

// GetSecret returns the value stored under key.
func GetSecret(key string) (string, error) {
	return keyring.Get(service, key)
}

// DeleteSecret removes key. Deleting a missing key is not an error.
func DeleteSecret(key string) error {
	if err := keyring.Delete(service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
