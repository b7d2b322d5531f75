// Package kvstore holds the persistent string key-value stores the cache
// facade writes through. A store has browser local-storage semantics:
// synchronous calls, string values, no native expiry.
package kvstore

import (
	"errors"
	"strings"
)

// ErrEmptyKey is returned for a blank key.
var ErrEmptyKey = errors.New("kvstore: key cannot be empty")

// Store defines the contract every backend implements.
// Get reports found=false, with a nil error, for a missing key.
// Remove of a missing key is not an error.
type Store interface {
	Get(key string) (value string, found bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

func normalizeKey(key string) (string, error) {
	k := strings.TrimSpace(key)
	if k == "" {
		return "", ErrEmptyKey
	}
	return k, nil
}
