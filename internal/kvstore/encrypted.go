package kvstore

import "fmt"

// Sealer encrypts values on the way into a store and decrypts them on the
// way out. *crypto.Encryptor satisfies it.
type Sealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// EncryptedStore wraps another Store so only ciphertext is persisted. Keys
// stay in the clear; the cache needs stable names to invalidate by.
type EncryptedStore struct {
	inner  Store
	sealer Sealer
}

func NewEncrypted(inner Store, sealer Sealer) *EncryptedStore {
	return &EncryptedStore{inner: inner, sealer: sealer}
}

// Get returns an error when a stored value cannot be opened, for example
// after a key rotation. The cache treats that as a miss and overwrites it.
func (s *EncryptedStore) Get(key string) (string, bool, error) {
	sealed, ok, err := s.inner.Get(key)
	if err != nil || !ok {
		return "", ok, err
	}

	v, err := s.sealer.Decrypt(sealed)
	if err != nil {
		return "", false, fmt.Errorf("open %s: %w", key, err)
	}
	return v, true, nil
}

func (s *EncryptedStore) Set(key, value string) error {
	if _, err := normalizeKey(key); err != nil {
		return err
	}
	sealed, err := s.sealer.Encrypt(value)
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	return s.inner.Set(key, sealed)
}

func (s *EncryptedStore) Remove(key string) error {
	return s.inner.Remove(key)
}

var _ Store = (*EncryptedStore)(nil)
