package kvstore

import "sync"

// MemoryStore is a process-local Store. It loses its contents on exit.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemory() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	k, err := normalizeKey(key)
	if err != nil {
		return "", false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[k]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	k, err := normalizeKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[k] = value
	return nil
}

func (s *MemoryStore) Remove(key string) error {
	k, err := normalizeKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, k)
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var _ Store = (*MemoryStore)(nil)
