package cache

import "time"

// LayeredStore fronts a disk store with a memory store. The disk layer
// is the source of truth; the memory layer only saves re-reads within a
// single run.
type LayeredStore struct {
	memory Store
	disk   *DiskStore
}

// NewLayeredStore creates a layered store over the given disk store.
func NewLayeredStore(disk *DiskStore, memoryTTL time.Duration) *LayeredStore {
	return &LayeredStore{
		memory: NewMemoryStore(memoryTTL, 10*time.Minute),
		disk:   disk,
	}
}

// Get checks memory first, then disk, promoting disk hits to memory.
func (s *LayeredStore) Get(key string) ([]byte, bool) {
	if val, found := s.memory.Get(key); found {
		return val, true
	}
	if val, found := s.disk.Get(key); found {
		_ = s.memory.PutIfAbsent(key, val)
		return val, true
	}
	return nil, false
}

// PutIfAbsent stores the value in both layers.
func (s *LayeredStore) PutIfAbsent(key string, value []byte) error {
	if err := s.disk.PutIfAbsent(key, value); err != nil {
		return err
	}
	return s.memory.PutIfAbsent(key, value)
}

// Delete removes the value from both layers.
func (s *LayeredStore) Delete(key string) error {
	_ = s.memory.Delete(key)
	return s.disk.Delete(key)
}

// Path exposes the on-disk location for a key.
func (s *LayeredStore) Path(key string) string {
	return s.disk.Path(key)
}
