package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore implements in-memory caching in front of the disk store.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a new memory store.
func NewMemoryStore(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the store.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	if val, found := s.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

// PutIfAbsent stores a value unless the key is already present.
func (s *MemoryStore) PutIfAbsent(key string, value []byte) error {
	_ = s.cache.Add(key, value, gocache.DefaultExpiration)
	return nil
}

// Delete removes a value from the store.
func (s *MemoryStore) Delete(key string) error {
	s.cache.Delete(key)
	return nil
}
