package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Store is a success-only key-value store. Entries are written only
// after a fetch has been fully validated: presence of a key is proof of
// a verified success. A corrupted entry must be reported as a miss and
// discarded, never surfaced as data.
type Store interface {
	Get(key string) ([]byte, bool)
	PutIfAbsent(key string, value []byte) error
	Delete(key string) error
}

// Key derives a stable cache key from an arbitrary request string.
func Key(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}
