package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for the oracle prompt-response cache.
// Identical prompts hit the cache instead of re-spending oracle quota.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from prompt content.
func Key(content string) string {
	hash := sha256.Sum256([]byte(content))
	return "adjudex:v1:" + hex.EncodeToString(hash[:])
}
