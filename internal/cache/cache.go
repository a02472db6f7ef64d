package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache holds derived lookup structures in memory
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	Clear()
}

// CacheKey generates a cache key from a file path
func CacheKey(path string) string {
	hash := sha256.Sum256([]byte(path))
	return "honorscan:v1:" + hex.EncodeToString(hash[:])
}
