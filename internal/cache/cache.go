package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the page-cache interface. The assessor client stores fetched
// assessment pages here so reruns against the same addresses do not
// hammer the public site.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// PageKey generates a cache key for a fetched page URL.
func PageKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "deedscan:v1:" + hex.EncodeToString(hash[:])
}
