package cache

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// GenerateKey creates a cache key with prefix and ID.
func GenerateKey(prefix string, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}

// HashKey shortens an arbitrarily long key to a fixed-width hex digest.
func HashKey(key string) string {
	return strconv.FormatUint(xxhash.Sum64String(key), 16)
}

// BuildPattern creates a Redis pattern for key matching.
func BuildPattern(prefix string) string {
	return fmt.Sprintf("%s*", prefix)
}
