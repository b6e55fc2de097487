// Package cache provides response caches for outbound marketplace calls.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// ResponseCache stores serialized marketplace responses for a TTL.
// Implementations are safe for concurrent use.
type ResponseCache interface {
	// Get returns the cached value and true on a hit. Backend errors are misses.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value for ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes a key
	Delete(ctx context.Context, key string) error
	// Close releases background resources
	Close() error
}

// Key derives the cache key of a call: marketplace:endpoint:sha256(sorted k=v params)
func Key(marketplace, endpoint string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return marketplace + ":" + endpoint + ":" + hex.EncodeToString(sum[:])
}
