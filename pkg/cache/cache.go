package cache

import "time"

// Cache is a bounded key/value store with per-entry TTL. It backs the alert
// dedup window and short-lived venue metadata.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns (value, true) if found, (nil, false) if not found or expired.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with a TTL. It may return false if the
	// entry was dropped by the admission policy.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value from the cache.
	Delete(key string)

	// Wait blocks until pending writes are visible to Get.
	Wait()

	// Clear removes all values from the cache.
	Clear()

	// Close closes the cache and releases resources.
	Close()
}
