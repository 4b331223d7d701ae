// Package cache stores fetched links, built graphs and rankings between runs.
//
// All backends implement [Cache], a byte-oriented key/value store with
// per-entry TTL:
//
//   - [FileCache]: one JSON file per entry under a local directory (CLI default)
//   - [RedisCache]: Redis strings with native expiry (shared deployments)
//   - [MongoCache]: a MongoDB collection with a TTL index
//   - [NullCache]: stores nothing
//
// Keys come from a [Keyer] so that the same crawl bounds or edge file always
// map to the same entry. [Open] selects a backend by name.
package cache

import (
	"context"
	"time"
)

// Cache TTLs per artifact kind.
const (
	TTLLinks = 24 * time.Hour     // Links extracted from a single page
	TTLGraph = 24 * time.Hour     // Crawled or ingested graphs
	TTLRank  = 7 * 24 * time.Hour // Rankings keyed by graph content
)

// Cache is a key/value store for serialized artifacts.
type Cache interface {
	// Get returns the stored bytes and true on a hit. A missing or expired
	// entry is a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
