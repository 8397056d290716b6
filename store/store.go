// Package store defines the primitive key-value contract the engine runs on,
// plus the shipped backends (pebble, sqlite, memory). The contract is
// deliberately small: atomic get/put/delete and lexicographically ordered
// prefix listing. No multi-key transactions, read-your-own-writes locally.
package store

import (
	"context"
	"time"
)

// Store is the primitive substrate. Implementations must keep List output
// ordered lexicographically by key and Delete idempotent.
type Store interface {
	// Get returns the stored value, or ok=false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Put stores value under key. ttl==0 means no expiry; backends without
	// native expiry may ignore it.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns up to limit keys starting with prefix, in key order,
	// resuming after cursor when one is given.
	List(ctx context.Context, prefix string, limit int, cursor string) (ListResult, error)
	Close() error
}

// ListResult is one page of a prefix listing. Complete means the listing
// reached the end of the prefix range; otherwise Cursor resumes it.
type ListResult struct {
	Keys     []string
	Cursor   string
	Complete bool
}

// DefaultListLimit applies when a caller passes limit<=0.
const DefaultListLimit = 1000

// PrefixEnd returns the smallest key greater than every key with the given
// prefix, or "" when no upper bound exists (prefix of all 0xff bytes).
func PrefixEnd(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}
