package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/typekv/typekv/utils"
)

type memEntry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// MemoryStore keeps everything in a concurrent map and sorts on List. Meant
// for tests and examples; it honors ttl, which the pebble backend does not.
type MemoryStore struct {
	entries *utils.CMap[string, memEntry]
	clock   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: utils.NewCMap[string, memEntry](),
		clock:   time.Now,
	}
}

func (m *MemoryStore) alive(e memEntry) bool {
	return e.expires.IsZero() || m.clock().Before(e.expires)
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.entries.Load(key)
	if !ok || !m.alive(e) {
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.clock().Add(ttl)
	}
	m.entries.Store(key, e)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.entries.Delete(key)
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string, limit int, cursor string) (ListResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	keys := make([]string, 0, 64)
	m.entries.Range(func(key string, e memEntry) bool {
		if strings.HasPrefix(key, prefix) && m.alive(e) && key > cursor {
			keys = append(keys, key)
		}
		return true
	})
	sort.Strings(keys)
	res := ListResult{}
	if len(keys) > limit {
		res.Keys = keys[:limit]
		res.Cursor = res.Keys[limit-1]
	} else {
		res.Keys = keys
		res.Complete = true
	}
	return res, nil
}

func (m *MemoryStore) Close() error { return nil }

// Len reports the number of live entries, expired ones included until swept.
func (m *MemoryStore) Len() int { return m.entries.Size() }
