package typekv

import (
	"sync"
	"time"

	"github.com/typekv/typekv/registry"
	"github.com/typekv/typekv/store"
)

// fakeClock hands out strictly increasing instants so records created in a
// row get distinct, ordered timestamps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testRegistry() *registry.Registry {
	reg, err := registry.New(
		registry.TypeConfig{
			Name:          "task",
			IndexedFields: []string{"status", "priority"},
			TimeFields:    []string{"createdAt", "dueDate"},
			SearchFields:  []string{"title", "description"},
		},
		registry.TypeConfig{
			Name:          "note",
			IndexedFields: []string{"author"},
			SearchFields:  []string{"body"},
			MaxRecordSize: 512,
		},
	)
	if err != nil {
		panic(err)
	}
	return reg
}

func newTestDB() (*DB, *store.MemoryStore, *fakeClock) {
	st := store.NewMemoryStore()
	clock := newFakeClock()
	db := New(st, testRegistry(), Options{Clock: clock.Now})
	return db, st, clock
}
