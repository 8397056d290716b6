package store

import (
	"context"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// PebbleStore is the durable default backend. Pebble keys are already kept
// in lexicographic order, so List maps directly onto a bounded iterator.
// Pebble has no native expiry; ttl is ignored here.
type PebbleStore struct {
	db *pebble.DB
	wo *pebble.WriteOptions
}

var _ Store = (*PebbleStore)(nil)

func OpenPebble(path string) (*PebbleStore, error) {
	opts := pebble.Options{
		ErrorIfNotExists: false,
	}
	db, err := pebble.Open(path, &opts)
	if err != nil {
		return nil, errors.Wrap(err, "open pebble store")
	}
	return &PebbleStore{db: db, wo: pebble.Sync}, nil
}

func (p *PebbleStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, closer, err := p.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "pebble get")
	}
	out := make([]byte, len(val))
	copy(out, val)
	if err := closer.Close(); err != nil {
		return nil, false, errors.Wrap(err, "pebble get close")
	}
	return out, true, nil
}

func (p *PebbleStore) Put(_ context.Context, key string, value []byte, _ time.Duration) error {
	return errors.Wrap(p.db.Set([]byte(key), value, p.wo), "pebble put")
}

func (p *PebbleStore) Delete(_ context.Context, key string) error {
	return errors.Wrap(p.db.Delete([]byte(key), p.wo), "pebble delete")
}

func (p *PebbleStore) List(_ context.Context, prefix string, limit int, cursor string) (ListResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	io := pebble.IterOptions{
		LowerBound: []byte(prefix),
	}
	if end := PrefixEnd(prefix); end != "" {
		io.UpperBound = []byte(end)
	}
	it, err := p.db.NewIter(&io)
	if err != nil {
		return ListResult{}, errors.Wrap(err, "pebble list iterator")
	}
	defer it.Close()

	var valid bool
	if cursor != "" {
		// cursor is the last key of the previous page; resume just past it
		valid = it.SeekGE(append([]byte(cursor), 0))
	} else {
		valid = it.First()
	}
	res := ListResult{Keys: make([]string, 0, limit)}
	for ; valid && len(res.Keys) < limit; valid = it.Next() {
		res.Keys = append(res.Keys, string(it.Key()))
	}
	if err := it.Error(); err != nil {
		return ListResult{}, errors.Wrap(err, "pebble list")
	}
	if valid {
		res.Cursor = res.Keys[len(res.Keys)-1]
	} else {
		res.Complete = true
	}
	return res, nil
}

func (p *PebbleStore) Close() error {
	return p.db.Close()
}
