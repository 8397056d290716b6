package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteStore backs the primitive contract with a single kv table. Prefix
// listing uses a half-open key range so the B-tree index on the primary key
// serves it directly. Useful where a cgo-free, single-file store is wanted.
type SQLiteStore struct {
	db    *sql.DB
	clock func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key     TEXT PRIMARY KEY,
	value   BLOB NOT NULL,
	expires INTEGER NOT NULL DEFAULT 0
) WITHOUT ROWID;
`

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite store")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create kv table")
	}
	return &SQLiteStore{db: db, clock: time.Now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expires int64
	row := s.db.QueryRowContext(ctx, `SELECT value, expires FROM kv WHERE key = ?`, key)
	err := row.Scan(&value, &expires)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "sqlite get")
	}
	if expires != 0 && expires <= s.clock().UnixMilli() {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires int64
	if ttl > 0 {
		expires = s.clock().Add(ttl).UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires = excluded.expires`,
		key, value, expires)
	return errors.Wrap(err, "sqlite put")
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return errors.Wrap(err, "sqlite delete")
}

func (s *SQLiteStore) List(ctx context.Context, prefix string, limit int, cursor string) (ListResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	start := prefix
	if cursor != "" {
		// resume strictly past the previous page's last key
		start = cursor + "\x00"
	}
	now := s.clock().UnixMilli()
	q := `SELECT key FROM kv WHERE key >= ? AND (expires = 0 OR expires > ?)`
	args := []any{start, now}
	if end := PrefixEnd(prefix); end != "" {
		q += ` AND key < ?`
		args = append(args, end)
	}
	q += ` ORDER BY key LIMIT ?`
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return ListResult{}, errors.Wrap(err, "sqlite list")
	}
	defer rows.Close()

	res := ListResult{Keys: make([]string, 0, limit)}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return ListResult{}, errors.Wrap(err, "sqlite list scan")
		}
		res.Keys = append(res.Keys, key)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, errors.Wrap(err, "sqlite list rows")
	}
	if len(res.Keys) > limit {
		res.Keys = res.Keys[:limit]
		res.Cursor = res.Keys[limit-1]
	} else {
		res.Complete = true
	}
	return res, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
