// Package typekv makes a primitive key-value store queryable. Records are
// grouped into registered types; each type declares which fields get
// equality, chronological and full-text indexes. All derived state lives in
// deterministic keys next to the primary records, so queries are prefix
// scans plus set algebra and the engine itself stays stateless per call.
package typekv

import (
	"log/slog"
	"time"

	"github.com/typekv/typekv/registry"
	"github.com/typekv/typekv/store"
	"github.com/typekv/typekv/utils"
)

const (
	// MaxQueryLimit caps page sizes; DefaultQueryLimit applies when the
	// caller does not set one.
	MaxQueryLimit     = 200
	DefaultQueryLimit = 50

	// MaxBulkItems bounds one bulk request.
	MaxBulkItems = 100

	// defaultScanCap bounds any scan that must gather a complete candidate
	// set. Blowing it is an error, never a silent truncation.
	defaultScanCap = 100_000
)

type Options struct {
	Logger  utils.Logger
	Clock   func() time.Time
	ScanCap int
}

// DB is the engine handle: a store, an immutable type registry and ambient
// plumbing. It holds no other state, so one DB value is safe for concurrent
// use.
type DB struct {
	store   store.Store
	reg     *registry.Registry
	log     utils.Logger
	clock   func() time.Time
	scanCap int
}

func New(st store.Store, reg *registry.Registry, opts Options) *DB {
	if opts.Logger == nil {
		opts.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.ScanCap <= 0 {
		opts.ScanCap = defaultScanCap
	}
	return &DB{
		store:   st,
		reg:     reg,
		log:     opts.Logger,
		clock:   opts.Clock,
		scanCap: opts.ScanCap,
	}
}

func (db *DB) Registry() *registry.Registry { return db.reg }

// GetTypeConfig resolves a registered type or fails with ErrUnknownType.
func (db *DB) GetTypeConfig(typ string) (*registry.TypeConfig, error) {
	return db.reg.Get(typ)
}
