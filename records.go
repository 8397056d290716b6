package typekv

import (
	"context"
	"fmt"

	"github.com/typekv/typekv/registry"
	"github.com/typekv/typekv/typekv_errors"
)

// GetRecord fetches one record. Absent records come back as (nil, nil); an
// unregistered type or a malformed id is an error.
func (db *DB) GetRecord(ctx context.Context, typ, id string) (*Record, error) {
	if _, err := db.checkIdentifiers(typ, id); err != nil {
		return nil, err
	}
	data, ok, err := db.store.Get(ctx, ObjectKey(typ, id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return decodeRecord(data)
}

// CreateRecord writes a new record. Pass id "" to have one generated. Fails
// with ErrAlreadyExists when the id is taken and ErrRecordTooLarge when the
// serialized form exceeds the type's ceiling. The primary write lands
// before the index batch; an index failure therefore surfaces as an error
// on a record that is already durable.
func (db *DB) CreateRecord(ctx context.Context, typ string, data map[string]any, id string) (*Record, error) {
	now := db.clock()
	if id == "" {
		id = newRecordID(now)
	}
	cfg, err := db.checkIdentifiers(typ, id)
	if err != nil {
		return nil, err
	}
	_, exists, err := db.store.Get(ctx, ObjectKey(typ, id))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s/%s", typekv_errors.ErrAlreadyExists, typ, id)
	}
	stamp := formatTimestamp(now)
	rec := &Record{
		ID:        id,
		Type:      typ,
		CreatedAt: stamp,
		UpdatedAt: stamp,
		Fields:    copyFields(data),
	}
	if err := db.putPrimary(ctx, rec, cfg); err != nil {
		return nil, err
	}
	if err := db.runIndexBatch(ctx, typ, "create", createIndexOps(rec, cfg)); err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateRecord replaces a record's fields wholesale. CreatedAt is carried
// over from the stored record, UpdatedAt is re-stamped, and the index diff
// runs against the previous version.
func (db *DB) UpdateRecord(ctx context.Context, typ, id string, data map[string]any) (*Record, error) {
	cfg, err := db.checkIdentifiers(typ, id)
	if err != nil {
		return nil, err
	}
	old, err := db.GetRecord(ctx, typ, id)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, fmt.Errorf("%w: %s/%s", typekv_errors.ErrNotFound, typ, id)
	}
	rec := &Record{
		ID:        id,
		Type:      typ,
		CreatedAt: old.CreatedAt,
		UpdatedAt: formatTimestamp(db.clock()),
		Fields:    copyFields(data),
	}
	if err := db.putPrimary(ctx, rec, cfg); err != nil {
		return nil, err
	}
	if err := db.runIndexBatch(ctx, typ, "update", updateIndexOps(old, rec, cfg)); err != nil {
		return nil, err
	}
	return rec, nil
}

// PatchRecord shallow-merges patch over the stored fields and delegates to
// UpdateRecord. Patch values replace matching keys wholesale; nested maps
// are never merged.
func (db *DB) PatchRecord(ctx context.Context, typ, id string, patch map[string]any) (*Record, error) {
	if _, err := db.checkIdentifiers(typ, id); err != nil {
		return nil, err
	}
	old, err := db.GetRecord(ctx, typ, id)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, fmt.Errorf("%w: %s/%s", typekv_errors.ErrNotFound, typ, id)
	}
	return db.UpdateRecord(ctx, typ, id, shallowMerge(old.Fields, patch))
}

// DeleteRecord removes the record and every derived entry computed from its
// stored version. Deleting an absent record is a successful no-op.
func (db *DB) DeleteRecord(ctx context.Context, typ, id string) error {
	cfg, err := db.checkIdentifiers(typ, id)
	if err != nil {
		return err
	}
	rec, err := db.GetRecord(ctx, typ, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	if err := db.store.Delete(ctx, ObjectKey(typ, id)); err != nil {
		return err
	}
	return db.runIndexBatch(ctx, typ, "delete", deleteIndexOps(rec, cfg))
}

// Upsert branch outcomes.
const (
	OpCreated = "created"
	OpUpdated = "updated"
)

// UpsertRecord updates the record when it exists, creates it otherwise, and
// reports which branch ran. An empty id always takes the create branch with
// a generated id.
func (db *DB) UpsertRecord(ctx context.Context, typ, id string, data map[string]any) (*Record, string, error) {
	if id == "" {
		rec, err := db.CreateRecord(ctx, typ, data, "")
		return rec, OpCreated, err
	}
	if _, err := db.checkIdentifiers(typ, id); err != nil {
		return nil, "", err
	}
	existing, err := db.GetRecord(ctx, typ, id)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		rec, err := db.UpdateRecord(ctx, typ, id, data)
		return rec, OpUpdated, err
	}
	rec, err := db.CreateRecord(ctx, typ, data, id)
	return rec, OpCreated, err
}

func (db *DB) checkIdentifiers(typ, id string) (*registry.TypeConfig, error) {
	if !registry.ValidIdentifier(typ, registry.MaxTypeLen) {
		return nil, fmt.Errorf("%w: type %q", typekv_errors.ErrInvalidIdentifier, typ)
	}
	// id generation happens before this check, so "" is malformed here too
	if !validateID(id) {
		return nil, fmt.Errorf("%w: id %q", typekv_errors.ErrInvalidIdentifier, id)
	}
	return db.reg.Get(typ)
}

func (db *DB) putPrimary(ctx context.Context, rec *Record, cfg *registry.TypeConfig) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if len(data) > cfg.MaxRecordSize {
		return fmt.Errorf("%w: %d bytes over %d limit for type %s",
			typekv_errors.ErrRecordTooLarge, len(data), cfg.MaxRecordSize, rec.Type)
	}
	return db.store.Put(ctx, ObjectKey(rec.Type, rec.ID), data, 0)
}
