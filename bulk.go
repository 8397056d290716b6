package typekv

import (
	"context"
	"fmt"

	"github.com/typekv/typekv/typekv_errors"
)

// BulkItem carries one upsert payload.
type BulkItem struct {
	ID   string
	Data map[string]any
}

// BulkPatchItem carries one patch payload.
type BulkPatchItem struct {
	ID    string
	Patch map[string]any
}

// BulkItemResult reports one item's outcome: Operation on success, Error on
// failure, never both.
type BulkItemResult struct {
	OK        bool
	ID        string
	Operation string
	Error     string
}

// BulkResult aggregates per-item outcomes. There is no batch-level verdict
// beyond the counts: one item failing does not taint the others.
type BulkResult struct {
	Items     []BulkItemResult
	Succeeded int
	Failed    int
}

func (r *BulkResult) add(typ, op string, id string, err error) {
	if err != nil {
		r.Items = append(r.Items, BulkItemResult{ID: id, Error: err.Error()})
		r.Failed++
		BulkItemResults.WithLabelValues(typ, op, "error").Inc()
		return
	}
	r.Items = append(r.Items, BulkItemResult{OK: true, ID: id, Operation: op})
	r.Succeeded++
	BulkItemResults.WithLabelValues(typ, op, "ok").Inc()
}

func checkBulkSize(n int) error {
	if n > MaxBulkItems {
		return fmt.Errorf("%w: %d items, max %d", typekv_errors.ErrTooManyItems, n, MaxBulkItems)
	}
	return nil
}

// BulkUpsert upserts up to MaxBulkItems records, isolating failures per
// item. Size is checked before any work starts.
func (db *DB) BulkUpsert(ctx context.Context, typ string, items []BulkItem) (*BulkResult, error) {
	if err := checkBulkSize(len(items)); err != nil {
		return nil, err
	}
	res := &BulkResult{Items: make([]BulkItemResult, 0, len(items))}
	for _, item := range items {
		rec, op, err := db.UpsertRecord(ctx, typ, item.ID, item.Data)
		id := item.ID
		if err != nil {
			op = "upsert"
		} else {
			id = rec.ID
		}
		res.add(typ, op, id, err)
	}
	return res, nil
}

// BulkPatch patches up to MaxBulkItems records; a missing record fails only
// its own item.
func (db *DB) BulkPatch(ctx context.Context, typ string, items []BulkPatchItem) (*BulkResult, error) {
	if err := checkBulkSize(len(items)); err != nil {
		return nil, err
	}
	res := &BulkResult{Items: make([]BulkItemResult, 0, len(items))}
	for _, item := range items {
		_, err := db.PatchRecord(ctx, typ, item.ID, item.Patch)
		res.add(typ, "patched", item.ID, err)
	}
	return res, nil
}

// BulkDelete deletes up to MaxBulkItems records. Absent ids succeed, same
// as single-record delete.
func (db *DB) BulkDelete(ctx context.Context, typ string, ids []string) (*BulkResult, error) {
	if err := checkBulkSize(len(ids)); err != nil {
		return nil, err
	}
	res := &BulkResult{Items: make([]BulkItemResult, 0, len(ids))}
	for _, id := range ids {
		err := db.DeleteRecord(ctx, typ, id)
		res.add(typ, "deleted", id, err)
	}
	return res, nil
}

// BulkUpdateWhere patches every record matching the AND filters, up to
// limit. Matches past the limit are left untouched without complaint; the
// limit is a safety cap, not pagination.
func (db *DB) BulkUpdateWhere(ctx context.Context, typ string, filters map[string]any, patch map[string]any, limit int) (*BulkResult, error) {
	ids, err := db.resolveWhereIDs(ctx, typ, filters, limit)
	if err != nil {
		return nil, err
	}
	items := make([]BulkPatchItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, BulkPatchItem{ID: id, Patch: patch})
	}
	return db.BulkPatch(ctx, typ, items)
}

// BulkDeleteWhere deletes every record matching the AND filters, up to
// limit.
func (db *DB) BulkDeleteWhere(ctx context.Context, typ string, filters map[string]any, limit int) (*BulkResult, error) {
	ids, err := db.resolveWhereIDs(ctx, typ, filters, limit)
	if err != nil {
		return nil, err
	}
	return db.BulkDelete(ctx, typ, ids)
}

func (db *DB) resolveWhereIDs(ctx context.Context, typ string, filters map[string]any, limit int) ([]string, error) {
	if limit <= 0 || limit > MaxBulkItems {
		limit = MaxBulkItems
	}
	res, err := db.ExecuteQuery(ctx, typ, QueryOptions{Where: filters, Limit: limit})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}
