package typekv

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/typekv/typekv/registry"
	"github.com/typekv/typekv/utils"
)

// indexOp is one derived-index write or delete. A batch of these is what a
// record mutation fans out into.
type indexOp struct {
	del  bool
	kind string // "equality", "time", "search"
	key  string
}

func equalityOps(rec *Record, cfg *registry.TypeConfig, del bool) []indexOp {
	ops := make([]indexOp, 0, len(cfg.IndexedFields))
	for _, f := range cfg.IndexedFields {
		v, ok := fieldPresent(rec, f)
		if !ok {
			continue
		}
		ops = append(ops, indexOp{
			del:  del,
			kind: "equality",
			key:  EqualityIndexKey(rec.Type, f, v, cfg.MaxValueLength, rec.ID),
		})
	}
	return ops
}

// timeOps emits the ascending/descending key pair per present time field.
// Values that do not parse as timestamps are skipped: an unparsable value
// could never be scanned back in chronological order anyway.
func timeOps(rec *Record, cfg *registry.TypeConfig, del bool) []indexOp {
	ops := make([]indexOp, 0, 2*len(cfg.TimeFields))
	for _, f := range cfg.TimeFields {
		ts, ok := timeFieldValue(rec, f)
		if !ok {
			continue
		}
		rkey, err := ReverseTimeIndexKey(rec.Type, f, ts, rec.ID)
		if err != nil {
			continue
		}
		ops = append(ops,
			indexOp{del: del, kind: "time", key: TimeIndexKey(rec.Type, f, ts, rec.ID)},
			indexOp{del: del, kind: "time", key: rkey},
		)
	}
	return ops
}

func searchOps(rec *Record, cfg *registry.TypeConfig, del bool) []indexOp {
	var ops []indexOp
	perField := TokenizeFields(rec, cfg.SearchFields, cfg.StopwordSet())
	for f, tokens := range perField {
		for tok := range tokens {
			ops = append(ops, indexOp{
				del:  del,
				kind: "search",
				key:  InvertedIndexKey(rec.Type, f, tok, rec.ID),
			})
		}
	}
	return ops
}

// createIndexOps emits every derived entry a fresh record implies.
func createIndexOps(rec *Record, cfg *registry.TypeConfig) []indexOp {
	ops := equalityOps(rec, cfg, false)
	ops = append(ops, timeOps(rec, cfg, false)...)
	ops = append(ops, searchOps(rec, cfg, false)...)
	return ops
}

// deleteIndexOps mirrors createIndexOps with deletes only.
func deleteIndexOps(rec *Record, cfg *registry.TypeConfig) []indexOp {
	ops := equalityOps(rec, cfg, true)
	ops = append(ops, timeOps(rec, cfg, true)...)
	ops = append(ops, searchOps(rec, cfg, true)...)
	return ops
}

// updateIndexOps computes the minimal batch for an update by diffing old
// against new. A full rebuild would delete and rewrite an entry for every
// indexed field and every token, O(all fields + all tokens) store calls per
// update; the diff touches only what changed, O(changed fields + changed
// tokens), which is what keeps update latency flat on wide records.
func updateIndexOps(old, new *Record, cfg *registry.TypeConfig) []indexOp {
	var ops []indexOp

	for _, f := range cfg.IndexedFields {
		ov, oldOk := fieldPresent(old, f)
		nv, newOk := fieldPresent(new, f)
		if oldOk && newOk && stringifyValue(ov) == stringifyValue(nv) {
			continue
		}
		if oldOk {
			ops = append(ops, indexOp{del: true, kind: "equality",
				key: EqualityIndexKey(old.Type, f, ov, cfg.MaxValueLength, old.ID)})
		}
		if newOk {
			ops = append(ops, indexOp{del: false, kind: "equality",
				key: EqualityIndexKey(new.Type, f, nv, cfg.MaxValueLength, new.ID)})
		}
	}

	for _, f := range cfg.TimeFields {
		ots, oldOk := timeFieldValue(old, f)
		nts, newOk := timeFieldValue(new, f)
		if oldOk && newOk && ots == nts {
			continue
		}
		if oldOk {
			if rkey, err := ReverseTimeIndexKey(old.Type, f, ots, old.ID); err == nil {
				ops = append(ops,
					indexOp{del: true, kind: "time", key: TimeIndexKey(old.Type, f, ots, old.ID)},
					indexOp{del: true, kind: "time", key: rkey})
			}
		}
		if newOk {
			if rkey, err := ReverseTimeIndexKey(new.Type, f, nts, new.ID); err == nil {
				ops = append(ops,
					indexOp{del: false, kind: "time", key: TimeIndexKey(new.Type, f, nts, new.ID)},
					indexOp{del: false, kind: "time", key: rkey})
			}
		}
	}

	stop := cfg.StopwordSet()
	oldTokens := TokenizeFields(old, cfg.SearchFields, stop)
	newTokens := TokenizeFields(new, cfg.SearchFields, stop)
	for _, f := range cfg.SearchFields {
		added, removed := DiffTokenSets(oldTokens[f], newTokens[f])
		for tok := range removed {
			ops = append(ops, indexOp{del: true, kind: "search",
				key: InvertedIndexKey(old.Type, f, tok, old.ID)})
		}
		for tok := range added {
			ops = append(ops, indexOp{del: false, kind: "search",
				key: InvertedIndexKey(new.Type, f, tok, new.ID)})
		}
	}
	return ops
}

// runIndexBatch fires every op concurrently and waits for all of them.
// There is no rollback: a failed op leaves the derived entries out of step
// with the primary record until the record's next successful mutation. The
// error propagates to the caller even though the primary write is already
// durable.
func (db *DB) runIndexBatch(ctx context.Context, typ, op string, ops []indexOp) error {
	if len(ops) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, o := range ops {
		o := o
		g.Go(func() error {
			if o.del {
				IndexDeleteCount.WithLabelValues(typ, o.kind).Inc()
				return db.store.Delete(gctx, o.key)
			}
			IndexWriteCount.WithLabelValues(typ, o.kind).Inc()
			return db.store.Put(gctx, o.key, nil, 0)
		})
	}
	if err := g.Wait(); err != nil {
		IndexBatchFailures.WithLabelValues(typ, op).Inc()
		db.log.ErrorCtx(utils.WithDefaultArgs(ctx, "type", typ, "op", op),
			"index batch failed, derived indexes out of step until next write", "err", err)
		return err
	}
	return nil
}
