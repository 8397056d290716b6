package typekv

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/typekv/typekv/registry"
	"github.com/typekv/typekv/typekv_errors"
)

// Filter is one equality condition.
type Filter struct {
	Field string
	Value any
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type Sort struct {
	Field     string
	Direction SortDirection
}

// QueryOptions select and order records of one type.
//
// Where and And are equality filters combined with implicit AND. Or filters
// are resolved independently and their union is unioned with the AND result
// as-is; this is plain set union of two sets, not a boolean expression
// tree, and arbitrary nesting is out of scope. Search matches records
// containing any query token in any search field (SearchFields overrides
// the configured set). Sort is only valid on the type's time fields.
type QueryOptions struct {
	Where        map[string]any
	And          map[string]any
	Or           []Filter
	Search       string
	SearchFields []string
	Sort         *Sort
	Limit        int
	Cursor       string
}

type QueryResult struct {
	Records []*Record
	Cursor  string
	More    bool
}

// ExecuteQuery resolves options into an ordered page of records using only
// prefix scans and in-memory set operations. Scans of different filters are
// independent and unsnapshotted: a record created or deleted mid-query can
// spuriously appear in or vanish from the result, which is tolerated.
func (db *DB) ExecuteQuery(ctx context.Context, typ string, opts QueryOptions) (*QueryResult, error) {
	cfg, err := db.reg.Get(typ)
	if err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	shape := queryShapeHash(typ, &opts)
	marker := ""
	if opts.Cursor != "" {
		marker, err = decodeCursor(shape, opts.Cursor)
		if err != nil {
			return nil, err
		}
	}

	hasFilters := len(opts.Where)+len(opts.And) > 0
	hasOr := len(opts.Or) > 0
	hasSearch := opts.Search != ""

	if !hasFilters && !hasOr && !hasSearch && opts.Sort == nil {
		defer observeQuery(typ, "fast")()
		return db.fastPathQuery(ctx, typ, shape, limit, marker)
	}
	defer observeQuery(typ, "filtered")()

	// Candidate resolution. Every per-filter and per-token scan pages to
	// exhaustion before set algebra starts: intersections over partial sets
	// would drop valid matches.
	var candidates map[string]struct{}
	if hasFilters || hasOr {
		combined, err := db.resolveFilterSets(ctx, typ, cfg, &opts, hasFilters, hasOr)
		if err != nil {
			return nil, err
		}
		candidates = combined
	}
	if hasSearch {
		searchSet, err := db.resolveSearch(ctx, typ, cfg, opts.Search, opts.SearchFields)
		if err != nil {
			return nil, err
		}
		if candidates != nil {
			candidates = intersectSets([]map[string]struct{}{candidates, searchSet})
		} else {
			candidates = searchSet
		}
	}

	if candidates != nil && len(candidates) == 0 {
		// still validate the sort field before returning nothing
		if opts.Sort != nil && !cfg.IsTimeField(opts.Sort.Field) {
			return nil, fmt.Errorf("%w: %q for type %s", typekv_errors.ErrInvalidSort, opts.Sort.Field, typ)
		}
		return &QueryResult{Records: []*Record{}}, nil
	}

	var ids []string
	var lastKey string
	var more bool
	if opts.Sort != nil {
		ids, lastKey, more, err = db.sortedIDs(ctx, typ, cfg, opts.Sort, candidates, limit, marker)
		if err != nil {
			return nil, err
		}
	} else {
		// No sort requested: order by ascending id so pagination has a
		// stable base. Generated ids lead with epoch millis, so this
		// approximates creation order.
		ids = setToSortedSlice(candidates)
		ids = sliceAfterMarker(ids, marker)
		if len(ids) > limit {
			ids = ids[:limit]
			more = true
		}
	}

	records, err := db.hydrate(ctx, typ, ids)
	if err != nil {
		return nil, err
	}
	res := &QueryResult{Records: records, More: more}
	if more && len(ids) > 0 {
		// Sorted pages resume from the last index key rather than the last
		// id: the key positions the next scan even when that record has
		// been deleted in the meantime. The shape hash covers Sort, so the
		// two payload kinds can never be confused.
		payload := ids[len(ids)-1]
		if opts.Sort != nil {
			payload = lastKey
		}
		res.Cursor = encodeCursor(shape, payload)
	}
	return res, nil
}

// fastPathQuery pages straight over the primary prefix with the store's
// native cursor; no candidate sets, records hydrated inline.
func (db *DB) fastPathQuery(ctx context.Context, typ string, shape uint64, limit int, marker string) (*QueryResult, error) {
	res, err := db.store.List(ctx, ObjectPrefix(typ), limit, marker)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Keys))
	for _, key := range res.Keys {
		ids = append(ids, ExtractID(key))
	}
	records, err := db.hydrate(ctx, typ, ids)
	if err != nil {
		return nil, err
	}
	out := &QueryResult{Records: records}
	if !res.Complete {
		out.More = true
		out.Cursor = encodeCursor(shape, res.Cursor)
	}
	return out, nil
}

// resolveFilterSets produces the union of the AND result and the OR result.
func (db *DB) resolveFilterSets(ctx context.Context, typ string, cfg *registry.TypeConfig, opts *QueryOptions, hasFilters, hasOr bool) (map[string]struct{}, error) {
	var andSet map[string]struct{}
	if hasFilters {
		filters := make([]Filter, 0, len(opts.Where)+len(opts.And))
		for f, v := range opts.Where {
			filters = append(filters, Filter{Field: f, Value: v})
		}
		for f, v := range opts.And {
			filters = append(filters, Filter{Field: f, Value: v})
		}
		sets := make([]map[string]struct{}, 0, len(filters))
		for _, f := range filters {
			set, err := db.scanIDSet(ctx, EqualityIndexPrefix(typ, f.Field, f.Value, cfg.MaxValueLength))
			if err != nil {
				return nil, err
			}
			sets = append(sets, set)
		}
		// Smallest set first; one empty intermediate ends it. The final
		// intersection is the same whatever the processing order, this
		// just minimizes comparisons.
		sort.Slice(sets, func(i, j int) bool { return len(sets[i]) < len(sets[j]) })
		andSet = intersectSets(sets)
	}
	var orSet map[string]struct{}
	if hasOr {
		orSet = make(map[string]struct{})
		for _, f := range opts.Or {
			set, err := db.scanIDSet(ctx, EqualityIndexPrefix(typ, f.Field, f.Value, cfg.MaxValueLength))
			if err != nil {
				return nil, err
			}
			for id := range set {
				orSet[id] = struct{}{}
			}
		}
	}
	switch {
	case hasFilters && hasOr:
		for id := range orSet {
			andSet[id] = struct{}{}
		}
		return andSet, nil
	case hasFilters:
		return andSet, nil
	default:
		return orSet, nil
	}
}

// resolveSearch unions inverted-index scans per token across the search
// fields: any token matching in any field admits the record.
func (db *DB) resolveSearch(ctx context.Context, typ string, cfg *registry.TypeConfig, query string, fieldOverride []string) (map[string]struct{}, error) {
	fields := cfg.SearchFields
	if len(fieldOverride) > 0 {
		fields = fieldOverride
	}
	tokens := Tokenize(query, cfg.StopwordSet(), MinTokenLen, MaxTokenLen)
	out := make(map[string]struct{})
	for tok := range tokens {
		for _, f := range fields {
			set, err := db.scanIDSet(ctx, InvertedIndexPrefix(typ, f, tok))
			if err != nil {
				return nil, err
			}
			for id := range set {
				out[id] = struct{}{}
			}
		}
	}
	return out, nil
}

// sortedIDs walks the requested time index in key order and keeps ids from
// the candidate set (all ids when candidates is nil). Order comes from the
// index keys themselves, no in-memory comparator. marker is the index key
// the previous page ended on; resuming by key comparison keeps pagination
// alive even when that record has since been deleted. The returned lastKey
// is the key of the final id of a truncated page.
func (db *DB) sortedIDs(ctx context.Context, typ string, cfg *registry.TypeConfig, s *Sort, candidates map[string]struct{}, limit int, marker string) ([]string, string, bool, error) {
	if !cfg.IsTimeField(s.Field) {
		return nil, "", false, fmt.Errorf("%w: %q for type %s", typekv_errors.ErrInvalidSort, s.Field, typ)
	}
	prefix := TimeIndexPrefix(typ, s.Field)
	if s.Direction == SortDesc {
		prefix = ReverseTimeIndexPrefix(typ, s.Field)
	}
	ids := make([]string, 0, limit+1)
	keys := make([]string, 0, limit+1)
	cursor := ""
	scanned := 0
	for {
		page, err := db.store.List(ctx, prefix, 0, cursor)
		if err != nil {
			return nil, "", false, err
		}
		scanned += len(page.Keys)
		if scanned > db.scanCap {
			return nil, "", false, fmt.Errorf("%w: prefix %s", typekv_errors.ErrScanCapExceeded, prefix)
		}
		for _, key := range page.Keys {
			if marker != "" && key <= marker {
				continue
			}
			id := ExtractID(key)
			if candidates != nil {
				if _, ok := candidates[id]; !ok {
					continue
				}
			}
			ids = append(ids, id)
			keys = append(keys, key)
			if len(ids) > limit {
				return ids[:limit], keys[limit-1], true, nil
			}
		}
		if page.Complete {
			return ids, "", false, nil
		}
		cursor = page.Cursor
	}
}

// scanIDSet scans one index prefix to exhaustion, paging past any single
// List limit, and returns the id set. Bails out at the scan cap rather than
// intersecting a silently incomplete set.
func (db *DB) scanIDSet(ctx context.Context, prefix string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	cursor := ""
	for {
		page, err := db.store.List(ctx, prefix, 0, cursor)
		if err != nil {
			return nil, err
		}
		for _, key := range page.Keys {
			out[ExtractID(key)] = struct{}{}
		}
		if len(out) > db.scanCap {
			return nil, fmt.Errorf("%w: prefix %s", typekv_errors.ErrScanCapExceeded, prefix)
		}
		if page.Complete {
			return out, nil
		}
		if page.Cursor == "" {
			return nil, typekv_errors.ErrIncompleteListing
		}
		cursor = page.Cursor
	}
}

// hydrate fetches primary records for ids in parallel. Ids whose record
// vanished under a concurrent delete are dropped silently.
func (db *DB) hydrate(ctx context.Context, typ string, ids []string) ([]*Record, error) {
	slots := make([]*Record, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			data, ok, err := db.store.Get(gctx, ObjectKey(typ, id))
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			rec, err := decodeRecord(data)
			if err != nil {
				return err
			}
			slots[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	records := make([]*Record, 0, len(ids))
	for _, rec := range slots {
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// intersectSets expects sets ordered smallest-first and short-circuits the
// moment an intermediate intersection is empty.
func intersectSets(sets []map[string]struct{}) map[string]struct{} {
	if len(sets) == 0 {
		return map[string]struct{}{}
	}
	out := make(map[string]struct{}, len(sets[0]))
	for id := range sets[0] {
		out[id] = struct{}{}
	}
	for _, s := range sets[1:] {
		if len(out) == 0 {
			return out
		}
		for id := range out {
			if _, ok := s[id]; !ok {
				delete(out, id)
			}
		}
	}
	return out
}

func setToSortedSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func sliceAfterMarker(ids []string, marker string) []string {
	if marker == "" {
		return ids
	}
	for i, id := range ids {
		if id == marker {
			return ids[i+1:]
		}
	}
	// marker not in the set anymore (deleted since the last page); resume
	// at the first id past it
	for i, id := range ids {
		if id > marker {
			return ids[i:]
		}
	}
	return nil
}
