package typekv

import (
	"math"
	"sort"
	"time"

	"github.com/typekv/typekv/registry"
)

// RankOptions tune RankSearchResults. FieldWeights defaults to 1.0 per
// search field; HalfLife controls how fast the recency bonus decays.
type RankOptions struct {
	FieldWeights map[string]float64
	RecencyField string
	HalfLife     time.Duration
	Now          time.Time
}

// RankSearchResults orders candidates by relevance: per search field, the
// number of query tokens found in that field times the field's weight,
// plus a recency bonus of 2^(-age/halfLife) from RecencyField when set.
// Query resolution never calls this on its own; callers opt in.
func RankSearchResults(records []*Record, query string, cfg *registry.TypeConfig, opts RankOptions) []*Record {
	qTokens := Tokenize(query, cfg.StopwordSet(), MinTokenLen, MaxTokenLen)
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	scores := make(map[string]float64, len(records))
	for _, rec := range records {
		score := 0.0
		perField := TokenizeFields(rec, cfg.SearchFields, cfg.StopwordSet())
		for field, recTokens := range perField {
			matched := 0
			for tok := range qTokens {
				if _, ok := recTokens[tok]; ok {
					matched++
				}
			}
			weight := 1.0
			if w, ok := opts.FieldWeights[field]; ok {
				weight = w
			}
			score += float64(matched) * weight
		}
		if opts.RecencyField != "" && opts.HalfLife > 0 {
			if ts, ok := timeFieldValue(rec, opts.RecencyField); ok {
				if t, err := parseTimestamp(ts); err == nil {
					age := opts.Now.Sub(t)
					if age < 0 {
						age = 0
					}
					score += math.Exp2(-float64(age) / float64(opts.HalfLife))
				}
			}
		}
		scores[rec.ID] = score
	}
	out := make([]*Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return scores[out[i].ID] > scores[out[j].ID]
	})
	return out
}
