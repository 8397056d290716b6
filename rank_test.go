package typekv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankByMatchedTokens(t *testing.T) {
	cfg := taskConfig(t)
	records := []*Record{
		{ID: "one", Type: "task", Fields: map[string]any{"title": "crash"}},
		{ID: "both", Type: "task", Fields: map[string]any{"title": "login crash"}},
		{ID: "none", Type: "task", Fields: map[string]any{"title": "settings"}},
	}
	ranked := RankSearchResults(records, "login crash", cfg, RankOptions{})
	assert.Equal(t, "both", ranked[0].ID)
	assert.Equal(t, "one", ranked[1].ID)
	assert.Equal(t, "none", ranked[2].ID)
	// input order untouched
	assert.Equal(t, "one", records[0].ID)
}

func TestRankFieldWeights(t *testing.T) {
	cfg := taskConfig(t)
	records := []*Record{
		{ID: "title-hit", Type: "task", Fields: map[string]any{"title": "crash"}},
		{ID: "desc-hit", Type: "task", Fields: map[string]any{"description": "crash"}},
	}
	ranked := RankSearchResults(records, "crash", cfg, RankOptions{
		FieldWeights: map[string]float64{"title": 1.0, "description": 5.0},
	})
	assert.Equal(t, "desc-hit", ranked[0].ID)
}

func TestRankRecencyBonusBreaksTies(t *testing.T) {
	cfg := taskConfig(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	old := formatTimestamp(now.Add(-48 * time.Hour))
	fresh := formatTimestamp(now.Add(-1 * time.Hour))
	require.NotEqual(t, old, fresh)

	records := []*Record{
		{ID: "old", Type: "task", CreatedAt: old, Fields: map[string]any{"title": "crash"}},
		{ID: "fresh", Type: "task", CreatedAt: fresh, Fields: map[string]any{"title": "crash"}},
	}
	ranked := RankSearchResults(records, "crash", cfg, RankOptions{
		RecencyField: "createdAt",
		HalfLife:     24 * time.Hour,
		Now:          now,
	})
	assert.Equal(t, "fresh", ranked[0].ID)
}
