package typekv

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typekv/typekv/typekv_errors"
)

func TestBulkUpsertMixedBranches(t *testing.T) {
	db, _, _ := newTestDB()
	ctx := context.Background()

	_, err := db.CreateRecord(ctx, "task", map[string]any{"title": "old"}, "t1")
	require.NoError(t, err)

	res, err := db.BulkUpsert(ctx, "task", []BulkItem{
		{ID: "t1", Data: map[string]any{"title": "updated"}},
		{ID: "t2", Data: map[string]any{"title": "fresh"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, OpUpdated, res.Items[0].Operation)
	assert.Equal(t, OpCreated, res.Items[1].Operation)
}

func TestBulkPatchIsolatesFailures(t *testing.T) {
	db, _, _ := newTestDB()
	ctx := context.Background()

	_, err := db.CreateRecord(ctx, "task", map[string]any{"status": "pending"}, "t1")
	require.NoError(t, err)
	_, err = db.CreateRecord(ctx, "task", map[string]any{"status": "pending"}, "t3")
	require.NoError(t, err)

	items := []BulkPatchItem{
		{ID: "t1", Patch: map[string]any{"status": "done"}},
		{ID: "missing", Patch: map[string]any{"status": "done"}},
		{ID: "t3", Patch: map[string]any{"status": "done"}},
	}
	res, err := db.BulkPatch(ctx, "task", items)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, len(items), res.Succeeded+res.Failed)

	assert.True(t, res.Items[0].OK)
	assert.False(t, res.Items[1].OK)
	assert.Contains(t, res.Items[1].Error, "not found")
	assert.True(t, res.Items[2].OK)

	// the failure did not stop t3 from being patched
	rec, err := db.GetRecord(ctx, "task", "t3")
	require.NoError(t, err)
	assert.Equal(t, "done", rec.Fields["status"])
}

func TestBulkSizeValidatedUpFront(t *testing.T) {
	db, st, _ := newTestDB()
	ctx := context.Background()

	items := make([]BulkItem, MaxBulkItems+1)
	for i := range items {
		items[i] = BulkItem{ID: fmt.Sprintf("t%d", i), Data: map[string]any{}}
	}
	_, err := db.BulkUpsert(ctx, "task", items)
	assert.ErrorIs(t, err, typekv_errors.ErrTooManyItems)
	// nothing was written
	assert.Equal(t, 0, st.Len())

	ids := make([]string, MaxBulkItems+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%d", i)
	}
	_, err = db.BulkDelete(ctx, "task", ids)
	assert.ErrorIs(t, err, typekv_errors.ErrTooManyItems)
	_, err = db.BulkPatch(ctx, "task", make([]BulkPatchItem, MaxBulkItems+1))
	assert.ErrorIs(t, err, typekv_errors.ErrTooManyItems)
}

func TestBulkDelete(t *testing.T) {
	db, _, _ := newTestDB()
	ctx := context.Background()

	for _, id := range []string{"t1", "t2"} {
		_, err := db.CreateRecord(ctx, "task", map[string]any{"title": id}, id)
		require.NoError(t, err)
	}
	// absent ids succeed, same as single delete
	res, err := db.BulkDelete(ctx, "task", []string{"t1", "t2", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Succeeded)

	left, err := db.ExecuteQuery(ctx, "task", QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, left.Records)
}

func TestBulkUpdateWhere(t *testing.T) {
	db, _, _ := newTestDB()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := db.CreateRecord(ctx, "task", map[string]any{"status": "pending"}, fmt.Sprintf("t%d", i))
		require.NoError(t, err)
	}
	_, err := db.CreateRecord(ctx, "task", map[string]any{"status": "done"}, "t9")
	require.NoError(t, err)

	res, err := db.BulkUpdateWhere(ctx, "task",
		map[string]any{"status": "pending"},
		map[string]any{"status": "archived"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Succeeded)

	after, err := db.ExecuteQuery(ctx, "task", QueryOptions{Where: map[string]any{"status": "pending"}})
	require.NoError(t, err)
	assert.Empty(t, after.Records)

	// untouched record keeps its status
	rec, err := db.GetRecord(ctx, "task", "t9")
	require.NoError(t, err)
	assert.Equal(t, "done", rec.Fields["status"])
}

func TestBulkUpdateWhereRespectsLimit(t *testing.T) {
	db, _, _ := newTestDB()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := db.CreateRecord(ctx, "task", map[string]any{"status": "pending"}, fmt.Sprintf("t%d", i))
		require.NoError(t, err)
	}
	res, err := db.BulkUpdateWhere(ctx, "task",
		map[string]any{"status": "pending"},
		map[string]any{"status": "done"}, 2)
	require.NoError(t, err)
	// extra matches are excluded silently
	assert.Equal(t, 2, res.Succeeded)

	left, err := db.ExecuteQuery(ctx, "task", QueryOptions{Where: map[string]any{"status": "pending"}})
	require.NoError(t, err)
	assert.Len(t, left.Records, 2)
}

func TestBulkDeleteWhere(t *testing.T) {
	db, _, _ := newTestDB()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := db.CreateRecord(ctx, "task", map[string]any{"status": "stale"}, fmt.Sprintf("t%d", i))
		require.NoError(t, err)
	}
	res, err := db.BulkDeleteWhere(ctx, "task", map[string]any{"status": "stale"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Succeeded)

	left, err := db.ExecuteQuery(ctx, "task", QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, left.Records)
}
