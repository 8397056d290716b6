package typekv

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/typekv/typekv/typekv_errors"
)

func TestCursorRoundtrip(t *testing.T) {
	token := encodeCursor(42, "obj:task:t1")
	payload, err := decodeCursor(42, token)
	assert.NoError(t, err)
	// payloads with colons survive intact
	assert.Equal(t, "obj:task:t1", payload)
}

func TestCursorShapeMismatch(t *testing.T) {
	token := encodeCursor(42, "t1")
	_, err := decodeCursor(43, token)
	assert.ErrorIs(t, err, typekv_errors.ErrBadCursor)
}

func TestCursorGarbage(t *testing.T) {
	_, err := decodeCursor(42, "???not-base64???")
	assert.ErrorIs(t, err, typekv_errors.ErrBadCursor)
	_, err = decodeCursor(42, "")
	assert.ErrorIs(t, err, typekv_errors.ErrBadCursor)
}

func TestQueryShapeHash(t *testing.T) {
	a := QueryOptions{Where: map[string]any{"status": "pending", "priority": "high"}}
	b := QueryOptions{Where: map[string]any{"priority": "high", "status": "pending"}}
	// map order does not affect the shape
	assert.Equal(t, queryShapeHash("task", &a), queryShapeHash("task", &b))

	c := QueryOptions{Where: map[string]any{"status": "done"}}
	assert.NotEqual(t, queryShapeHash("task", &a), queryShapeHash("task", &c))
	// same options, different type
	assert.NotEqual(t, queryShapeHash("task", &a), queryShapeHash("note", &a))

	// limit is not part of the shape: page size may change mid-stream
	d := a
	d.Limit = 7
	assert.Equal(t, queryShapeHash("task", &a), queryShapeHash("task", &d))
}
