package typekv

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/oarkflow/json"
)

// Record is the unit of storage: a fixed envelope plus an open string-keyed
// field map. On the wire the two are flattened into a single JSON object;
// the envelope keys are reserved and stripped back out on decode. Type and
// id never change after creation.
type Record struct {
	ID        string
	Type      string
	CreatedAt string
	UpdatedAt string
	Fields    map[string]any
}

const (
	fieldID        = "id"
	fieldType      = "type"
	fieldCreatedAt = "createdAt"
	fieldUpdatedAt = "updatedAt"
)

// encodeRecord flattens a record into one open JSON object. The result is
// also what size limits are measured against.
func encodeRecord(rec *Record) ([]byte, error) {
	flat := make(map[string]any, len(rec.Fields)+4)
	for k, v := range rec.Fields {
		flat[k] = v
	}
	flat[fieldID] = rec.ID
	flat[fieldType] = rec.Type
	flat[fieldCreatedAt] = rec.CreatedAt
	flat[fieldUpdatedAt] = rec.UpdatedAt
	return json.Marshal(flat)
}

func decodeRecord(data []byte) (*Record, error) {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	rec := &Record{Fields: flat}
	rec.ID, _ = flat[fieldID].(string)
	rec.Type, _ = flat[fieldType].(string)
	rec.CreatedAt, _ = flat[fieldCreatedAt].(string)
	rec.UpdatedAt, _ = flat[fieldUpdatedAt].(string)
	delete(flat, fieldID)
	delete(flat, fieldType)
	delete(flat, fieldCreatedAt)
	delete(flat, fieldUpdatedAt)
	return rec, nil
}

// newRecordID builds "<epoch-millis>-<base36 suffix>". The millis prefix
// makes freshly generated ids sort roughly by creation time.
func newRecordID(now time.Time) string {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	// 36^8 keeps the suffix at 8 base36 digits
	n := binary.BigEndian.Uint64(buf[:]) % 2821109907456
	suffix := strconv.FormatUint(n, 36)
	for len(suffix) < 8 {
		suffix = "0" + suffix
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}

// shallowMerge lays patch over base one key at a time. Values replace
// wholesale: nested objects and arrays in patch overwrite whatever was
// there, they are never merged recursively. A nil value in patch still
// replaces (records store nulls, the index layer skips them).
func shallowMerge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// fieldPresent reports whether a field takes part in indexing: it must
// exist and not be null.
func fieldPresent(rec *Record, field string) (any, bool) {
	v, ok := rec.Fields[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// timeFieldValue resolves a time field to its string value. The envelope
// timestamps count as present fields here, so types may declare createdAt
// or updatedAt among their time fields.
func timeFieldValue(rec *Record, field string) (string, bool) {
	switch field {
	case fieldCreatedAt:
		return rec.CreatedAt, rec.CreatedAt != ""
	case fieldUpdatedAt:
		return rec.UpdatedAt, rec.UpdatedAt != ""
	}
	v, ok := fieldPresent(rec, field)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
