package typekv

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/typekv/typekv/typekv_errors"
)

// One opaque cursor design serves both query paths: the payload is either
// the native store cursor (fast path) or the last returned id (filtered
// path). The token carries a hash of the query shape so a cursor replayed
// against a different query is rejected instead of silently misreading.

const cursorVersion = "1"

func encodeCursor(shape uint64, payload string) string {
	raw := fmt.Sprintf("%s:%016x:%s", cursorVersion, shape, payload)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(shape uint64, token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %s", typekv_errors.ErrBadCursor, err)
	}
	parts := strings.SplitN(string(raw), ":", 3)
	if len(parts) != 3 || parts[0] != cursorVersion {
		return "", typekv_errors.ErrBadCursor
	}
	if parts[1] != fmt.Sprintf("%016x", shape) {
		return "", fmt.Errorf("%w: cursor belongs to a different query", typekv_errors.ErrBadCursor)
	}
	return parts[2], nil
}

// queryShapeHash folds everything that determines result membership and
// order into one value. Limit stays out: changing the page size mid-stream
// is fine.
func queryShapeHash(typ string, o *QueryOptions) uint64 {
	h := xxhash.New()
	sep := func() { _, _ = h.Write([]byte{0}) }
	write := func(s string) { _, _ = h.WriteString(s); sep() }

	write(typ)
	writeFilterMap(h, o.Where)
	sep()
	writeFilterMap(h, o.And)
	sep()
	for _, f := range o.Or {
		write(f.Field)
		write(stringifyValue(f.Value))
	}
	sep()
	write(o.Search)
	for _, f := range o.SearchFields {
		write(f)
	}
	sep()
	if o.Sort != nil {
		write(o.Sort.Field)
		write(string(o.Sort.Direction))
	}
	return h.Sum64()
}

func writeFilterMap(h *xxhash.Digest, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = h.WriteString(k)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(stringifyValue(m[k]))
		_, _ = h.Write([]byte{0})
	}
}
