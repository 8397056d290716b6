package typekv

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/typekv/typekv/registry"
)

// Key layout, colon-delimited:
//
//	obj:<type>:<id>                          primary record
//	idx:<type>:<field>:<value>:<id>          equality index
//	ts:<type>:<field>:<timestamp>:<id>       time index, ascending
//	rts:<type>:<field>:<reverse>:<id>        time index, descending
//	srch:<type>:<field>:<token>:<id>         inverted index
//
// Types, ids and field names are restricted to [A-Za-z0-9_-], so the only
// segments that can carry arbitrary bytes are values (escaped) and
// timestamps (fixed RFC3339 shape). Builders are pure; the same builder runs
// at write time and at query-prefix time so truncation and escaping always
// agree.

const timeFormat = "2006-01-02T15:04:05.000Z"

// reverseTimePivot is 9999-12-31T23:59:59.999Z in unix milliseconds. The
// descending time index stores pivot−t zero-padded to reverseTimeWidth
// digits, which turns ascending key order into descending chronological
// order. Timestamps at or past the pivot do not order correctly under this
// encoding; that limit is inherent to the fixed pivot and is documented
// rather than worked around.
const (
	reverseTimePivot int64 = 253402300799999
	reverseTimeWidth       = 15
)

func ObjectKey(typ, id string) string {
	return "obj:" + typ + ":" + id
}

func ObjectPrefix(typ string) string {
	return "obj:" + typ + ":"
}

// EqualityIndexKey embeds the stringified value, truncated to maxLen and
// escaped so it cannot alias the delimiter.
func EqualityIndexKey(typ, field string, value any, maxLen int, id string) string {
	return EqualityIndexPrefix(typ, field, value, maxLen) + id
}

func EqualityIndexPrefix(typ, field string, value any, maxLen int) string {
	return "idx:" + typ + ":" + field + ":" + encodeIndexValue(value, maxLen) + ":"
}

func TimeIndexKey(typ, field, ts, id string) string {
	return "ts:" + typ + ":" + field + ":" + ts + ":" + id
}

func TimeIndexPrefix(typ, field string) string {
	return "ts:" + typ + ":" + field + ":"
}

func ReverseTimeIndexKey(typ, field, ts, id string) (string, error) {
	rev, err := reverseTimestamp(ts)
	if err != nil {
		return "", err
	}
	return ReverseTimeIndexPrefix(typ, field) + rev + ":" + id, nil
}

func ReverseTimeIndexPrefix(typ, field string) string {
	return "rts:" + typ + ":" + field + ":"
}

// InvertedIndexKey assumes token has already been through Tokenize, which
// leaves only letters and digits.
func InvertedIndexKey(typ, field, token, id string) string {
	return InvertedIndexPrefix(typ, field, token) + id
}

func InvertedIndexPrefix(typ, field, token string) string {
	return "srch:" + typ + ":" + field + ":" + token + ":"
}

// ExtractID returns the last colon-delimited segment of a key.
func ExtractID(key string) string {
	i := strings.LastIndexByte(key, ':')
	if i < 0 {
		return key
	}
	return key[i+1:]
}

// encodeIndexValue stringifies, truncates to maxLen, then percent-escapes
// '%', ':' and control bytes. Escaping after truncation keeps the visible
// value bound stable; the escape is injective so distinct values never
// collide in the key space.
func encodeIndexValue(value any, maxLen int) string {
	s := stringifyValue(value)
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' || c == ':' || c < 0x20 {
			fmt.Fprintf(&b, "%%%02x", c)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// stringifyValue matches how JSON scalars print: numbers without a trailing
// ".0", bools as true/false, everything else through fmt.
func stringifyValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func parseTimestamp(ts string) (time.Time, error) {
	return time.Parse(time.RFC3339, ts)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func reverseTimestamp(ts string) (string, error) {
	t, err := parseTimestamp(ts)
	if err != nil {
		return "", err
	}
	rev := reverseTimePivot - t.UnixMilli()
	if rev < 0 {
		rev = 0
	}
	return fmt.Sprintf("%0*d", reverseTimeWidth, rev), nil
}

func validateID(id string) bool {
	return registry.ValidIdentifier(id, registry.MaxIDLen)
}
