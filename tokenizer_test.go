package typekv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var noStop = map[string]struct{}{}

func TestTokenize(t *testing.T) {
	got := Tokenize("Fix the login-page BUG, fix it now!", map[string]struct{}{"the": {}, "it": {}}, 2, 50)
	assert.Equal(t, map[string]struct{}{
		"fix": {}, "login": {}, "page": {}, "bug": {}, "now": {},
	}, got)
}

func TestTokenizeLengthBounds(t *testing.T) {
	long := "x"
	for len(long) <= 50 {
		long += "x"
	}
	got := Tokenize("a ab "+long, noStop, 2, 50)
	assert.Equal(t, map[string]struct{}{"ab": {}}, got)
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Tokenize("", noStop, 2, 50))
	assert.Empty(t, Tokenize("!!! --- ...", noStop, 2, 50))
}

func TestTokenizeFields(t *testing.T) {
	rec := &Record{
		Type: "task",
		Fields: map[string]any{
			"title":       "Fix bug",
			"description": 42,    // not a string, skipped
			"notes":       "...", // tokenizes to nothing, omitted
		},
	}
	got := TokenizeFields(rec, []string{"title", "description", "notes", "missing"}, noStop)
	assert.Equal(t, map[string]map[string]struct{}{
		"title": {"fix": {}, "bug": {}},
	}, got)
}

func TestDiffTokenSets(t *testing.T) {
	old := map[string]struct{}{"fix": {}, "bug": {}, "login": {}}
	new := map[string]struct{}{"fix": {}, "crash": {}}
	added, removed := DiffTokenSets(old, new)
	assert.Equal(t, map[string]struct{}{"crash": {}}, added)
	assert.Equal(t, map[string]struct{}{"bug": {}, "login": {}}, removed)

	added, removed = DiffTokenSets(nil, map[string]struct{}{"fresh": {}})
	assert.Equal(t, map[string]struct{}{"fresh": {}}, added)
	assert.Empty(t, removed)
}
