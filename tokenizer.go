package typekv

import (
	"strings"
	"unicode"
)

// Token length bounds applied by Tokenize.
const (
	MinTokenLen = 2
	MaxTokenLen = 50
)

// Tokenize lowercases text, splits on runs of non-alphanumeric characters
// and returns the surviving tokens as a set: deduplicated, stopwords gone,
// length-bounded. Pure for a fixed stopword set.
func Tokenize(text string, stopwords map[string]struct{}, minLen, maxLen int) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) < minLen || len(w) > maxLen {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

// TokenizeFields tokenizes each configured search field of a record. Only
// string-valued fields take part; fields whose token set comes out empty are
// omitted from the result.
func TokenizeFields(rec *Record, fields []string, stopwords map[string]struct{}) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(fields))
	if rec == nil {
		return out
	}
	for _, f := range fields {
		raw, ok := rec.Fields[f]
		if !ok {
			continue
		}
		text, ok := raw.(string)
		if !ok {
			continue
		}
		tokens := Tokenize(text, stopwords, MinTokenLen, MaxTokenLen)
		if len(tokens) > 0 {
			out[f] = tokens
		}
	}
	return out
}

// DiffTokenSets partitions new against old. added holds tokens only in new,
// removed tokens only in old; unchanged tokens appear in neither.
func DiffTokenSets(old, new map[string]struct{}) (added, removed map[string]struct{}) {
	added = make(map[string]struct{})
	removed = make(map[string]struct{})
	for t := range new {
		if _, ok := old[t]; !ok {
			added[t] = struct{}{}
		}
	}
	for t := range old {
		if _, ok := new[t]; !ok {
			removed[t] = struct{}{}
		}
	}
	return added, removed
}
