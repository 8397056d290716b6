// Package registry holds the closed-world mapping from record type names to
// their indexing configuration. A Registry is built once at process start
// from a fixed set of TypeConfigs and never mutated afterwards; type names
// not present in it are rejected, never auto-created.
package registry

import (
	"fmt"
	"strings"

	"github.com/typekv/typekv/typekv_errors"
)

const (
	MaxTypeLen  = 50
	MaxIDLen    = 200
	MaxFieldLen = 50

	DefaultMaxValueLength = 100
	DefaultMaxRecordSize  = 128 * 1024
)

// TypeConfig declares, per record type, which fields get which index kinds
// plus the size bounds applied at write time.
type TypeConfig struct {
	Name          string
	IndexedFields []string
	TimeFields    []string
	SearchFields  []string
	Stopwords     []string

	// MaxValueLength bounds the stringified value embedded in equality
	// index keys; MaxRecordSize bounds the serialized record.
	MaxValueLength int
	MaxRecordSize  int

	stopwords map[string]struct{}
	indexed   map[string]struct{}
	timed     map[string]struct{}
	searched  map[string]struct{}
}

var defaultStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"has", "he", "in", "is", "it", "its", "of", "on", "that", "the",
	"to", "was", "will", "with", "this", "but", "they", "have", "had",
	"what", "said", "each", "which", "she", "do", "how", "their",
}

// ValidIdentifier reports whether s fits the identifier charset within the
// given length bound. Types, ids and field names all share this grammar,
// which is what keeps colon-delimited keys unambiguous.
func ValidIdentifier(s string, max int) bool {
	if len(s) == 0 || len(s) > max {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

func (tc *TypeConfig) normalize() error {
	if !ValidIdentifier(tc.Name, MaxTypeLen) {
		return fmt.Errorf("%w: type name %q", typekv_errors.ErrInvalidIdentifier, tc.Name)
	}
	for _, fields := range [][]string{tc.IndexedFields, tc.TimeFields, tc.SearchFields} {
		for _, f := range fields {
			if !ValidIdentifier(f, MaxFieldLen) {
				return fmt.Errorf("%w: field %q of type %q", typekv_errors.ErrInvalidIdentifier, f, tc.Name)
			}
		}
	}
	if tc.MaxValueLength <= 0 {
		tc.MaxValueLength = DefaultMaxValueLength
	}
	if tc.MaxRecordSize <= 0 {
		tc.MaxRecordSize = DefaultMaxRecordSize
	}
	words := tc.Stopwords
	if words == nil {
		words = defaultStopwords
	}
	tc.stopwords = make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		tc.stopwords[strings.ToLower(w)] = struct{}{}
	}
	tc.indexed = toSet(tc.IndexedFields)
	tc.timed = toSet(tc.TimeFields)
	tc.searched = toSet(tc.SearchFields)
	return nil
}

func toSet(fields []string) map[string]struct{} {
	s := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

// StopwordSet returns the compiled stopword set. Callers must not mutate it.
func (tc *TypeConfig) StopwordSet() map[string]struct{} { return tc.stopwords }

func (tc *TypeConfig) IsIndexedField(f string) bool {
	_, ok := tc.indexed[f]
	return ok
}

func (tc *TypeConfig) IsTimeField(f string) bool {
	_, ok := tc.timed[f]
	return ok
}

func (tc *TypeConfig) IsSearchField(f string) bool {
	_, ok := tc.searched[f]
	return ok
}

// Registry is the immutable set of registered types.
type Registry struct {
	types map[string]*TypeConfig
}

func New(configs ...TypeConfig) (*Registry, error) {
	r := &Registry{types: make(map[string]*TypeConfig, len(configs))}
	for i := range configs {
		tc := configs[i]
		if err := tc.normalize(); err != nil {
			return nil, err
		}
		if _, dup := r.types[tc.Name]; dup {
			return nil, fmt.Errorf("duplicate type %q", tc.Name)
		}
		r.types[tc.Name] = &tc
	}
	return r, nil
}

// Get returns the config for a registered type, or ErrUnknownType.
func (r *Registry) Get(name string) (*TypeConfig, error) {
	tc, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", typekv_errors.ErrUnknownType, name)
	}
	return tc, nil
}

// Types lists registered type names in no particular order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	return out
}
