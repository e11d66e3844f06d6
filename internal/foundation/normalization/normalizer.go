// Package normalization maps loosely written config strings onto typed enums.
package normalization

import (
	"fmt"
	"sort"
	"strings"
)

// Enum converts case-insensitive, whitespace-padded input into values of T.
type Enum[T comparable] struct {
	name      string
	values    map[string]T
	validKeys []string
}

// NewEnum builds a normalizer named name (used in error messages) for values.
func NewEnum[T comparable](name string, values map[string]T) *Enum[T] {
	normalized := make(map[string]T, len(values))
	keys := make([]string, 0, len(values))
	for k, v := range values {
		nk := clean(k)
		normalized[nk] = v
		keys = append(keys, nk)
	}
	sort.Strings(keys)
	return &Enum[T]{name: name, values: normalized, validKeys: keys}
}

// Lookup returns the value for raw and whether it was recognized.
func (e *Enum[T]) Lookup(raw string) (T, bool) {
	v, ok := e.values[clean(raw)]
	return v, ok
}

// Parse is Lookup with a descriptive error. Empty input yields def.
func (e *Enum[T]) Parse(raw string, def T) (T, error) {
	if clean(raw) == "" {
		return def, nil
	}
	if v, ok := e.Lookup(raw); ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q, valid options: %v", e.name, raw, e.validKeys)
}

// ValidKeys returns the accepted spellings, sorted.
func (e *Enum[T]) ValidKeys() []string {
	out := make([]string, len(e.validKeys))
	copy(out, e.validKeys)
	return out
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
