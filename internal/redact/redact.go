// Package redact removes sensitive values from tool results before they are
// folded into the conversation or logged.
//
// Redaction operates on decoded JSON trees, modelled as a closed variant set:
// scalars, sequences ([]any) and mappings (map[string]any). A mapping entry
// whose key matches the configured predicate has its value replaced by the
// mask, recursively and regardless of nesting depth. No reflection over
// arbitrary structs is attempted — callers hand in decoded JSON, which is the
// only shape tool results take at the dispatcher boundary.
package redact

import "strings"

// Mask is the replacement value for redacted entries.
const Mask = "[redacted]"

// DefaultPrefix is the sentinel key prefix tool authors use to mark values
// that must never reach the conversation or the logs.
const DefaultPrefix = "secret_"

// Redactor replaces the values of matching mapping keys in decoded JSON trees.
type Redactor struct {
	match func(key string) bool
}

// New returns a Redactor that redacts mapping entries whose key starts with
// prefix (case-insensitive). An empty prefix falls back to DefaultPrefix.
func New(prefix string) *Redactor {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	lower := strings.ToLower(prefix)
	return &Redactor{
		match: func(key string) bool {
			return strings.HasPrefix(strings.ToLower(key), lower)
		},
	}
}

// NewFunc returns a Redactor with a caller-supplied key predicate.
func NewFunc(match func(key string) bool) *Redactor {
	return &Redactor{match: match}
}

// Apply returns a copy of v with all matching mapping values replaced by
// Mask. The input tree is never mutated. Scalars and unknown types are
// returned unchanged.
func (r *Redactor) Apply(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if r.match(k) {
				out[k] = Mask
				continue
			}
			out[k] = r.Apply(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = r.Apply(child)
		}
		return out
	default:
		// Scalar leaf: nothing to descend into.
		return v
	}
}
