// Package prompt renders the operator-configured prompt templates that seed a
// remediation session.
//
// Templates use single-brace placeholders ("{alert_summaries}"), matching the
// format the operational prompts have always been written in. Rendering is
// strict: every placeholder must have a value, and unknown placeholders fail
// fast with a named error instead of leaking braces into the model prompt.
package prompt

import (
	"fmt"
	"strings"
)

// MissingPlaceholderError reports a template placeholder that had no value.
type MissingPlaceholderError struct {
	// Name is the placeholder that could not be filled.
	Name string
}

func (e *MissingPlaceholderError) Error() string {
	return fmt.Sprintf("prompt: no value for placeholder %q", e.Name)
}

// Template is a parsed prompt template. Create one with Parse; the zero value
// renders as the empty string.
type Template struct {
	raw          string
	placeholders []string
}

// Parse scans raw for "{name}" placeholders and returns a Template.
// Literal braces are written as "{{" and "}}".
func Parse(raw string) *Template {
	t := &Template{raw: raw}
	seen := map[string]bool{}
	for _, name := range scan(raw) {
		if !seen[name] {
			seen[name] = true
			t.placeholders = append(t.placeholders, name)
		}
	}
	return t
}

// Placeholders returns the distinct placeholder names in appearance order.
func (t *Template) Placeholders() []string {
	out := make([]string, len(t.placeholders))
	copy(out, t.placeholders)
	return out
}

// Render substitutes values into the template. Every placeholder must be
// present in values; the first missing one is reported as a
// [MissingPlaceholderError]. Extra values are ignored.
func (t *Template) Render(values map[string]any) (string, error) {
	for _, name := range t.placeholders {
		if _, ok := values[name]; !ok {
			return "", &MissingPlaceholderError{Name: name}
		}
	}

	var b strings.Builder
	b.Grow(len(t.raw))
	i := 0
	for i < len(t.raw) {
		c := t.raw[i]
		switch {
		case c == '{' && i+1 < len(t.raw) && t.raw[i+1] == '{':
			b.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(t.raw) && t.raw[i+1] == '}':
			b.WriteByte('}')
			i += 2
		case c == '{':
			end := strings.IndexByte(t.raw[i:], '}')
			if end < 0 {
				b.WriteString(t.raw[i:])
				return b.String(), nil
			}
			name := t.raw[i+1 : i+end]
			fmt.Fprintf(&b, "%v", values[name])
			i += end + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// scan extracts placeholder names, skipping escaped braces.
func scan(raw string) []string {
	var names []string
	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case c == '{' && i+1 < len(raw) && raw[i+1] == '{':
			i += 2
		case c == '}' && i+1 < len(raw) && raw[i+1] == '}':
			i += 2
		case c == '{':
			end := strings.IndexByte(raw[i:], '}')
			if end < 0 {
				return names
			}
			names = append(names, raw[i+1:i+end])
			i += end + 1
		default:
			i++
		}
	}
	return names
}
