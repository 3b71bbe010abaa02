package engine

import "strings"

// Fields holds the values collected so far for one workflow run.
// Values are strings or string slices, keyed by field name.
type Fields map[string]any

// String returns the string value for key, or "" if absent or not a string.
func (f Fields) String(key string) string {
	if v, ok := f[key].(string); ok {
		return v
	}
	return ""
}

// List returns the string slice value for key, or nil.
func (f Fields) List(key string) []string {
	if v, ok := f[key].([]string); ok {
		return v
	}
	return nil
}

// Has reports whether key holds a non-empty value.
func (f Fields) Has(key string) bool {
	switch v := f[key].(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case []string:
		return len(v) > 0
	}
	return false
}

// Clone returns a shallow copy so callers can hand out fields without
// exposing the session's own map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge applies update by key, overwriting existing values.
func (f Fields) Merge(update Fields) {
	for k, v := range update {
		f[k] = v
	}
}

// Escape escapes text that is interpolated into Slack mrkdwn output, so
// user-supplied values can never be interpreted as markup or entities.
func Escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
