package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Record is a fixture entity: a loosely typed field map. Records are
// handled by pointer, so they are comparable; equality is decided by
// recordEquality. String values are NFC-normalized on construction, so
// composed and decomposed spellings key and compare the same.
type Record struct {
	Fields map[string]any
	canon  string
}

func newRecord(fields map[string]any) (*Record, error) {
	fields, _ = normalize(fields).(map[string]any)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, fmt.Errorf("record is not JSON-encodable: %w", err)
	}
	return &Record{Fields: fields, canon: strings.TrimSuffix(buf.String(), "\n")}, nil
}

// normalize returns v with every string NFC-normalized, descending into
// the maps and slices YAML decoding produces.
func normalize(v any) any {
	switch t := v.(type) {
	case string:
		return norm.NFC.String(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[norm.NFC.String(k)] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}

// Field returns the named field formatted as a string, or "" if absent.
func (r *Record) Field(name string) string {
	v, ok := r.Fields[name]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// MarshalJSON encodes the field map.
func (r *Record) MarshalJSON() ([]byte, error) {
	return []byte(r.canon), nil
}

// String renders the fields as name=value pairs in name order.
func (r *Record) String() string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%v", name, r.Fields[name])
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// recordKey returns a key function reading field.
func recordKey(field string) func(*Record) string {
	return func(r *Record) string {
		return r.Field(field)
	}
}

// recordEquality compares records by identity field when one is given,
// otherwise by all their fields.
func recordEquality(identity string) func(a, b *Record) bool {
	if identity != "" {
		return func(a, b *Record) bool {
			return a.Field(identity) == b.Field(identity)
		}
	}
	return func(a, b *Record) bool {
		return a.canon == b.canon
	}
}
