package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldError reports a field whose raw value could not be post-processed.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Record is one parsed log line. Fields keep the order of the format string.
type Record struct {
	// Source names the input the line came from (file path or "-").
	Source string
	// Line is the 1-based line number in Source.
	Line int
	// Raw is the original line.
	Raw string
	// Errors lists the fields whose post-processing failed; those fields
	// keep their raw string value.
	Errors []*FieldError

	names  []string
	values map[string]any
}

func newRecord(raw string, n int) *Record {
	return &Record{
		Raw:    raw,
		names:  make([]string, 0, n),
		values: make(map[string]any, n),
	}
}

func (r *Record) set(name string, v any) {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

// Get returns the value of a field.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// String returns the value of a field if it is still a raw string.
func (r *Record) String(name string) (string, bool) {
	v, ok := r.values[name].(string)
	return v, ok
}

// Status returns the HTTP status of the record, taken from the first of
// StatusFields the format produced.
func (r *Record) Status() (string, bool) {
	for _, f := range StatusFields {
		if v, ok := r.String(f); ok {
			return v, true
		}
	}
	return "", false
}

// Names returns the field names in order.
func (r *Record) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.names) }

// FieldErr returns the post-processing error recorded for a field, if any.
func (r *Record) FieldErr(name string) error {
	for _, e := range r.Errors {
		if e.Field == name {
			return e
		}
	}
	return nil
}

// MarshalJSON encodes the fields as a JSON object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, r.values[name]); err != nil {
			return nil, fmt.Errorf("encode field %s: %w", name, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeJSON encodes v without HTML escaping and without a trailing newline.
func writeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}
