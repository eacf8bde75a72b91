// Package emitter writes records as newline-delimited JSON.
package emitter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/cyra/alogparse/internal/parser"
	"github.com/samber/lo"
)

// Options configures the JSON emitter.
type Options struct {
	// Pretty enables indented output. The result is no longer NDJSON.
	Pretty bool

	// Fields limits output to these fields, in this order.
	// Empty means all fields in format order.
	Fields []string

	// AddLineNumber adds the 1-based input line number as _lineNumber.
	AddLineNumber bool

	// AddSource adds the input path as _source.
	AddSource bool

	// AddRaw adds the original line as _raw.
	AddRaw bool
}

// Emitter serializes records to JSON, one object per line.
type Emitter struct {
	writer  *bufio.Writer
	options Options
	encoder *json.Encoder
}

func New(output io.Writer, opts Options) *Emitter {
	writer := bufio.NewWriter(output)
	encoder := json.NewEncoder(writer)
	if opts.Pretty {
		encoder.SetIndent("", "  ")
	}
	encoder.SetEscapeHTML(false)

	return &Emitter{
		writer:  writer,
		options: opts,
		encoder: encoder,
	}
}

// Name identifies the sink in metrics.
func (e *Emitter) Name() string { return "ndjson" }

// Write encodes rec and flushes it so output is visible while following a
// live file.
func (e *Emitter) Write(rec *parser.Record) error {
	if err := e.encoder.Encode(e.buildOutput(rec)); err != nil {
		return err
	}
	return e.writer.Flush()
}

// Flush writes any buffered output.
func (e *Emitter) Flush() error {
	return e.writer.Flush()
}

func (e *Emitter) buildOutput(rec *parser.Record) *object {
	names := rec.Names()
	if len(e.options.Fields) > 0 {
		names = lo.Filter(e.options.Fields, func(name string, _ int) bool {
			_, ok := rec.Get(name)
			return ok
		})
	}

	out := &object{}
	for _, name := range names {
		v, _ := rec.Get(name)
		out.add(name, v)
	}

	if e.options.AddLineNumber {
		out.add("_lineNumber", rec.Line)
	}
	if e.options.AddSource {
		out.add("_source", rec.Source)
	}
	if e.options.AddRaw {
		out.add("_raw", rec.Raw)
	}
	if len(rec.Errors) > 0 {
		errs := &object{}
		for _, fe := range rec.Errors {
			errs.add(fe.Field, fe.Err.Error())
		}
		out.add("_fieldErrors", errs)
	}
	return out
}

// object is a JSON object that keeps insertion order.
type object struct {
	keys   []string
	values []any
}

func (o *object) add(key string, v any) {
	o.keys = append(o.keys, key)
	o.values = append(o.values, v)
}

func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(key); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		if err := enc.Encode(o.values[i]); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
