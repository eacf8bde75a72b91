// Package parser turns log lines into records using a compiled format and
// field post-processors.
package parser

import (
	"github.com/cyra/alogparse/internal/format"
	"github.com/pkg/errors"
)

// ErrUnmatched is returned by Parse when a line does not conform to the format.
var ErrUnmatched = errors.New("line does not match format")

// Field names with a default post-processor.
const (
	TimeField      = "time"
	RequestField   = "first_line_of_http_request"
	UserAgentField = "user_agent"
)

// StatusFields are the status code fields, in order of preference.
var StatusFields = []string{"final_status", "status", "original_status"}

// Processor turns the raw value captured for a field into a richer value.
type Processor interface {
	Process(f format.Field, raw string) (any, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(f format.Field, raw string) (any, error)

// Process calls fn.
func (fn ProcessorFunc) Process(f format.Field, raw string) (any, error) {
	return fn(f, raw)
}

// Parser applies a compiled format and the field post-processors to lines.
// It holds no per-line state and is safe for concurrent use.
type Parser struct {
	format     *format.CompiledFormat
	fields     []format.Field
	processors map[string]Processor

	uaField string
	ua      UserAgentParser
	extra   map[string]Processor
}

// Option configures a Parser.
type Option func(*Parser)

// WithUserAgentField sets the field handed to the user-agent parser.
// An empty name keeps the default.
func WithUserAgentField(name string) Option {
	return func(p *Parser) {
		if name != "" {
			p.uaField = name
		}
	}
}

// WithUserAgentParser replaces the user-agent parser.
func WithUserAgentParser(ua UserAgentParser) Option {
	return func(p *Parser) {
		p.ua = ua
	}
}

// WithProcessor registers a processor for a field, replacing any default one.
// A nil processor disables post-processing for the field.
func WithProcessor(field string, proc Processor) Option {
	return func(p *Parser) {
		p.extra[field] = proc
	}
}

// New creates a Parser for a compiled format.
func New(cf *format.CompiledFormat, opts ...Option) *Parser {
	p := &Parser{
		format:  cf,
		fields:  cf.Fields(),
		uaField: UserAgentField,
		ua:      NewUserAgentParser(),
		extra:   make(map[string]Processor),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.processors = map[string]Processor{
		TimeField:    ProcessorFunc(processTime),
		RequestField: ProcessorFunc(processRequest),
		p.uaField:    userAgentProcessor{ua: p.ua},
	}
	for field, proc := range p.extra {
		if proc == nil {
			delete(p.processors, field)
			continue
		}
		p.processors[field] = proc
	}
	return p
}

// Format returns the compiled format used by the parser.
func (p *Parser) Format() *format.CompiledFormat {
	return p.format
}

// Parse matches one line and post-processes the known fields. Unmatched
// lines return ErrUnmatched. A failing post-processor keeps the raw value
// and records a FieldError; the other fields are unaffected.
func (p *Parser) Parse(line string) (*Record, error) {
	captures, ok := p.format.Match(line)
	if !ok {
		return nil, ErrUnmatched
	}

	rec := newRecord(line, len(captures))
	for i, c := range captures {
		proc, ok := p.processors[c.Name]
		if !ok {
			rec.set(c.Name, c.Value)
			continue
		}
		v, err := proc.Process(p.fields[i], c.Value)
		if err != nil {
			rec.set(c.Name, c.Value)
			rec.Errors = append(rec.Errors, &FieldError{Field: c.Name, Value: c.Value, Err: err})
			continue
		}
		rec.set(c.Name, v)
	}
	return rec, nil
}
