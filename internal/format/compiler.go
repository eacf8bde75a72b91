package format

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Field is one output field of a compiled format.
type Field struct {
	Name      string
	Directive Directive
}

// CompiledFormat is an immutable, compiled format string. It is safe for
// concurrent use.
type CompiledFormat struct {
	source string
	re     *regexp.Regexp
	fields []Field
}

// Compiler builds CompiledFormats from format strings using a registry.
type Compiler struct {
	registry *Registry
}

// NewCompiler creates a Compiler; a nil registry means DefaultRegistry.
func NewCompiler(registry *Registry) *Compiler {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Compiler{registry: registry}
}

// Compile compiles format with the default registry.
func Compile(format string) (*CompiledFormat, error) {
	return NewCompiler(nil).Compile(format)
}

// MustCompile is like Compile but panics on error.
func MustCompile(format string) *CompiledFormat {
	cf, err := Compile(format)
	if err != nil {
		panic(err)
	}
	return cf
}

// Compile turns a format string into an anchored regular expression with one
// named capture per directive.
func (c *Compiler) Compile(format string) (*CompiledFormat, error) {
	spans, err := c.registry.Scan(format)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteByte('^')

	fields := make([]Field, 0, len(spans))
	seen := make(map[string]string, len(spans))
	prev := 0
	for _, sp := range spans {
		b.WriteString(literal(format[prev:sp.Start]))

		d, err := c.registry.Resolve(sp.Token)
		if err != nil {
			return nil, &SyntaxError{Offset: sp.Start, Err: err}
		}
		if other, dup := seen[d.Name]; dup {
			return nil, errors.Wrapf(ErrDuplicateField, "%q from %s and %s", d.Name, other, sp.Token)
		}
		seen[d.Name] = sp.Token

		fmt.Fprintf(&b, "(?P<%s>%s)", d.Name, d.Pattern)
		fields = append(fields, Field{Name: d.Name, Directive: d})
		prev = sp.End
	}
	// Literal text after the last directive runs through the end of the string.
	b.WriteString(literal(format[prev:]))
	b.WriteByte('$')

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, errors.Wrap(err, "compile format pattern")
	}
	if re.NumSubexp() != len(fields) {
		return nil, errors.Errorf("compile format pattern: %d groups for %d directives", re.NumSubexp(), len(fields))
	}

	return &CompiledFormat{source: format, re: re, fields: fields}, nil
}

// literal unescapes "%%" and quotes the text for use in a pattern.
func literal(s string) string {
	if s == "" {
		return ""
	}
	return regexp.QuoteMeta(strings.ReplaceAll(s, "%%", "%"))
}

// Source returns the format string the pattern was compiled from.
func (c *CompiledFormat) Source() string { return c.source }

// Pattern returns the compiled regular expression source.
func (c *CompiledFormat) Pattern() string { return c.re.String() }

// Fields returns the output fields in format string order.
func (c *CompiledFormat) Fields() []Field {
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// FieldNames returns the output field names in format string order.
func (c *CompiledFormat) FieldNames() []string {
	names := make([]string, len(c.fields))
	for i, f := range c.fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the field with the given name.
func (c *CompiledFormat) Field(name string) (Field, bool) {
	for _, f := range c.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
