package format

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Errors returned while scanning or compiling a format string.
var (
	// ErrInvalidFormat matches every SyntaxError.
	ErrInvalidFormat     = errors.New("invalid format string")
	ErrUnterminatedBrace = errors.New("unterminated brace directive")
	ErrMissingBraceType  = errors.New("brace directive without type letter")
	ErrEmptyBraceName    = errors.New("empty brace directive")
	ErrInvalidFieldName  = errors.New("brace directive does not yield a field name")
	ErrUnknownDirective  = errors.New("unknown directive")
	ErrDuplicateField    = errors.New("duplicate field name")
)

// SyntaxError reports a malformed directive at a byte offset of the format string.
type SyntaxError struct {
	Offset int
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("format: %v at offset %d", e.Err, e.Offset)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Is reports ErrInvalidFormat as a match so callers can test for any syntax
// problem at once.
func (e *SyntaxError) Is(target error) bool { return target == ErrInvalidFormat }

// Span is one directive found in a format string; Start and End are byte
// offsets with format[Start:End] == Token.
type Span struct {
	Token string
	Start int
	End   int
}

// Scan finds the directives of a format string using the default registry.
func Scan(format string) ([]Span, error) {
	return DefaultRegistry().Scan(format)
}

// Scan returns the directives of format in order. "%%" is an escaped percent
// sign and a '%' that does not start a registered directive is literal text.
func (r *Registry) Scan(format string) ([]Span, error) {
	var spans []Span
	for i := 0; i < len(format); {
		if format[i] != '%' || i+1 >= len(format) {
			i++
			continue
		}

		switch next := format[i+1]; {
		case next == '%':
			i += 2
		case next == '{':
			end, err := scanBrace(format, i)
			if err != nil {
				return nil, err
			}
			spans = append(spans, Span{Token: format[i:end], Start: i, End: end})
			i = end
		case (next == '>' || next == '<') && i+2 < len(format) && r.known(format[i+1:i+3]):
			spans = append(spans, Span{Token: format[i : i+3], Start: i, End: i + 3})
			i += 3
		case r.known(format[i+1 : i+2]):
			spans = append(spans, Span{Token: format[i : i+2], Start: i, End: i + 2})
			i += 2
		default:
			i++
		}
	}
	return spans, nil
}

// scanBrace returns the end offset of the brace directive starting at start.
func scanBrace(format string, start int) (int, error) {
	closing := strings.IndexByte(format[start+2:], '}')
	if closing < 0 {
		return 0, &SyntaxError{Offset: start, Err: ErrUnterminatedBrace}
	}
	closing += start + 2
	if closing == start+2 {
		return 0, &SyntaxError{Offset: start, Err: ErrEmptyBraceName}
	}
	if closing+1 >= len(format) || !isLetter(format[closing+1]) {
		return 0, &SyntaxError{Offset: start, Err: ErrMissingBraceType}
	}
	return closing + 2, nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
