// Package format compiles Apache/NCSA style log format strings into
// anchored regular expressions and matches log lines against them.
package format

import (
	"strings"

	"github.com/pkg/errors"
)

// Kind tells how a directive derives its field name.
type Kind int

const (
	// Static directives have a fixed field name (%h, %>s, %t).
	Static Kind = iota
	// Brace directives derive the field name from the text in braces (%{Referer}i).
	Brace
)

func (k Kind) String() string {
	if k == Brace {
		return "brace"
	}
	return "static"
}

// Value patterns shared by the registry entries. None of them may contain a
// capturing group: the compiler relies on one group per directive.
const (
	tokenPattern    = `\S+`
	optionalPattern = `\S*`
	timePattern     = `\[[^\]]*\]|\S+`
	// freeTextPattern is lazy so the run ends at the first position where the
	// following literal text (and the rest of the line) still matches. It may
	// be empty: `""` is a valid request line or header value.
	freeTextPattern = `.*?`
)

// Directive describes one directive of a format string.
type Directive struct {
	// Token is the literal spelling in the format string, e.g. "%>s" or "%{Referer}i".
	Token string
	Kind  Kind
	// Type is the final directive letter ('s' for "%>s", 'i' for "%{Referer}i").
	Type byte
	// Name is the output field name.
	Name string
	// Param is the text between the braces of a brace directive.
	Param string
	// Pattern is the regular expression matching the directive's value.
	Pattern string
}

type braceRule struct {
	prefix  string
	name    string // fixed name, overrides the derived one
	pattern string
}

// Registry is the immutable table of known directives.
type Registry struct {
	static map[string]Directive
	brace  map[byte]braceRule
}

var defaultRegistry = newDefaultRegistry()

// DefaultRegistry returns the registry of Apache mod_log_config directives.
// The returned registry is shared and read-only.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

func newDefaultRegistry() *Registry {
	static := []struct {
		key, name, pattern string
	}{
		{"a", "remote_ip", tokenPattern},
		{"A", "local_ip", tokenPattern},
		{"B", "response_bytes", tokenPattern},
		{"b", "response_size_bytes", tokenPattern},
		{"D", "request_duration_us", tokenPattern},
		{"f", "filename", tokenPattern},
		{"h", "remote_hostname", tokenPattern},
		{"H", "request_protocol", tokenPattern},
		{"I", "bytes_received", tokenPattern},
		{"k", "keepalive_requests", tokenPattern},
		{"l", "remote_logname", tokenPattern},
		{"L", "request_log_id", tokenPattern},
		{"m", "request_method", tokenPattern},
		{"O", "bytes_sent", tokenPattern},
		{"p", "server_port", tokenPattern},
		{"P", "process_id", tokenPattern},
		{"q", "query_string", optionalPattern},
		{"r", "first_line_of_http_request", freeTextPattern},
		{"R", "handler", tokenPattern},
		{"s", "status", tokenPattern},
		{">s", "final_status", tokenPattern},
		{"<s", "original_status", tokenPattern},
		{"S", "bytes_transferred", tokenPattern},
		{"t", "time", timePattern},
		{"T", "request_duration_s", tokenPattern},
		{"u", "remote_user", tokenPattern},
		{"U", "url_path", tokenPattern},
		{"v", "server_name", tokenPattern},
		{"V", "canonical_server_name", tokenPattern},
		{"X", "connection_status", tokenPattern},
	}

	r := &Registry{
		static: make(map[string]Directive, len(static)),
		brace: map[byte]braceRule{
			'i': {pattern: freeTextPattern},
			'o': {prefix: "response_", pattern: freeTextPattern},
			'e': {prefix: "env_", pattern: freeTextPattern},
			'n': {prefix: "note_", pattern: freeTextPattern},
			'C': {prefix: "cookie_", pattern: freeTextPattern},
			't': {name: "time", pattern: freeTextPattern},
		},
	}
	for _, s := range static {
		r.static[s.key] = Directive{
			Token:   "%" + s.key,
			Kind:    Static,
			Type:    s.key[len(s.key)-1],
			Name:    s.name,
			Pattern: s.pattern,
		}
	}
	return r
}

// known reports whether "%"+key is a registered static directive.
func (r *Registry) known(key string) bool {
	_, ok := r.static[key]
	return ok
}

// Resolve turns a scanned token into a Directive with its field name and
// value pattern.
func (r *Registry) Resolve(token string) (Directive, error) {
	if !strings.HasPrefix(token, "%") || len(token) < 2 {
		return Directive{}, errors.Wrapf(ErrUnknownDirective, "%q", token)
	}

	if token[1] != '{' {
		d, ok := r.static[token[1:]]
		if !ok {
			return Directive{}, errors.Wrapf(ErrUnknownDirective, "%q", token)
		}
		return d, nil
	}

	end := strings.LastIndexByte(token, '}')
	if end < 0 || end != len(token)-2 {
		return Directive{}, errors.Wrapf(ErrUnterminatedBrace, "%q", token)
	}
	param := token[2:end]
	typ := token[end+1]

	rule, ok := r.brace[typ]
	if !ok {
		rule = braceRule{pattern: freeTextPattern}
	}
	name := rule.name
	if name == "" {
		derived := FieldName(param)
		if derived == "" {
			return Directive{}, errors.Wrapf(ErrInvalidFieldName, "%q", token)
		}
		name = rule.prefix + derived
	}

	return Directive{
		Token:   token,
		Kind:    Brace,
		Type:    typ,
		Name:    name,
		Param:   param,
		Pattern: rule.pattern,
	}, nil
}

// FieldName derives a field name from a header (or other brace) name:
// lower-cased, every run of characters other than ASCII letters and digits
// replaced by a single underscore, with leading and trailing underscores
// removed. "User-Agent" and "user_agent" both give "user_agent".
func FieldName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	sep := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		default:
			sep = true
			continue
		}
		if sep && b.Len() > 0 {
			b.WriteByte('_')
		}
		sep = false
		b.WriteByte(c)
	}
	return b.String()
}
