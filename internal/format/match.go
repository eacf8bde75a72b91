package format

import "strings"

// Capture is the raw value matched for one field.
type Capture struct {
	Name  string
	Value string
}

// Captures holds the values of one matched line in field order.
type Captures []Capture

// Get returns the value captured for name.
func (cs Captures) Get(name string) (string, bool) {
	for _, c := range cs {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Map returns the captures as a map.
func (cs Captures) Map() map[string]string {
	m := make(map[string]string, len(cs))
	for _, c := range cs {
		m[c.Name] = c.Value
	}
	return m
}

// Match matches one line (a trailing newline is ignored) against the whole
// pattern. It returns false when the line does not conform to the format. An
// empty line never matches a format that has directives.
func (c *CompiledFormat) Match(line string) (Captures, bool) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	if line == "" && len(c.fields) > 0 {
		return nil, false
	}

	m := c.re.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	out := make(Captures, len(c.fields))
	for i, f := range c.fields {
		out[i] = Capture{Name: f.Name, Value: m[i+1]}
	}
	return out, true
}
