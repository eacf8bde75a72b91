package parser

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrUnknownPreset is returned by Preset for names it does not know.
var ErrUnknownPreset = errors.New("unknown format preset")

// DefaultPreset is used when no format is configured.
const DefaultPreset = "combined"

var presets = map[string]string{
	"common":         `%h %l %u %t "%r" %>s %b`,
	"combined":       `%h %l %u %t "%r" %>s %b "%{Referer}i" "%{User-agent}i"`,
	"uberspace":      `%h %l %u %t "%r" %>s %b "%{Referer}i" "%{User-agent}i"`,
	"vhost_combined": `%v:%p %h %l %u %t "%r" %>s %O "%{Referer}i" "%{User-Agent}i"`,
	"referer":        `%{Referer}i -> %U`,
	"agent":          `%{User-agent}i`,
}

// Preset returns the format string registered under name.
func Preset(name string) (string, error) {
	f, ok := presets[name]
	if !ok {
		return "", errors.Wrapf(ErrUnknownPreset, "%q", name)
	}
	return f, nil
}

// Presets returns the preset names in sorted order.
func Presets() []string {
	names := lo.Keys(presets)
	slices.Sort(names)
	return names
}
