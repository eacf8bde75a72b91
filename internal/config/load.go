package config

import (
	"os"

	"github.com/cyra/alogparse/internal/format"
	"github.com/cyra/alogparse/internal/parser"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Default returns the configuration used without a config file.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Format:  FormatConfig{Preset: parser.DefaultPreset},
	}
}

// Read reads and parses configuration from the provided path without
// validating it. Keys missing from the file keep their Default values.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return cfg, nil
}

// Load reads, parses, and validates configuration from the provided path.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	return cfg, nil
}

// FormatString returns the configured format string, resolving the preset
// when no explicit string is set.
func (c *Config) FormatString() (string, error) {
	if c.Format.String != "" {
		return c.Format.String, nil
	}
	name := c.Format.Preset
	if name == "" {
		name = parser.DefaultPreset
	}
	return parser.Preset(name)
}

// Validate fills defaults and checks that the configuration is usable. The
// format is compiled so a bad format never replaces a working one.
func Validate(c *Config) error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(err, "logging.level")
	}

	f, err := c.FormatString()
	if err != nil {
		return err
	}
	cf, err := format.Compile(f)
	if err != nil {
		return errors.Wrap(err, "format")
	}

	if c.Input.Limit < 0 {
		return errors.Errorf("input.limit must be >= 0, got %d", c.Input.Limit)
	}
	if c.Input.Follow && len(c.Input.Paths) != 1 {
		return errors.New("input.follow needs exactly one path")
	}
	if c.Input.Follow && c.Input.Paths[0] == "-" {
		return errors.New("input.follow cannot read stdin")
	}

	if dups := lo.FindDuplicates(c.Output.Fields); len(dups) > 0 {
		return errors.Errorf("output.fields lists %v more than once", dups)
	}
	known := cf.FieldNames()
	if unknown := lo.Without(c.Output.Fields, known...); len(unknown) > 0 {
		return errors.Errorf("output.fields %v not produced by format (have %v)", unknown, known)
	}

	if c.Output.Quiet && c.Output.SQLite == "" {
		return errors.New("output.quiet needs output.sqlite, otherwise nothing is written")
	}

	return nil
}
