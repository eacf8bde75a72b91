package config

// Config is the root configuration structure loaded from YAML.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Input   InputConfig   `yaml:"input"`
	Format  FormatConfig  `yaml:"format"`
	Output  OutputConfig  `yaml:"output"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig controls log verbosity and format.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g. "info", "debug"
	JSON  bool   `yaml:"json"`
}

// InputConfig selects the access logs to read.
type InputConfig struct {
	Paths    []string `yaml:"paths"`               // files or glob patterns; "-" is stdin
	Follow   bool     `yaml:"follow,omitempty"`    // tail a single live file
	Limit    int      `yaml:"limit,omitempty"`     // stop after N lines
	FailFast bool     `yaml:"fail_fast,omitempty"` // stop at the first unmatched line
}

// FormatConfig describes the log format. String wins over Preset.
type FormatConfig struct {
	Preset         string `yaml:"preset,omitempty"` // e.g. "combined"
	String         string `yaml:"string,omitempty"` // Apache LogFormat string
	UserAgentField string `yaml:"user_agent_field,omitempty"`
}

// OutputConfig controls where records go.
type OutputConfig struct {
	Fields     []string `yaml:"fields,omitempty"`
	Pretty     bool     `yaml:"pretty,omitempty"`
	LineNumber bool     `yaml:"line_number,omitempty"`
	Source     bool     `yaml:"source,omitempty"`
	Raw        bool     `yaml:"raw,omitempty"`
	SQLite     string   `yaml:"sqlite,omitempty"` // database path; empty disables
	Quiet      bool     `yaml:"quiet,omitempty"`  // no NDJSON on stdout
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"` // e.g. ":9100"; empty disables
}
