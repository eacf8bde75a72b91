package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cyra/alogparse/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var version = "dev" // Set via ldflags: -X main.version=v1.0.0

func main() {
	ctx, cancel := signalContext()
	defer cancel()

	cmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "alogparse:", err)
		cancel()
		os.Exit(1)
	}
}

// flags holds the command-line values. Only flags the user actually set
// override the config file.
type flags struct {
	configPath string

	format     string
	preset     string
	uaField    string
	follow     bool
	limit      int
	failFast   bool
	fields     []string
	pretty     bool
	lineNumber bool
	source     bool
	raw        bool
	sqlite     string
	quiet      bool
	metrics    string
	logLevel   string
	logJSON    bool
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "alogparse [paths...]",
		Short: "Parse Apache access logs into JSON records",
		Long: `alogparse reads Apache httpd access logs written with any LogFormat
string and emits one JSON object per matched line. Timestamps, request lines
and user agents are expanded into structured values.

Paths may be glob patterns ("/var/log/apache2/**/access.log*"); .gz files are
decompressed. With no paths, standard input is read.

Examples:
  alogparse /var/log/apache2/access.log
  alogparse --preset common --fields remote_hostname,final_status access.log.1.gz
  alogparse --format '%h %t "%r" %>s %{X-Forwarded-For}i' < access.log
  alogparse --follow --sqlite records.db /var/log/apache2/access.log`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, f, args, stdin, stdout, stderr)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	pf.StringVarP(&f.format, "format", "f", "", "Apache LogFormat string (overrides --preset)")
	pf.StringVarP(&f.preset, "preset", "p", "", "named format: common, combined, uberspace, vhost_combined, referer, agent")

	fl := root.Flags()
	fl.StringVar(&f.uaField, "ua-field", "", "field parsed as a User-Agent (default user_agent)")
	fl.BoolVarP(&f.follow, "follow", "F", false, "follow a single growing file")
	fl.IntVarP(&f.limit, "limit", "n", 0, "stop after N input lines")
	fl.BoolVar(&f.failFast, "fail-fast", false, "stop at the first line that does not match")
	fl.StringSliceVar(&f.fields, "fields", nil, "only output these fields, in this order")
	fl.BoolVar(&f.pretty, "pretty", false, "indent JSON output")
	fl.BoolVar(&f.lineNumber, "line-number", false, "add _lineNumber to each record")
	fl.BoolVar(&f.source, "source", false, "add _source (input path) to each record")
	fl.BoolVar(&f.raw, "raw", false, "add _raw (original line) to each record")
	fl.StringVar(&f.sqlite, "sqlite", "", "also store records in this SQLite database")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "do not write JSON to stdout (needs --sqlite)")
	fl.StringVar(&f.metrics, "metrics-addr", "", "serve Prometheus metrics on this address")
	fl.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fl.BoolVar(&f.logJSON, "log-json", false, "write logs as JSON")

	root.AddCommand(newFormatsCmd(stdout), newCompileCmd(f, stdout))
	return root
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then flags. The returned override re-applies the flags to a
// reloaded config.
func loadConfig(cmd *cobra.Command, f *flags, args []string) (*config.Config, func(*config.Config), error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Read(f.configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	override := func(c *config.Config) {
		if len(args) > 0 {
			c.Input.Paths = args
		}
		if changed("format") {
			c.Format.String = f.format
		}
		if changed("preset") {
			c.Format.Preset = f.preset
			if !changed("format") {
				c.Format.String = ""
			}
		}
		if changed("ua-field") {
			c.Format.UserAgentField = f.uaField
		}
		if changed("follow") {
			c.Input.Follow = f.follow
		}
		if changed("limit") {
			c.Input.Limit = f.limit
		}
		if changed("fail-fast") {
			c.Input.FailFast = f.failFast
		}
		if changed("fields") {
			c.Output.Fields = f.fields
		}
		if changed("pretty") {
			c.Output.Pretty = f.pretty
		}
		if changed("line-number") {
			c.Output.LineNumber = f.lineNumber
		}
		if changed("source") {
			c.Output.Source = f.source
		}
		if changed("raw") {
			c.Output.Raw = f.raw
		}
		if changed("sqlite") {
			c.Output.SQLite = f.sqlite
		}
		if changed("quiet") {
			c.Output.Quiet = f.quiet
		}
		if changed("metrics-addr") {
			c.Metrics.Addr = f.metrics
		}
		if changed("log-level") {
			c.Logging.Level = f.logLevel
		}
		if changed("log-json") {
			c.Logging.JSON = f.logJSON
		}
	}

	override(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, nil, errors.Wrap(err, "validate config")
	}
	return cfg, override, nil
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}
