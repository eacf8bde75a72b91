package main

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cyra/alogparse/internal/config"
	"github.com/cyra/alogparse/internal/emitter"
	"github.com/cyra/alogparse/internal/format"
	"github.com/cyra/alogparse/internal/linesource"
	"github.com/cyra/alogparse/internal/logging"
	"github.com/cyra/alogparse/internal/metrics"
	"github.com/cyra/alogparse/internal/parser"
	"github.com/cyra/alogparse/internal/pipeline"
	"github.com/cyra/alogparse/internal/store"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func runParse(cmd *cobra.Command, f *flags, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, override, err := loadConfig(cmd, f, args)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.JSON, stderr)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	logger.Debugf("alogparse %s starting", version)

	cfgStore := config.NewStore(cfg)
	if f.configPath != "" && cfg.Input.Follow {
		stop, err := config.WatchFile(f.configPath, cfgStore, logger, override)
		if err != nil {
			logger.Errorf("config watcher disabled: %v", err)
		} else {
			defer stop()
		}
	}

	var m *metrics.Collector
	if cfg.Metrics.Addr != "" {
		m = metrics.NewCollector()
		reg := prometheus.NewRegistry()
		m.Register(reg)
		shutdown := serveMetrics(cfg.Metrics.Addr, reg, logger)
		defer shutdown()
	}

	p, err := newReloadingParser(cfgStore, logger)
	if err != nil {
		return err
	}

	var sinks []pipeline.Sink
	if !cfg.Output.Quiet {
		sinks = append(sinks, emitter.New(stdout, emitter.Options{
			Pretty:        cfg.Output.Pretty,
			Fields:        cfg.Output.Fields,
			AddLineNumber: cfg.Output.LineNumber,
			AddSource:     cfg.Output.Source,
			AddRaw:        cfg.Output.Raw,
		}))
	}
	if cfg.Output.SQLite != "" {
		db, err := store.Open(cfg.Output.SQLite)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Errorf("close %s: %v", cfg.Output.SQLite, err)
			}
		}()
		sinks = append(sinks, db)
	}

	src, err := openSource(ctx, cfg, stdin, logger)
	if err != nil {
		return err
	}

	stats, err := pipeline.Run(ctx, src, p, sinks, m, logger, pipeline.Options{
		Limit:    cfg.Input.Limit,
		FailFast: cfg.Input.FailFast,
	})
	logger.WithField("lines", stats.Lines).
		WithField("matched", stats.Matched).
		WithField("unmatched", stats.Unmatched).
		WithField("field_errors", stats.FieldErrors).
		Info("done")

	if cfg.Input.Follow && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openSource(ctx context.Context, cfg *config.Config, stdin io.Reader, logger *logging.Logger) (linesource.Source, error) {
	paths := cfg.Input.Paths
	switch {
	case cfg.Input.Follow:
		return linesource.Follow(ctx, paths[0], logger)
	case len(paths) == 0, len(paths) == 1 && paths[0] == linesource.StdinPath:
		return linesource.FromReader(linesource.StdinPath, stdin), nil
	case lo.Contains(paths, linesource.StdinPath):
		return nil, errors.New("stdin (-) cannot be combined with other paths")
	}
	return linesource.OpenAll(paths)
}

// reloadingParser rebuilds its parser when the config store changes and
// applies the reloaded log level. Format strings go through a cache so
// switching back and forth compiles once.
type reloadingParser struct {
	store  *config.Store
	cache  *format.Cache
	logger *logging.Logger

	mu      sync.Mutex
	version uint64
	current *parser.Parser
}

func newReloadingParser(s *config.Store, logger *logging.Logger) (*reloadingParser, error) {
	rp := &reloadingParser{store: s, cache: format.NewCache(nil), logger: logger}
	p, err := rp.build(s.Current())
	if err != nil {
		return nil, err
	}
	rp.current = p
	rp.version = s.Version()
	return rp, nil
}

func (rp *reloadingParser) build(cfg *config.Config) (*parser.Parser, error) {
	f, err := cfg.FormatString()
	if err != nil {
		return nil, err
	}
	cf, err := rp.cache.Get(f)
	if err != nil {
		return nil, err
	}
	return parser.New(cf, parser.WithUserAgentField(cfg.Format.UserAgentField)), nil
}

func (rp *reloadingParser) parser() *parser.Parser {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if v := rp.store.Version(); v != rp.version {
		rp.version = v
		cfg := rp.store.Current()
		if err := rp.logger.SetLevel(cfg.Logging.Level); err != nil {
			rp.logger.Errorf("keeping previous log level: %v", err)
		}
		p, err := rp.build(cfg)
		if err != nil {
			rp.logger.Errorf("keeping previous format: %v", err)
			return rp.current
		}
		rp.current = p
		rp.logger.Infof("format changed to %q", p.Format().Source())
	}
	return rp.current
}

func (rp *reloadingParser) Parse(line string) (*parser.Record, error) {
	return rp.parser().Parse(line)
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *logging.Logger) (shutdown func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Infof("serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
