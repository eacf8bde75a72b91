package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cyra/alogparse/internal/format"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad(t *testing.T) {
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "alogparse.yaml")
	writeConfig(t, path, `
logging:
  level: debug
input:
  paths: ["/var/log/apache2/access.log*"]
  limit: 10
format:
  string: '%h "%r" %>s'
output:
  fields: [final_status, remote_hostname]
  sqlite: records.db
metrics:
  addr: ":9100"
`)

	cfg, err := Load(path)
	r.NoError(err)
	r.Equal("debug", cfg.Logging.Level)
	r.Equal([]string{"/var/log/apache2/access.log*"}, cfg.Input.Paths)
	r.Equal(10, cfg.Input.Limit)
	r.Equal([]string{"final_status", "remote_hostname"}, cfg.Output.Fields)
	r.Equal("records.db", cfg.Output.SQLite)
	r.Equal(":9100", cfg.Metrics.Addr)

	f, err := cfg.FormatString()
	r.NoError(err)
	r.Equal(`%h "%r" %>s`, f)
}

func TestLoad_Defaults(t *testing.T) {
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "empty.yaml")
	writeConfig(t, path, "{}\n")

	cfg, err := Load(path)
	r.NoError(err)
	r.Equal("info", cfg.Logging.Level)
	r.Equal("combined", cfg.Format.Preset)

	f, err := cfg.FormatString()
	r.NoError(err)
	_, err = format.Compile(f)
	r.NoError(err)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]struct {
		content string
		wantErr string
	}{
		"bad yaml": {
			content: "input: [",
			wantErr: "parse config",
		},
		"unknown preset": {
			content: "format:\n  preset: nginx\n",
			wantErr: "unknown format preset",
		},
		"bad format": {
			content: "format:\n  string: '%h %h'\n",
			wantErr: "duplicate field name",
		},
		"negative limit": {
			content: "input:\n  limit: -1\n",
			wantErr: "input.limit",
		},
		"follow with two paths": {
			content: "input:\n  follow: true\n  paths: [a, b]\n",
			wantErr: "exactly one path",
		},
		"follow stdin": {
			content: "input:\n  follow: true\n  paths: ['-']\n",
			wantErr: "cannot read stdin",
		},
		"duplicate output field": {
			content: "output:\n  fields: [time, time]\n",
			wantErr: "more than once",
		},
		"unknown output field": {
			content: "output:\n  fields: [time, bogus]\n",
			wantErr: "not produced by format",
		},
		"bad log level": {
			content: "logging:\n  level: chatty\n",
			wantErr: "logging.level",
		},
		"quiet without sqlite": {
			content: "output:\n  quiet: true\n",
			wantErr: "output.quiet",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			path := filepath.Join(dir, name+".yaml")
			writeConfig(t, path, tt.content)

			cfg, err := Load(path)
			r.Nil(cfg)
			r.ErrorContains(err, tt.wantErr)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestStore(t *testing.T) {
	r := require.New(t)

	a, b := Default(), Default()
	s := NewStore(a)
	r.Same(a, s.Current())
	r.Equal(uint64(0), s.Version())

	s.Update(b)
	r.Same(b, s.Current())
	r.Equal(uint64(1), s.Version())
}

type recordingLogger struct {
	mu   sync.Mutex
	errs []string
}

func (l *recordingLogger) Infof(string, ...any) {}

func (l *recordingLogger) Errorf(format string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, format)
}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errs)
}

func TestWatchFile(t *testing.T) {
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "alogparse.yaml")
	writeConfig(t, path, "format:\n  preset: common\n")
	cfg, err := Load(path)
	r.NoError(err)

	store := NewStore(cfg)
	logger := &recordingLogger{}
	stop, err := WatchFile(path, store, logger, func(c *Config) {
		c.Logging.Level = "debug"
	})
	r.NoError(err)
	defer stop()

	writeConfig(t, path, "format:\n  preset: agent\n")
	r.Eventually(func() bool {
		return store.Current().Format.Preset == "agent"
	}, 5*time.Second, 50*time.Millisecond)
	r.Equal("debug", store.Current().Logging.Level)
	version := store.Version()

	writeConfig(t, path, "format:\n  string: '%h %h'\n")
	r.Eventually(func() bool {
		return logger.errorCount() > 0
	}, 5*time.Second, 50*time.Millisecond)
	r.Equal("agent", store.Current().Format.Preset)
	r.Equal(version, store.Version())
}

func TestWatchFile_OverridesCompleteConfig(t *testing.T) {
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "alogparse.yaml")
	writeConfig(t, path, "format:\n  preset: common\n")
	cfg, err := Load(path)
	r.NoError(err)

	store := NewStore(cfg)
	stop, err := WatchFile(path, store, &recordingLogger{}, func(c *Config) {
		c.Output.SQLite = "records.db"
	})
	r.NoError(err)
	defer stop()

	// Invalid on its own, valid once the override sets the database.
	writeConfig(t, path, "output:\n  quiet: true\n")
	r.Eventually(func() bool {
		return store.Current().Output.Quiet
	}, 5*time.Second, 50*time.Millisecond)
	r.Equal("records.db", store.Current().Output.SQLite)
}

func TestRead_SkipsValidation(t *testing.T) {
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "alogparse.yaml")
	writeConfig(t, path, "output:\n  quiet: true\n")

	cfg, err := Read(path)
	r.NoError(err)
	r.True(cfg.Output.Quiet)
	r.Equal("info", cfg.Logging.Level)

	_, err = Load(path)
	r.ErrorContains(err, "output.quiet")
}

func TestWatchFile_MissingDirectory(t *testing.T) {
	_, err := WatchFile(filepath.Join(t.TempDir(), "nope", "c.yaml"), NewStore(Default()), &recordingLogger{})
	require.Error(t, err)
}
