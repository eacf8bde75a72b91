package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus logger behind the small method set the rest of the
// program uses.
type Logger struct {
	l *logrus.Logger
}

// New creates a logger writing to out, normally stderr since standard output
// carries records. An empty level means info.
func New(level string, json bool, out io.Writer) (*Logger, error) {
	l := logrus.New()
	l.SetOutput(out)

	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return &Logger{l: l}, err
	}
	l.SetLevel(lvl)

	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return &Logger{l: l}, nil
}

// SetLevel changes the level at runtime. An empty level means info.
func (l *Logger) SetLevel(level string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.l.SetLevel(lvl)
	return nil
}

// WithField returns an entry carrying a structured field.
func (l *Logger) WithField(key string, value any) *logrus.Entry {
	return l.l.WithField(key, value)
}

func (l *Logger) Infof(format string, args ...any) {
	l.l.Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.l.Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.l.Errorf(format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.l.Debugf(format, args...)
}
