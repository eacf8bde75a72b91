// Package pipeline drives lines from a source through a parser into sinks.
package pipeline

import (
	"context"

	"github.com/cyra/alogparse/internal/linesource"
	"github.com/cyra/alogparse/internal/metrics"
	"github.com/cyra/alogparse/internal/parser"
	"github.com/pkg/errors"
)

// ErrUnmatchedLine stops a FailFast run at the first line that does not
// match the format.
var ErrUnmatchedLine = errors.New("unmatched line")

// ErrSkipped is returned by a Sink that deliberately did not store a record,
// e.g. because it already holds it. The run continues.
var ErrSkipped = errors.New("record skipped")

// Sink receives parsed records.
type Sink interface {
	Name() string
	Write(rec *parser.Record) error
	Flush() error
}

// Parser parses one line. *parser.Parser implements it.
type Parser interface {
	Parse(line string) (*parser.Record, error)
}

// ParserFunc adapts a function to the Parser interface. It lets callers swap
// the parser between lines, e.g. after a config reload.
type ParserFunc func(line string) (*parser.Record, error)

func (fn ParserFunc) Parse(line string) (*parser.Record, error) { return fn(line) }

// Logger is the logging needed by Run.
type Logger interface {
	Debugf(string, ...any)
	Warnf(string, ...any)
}

// Options controls a run.
type Options struct {
	// Limit stops after this many input lines. Zero means no limit.
	Limit int
	// FailFast stops at the first unmatched line with ErrUnmatchedLine.
	FailFast bool
}

// Stats summarizes a run.
type Stats struct {
	Lines       int
	Matched     int
	Unmatched   int
	FieldErrors int
	Written     int
}

// Run reads every line of src, parses it and hands the record to each sink.
// Run owns src and closes it. Unmatched lines are counted, logged at debug
// level and skipped. Cancellation is checked between lines; a canceled run
// returns ctx.Err(). Sinks are flushed before returning.
func Run(ctx context.Context, src linesource.Source, p Parser, sinks []Sink, m *metrics.Collector, logger Logger, opts Options) (stats Stats, err error) {
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close source")
		}
	}()
	defer func() {
		for _, s := range sinks {
			if ferr := s.Flush(); ferr != nil && err == nil {
				err = errors.Wrapf(ferr, "flush %s", s.Name())
			}
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if opts.Limit > 0 && stats.Lines >= opts.Limit {
			return stats, nil
		}
		if !src.Next() {
			break
		}

		line := src.Line()
		stats.Lines++

		rec, perr := p.Parse(line.Text)
		if perr != nil {
			if !errors.Is(perr, parser.ErrUnmatched) {
				return stats, errors.Wrapf(perr, "%s:%d", line.Path, line.Number)
			}
			stats.Unmatched++
			m.Unmatched()
			logger.Debugf("%s:%d: line does not match format", line.Path, line.Number)
			if opts.FailFast {
				return stats, errors.Wrapf(ErrUnmatchedLine, "%s:%d", line.Path, line.Number)
			}
			continue
		}

		stats.Matched++
		m.Matched()
		rec.Source = line.Path
		rec.Line = line.Number

		for _, fe := range rec.Errors {
			stats.FieldErrors++
			m.FieldError(fe.Field)
			logger.Debugf("%s:%d: %v", line.Path, line.Number, fe)
		}
		if st, ok := rec.Status(); ok {
			m.Status(st)
		}

		for _, s := range sinks {
			err := s.Write(rec)
			if errors.Is(err, ErrSkipped) {
				logger.Debugf("%s: %v", s.Name(), err)
				continue
			}
			if err != nil {
				return stats, errors.Wrapf(err, "write %s", s.Name())
			}
			m.Written(s.Name())
		}
		stats.Written++
	}

	if err := src.Err(); err != nil {
		return stats, err
	}
	if ctx.Err() != nil {
		return stats, ctx.Err()
	}
	if stats.Unmatched > 0 {
		logger.Warnf("%d of %d lines did not match the format", stats.Unmatched, stats.Lines)
	}
	return stats, nil
}
