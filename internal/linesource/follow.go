package linesource

import (
	"context"

	"github.com/hpcloud/tail"
	"github.com/pkg/errors"
)

// Logger is the logging needed by Follow.
type Logger interface {
	Infof(string, ...any)
	Errorf(string, ...any)
}

type follower struct {
	ctx    context.Context
	path   string
	tf     *tail.Tail
	logger Logger
	line   Line
	n      int
	err    error
}

// Follow streams lines from a log file as they are written, reopening it
// after rotation. Next blocks until a line arrives and returns false once ctx
// is done.
func Follow(ctx context.Context, path string, logger Logger) (Source, error) {
	if err := check(path); err != nil {
		return nil, err
	}

	tf, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "tail %s", path)
	}

	logger.Infof("following log file %s", path)
	return &follower{ctx: ctx, path: path, tf: tf, logger: logger}, nil
}

func (f *follower) Next() bool {
	for {
		select {
		case <-f.ctx.Done():
			return false
		case l, ok := <-f.tf.Lines:
			if !ok {
				f.err = f.tf.Err()
				return false
			}
			if l.Err != nil {
				f.logger.Errorf("tail %s: %v", f.path, l.Err)
				continue
			}
			f.n++
			f.line = Line{Text: l.Text, Number: f.n, Path: f.path}
			return true
		}
	}
}

func (f *follower) Line() Line { return f.line }

func (f *follower) Err() error { return f.err }

func (f *follower) Close() error {
	err := f.tf.Stop()
	f.tf.Cleanup()
	return err
}
