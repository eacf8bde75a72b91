// Package linesource reads log lines from files, compressed archives,
// standard input or a live, growing file.
package linesource

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// MaxLineSize is the longest line a Source accepts.
const MaxLineSize = 1024 * 1024

// Errors reported before any line is produced.
var (
	ErrNotExist   = errors.New("log file does not exist")
	ErrNotRegular = errors.New("log path is not a regular file")
)

// StdinPath names standard input.
const StdinPath = "-"

// Line is one line of input, without its line terminator.
type Line struct {
	Text string
	// Number is 1-based and counts lines within Path.
	Number int
	Path   string
}

// Source is a forward-only sequence of lines. Next advances to the next line
// and reports whether there is one; Err reports the error that ended the
// sequence, if any. Close must always be called.
type Source interface {
	Next() bool
	Line() Line
	Err() error
	Close() error
}

type reader struct {
	path    string
	closer  io.Closer
	scanner *bufio.Scanner
	line    Line
	n       int
	err     error
}

func newReader(path string, r io.Reader, c io.Closer) *reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), MaxLineSize)
	return &reader{path: path, closer: c, scanner: s}
}

// FromReader reads lines from r. Close does not close r.
func FromReader(path string, r io.Reader) Source {
	return newReader(path, r, nil)
}

// Open opens a log file. Files ending in .gz are decompressed. A missing path
// or one that is not a regular file is reported before any line is read.
func Open(path string) (Source, error) {
	if err := check(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return newReader(path, f, f), nil
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "open gzip %s", path)
	}
	return newReader(path, zr, &gzipCloser{zr: zr, f: f}), nil
}

func check(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrNotExist, "%s", path)
		}
		return errors.Wrapf(err, "stat %s", path)
	}
	if !info.Mode().IsRegular() {
		return errors.Wrapf(ErrNotRegular, "%s", path)
	}
	return nil
}

func (r *reader) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			r.err = errors.Wrapf(err, "read %s line %d", r.path, r.n+1)
		}
		return false
	}
	r.n++
	r.line = Line{Text: strings.TrimSuffix(r.scanner.Text(), "\r"), Number: r.n, Path: r.path}
	return true
}

func (r *reader) Line() Line { return r.line }

func (r *reader) Err() error { return r.err }

func (r *reader) Close() error {
	if r.closer == nil {
		return nil
	}
	c := r.closer
	r.closer = nil
	return c.Close()
}

type gzipCloser struct {
	zr *gzip.Reader
	f  *os.File
}

func (g *gzipCloser) Close() error {
	_ = g.zr.Close()
	return g.f.Close()
}
