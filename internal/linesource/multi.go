package linesource

import (
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Expand resolves glob patterns (including "**") to file paths. Patterns
// without glob syntax are kept as they are. Every path is checked before
// returning, so a bad input fails the whole set up front.
func Expand(patterns []string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		if !hasMeta(pattern) {
			paths = append(paths, pattern)
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Wrapf(err, "glob %s", pattern)
		}
		if len(matches) == 0 {
			return nil, errors.Wrapf(ErrNotExist, "no files match %s", pattern)
		}
		slices.Sort(matches)
		paths = append(paths, matches...)
	}

	paths = lo.Uniq(paths)
	for _, p := range paths {
		if err := check(p); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func hasMeta(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// OpenAll expands patterns and returns a Source that reads the files one
// after another. Files are opened lazily; only one is open at a time.
func OpenAll(patterns []string) (Source, error) {
	paths, err := Expand(patterns)
	if err != nil {
		return nil, err
	}
	return &multi{paths: paths}, nil
}

type multi struct {
	paths []string
	cur   Source
	err   error
}

func (m *multi) Next() bool {
	for m.err == nil {
		if m.cur == nil {
			if len(m.paths) == 0 {
				return false
			}
			src, err := Open(m.paths[0])
			if err != nil {
				m.err = err
				return false
			}
			m.paths = m.paths[1:]
			m.cur = src
		}
		if m.cur.Next() {
			return true
		}
		m.err = m.cur.Err()
		if err := m.cur.Close(); err != nil && m.err == nil {
			m.err = err
		}
		m.cur = nil
	}
	return false
}

func (m *multi) Line() Line {
	if m.cur == nil {
		return Line{}
	}
	return m.cur.Line()
}

func (m *multi) Err() error { return m.err }

func (m *multi) Close() error {
	m.paths = nil
	if m.cur == nil {
		return nil
	}
	err := m.cur.Close()
	m.cur = nil
	return err
}
