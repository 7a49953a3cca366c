// Package cache maps each symbol to an on-disk daily-series file and tracks
// whether that file is fresh and which provider produced it.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pricemirror/internal/domain"
	"pricemirror/internal/util"
)

const (
	dataExt   = ".csv"
	markerExt = ".secondary"
)

// Store is a directory of per-symbol CSV files plus optional zero-byte marker
// files recording secondary provenance. Layout:
//
//	<dir>/<SYMBOL>.csv
//	<dir>/<SYMBOL>.secondary
//
// Store holds no per-symbol locks; callers must not touch one symbol from two
// goroutines at once.
type Store struct {
	dir string
	now util.Clock
}

// New creates the cache directory if needed and returns a Store rooted there.
// A nil clock means time.Now.
func New(dir string, now util.Clock) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache directory is not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	if now == nil {
		now = time.Now
	}
	return &Store{dir: dir, now: now}, nil
}

// Dir returns the cache root.
func (s *Store) Dir() string { return s.dir }

// Path returns the data file path for symbol.
func (s *Store) Path(symbol domain.Symbol) string {
	return filepath.Join(s.dir, symbol.String()+dataExt)
}

func (s *Store) markerPath(symbol domain.Symbol) string {
	return filepath.Join(s.dir, symbol.String()+markerExt)
}

// IsFresh reports whether the data file exists and was last modified on the
// current local calendar day.
func (s *Store) IsFresh(symbol domain.Symbol) bool {
	info, err := os.Stat(s.Path(symbol))
	if err != nil || info.IsDir() {
		return false
	}
	return util.SameDay(s.now().Local(), info.ModTime())
}

// Provenance returns ProvenanceSecondary if the marker file exists.
func (s *Store) Provenance(symbol domain.Symbol) domain.Provenance {
	if _, err := os.Stat(s.markerPath(symbol)); err == nil {
		return domain.ProvenanceSecondary
	}
	return domain.ProvenancePrimary
}

// Invalidate removes both the data file and the marker file. Missing files
// are not an error.
func (s *Store) Invalidate(symbol domain.Symbol) error {
	var errs []error
	for _, p := range []string{s.Path(symbol), s.markerPath(symbol)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Write replaces the data file with data. The bytes land in a temporary file
// first and are renamed into place.
func (s *Store) Write(symbol domain.Symbol, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+symbol.String()+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", symbol, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", symbol, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", symbol, err)
	}
	if err := os.Rename(tmpName, s.Path(symbol)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming %s: %w", symbol, err)
	}
	return nil
}

// MarkSecondary creates the zero-byte marker for symbol.
func (s *Store) MarkSecondary(symbol domain.Symbol) error {
	f, err := os.OpenFile(s.markerPath(symbol), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("marking %s secondary: %w", symbol, err)
	}
	return f.Close()
}

// Read returns the cached bytes for symbol.
func (s *Store) Read(symbol domain.Symbol) ([]byte, error) {
	return os.ReadFile(s.Path(symbol))
}
