// Package memory is an in-process sheets mirror for tests and local runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"moneyplanner/internal/sheets"
)

type Sheet struct {
	mu     sync.Mutex
	rows   [][]string
	writes int
	fail   error
}

var (
	_ sheets.SnapshotWriter = (*Sheet)(nil)
	_ sheets.SnapshotReader = (*Sheet)(nil)
)

func New() *Sheet { return &Sheet{} }

// WriteSnapshot stores a copy of rows and returns a synthetic reference.
func (s *Sheet) WriteSnapshot(_ context.Context, rows [][]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	if len(rows) == 0 {
		return "", errors.New("no rows to write")
	}
	s.rows = copyRows(rows)
	s.writes++
	return fmt.Sprintf("mem:%d", len(rows)), nil
}

func (s *Sheet) ReadSnapshot(_ context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRows(s.rows), nil
}

// Writes counts successful writes.
func (s *Sheet) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// SetFail makes subsequent writes return err; nil restores normal behaviour.
func (s *Sheet) SetFail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
