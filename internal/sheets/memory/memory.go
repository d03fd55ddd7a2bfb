package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"contahogar/internal/sheets"
)

// Sheet is an in-process worksheet used by the default backend and tests.
type Sheet struct {
	mu   sync.Mutex
	rows [][]any

	// failConnect and failAfter inject errors for tests.
	failConnect error
	failAfter   int
	failWrite   error
}

var (
	_ sheets.Connector = (*Sheet)(nil)
	_ sheets.Sheet     = (*Sheet)(nil)
)

func New() *Sheet {
	return &Sheet{failAfter: -1}
}

// Connect returns the sheet itself.
func (s *Sheet) Connect(_ context.Context) (sheets.Sheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failConnect != nil {
		return nil, s.failConnect
	}
	return s, nil
}

func (s *Sheet) FirstCell(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 || len(s.rows[0]) == 0 || s.rows[0][0] == nil {
		return "", nil
	}
	return fmt.Sprint(s.rows[0][0]), nil
}

// AppendRows appends rows one at a time; an injected failure leaves the
// rows written so far in place.
func (s *Sheet) AppendRows(_ context.Context, rows [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		if s.failAfter == 0 {
			return s.failWrite
		}
		if s.failAfter > 0 {
			s.failAfter--
		}
		s.rows = append(s.rows, append([]any(nil), row...))
	}
	return nil
}

// Rows returns a copy of everything written so far.
func (s *Sheet) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

// Len returns the number of rows written.
func (s *Sheet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// FailConnect makes every Connect call return err (nil clears it).
func (s *Sheet) FailConnect(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failConnect = err
}

// FailWritesAfter lets n more rows through and then fails every append with err.
// A negative n disables the failure.
func (s *Sheet) FailWritesAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = errors.New("memory sheet: write failed")
	}
	s.failAfter = n
	s.failWrite = err
}
