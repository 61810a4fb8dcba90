package memory

import (
	"context"
	"fmt"
	"sync"

	"wallet/internal/sheets"
)

// Store is an in-memory statement writer used in tests and local runs.
type Store struct {
	mu   sync.Mutex
	rows []sheets.StatementRow
}

func New() *Store {
	return &Store{}
}

// AppendStatement stores the row and returns a synthetic row reference.
func (s *Store) AppendStatement(_ context.Context, row sheets.StatementRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []sheets.StatementRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.StatementRow(nil), s.rows...)
}
