// Package memory is an in-process Appender used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"spendtrack/internal/core"
	"spendtrack/internal/export"
)

type Store struct {
	mu    sync.Mutex
	items []core.Expense
}

var _ export.Appender = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the expense in memory.
func (s *Store) Append(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return nil
}

// Items returns a copy of everything appended so far.
func (s *Store) Items() []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, len(s.items))
	copy(out, s.items)
	return out
}
