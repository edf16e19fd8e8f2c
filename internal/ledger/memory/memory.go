// Package memory provides an in-process ledger store used as the default
// backend and as the test double for the dispatcher.
package memory

import (
	"context"
	"fmt"
	"sync"

	"settleup/internal/core"
)

type Store struct {
	mu      sync.Mutex
	records []core.Record
}

func New() *Store {
	return &Store{}
}

// Seed creates a store pre-loaded with records, preserving order.
func Seed(records ...core.Record) *Store {
	s := New()
	s.records = append(s.records, records...)
	return s
}

func (s *Store) Append(_ context.Context, rec core.Record) (int, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return len(s.records) - 1, nil
}

func (s *Store) ListAll(_ context.Context) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *Store) Update(_ context.Context, pos int, patch core.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos < 0 || pos >= len(s.records) {
		return fmt.Errorf("position %d: %w", pos, core.ErrTargetNotFound)
	}
	s.records[pos] = patch.Apply(s.records[pos])
	return nil
}

func (s *Store) Delete(_ context.Context, pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos < 0 || pos >= len(s.records) {
		return fmt.Errorf("position %d: %w", pos, core.ErrTargetNotFound)
	}
	s.records = append(s.records[:pos], s.records[pos+1:]...)
	return nil
}
