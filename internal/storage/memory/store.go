// Package memory provides a process-local snapshot store for tests and
// throwaway sessions.
package memory

import (
	"context"
	"slices"
	"sync"

	"ledgerlite/internal/core"
)

type Store struct {
	mu    sync.RWMutex
	snap  core.Snapshot
	saves int
}

func New() *Store {
	return &Store{}
}

func (s *Store) LoadAll(ctx context.Context) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.snap), nil
}

func (s *Store) SaveAll(ctx context.Context, snap core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = clone(snap)
	s.saves++
	return nil
}

// Saves returns how many times SaveAll succeeded.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func clone(snap core.Snapshot) core.Snapshot {
	return core.Snapshot{
		Categories:   slices.Clone(snap.Categories),
		Transactions: slices.Clone(snap.Transactions),
		Budgets:      slices.Clone(snap.Budgets),
	}
}
