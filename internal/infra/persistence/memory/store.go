// Package memory provides an in-memory implementation of the run store used
// for tests, ephemeral environments and as the read model of the SQL backends.
package memory

import (
	"context"
	"sort"
	"sync"

	"phsen/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Run aliases domain.Run for in-memory persistence operations.
	Run = domain.Run
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Runs map[string]Run `json:"runs"`
}

// Store keeps runs in a map guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{runs: make(map[string]Run)}
}

// SaveRun stores a new run. Saving an identifier twice is rejected.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; ok {
		return domain.ErrAlreadyExists{Entity: domain.EntityRun, ID: run.ID}
	}
	s.runs[run.ID] = run.Clone()
	return nil
}

// GetRun returns a copy of the run with the given identifier.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return Run{}, domain.ErrNotFound{Entity: domain.EntityRun, ID: id}
	}
	return run.Clone(), nil
}

// ListRuns returns all runs ordered by creation time, then identifier.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run.Clone())
	}
	s.mu.RUnlock()
	sortRuns(out)
	return out, nil
}

// DeleteRun removes a run.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityRun, ID: id}
	}
	delete(s.runs, id)
	return nil
}

// ExportState returns a deep copy snapshot of the current store contents.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Runs: make(map[string]Run, len(s.runs))}
	for id, run := range s.runs {
		snap.Runs[id] = run.Clone()
	}
	return snap
}

// ImportState replaces the store contents with the snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	runs := make(map[string]Run, len(snapshot.Runs))
	for id, run := range snapshot.Runs {
		runs[id] = run.Clone()
	}
	s.mu.Lock()
	s.runs = runs
	s.mu.Unlock()
}

func sortRuns(runs []Run) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})
}
