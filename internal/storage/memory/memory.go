// Package memory is an in-process ledger.Store used for DATA_BACKEND=memory
// and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"fintrack/internal/ledger"
)

type Store struct {
	mu   sync.Mutex
	sets map[ledger.Set][]ledger.Row
}

func New() *Store {
	return &Store{sets: make(map[ledger.Set][]ledger.Row)}
}

func (s *Store) QueryByOwnerAndMonth(_ context.Context, set ledger.Set, ownerID string, year, month int) ([]ledger.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Row
	for _, r := range s.sets[set] {
		if r.OwnerID == ownerID && r.Date.InMonth(year, month) {
			out = append(out, copyRow(r))
		}
	}
	return out, nil
}

func (s *Store) QueryByOwnerAndYear(_ context.Context, set ledger.Set, ownerID string, year int) ([]ledger.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Row
	for _, r := range s.sets[set] {
		if r.OwnerID == ownerID && r.Date.Year() == year {
			out = append(out, copyRow(r))
		}
	}
	return out, nil
}

// Insert assigns a fresh id, ignoring any id on the input row.
func (s *Store) Insert(_ context.Context, set ledger.Set, row ledger.Row) (ledger.Row, error) {
	row = copyRow(row)
	row.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[set] = append(s.sets[set], row)
	return copyRow(row), nil
}

func (s *Store) GetByID(_ context.Context, set ledger.Set, id, ownerID string) (ledger.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(set, id, ownerID)
	if i < 0 {
		return ledger.Row{}, ledger.ErrRowNotFound
	}
	return copyRow(s.sets[set][i]), nil
}

func (s *Store) UpdateByID(_ context.Context, set ledger.Set, id, ownerID string, patch ledger.Patch) (ledger.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(set, id, ownerID)
	if i < 0 {
		return ledger.Row{}, ledger.ErrRowNotFound
	}
	updated := patch.Apply(s.sets[set][i])
	s.sets[set][i] = updated
	return copyRow(updated), nil
}

func (s *Store) DeleteByID(_ context.Context, set ledger.Set, id, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(set, id, ownerID)
	if i < 0 {
		return 0, nil
	}
	rows := s.sets[set]
	s.sets[set] = append(rows[:i:i], rows[i+1:]...)
	return 1, nil
}

// Len reports the number of rows held in a set.
func (s *Store) Len(set ledger.Set) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sets[set])
}

func (s *Store) indexOf(set ledger.Set, id, ownerID string) int {
	for i, r := range s.sets[set] {
		if r.ID == id && r.OwnerID == ownerID {
			return i
		}
	}
	return -1
}

func copyRow(r ledger.Row) ledger.Row {
	if r.Category != nil {
		c := *r.Category
		r.Category = &c
	}
	return r
}
