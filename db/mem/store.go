// Package mem is the in-memory ExpenseStore, used by tests, the offline CLI
// and dev mode. A per-trip mutex is the write serialization point; writes to
// different trips never contend.
package mem

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	dbt "tripledger/db/db"
	"tripledger/ledger"
)

type tripState struct {
	mu      sync.Mutex
	records []ledger.ExpenseRecord // insertion order
	members []ledger.Member
}

type memoryExpenseStore struct {
	mu    sync.RWMutex
	trips map[uuid.UUID]*tripState
}

// NewMemoryExpenseStore creates an empty in-memory store.
func NewMemoryExpenseStore() dbt.ExpenseStore {
	return &memoryExpenseStore{trips: make(map[uuid.UUID]*tripState)}
}

// trip returns the state for a trip, creating it when create is set.
func (s *memoryExpenseStore) trip(id uuid.UUID, create bool) (*tripState, bool) {
	s.mu.RLock()
	state, ok := s.trips[id]
	s.mu.RUnlock()
	if ok || !create {
		return state, ok
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok = s.trips[id]; ok {
		return state, true
	}
	state = &tripState{}
	s.trips[id] = state
	return state, true
}

func (s *memoryExpenseStore) CreateExpense(_ context.Context, record *ledger.ExpenseRecord) error {
	state, _ := s.trip(record.TripID, true)
	state.mu.Lock()
	defer state.mu.Unlock()

	for _, r := range state.records {
		if r.ID == record.ID {
			return fmt.Errorf("expense %s already exists in trip %s", record.ID, record.TripID)
		}
	}
	state.records = append(state.records, record.Clone())
	return nil
}

func (s *memoryExpenseStore) GetExpense(_ context.Context, tripID, expenseID uuid.UUID) (*ledger.ExpenseRecord, error) {
	state, ok := s.trip(tripID, false)
	if !ok {
		return nil, fmt.Errorf("trip %s: %w", tripID, ledger.ErrNotFound)
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	for i := range state.records {
		if state.records[i].ID == expenseID {
			record := state.records[i].Clone()
			return &record, nil
		}
	}
	return nil, fmt.Errorf("expense %s in trip %s: %w", expenseID, tripID, ledger.ErrNotFound)
}

func (s *memoryExpenseStore) UpdateExpense(_ context.Context, tripID, expenseID uuid.UUID, mutate func(record *ledger.ExpenseRecord) error) (*ledger.ExpenseRecord, error) {
	state, ok := s.trip(tripID, false)
	if !ok {
		return nil, fmt.Errorf("trip %s: %w", tripID, ledger.ErrNotFound)
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	for i := range state.records {
		if state.records[i].ID == expenseID {
			record := state.records[i].Clone()
			if err := mutate(&record); err != nil {
				return nil, err
			}
			state.records[i] = record.Clone()
			return &record, nil
		}
	}
	return nil, fmt.Errorf("expense %s in trip %s: %w", expenseID, tripID, ledger.ErrNotFound)
}

func (s *memoryExpenseStore) DeleteExpense(_ context.Context, tripID, expenseID uuid.UUID) error {
	state, ok := s.trip(tripID, false)
	if !ok {
		return fmt.Errorf("trip %s: %w", tripID, ledger.ErrNotFound)
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	for i := range state.records {
		if state.records[i].ID == expenseID {
			state.records = append(state.records[:i], state.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("expense %s in trip %s: %w", expenseID, tripID, ledger.ErrNotFound)
}

func (s *memoryExpenseStore) ListExpenses(_ context.Context, tripID uuid.UUID) ([]ledger.ExpenseRecord, error) {
	state, ok := s.trip(tripID, false)
	if !ok {
		return []ledger.ExpenseRecord{}, nil
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	records := make([]ledger.ExpenseRecord, len(state.records))
	for i := range state.records {
		records[i] = state.records[i].Clone()
	}
	return records, nil
}

func (s *memoryExpenseStore) TripMembers(_ context.Context, tripID uuid.UUID) ([]ledger.Member, error) {
	state, ok := s.trip(tripID, false)
	if !ok {
		return nil, fmt.Errorf("trip %s: %w", tripID, ledger.ErrNotFound)
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	members := make([]ledger.Member, len(state.members))
	copy(members, state.members)
	return members, nil
}

func (s *memoryExpenseStore) AddTripMember(_ context.Context, tripID uuid.UUID, member ledger.Member) error {
	state, _ := s.trip(tripID, true)
	state.mu.Lock()
	defer state.mu.Unlock()

	for _, m := range state.members {
		if m.ID == member.ID {
			return fmt.Errorf("member %s already exists in trip %s", member.ID, tripID)
		}
	}
	state.members = append(state.members, member)
	return nil
}

func (s *memoryExpenseStore) RemoveTripMember(_ context.Context, tripID uuid.UUID, id ledger.ParticipantID) error {
	state, ok := s.trip(tripID, false)
	if !ok {
		return fmt.Errorf("trip %s: %w", tripID, ledger.ErrNotFound)
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	for i, m := range state.members {
		if m.ID == id {
			state.members = append(state.members[:i], state.members[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("member %s in trip %s: %w", id, tripID, ledger.ErrNotFound)
}
