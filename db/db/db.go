// Package db defines the keyed-record store the expense service is written
// against. Implementations must make every write to one trip atomic and
// serialized with respect to other writes to the same trip; writes to
// different trips are independent.
package db

import (
	"context"

	"github.com/google/uuid"

	"tripledger/ledger"
)

type ExpenseStore interface {
	// CreateExpense appends a record to its trip's ledger. The trip ledger is
	// created implicitly with the first record.
	CreateExpense(ctx context.Context, record *ledger.ExpenseRecord) error
	// GetExpense fetches one record; ledger.ErrNotFound if the id is absent
	// from the given trip.
	GetExpense(ctx context.Context, tripID, expenseID uuid.UUID) (*ledger.ExpenseRecord, error)
	// UpdateExpense loads the record, applies mutate to a copy and persists
	// the result, all inside the trip's serialization point, so two
	// concurrent updates never overwrite each other's merge. A non-nil error
	// from mutate aborts without writing and is returned unchanged.
	// ledger.ErrNotFound if the record is absent from the trip.
	UpdateExpense(ctx context.Context, tripID, expenseID uuid.UUID, mutate func(record *ledger.ExpenseRecord) error) (*ledger.ExpenseRecord, error)
	// DeleteExpense removes one record; ledger.ErrNotFound if absent, so a
	// double delete surfaces instead of silently succeeding.
	DeleteExpense(ctx context.Context, tripID, expenseID uuid.UUID) error
	// ListExpenses returns the trip's records in insertion order. A trip with
	// no records yields an empty slice, not an error.
	ListExpenses(ctx context.Context, tripID uuid.UUID) ([]ledger.ExpenseRecord, error)

	// TripMembers returns the current member list; ledger.ErrNotFound for an
	// unknown trip.
	TripMembers(ctx context.Context, tripID uuid.UUID) ([]ledger.Member, error)
	AddTripMember(ctx context.Context, tripID uuid.UUID, member ledger.Member) error
	RemoveTripMember(ctx context.Context, tripID uuid.UUID, id ledger.ParticipantID) error
}
