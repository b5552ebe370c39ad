// Package member provides trip-membership resolution for the expense
// service. Membership is owned by the wider application; the ledger only
// consumes it as ground truth for validating payer and split participants.
package member

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	dbt "tripledger/db/db"
	"tripledger/ledger"
)

// StoreProvider resolves membership from the expense store's member tables.
type StoreProvider struct {
	store dbt.ExpenseStore
}

// NewStoreProvider creates a membership provider backed by the given store.
func NewStoreProvider(store dbt.ExpenseStore) *StoreProvider {
	return &StoreProvider{store: store}
}

func (p *StoreProvider) TripMembers(ctx context.Context, tripID uuid.UUID) ([]ledger.Member, error) {
	return p.store.TripMembers(ctx, tripID)
}

// Static serves fixed member lists. It backs tests and the offline share
// command, where the participants are exactly the names in the input.
type Static map[uuid.UUID][]ledger.Member

func (s Static) TripMembers(_ context.Context, tripID uuid.UUID) ([]ledger.Member, error) {
	members, ok := s[tripID]
	if !ok {
		return nil, fmt.Errorf("trip %s: %w", tripID, ledger.ErrNotFound)
	}
	out := make([]ledger.Member, len(members))
	copy(out, members)
	return out, nil
}
