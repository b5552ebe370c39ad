package expense

import (
	"context"

	"github.com/google/uuid"

	"tripledger/ledger"
	"tripledger/money"
	"tripledger/settle"
)

// UserTotal is one participant's position in one currency.
type UserTotal struct {
	UserID ledger.ParticipantID `json:"userId"`
	Paid   money.Money          `json:"paid"`
	Owes   money.Money          `json:"owes"`
	Net    money.Money          `json:"net"`
}

// Summary is the full financial picture of a trip, recomputed from the
// current ledger on every call.
type Summary struct {
	TotalsByCurrency map[money.Currency]money.Money `json:"totalsByCurrency"`
	UserTotals       []UserTotal                    `json:"userTotals"`
	Settlements      []settle.Transfer              `json:"settlements"`
}

// Summarize derives totals, per-user balances and the settlement plan for
// the trip. The output is deterministic: currencies ascending, participants
// ascending within a currency.
func (s *Service) Summarize(ctx context.Context, caller ledger.ParticipantID, tripID uuid.UUID) (*Summary, error) {
	if _, err := s.authorize(ctx, caller, tripID); err != nil {
		return nil, err
	}
	records, err := s.store.ListExpenses(ctx, tripID)
	if err != nil {
		return nil, err
	}

	totals := make(map[money.Currency]money.Money)
	for _, r := range records {
		total := totals[r.Amount.Currency]
		if total.Currency == "" {
			total = money.New(0, r.Amount.Currency)
		}
		total, err = total.Add(r.Amount)
		if err != nil {
			return nil, err
		}
		totals[r.Amount.Currency] = total
	}

	balances := settle.Balances(records)
	userTotals := make([]UserTotal, 0, len(balances))
	for _, b := range balances {
		userTotals = append(userTotals, UserTotal{
			UserID: b.Participant,
			Paid:   money.New(b.Paid, b.Currency),
			Owes:   money.New(b.Owed, b.Currency),
			Net:    money.New(b.Net(), b.Currency),
		})
	}

	return &Summary{
		TotalsByCurrency: totals,
		UserTotals:       userTotals,
		Settlements:      settle.SettleAll(balances),
	}, nil
}
