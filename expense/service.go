// Package expense is the public operation surface of the group expense
// ledger: create, update, delete, list and summarize, composed from the
// store, the membership collaborator, the balance calculator and the
// settlement engine.
package expense

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dbt "tripledger/db/db"
	"tripledger/ledger"
	"tripledger/money"
	"tripledger/mq/mq"
)

// MembershipProvider supplies the current member list of a trip. The service
// treats it as ground truth and never caches it.
type MembershipProvider interface {
	TripMembers(ctx context.Context, tripID uuid.UUID) ([]ledger.Member, error)
}

// Service implements the expense operations. All algorithms run over an
// in-memory snapshot of one trip's records; the store provides the per-trip
// write serialization, so the service itself holds no cross-request state.
type Service struct {
	store   dbt.ExpenseStore
	members MembershipProvider
	events  mq.ExpenseMessageQueueWrapper // optional; nil disables events
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires the service. events may be nil when no queue backend is
// configured.
func NewService(store dbt.ExpenseStore, members MembershipProvider, events mq.ExpenseMessageQueueWrapper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		members: members,
		events:  events,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateExpenseInput carries the client payload for a new expense. Amount is
// a decimal string; it is parsed to minor units at this boundary.
type CreateExpenseInput struct {
	Description  string
	Amount       string
	Currency     string
	PaidBy       ledger.ParticipantID
	SplitBetween []ledger.ParticipantID
	Category     string
	Date         time.Time
}

// UpdateExpenseInput carries a partial update; nil fields keep the stored
// value. The merged record is re-validated as a whole.
type UpdateExpenseInput struct {
	Description  *string
	Amount       *string
	Currency     *string
	PaidBy       *ledger.ParticipantID
	SplitBetween *[]ledger.ParticipantID
	Category     *string
	Date         *time.Time
}

// authorize resolves the trip's members and checks the caller is one of
// them. An unknown trip surfaces as ledger.ErrNotFound from the provider.
func (s *Service) authorize(ctx context.Context, caller ledger.ParticipantID, tripID uuid.UUID) ([]ledger.Member, error) {
	members, err := s.members.TripMembers(ctx, tripID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.ID == caller {
			return members, nil
		}
	}
	return nil, fmt.Errorf("caller %q is not a member of trip %s: %w", string(caller), tripID, ledger.ErrForbidden)
}

func parseAmount(amount, currency string) (money.Money, error) {
	c, err := money.ParseCurrency(currency)
	if err != nil {
		return money.Money{}, ledger.NewValidationError(ledger.ReasonUnknownCurrency, err.Error())
	}
	m, err := money.ParseAmount(amount, c)
	if err != nil {
		return money.Money{}, ledger.NewValidationError(ledger.ReasonInvalidAmount, err.Error())
	}
	return m, nil
}

func parseCategory(category string) (ledger.Category, error) {
	c, err := ledger.ParseCategory(category)
	if err != nil {
		return 0, ledger.NewValidationError(ledger.ReasonUnknownCategory, err.Error())
	}
	return c, nil
}

// toDate truncates a timestamp to its calendar date in UTC.
func toDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AuthorizeMember checks that the caller belongs to the trip. Read-only
// surfaces like the event stream gate on it before subscribing.
func (s *Service) AuthorizeMember(ctx context.Context, caller ledger.ParticipantID, tripID uuid.UUID) error {
	_, err := s.authorize(ctx, caller, tripID)
	return err
}

// CreateExpense validates and appends one expense to the trip's ledger.
func (s *Service) CreateExpense(ctx context.Context, caller ledger.ParticipantID, tripID uuid.UUID, input CreateExpenseInput) (*ledger.ExpenseRecord, error) {
	members, err := s.authorize(ctx, caller, tripID)
	if err != nil {
		return nil, err
	}

	amount, err := parseAmount(input.Amount, input.Currency)
	if err != nil {
		return nil, err
	}
	category, err := parseCategory(input.Category)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &ledger.ExpenseRecord{
		ID:           uuid.New(),
		TripID:       tripID,
		Description:  input.Description,
		Amount:       amount,
		PaidBy:       input.PaidBy,
		SplitBetween: append([]ledger.ParticipantID(nil), input.SplitBetween...),
		Category:     category,
		Date:         toDate(input.Date),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := record.Validate(members); err != nil {
		return nil, err
	}

	if err := s.store.CreateExpense(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("expense created",
		slog.String("trip_id", tripID.String()),
		slog.String("expense_id", record.ID.String()),
		slog.String("amount", record.Amount.String()),
	)
	s.publish(mq.ActionCreate, record, nil)
	return record, nil
}

// applyUpdate merges the partial payload into record in place.
func applyUpdate(record *ledger.ExpenseRecord, input UpdateExpenseInput, now time.Time) error {
	if input.Description != nil {
		record.Description = *input.Description
	}
	if input.Currency != nil || input.Amount != nil {
		currency := string(record.Amount.Currency)
		if input.Currency != nil {
			currency = *input.Currency
		}
		amount := record.Amount.Decimal()
		if input.Amount != nil {
			amount = *input.Amount
		} else if currency != string(record.Amount.Currency) {
			// Re-denominating an amount is a currency conversion in disguise.
			return ledger.NewValidationError(ledger.ReasonInvalidAmount, "amount must accompany a currency change")
		}
		parsed, err := parseAmount(amount, currency)
		if err != nil {
			return err
		}
		record.Amount = parsed
	}
	if input.PaidBy != nil {
		record.PaidBy = *input.PaidBy
	}
	if input.SplitBetween != nil {
		record.SplitBetween = append([]ledger.ParticipantID(nil), (*input.SplitBetween)...)
	}
	if input.Category != nil {
		category, err := parseCategory(*input.Category)
		if err != nil {
			return err
		}
		record.Category = category
	}
	if input.Date != nil {
		record.Date = toDate(*input.Date)
	}
	record.UpdatedAt = now
	return nil
}

// UpdateExpense merges the partial payload into the stored record,
// re-validates the whole merged record and persists it. The merge runs
// inside the store's per-trip serialization point, so two concurrent partial
// updates compose instead of the later one reverting the earlier one's
// fields. A valid record can not become invalid through a partial update.
func (s *Service) UpdateExpense(ctx context.Context, caller ledger.ParticipantID, tripID, expenseID uuid.UUID, input UpdateExpenseInput) (*ledger.ExpenseRecord, error) {
	members, err := s.authorize(ctx, caller, tripID)
	if err != nil {
		return nil, err
	}

	var before ledger.ExpenseRecord
	updated, err := s.store.UpdateExpense(ctx, tripID, expenseID, func(record *ledger.ExpenseRecord) error {
		before = record.Clone()
		if err := applyUpdate(record, input, s.now()); err != nil {
			return err
		}
		return record.Validate(members)
	})
	if err != nil {
		return nil, err
	}

	changed := s.changedFields(&before, updated)
	s.logger.Info("expense updated",
		slog.String("trip_id", tripID.String()),
		slog.String("expense_id", expenseID.String()),
		slog.Any("changed", changed),
	)
	s.publish(mq.ActionUpdate, updated, changed)
	return updated, nil
}

// DeleteExpense removes one expense. Deleting the same id twice fails the
// second time with NotFound.
func (s *Service) DeleteExpense(ctx context.Context, caller ledger.ParticipantID, tripID, expenseID uuid.UUID) error {
	if _, err := s.authorize(ctx, caller, tripID); err != nil {
		return err
	}

	existing, err := s.store.GetExpense(ctx, tripID, expenseID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, tripID, expenseID); err != nil {
		return err
	}

	s.logger.Info("expense deleted",
		slog.String("trip_id", tripID.String()),
		slog.String("expense_id", expenseID.String()),
	)
	s.publish(mq.ActionDelete, existing, nil)
	return nil
}

// ListExpenses returns the trip's records in insertion order.
func (s *Service) ListExpenses(ctx context.Context, caller ledger.ParticipantID, tripID uuid.UUID) ([]ledger.ExpenseRecord, error) {
	if _, err := s.authorize(ctx, caller, tripID); err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, tripID)
}
