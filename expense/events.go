package expense

import (
	"log/slog"
	"strings"

	"tripledger/ledger"
	"tripledger/libs/diff"
	"tripledger/mq/mq"
)

// publish emits an expense event on the action's queue. Event delivery is
// best effort: a publish failure is logged and never fails the write that
// already committed.
func (s *Service) publish(action mq.Action, record *ledger.ExpenseRecord, changed []string) {
	if s.events == nil {
		return
	}
	queue := s.events.GetExpenseMessageQueue(action)
	if queue == nil {
		return
	}
	msg := mq.ExpenseMessage{
		TripID:           record.TripID,
		ID:               record.ID,
		Description:      record.Description,
		AmountMinorUnits: record.Amount.MinorUnits,
		Currency:         string(record.Amount.Currency),
		PaidBy:           string(record.PaidBy),
		Changed:          changed,
	}
	if err := queue.Publish(msg); err != nil {
		s.logger.Warn("expense event publish failed",
			slog.String("action", action.String()),
			slog.String("expense_id", record.ID.String()),
			slog.Any("error", err),
		)
	}
}

func (s *Service) changedFields(old, new *ledger.ExpenseRecord) []string {
	fields, err := diff.ChangedFields(*old, *new)
	if err != nil {
		s.logger.Warn("expense diff failed", slog.Any("error", err))
		return nil
	}
	// Timestamps move on every update; subscribers only care about the
	// client-visible fields.
	out := fields[:0]
	for _, f := range fields {
		if f == "CreatedAt" || f == "UpdatedAt" || strings.HasPrefix(f, "CreatedAt.") || strings.HasPrefix(f, "UpdatedAt.") {
			continue
		}
		out = append(out, f)
	}
	return out
}
