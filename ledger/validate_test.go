package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"tripledger/money"
)

func tripMembers() []Member {
	return []Member{
		{ID: "alice", Name: "Alice", Email: "alice@example.com", IsOwner: true},
		{ID: "bob", Name: "Bob", Email: "bob@example.com"},
		{ID: "carol", Name: "Carol", Email: "carol@example.com"},
	}
}

func validRecord() ExpenseRecord {
	return ExpenseRecord{
		ID:           uuid.New(),
		TripID:       uuid.New(),
		Description:  "Hotel night",
		Amount:       money.New(25000, money.USD),
		PaidBy:       "alice",
		SplitBetween: []ParticipantID{"alice", "bob", "carol"},
		Category:     CategoryAccommodation,
		Date:         time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidateAcceptsWellFormedRecord(t *testing.T) {
	r := validRecord()
	if err := r.Validate(tripMembers()); err != nil {
		t.Fatalf("Validate returned error for a valid record: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *ExpenseRecord)
		reason Reason
	}{
		{
			name:   "zero amount",
			mutate: func(r *ExpenseRecord) { r.Amount = money.New(0, money.USD) },
			reason: ReasonInvalidAmount,
		},
		{
			name:   "negative amount",
			mutate: func(r *ExpenseRecord) { r.Amount = money.New(-100, money.USD) },
			reason: ReasonInvalidAmount,
		},
		{
			name:   "payer outside membership",
			mutate: func(r *ExpenseRecord) { r.PaidBy = "mallory" },
			reason: ReasonPayerNotMember,
		},
		{
			name:   "split member outside membership",
			mutate: func(r *ExpenseRecord) { r.SplitBetween = []ParticipantID{"alice", "mallory"} },
			reason: ReasonSplitNotSubsetOfMembers,
		},
		{
			name:   "empty split",
			mutate: func(r *ExpenseRecord) { r.SplitBetween = nil },
			reason: ReasonEmptySplit,
		},
		{
			name:   "unknown category",
			mutate: func(r *ExpenseRecord) { r.Category = CategoryCnt },
			reason: ReasonUnknownCategory,
		},
		{
			name:   "duplicate split member",
			mutate: func(r *ExpenseRecord) { r.SplitBetween = []ParticipantID{"bob", "bob"} },
			reason: ReasonDuplicateSplitMember,
		},
		{
			name:   "blank description",
			mutate: func(r *ExpenseRecord) { r.Description = "   " },
			reason: ReasonEmptyDescription,
		},
		{
			name:   "unknown currency",
			mutate: func(r *ExpenseRecord) { r.Amount = money.New(100, money.Currency("XYZ")) },
			reason: ReasonUnknownCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			err := r.Validate(tripMembers())
			if err == nil {
				t.Fatalf("Validate accepted an invalid record")
			}
			ve, ok := AsValidationError(err)
			if !ok {
				t.Fatalf("Validate returned %T, want *ValidationError", err)
			}
			if ve.Reason != tt.reason {
				t.Errorf("Validate reason = %q, want %q", ve.Reason, tt.reason)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	for i, name := range []string{"accommodation", "food", "transport", "activities", "shopping", "other"} {
		c, err := ParseCategory(name)
		if err != nil {
			t.Fatalf("ParseCategory(%q): %v", name, err)
		}
		if int(c) != i {
			t.Errorf("ParseCategory(%q) = %d, want %d", name, int(c), i)
		}
		if c.String() != name {
			t.Errorf("Category(%d).String() = %q, want %q", i, c.String(), name)
		}
	}
	if _, err := ParseCategory("groceries"); err == nil {
		t.Error("ParseCategory accepted an unrecognized category")
	}
}
