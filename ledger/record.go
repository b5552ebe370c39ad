package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"tripledger/money"
)

// ParticipantID identifies one trip member. It is opaque to the ledger; the
// membership provider is the ground truth for which ids exist on a trip.
type ParticipantID string

// Member is one entry of a trip's member list as supplied by the membership
// collaborator.
type Member struct {
	ID      ParticipantID
	Name    string
	Email   string
	IsOwner bool
}

// Category classifies an expense. Unknown values are rejected at the
// boundary, never defaulted.
type Category int

const (
	CategoryAccommodation Category = iota
	CategoryFood
	CategoryTransport
	CategoryActivities
	CategoryShopping
	CategoryOther
	CategoryCnt
)

var (
	categoryNames = []string{
		"accommodation",
		"food",
		"transport",
		"activities",
		"shopping",
		"other",
	}
	name2Category = map[string]Category{}
)

func init() {
	for i, name := range categoryNames {
		name2Category[name] = Category(i)
	}
}

// ParseCategory maps a request string onto the closed category enumeration.
func ParseCategory(s string) (Category, error) {
	if c, ok := name2Category[s]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// Valid reports whether the category is inside the enumeration.
func (c Category) Valid() bool {
	return c >= 0 && c < CategoryCnt
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// ExpenseRecord is one logged expense of a trip. ID and TripID are immutable
// after creation; CreatedAt and UpdatedAt are set by the service, never by
// clients.
type ExpenseRecord struct {
	ID           uuid.UUID
	TripID       uuid.UUID
	Description  string
	Amount       money.Money
	PaidBy       ParticipantID
	SplitBetween []ParticipantID
	Category     Category
	Date         time.Time // calendar date of the expense, not entry time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone returns a deep copy so stores can hand out records without sharing
// the split slice.
func (r *ExpenseRecord) Clone() ExpenseRecord {
	c := *r
	c.SplitBetween = make([]ParticipantID, len(r.SplitBetween))
	copy(c.SplitBetween, r.SplitBetween)
	return c
}
