package pg

import (
	"time"

	"github.com/google/uuid"
)

type TripModel struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"size:255"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for TripModel.
func (TripModel) TableName() string {
	return "trips"
}

type TripMemberModel struct {
	TripID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	MemberID string    `gorm:"size:255;primaryKey"`
	Name     string    `gorm:"size:255;not null"`
	Email    string    `gorm:"size:255"`
	IsOwner  bool      `gorm:"not null;default:false"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for TripMemberModel.
func (TripMemberModel) TableName() string {
	return "trip_members"
}

type ExpenseModel struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	TripID uuid.UUID `gorm:"type:uuid;not null;index"`
	// Seq preserves ledger insertion order across reads.
	Seq              int64     `gorm:"autoIncrement;uniqueIndex"`
	Description      string    `gorm:"size:255;not null"`
	AmountMinorUnits int64     `gorm:"not null"`
	Currency         string    `gorm:"size:3;not null"`
	PaidBy           string    `gorm:"size:255;not null"`
	Category         int       `gorm:"not null"`
	Date             time.Time `gorm:"type:date;not null"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for ExpenseModel.
func (ExpenseModel) TableName() string {
	return "expenses"
}

// ExpenseSplitModel stores one split participant of an expense; Position
// keeps the stored split order the share remainder distribution depends on.
type ExpenseSplitModel struct {
	ExpenseID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position  int       `gorm:"primaryKey"`
	TripID    uuid.UUID `gorm:"type:uuid;not null;index"`
	MemberID  string    `gorm:"size:255;not null"`
	// meta data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for ExpenseSplitModel.
func (ExpenseSplitModel) TableName() string {
	return "expense_split_members"
}
