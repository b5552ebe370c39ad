package pg

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbt "tripledger/db/db"
	"tripledger/ledger"
	"tripledger/money"
)

// GORMExpenseStore is a GORM-based PostgreSQL implementation of
// dbt.ExpenseStore. Every write runs in a transaction that takes a row lock
// on the trip, which is the per-trip write serialization point.
type GORMExpenseStore struct {
	db *gorm.DB
}

// NewGORMExpenseStore creates and returns a new instance of GORMExpenseStore.
func NewGORMExpenseStore(db *gorm.DB) dbt.ExpenseStore {
	return &GORMExpenseStore{db: db}
}

// lockTrip creates the trip row on first use and locks it for the duration
// of the surrounding transaction.
func lockTrip(tx *gorm.DB, tripID uuid.UUID) error {
	trip := TripModel{ID: tripID}
	if err := tx.Where(TripModel{ID: tripID}).FirstOrCreate(&trip).Error; err != nil {
		return fmt.Errorf("failed to ensure trip %s: %w", tripID, err)
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&TripModel{}, "id = ?", tripID).Error; err != nil {
		return fmt.Errorf("failed to lock trip %s: %w", tripID, err)
	}
	return nil
}

// lockTripShared takes a share lock on the trip row so a multi-statement
// read cannot interleave with a writer holding the update lock. It never
// creates the trip row; ledger.ErrNotFound when none exists yet.
func lockTripShared(tx *gorm.DB, tripID uuid.UUID) error {
	if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
		First(&TripModel{}, "id = ?", tripID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("trip %s: %w", tripID, ledger.ErrNotFound)
		}
		return fmt.Errorf("failed to lock trip %s: %w", tripID, err)
	}
	return nil
}

func toExpenseModel(record *ledger.ExpenseRecord) ExpenseModel {
	return ExpenseModel{
		ID:               record.ID,
		TripID:           record.TripID,
		Description:      record.Description,
		AmountMinorUnits: record.Amount.MinorUnits,
		Currency:         string(record.Amount.Currency),
		PaidBy:           string(record.PaidBy),
		Category:         int(record.Category),
		Date:             record.Date,
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}
}

func toSplitModels(record *ledger.ExpenseRecord) []ExpenseSplitModel {
	splits := make([]ExpenseSplitModel, len(record.SplitBetween))
	for i, member := range record.SplitBetween {
		splits[i] = ExpenseSplitModel{
			ExpenseID: record.ID,
			Position:  i,
			TripID:    record.TripID,
			MemberID:  string(member),
		}
	}
	return splits
}

func toLedgerRecord(em ExpenseModel, splits []ExpenseSplitModel) ledger.ExpenseRecord {
	sort.Slice(splits, func(i, j int) bool { return splits[i].Position < splits[j].Position })
	split := make([]ledger.ParticipantID, len(splits))
	for i, s := range splits {
		split[i] = ledger.ParticipantID(s.MemberID)
	}
	return ledger.ExpenseRecord{
		ID:           em.ID,
		TripID:       em.TripID,
		Description:  em.Description,
		Amount:       money.New(em.AmountMinorUnits, money.Currency(em.Currency)),
		PaidBy:       ledger.ParticipantID(em.PaidBy),
		SplitBetween: split,
		Category:     ledger.Category(em.Category),
		Date:         em.Date,
		CreatedAt:    em.CreatedAt,
		UpdatedAt:    em.UpdatedAt,
	}
}

// CreateExpense appends a record to its trip's ledger.
func (s *GORMExpenseStore) CreateExpense(ctx context.Context, record *ledger.ExpenseRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTrip(tx, record.TripID); err != nil {
			return err
		}
		em := toExpenseModel(record)
		if err := tx.Create(&em).Error; err != nil {
			if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
				return fmt.Errorf("expense %s already exists: %w", record.ID, err)
			}
			return fmt.Errorf("failed to create expense %s: %w", record.ID, err)
		}
		if splits := toSplitModels(record); len(splits) > 0 {
			if err := tx.Create(&splits).Error; err != nil {
				return fmt.Errorf("failed to create split rows for expense %s: %w", record.ID, err)
			}
		}
		return nil
	})
}

// getExpense reads one record and its split rows inside tx. The caller must
// already hold a trip lock so the two statements see one consistent state.
func getExpense(tx *gorm.DB, tripID, expenseID uuid.UUID) (*ledger.ExpenseRecord, error) {
	var em ExpenseModel
	if err := tx.First(&em, "id = ? AND trip_id = ?", expenseID, tripID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("expense %s in trip %s: %w", expenseID, tripID, ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get expense %s: %w", expenseID, err)
	}

	var splits []ExpenseSplitModel
	if err := tx.Where("expense_id = ?", expenseID).Find(&splits).Error; err != nil {
		return nil, fmt.Errorf("failed to get split rows for expense %s: %w", expenseID, err)
	}

	record := toLedgerRecord(em, splits)
	return &record, nil
}

// GetExpense fetches one record of one trip.
func (s *GORMExpenseStore) GetExpense(ctx context.Context, tripID, expenseID uuid.UUID) (*ledger.ExpenseRecord, error) {
	var record *ledger.ExpenseRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTripShared(tx, tripID); err != nil {
			return err
		}
		var err error
		record, err = getExpense(tx, tripID, expenseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateExpense runs a read-modify-write under the trip's update lock: the
// stored record is loaded, mutated and written back in one transaction, so
// concurrent partial updates serialize instead of overwriting each other.
func (s *GORMExpenseStore) UpdateExpense(ctx context.Context, tripID, expenseID uuid.UUID, mutate func(record *ledger.ExpenseRecord) error) (*ledger.ExpenseRecord, error) {
	var updated *ledger.ExpenseRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTrip(tx, tripID); err != nil {
			return err
		}

		record, err := getExpense(tx, tripID, expenseID)
		if err != nil {
			return err
		}
		if err := mutate(record); err != nil {
			return err
		}

		em := toExpenseModel(record)
		result := tx.Model(&ExpenseModel{}).
			Where("id = ? AND trip_id = ?", expenseID, tripID).
			Updates(map[string]interface{}{
				"description":        em.Description,
				"amount_minor_units": em.AmountMinorUnits,
				"currency":           em.Currency,
				"paid_by":            em.PaidBy,
				"category":           em.Category,
				"date":               em.Date,
				"updated_at":         em.UpdatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update expense %s: %w", expenseID, result.Error)
		}

		if err := tx.Where("expense_id = ?", expenseID).Delete(&ExpenseSplitModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear split rows for expense %s: %w", expenseID, err)
		}
		if splits := toSplitModels(record); len(splits) > 0 {
			if err := tx.Create(&splits).Error; err != nil {
				return fmt.Errorf("failed to recreate split rows for expense %s: %w", expenseID, err)
			}
		}
		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteExpense removes one record; a second delete of the same id reports
// ledger.ErrNotFound.
func (s *GORMExpenseStore) DeleteExpense(ctx context.Context, tripID, expenseID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTrip(tx, tripID); err != nil {
			return err
		}
		result := tx.Where("id = ? AND trip_id = ?", expenseID, tripID).Delete(&ExpenseModel{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete expense %s: %w", expenseID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("expense %s in trip %s: %w", expenseID, tripID, ledger.ErrNotFound)
		}
		if err := tx.Where("expense_id = ?", expenseID).Delete(&ExpenseSplitModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete split rows for expense %s: %w", expenseID, err)
		}
		return nil
	})
}

// ListExpenses returns the trip's records in insertion order. Both reads run
// under a shared trip lock so the expense rows and their split rows come
// from one consistent state.
func (s *GORMExpenseStore) ListExpenses(ctx context.Context, tripID uuid.UUID) ([]ledger.ExpenseRecord, error) {
	var records []ledger.ExpenseRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTripShared(tx, tripID); err != nil {
			// a trip with no row yet has an empty ledger
			if errors.Is(err, ledger.ErrNotFound) {
				records = []ledger.ExpenseRecord{}
				return nil
			}
			return err
		}

		var expenseModels []ExpenseModel
		if err := tx.
			Where("trip_id = ?", tripID).
			Order("seq ASC").
			Find(&expenseModels).Error; err != nil {
			return fmt.Errorf("failed to list expenses for trip %s: %w", tripID, err)
		}

		var splitModels []ExpenseSplitModel
		if err := tx.Where("trip_id = ?", tripID).Find(&splitModels).Error; err != nil {
			return fmt.Errorf("failed to list split rows for trip %s: %w", tripID, err)
		}
		splitsByExpense := make(map[uuid.UUID][]ExpenseSplitModel)
		for _, sm := range splitModels {
			splitsByExpense[sm.ExpenseID] = append(splitsByExpense[sm.ExpenseID], sm)
		}

		records = make([]ledger.ExpenseRecord, len(expenseModels))
		for i, em := range expenseModels {
			records[i] = toLedgerRecord(em, splitsByExpense[em.ID])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// TripMembers returns the current member list for a trip.
func (s *GORMExpenseStore) TripMembers(ctx context.Context, tripID uuid.UUID) ([]ledger.Member, error) {
	var trip TripModel
	if err := s.db.WithContext(ctx).First(&trip, "id = ?", tripID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("trip %s: %w", tripID, ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trip %s: %w", tripID, err)
	}

	var memberModels []TripMemberModel
	if err := s.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("created_at ASC, member_id ASC").
		Find(&memberModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list members for trip %s: %w", tripID, err)
	}

	members := make([]ledger.Member, len(memberModels))
	for i, mm := range memberModels {
		members[i] = ledger.Member{
			ID:      ledger.ParticipantID(mm.MemberID),
			Name:    mm.Name,
			Email:   mm.Email,
			IsOwner: mm.IsOwner,
		}
	}
	return members, nil
}

// AddTripMember adds a member to a trip, creating the trip row on first use.
func (s *GORMExpenseStore) AddTripMember(ctx context.Context, tripID uuid.UUID, member ledger.Member) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTrip(tx, tripID); err != nil {
			return err
		}
		mm := TripMemberModel{
			TripID:   tripID,
			MemberID: string(member.ID),
			Name:     member.Name,
			Email:    member.Email,
			IsOwner:  member.IsOwner,
		}
		if err := tx.Create(&mm).Error; err != nil {
			if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
				return fmt.Errorf("member %s already exists in trip %s: %w", member.ID, tripID, err)
			}
			return fmt.Errorf("failed to add member %s to trip %s: %w", member.ID, tripID, err)
		}
		return nil
	})
}

// RemoveTripMember removes a member from a trip.
func (s *GORMExpenseStore) RemoveTripMember(ctx context.Context, tripID uuid.UUID, id ledger.ParticipantID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTrip(tx, tripID); err != nil {
			return err
		}
		result := tx.Where("trip_id = ? AND member_id = ?", tripID, string(id)).Delete(&TripMemberModel{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove member %s from trip %s: %w", id, tripID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("member %s in trip %s: %w", id, tripID, ledger.ErrNotFound)
		}
		return nil
	})
}
