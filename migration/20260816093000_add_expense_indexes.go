package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upAddExpenseIndexes, downAddExpenseIndexes)
}

func upAddExpenseIndexes(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `SET LOCAL search_path TO tripledger;`)
	if err != nil {
		return err
	}

	// list and summary reads scan one trip's ledger in seq order
	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_expenses_trip_id_seq ON expenses(trip_id, seq);`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_expense_split_members_trip_id ON expense_split_members(trip_id);`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_expense_split_members_expense_id ON expense_split_members(expense_id);`)
	if err != nil {
		return err
	}

	return nil
}

func downAddExpenseIndexes(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `SET LOCAL search_path TO tripledger;`)
	if err != nil {
		return err
	}
	for _, stmt := range []string{
		`DROP INDEX IF EXISTS idx_expense_split_members_expense_id;`,
		`DROP INDEX IF EXISTS idx_expense_split_members_trip_id;`,
		`DROP INDEX IF EXISTS idx_expenses_trip_id_seq;`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
