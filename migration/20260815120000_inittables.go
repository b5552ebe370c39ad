package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upInitTables, downInitTables)
}

func upInitTables(ctx context.Context, tx *sql.Tx) error {
	// The application connects with search_path=tripledger.
	_, err := tx.ExecContext(ctx, `CREATE SCHEMA IF NOT EXISTS tripledger;`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `SET LOCAL search_path TO tripledger;`)
	if err != nil {
		return err
	}

	// Create trips table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE trips (
			id UUID PRIMARY KEY,
			name VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return err
	}

	// Create trip_members table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE trip_members (
			trip_id UUID NOT NULL,
			member_id VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255),
			is_owner BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (trip_id, member_id),
			CONSTRAINT fk_trip_members_trip
				FOREIGN KEY(trip_id)
				REFERENCES trips(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	// Create expenses table; amounts are integer minor units, never floats
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE expenses (
			id UUID PRIMARY KEY,
			trip_id UUID NOT NULL,
			seq BIGINT GENERATED BY DEFAULT AS IDENTITY,
			description VARCHAR(255) NOT NULL,
			amount_minor_units BIGINT NOT NULL CHECK (amount_minor_units > 0),
			currency VARCHAR(3) NOT NULL,
			paid_by VARCHAR(255) NOT NULL,
			category INT NOT NULL,
			date DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uq_expenses_seq UNIQUE (seq),
			CONSTRAINT fk_expenses_trip
				FOREIGN KEY(trip_id)
				REFERENCES trips(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	// Create expense_split_members table; position preserves the stored
	// split order
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE expense_split_members (
			expense_id UUID NOT NULL,
			position INT NOT NULL,
			trip_id UUID NOT NULL,
			member_id VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (expense_id, position),
			CONSTRAINT fk_expense_split_members_expense
				FOREIGN KEY(expense_id)
				REFERENCES expenses(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	return nil
}

func downInitTables(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `SET LOCAL search_path TO tripledger;`)
	if err != nil {
		return err
	}
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS expense_split_members;`,
		`DROP TABLE IF EXISTS expenses;`,
		`DROP TABLE IF EXISTS trip_members;`,
		`DROP TABLE IF EXISTS trips;`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
