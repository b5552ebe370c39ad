package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	_ "tripledger/migration" // register Go migrations with goose

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/pressly/goose/v3"
)

const migrationsDir = "migration"

func migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply or roll back database migrations",
		Long:  `Applies the registered goose migrations to the Postgres database named by DATABASE_URL. With --down, the most recent migration is rolled back instead. The migration status is printed either way.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			down, _ := cmd.Flags().GetBool("down")

			dsn := os.Getenv("DATABASE_URL")
			if dsn == "" {
				dsn = "host=localhost user=postgres dbname=postgres port=5432 sslmode=disable TimeZone=UTC"
				slog.Warn("DATABASE_URL not set, using local default")
			}

			if err := goose.SetDialect("postgres"); err != nil {
				return fmt.Errorf("set goose dialect: %w", err)
			}

			db, err := sql.Open("postgres", dsn)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			ctx := cmd.Context()
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := db.PingContext(pingCtx); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}

			if down {
				slog.Info("rolling back the last migration")
				if err := goose.DownContext(ctx, db, migrationsDir); err != nil {
					return fmt.Errorf("goose down: %w", err)
				}
			} else {
				slog.Info("applying migrations")
				if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
					return fmt.Errorf("goose up: %w", err)
				}
			}

			if err := goose.StatusContext(ctx, db, migrationsDir); err != nil {
				return fmt.Errorf("goose status: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolP("down", "d", false, "roll back the last migration instead of applying")

	return cmd
}
