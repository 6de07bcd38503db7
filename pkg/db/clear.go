package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearJournal truncates the operation journal. The schema is preserved and
// RESTART IDENTITY resets the row id sequence.
func ClearJournal(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing operation journal", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE `+journalTable+` RESTART IDENTITY`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Operation journal cleared", clearLogPrefix))
	return nil
}
