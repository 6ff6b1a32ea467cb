package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

// schemaVersion is the doctrine_meta row written by scripts/initdb.sql.
const schemaVersion = 1

// EnsureBootstrapped creates the chunk store schema unless the current
// version row is already present. The script is idempotent, so a partial
// earlier run is simply completed.
func EnsureBootstrapped(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	var hasVersion bool
	err := db.QueryRowContext(ctxBoot,
		`SELECT EXISTS (SELECT 1 FROM doctrine_meta WHERE version = $1)`, schemaVersion).
		Scan(&hasVersion)
	if err == nil && hasVersion {
		logger.Debug("schema already bootstrapped", "version", schemaVersion)
		return nil
	}

	logger.Info("bootstrapping schema", "version", schemaVersion)
	return runBootstrap(ctxBoot, db)
}

func runBootstrap(ctx context.Context, db *sql.DB) error {
	sqlBytes, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return fmt.Errorf("read initdb.sql: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("exec bootstrap: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bootstrap: %w", err)
	}
	return nil
}
