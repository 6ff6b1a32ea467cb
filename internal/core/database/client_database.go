package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"

	"github.com/markdave123-py/doctrinekb/internal/config"
	"github.com/markdave123-py/doctrinekb/internal/core"
	"github.com/markdave123-py/doctrinekb/internal/models"
)

var _ core.ChunkStore = (*DatabaseClient)(nil)

const (
	driverPostgres = "pgx"
	driverSQLite   = "sqlite"
)

type DatabaseClient struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// NewDatabaseClient opens the chunk store named by cfg.DatabaseURL, checks
// connectivity and makes sure the schema exists.
//
// postgres:// and postgresql:// URLs use pgx; sqlite://path and file: URLs
// use the embedded modernc SQLite driver.
func NewDatabaseClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, &core.ConfigurationError{Field: "config", Reason: "is nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	driver, dsn, err := ParseDatabaseURL(cfg.DatabaseURL, cfg.SslCertPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if driver == driverSQLite {
		// One writer at a time; SQLite serialises writes anyway.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetConnMaxIdleTime(10 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, &core.PersistenceError{Cause: fmt.Errorf("ping db: %w", err)}
	}

	if err := EnsureBootstrapped(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db, driver: driver, logger: logger}, nil
}

// ParseDatabaseURL maps a connection URL to a database/sql driver name and DSN.
// When sslCertPath is set, Postgres connections are pinned to verify-ca.
func ParseDatabaseURL(raw, sslCertPath string) (driver, dsn string, err error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "", "", &core.ConfigurationError{Field: "DATABASE_URL", Reason: "is not set"}

	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", &core.ConfigurationError{Field: "DATABASE_URL", Reason: fmt.Sprintf("is invalid: %v", err)}
		}
		if sslCertPath != "" {
			if _, err := os.Stat(sslCertPath); err != nil {
				return "", "", &core.ConfigurationError{Field: "SSL_CERT_PATH", Reason: fmt.Sprintf("is not accessible: %v", err)}
			}
			q := u.Query()
			q.Set("sslmode", "verify-ca")
			q.Set("sslrootcert", sslCertPath)
			u.RawQuery = q.Encode()
		}
		return driverPostgres, u.String(), nil

	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return "", "", &core.ConfigurationError{Field: "DATABASE_URL", Reason: "sqlite URL has no path"}
		}
		return driverSQLite, path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil

	case strings.HasPrefix(raw, "file:"):
		return driverSQLite, raw, nil

	default:
		return "", "", &core.ConfigurationError{Field: "DATABASE_URL", Reason: "must start with postgres://, postgresql://, sqlite:// or file:"}
	}
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping checks that the store is reachable.
func (c *DatabaseClient) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return persistenceError("", err)
	}
	return nil
}

// DB exposes the underlying pool for maintenance commands and tests.
func (c *DatabaseClient) DB() *sql.DB { return c.db }

// Driver returns the database/sql driver name in use.
func (c *DatabaseClient) Driver() string { return c.driver }

// Implementing the chunk store

const insertChunkSQL = `
	INSERT INTO military_doctrines (doc_id, country, warfare_type, chunk, source)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (doc_id) DO NOTHING
`

// InsertChunks inserts one document's chunks in a single transaction on a
// connection held only for this call. A row that already exists is skipped
// and reported; any other failure rolls everything back.
func (c *DatabaseClient) InsertChunks(ctx context.Context, chunks []models.DoctrineChunk) (*models.WriteReport, error) {
	report := &models.WriteReport{Inserted: []string{}, Skipped: []string{}}
	if len(chunks) == 0 {
		return report, nil
	}

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, persistenceError("", fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, persistenceError("", fmt.Errorf("begin tx: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, insertChunkSQL)
	if err != nil {
		_ = tx.Rollback()
		return nil, persistenceError("", fmt.Errorf("prepare insert: %w", err))
	}
	defer stmt.Close()

	for _, ch := range chunks {
		res, err := stmt.ExecContext(ctx, ch.DocID, ch.Country, ch.WarfareType, ch.Content, ch.Source)
		if err != nil {
			_ = tx.Rollback()
			c.logger.Warn("chunk batch rolled back", "doc_id", ch.DocID, "error", err)
			return nil, persistenceError(ch.DocID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return nil, persistenceError(ch.DocID, err)
		}
		if n == 0 {
			c.logger.Info("skipped existing chunk", "doc_id", ch.DocID)
			report.Skipped = append(report.Skipped, ch.DocID)
			continue
		}
		report.Inserted = append(report.Inserted, ch.DocID)
	}

	if err := tx.Commit(); err != nil {
		return nil, persistenceError("", fmt.Errorf("commit: %w", err))
	}
	return report, nil
}

// CountChunks counts stored chunks for a doctrine. An empty warfareType
// matches doctrines stored without one.
func (c *DatabaseClient) CountChunks(ctx context.Context, country, warfareType string) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM military_doctrines
		WHERE country = $1 AND COALESCE(warfare_type, '') = $2
	`
	var n int
	if err := c.db.QueryRowContext(ctx, q, country, warfareType).Scan(&n); err != nil {
		return 0, persistenceError("", err)
	}
	return n, nil
}

// ListDoctrines returns every distinct (country, warfare type) pair.
func (c *DatabaseClient) ListDoctrines(ctx context.Context) ([]models.Doctrine, error) {
	const q = `
		SELECT DISTINCT country, COALESCE(warfare_type, '')
		FROM military_doctrines
		ORDER BY 1, 2
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, persistenceError("", err)
	}
	defer rows.Close()

	out := []models.Doctrine{}
	for rows.Next() {
		var d models.Doctrine
		if err := rows.Scan(&d.Country, &d.WarfareType); err != nil {
			return nil, persistenceError("", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("", err)
	}
	return out, nil
}

// Implementing the personnel table

const insertPersonnelSQL = `
	INSERT INTO military_personnel
		(country, active_military, reserve_military, paramilitary,
		 total, per_1000_total, per_1000_active, ref)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (country) DO NOTHING
`

// InsertPersonnel writes personnel rows in one transaction, skipping
// countries that are already present.
func (c *DatabaseClient) InsertPersonnel(ctx context.Context, records []models.PersonnelRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, persistenceError("", fmt.Errorf("begin tx: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, insertPersonnelSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, persistenceError("", fmt.Errorf("prepare insert: %w", err))
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx,
			r.Country, r.Active, r.Reserve, r.Paramilitary,
			r.Total, r.Per1000Total, r.Per1000Active, r.Ref)
		if err != nil {
			_ = tx.Rollback()
			return 0, persistenceError(r.Country, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, persistenceError(r.Country, err)
		}
		if n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, persistenceError("", fmt.Errorf("commit: %w", err))
	}
	return inserted, nil
}

// persistenceError wraps err with the backend's error code when one is known.
func persistenceError(docID string, err error) error {
	pe := &core.PersistenceError{DocID: docID, Cause: err}

	var pgErr *pgconn.PgError
	var liteErr *sqlite.Error
	switch {
	case errors.As(err, &pgErr):
		pe.Code = pgErr.Code
	case errors.As(err, &liteErr):
		pe.Code = strconv.Itoa(liteErr.Code())
	}
	return pe
}
