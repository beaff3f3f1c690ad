package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"Poligraph/internal/ports"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	sqlitePragmas = "_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
)

// Repository persists politicians, affairs and their dependents in Postgres or SQLite.
type Repository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var (
	_ ports.AffairFinder    = (*Repository)(nil)
	_ ports.AffairWriter    = (*Repository)(nil)
	_ ports.PoliticianStore = (*Repository)(nil)
	_ ports.ReconcileStore  = (*Repository)(nil)
)

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*Repository, error) {
	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case DriverPostgres, "":
		driver = DriverPostgres
		db, err = sql.Open("postgres", dsn)
	case DriverSQLite:
		db, err = sql.Open("sqlite3", sqliteDSN(dsn))
		if err == nil {
			// One writer at a time; transactions never reuse the pool.
			db.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return NewRepository(db, driver), nil
}

// NewRepository wires an existing sql.DB; driver picks the placeholder style.
func NewRepository(db *sql.DB, driver string) *Repository {
	var format sq.PlaceholderFormat = sq.Dollar
	if driver == DriverSQLite {
		format = sq.Question
	}
	return &Repository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(format),
	}
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Migrate creates missing tables and indexes.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// WithinTx runs fn inside a transaction, committing only when fn succeeds.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx ports.MergeTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&txStore{q: tx, sb: r.sb}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func sqliteDSN(dsn string) string {
	if strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	return "file:" + dsn + "?" + sqlitePragmas
}
