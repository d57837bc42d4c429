// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending registry migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewWithDB wraps an already-open database without running migrations.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "panelkit_schema_migrations"})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) TableExists(ctx context.Context, table string) (bool, error) {
	return queryTableExists(ctx, s.db, table)
}

func (s *PostgresStore) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	return queryColumnExists(ctx, s.db, table, column)
}

func (s *PostgresStore) Exec(ctx context.Context, stmt string, args ...any) error {
	return queryExec(ctx, s.db, stmt, args...)
}

func (s *PostgresStore) DropTable(ctx context.Context, table string) error {
	return queryDropTable(ctx, s.db, table)
}

func (s *PostgresStore) DumpTable(ctx context.Context, table string) ([]model.Row, error) {
	return queryDumpTable(ctx, s.db, table)
}

func (s *PostgresStore) RegisterComponent(ctx context.Context, c *model.Component) error {
	return queryRegisterComponent(ctx, s.db, c)
}

func (s *PostgresStore) GetComponent(ctx context.Context, name string) (*model.Component, error) {
	return queryGetComponent(ctx, s.db, name)
}

func (s *PostgresStore) ListComponents(ctx context.Context) ([]*model.Component, error) {
	return queryListComponents(ctx, s.db)
}

func (s *PostgresStore) SetComponentVersion(ctx context.Context, name, version string) error {
	return querySetComponentVersion(ctx, s.db, name, version)
}

func (s *PostgresStore) DeleteComponent(ctx context.Context, name string) error {
	return queryDeleteComponent(ctx, s.db, name)
}

func (s *PostgresStore) GetConfigValue(ctx context.Context, component, key string) (string, error) {
	return queryGetConfigValue(ctx, s.db, component, key)
}

func (s *PostgresStore) SetConfigValue(ctx context.Context, component, key, value string) error {
	return querySetConfigValue(ctx, s.db, component, key, value)
}

func (s *PostgresStore) GetParameter(ctx context.Context, component, section, name string) (*model.Parameter, error) {
	return queryGetParameter(ctx, s.db, component, section, name)
}

func (s *PostgresStore) SetParameter(ctx context.Context, component string, p *model.Parameter) error {
	return querySetParameter(ctx, s.db, component, p)
}

func (s *PostgresStore) ListParameters(ctx context.Context, component string, filter model.ParameterFilter) ([]*model.Parameter, error) {
	return queryListParameters(ctx, s.db, component, filter)
}

func (s *PostgresStore) DeleteParameter(ctx context.Context, component, section, name string) error {
	return queryDeleteParameter(ctx, s.db, component, section, name)
}

func (s *PostgresStore) InsertMenuLink(ctx context.Context, link *model.MenuLink) error {
	return queryInsertMenuLink(ctx, s.db, link)
}

func (s *PostgresStore) ListMenuLinks(ctx context.Context, prefix string) ([]*model.MenuLink, error) {
	return queryListMenuLinks(ctx, s.db, prefix)
}

func (s *PostgresStore) DeleteMenuLinks(ctx context.Context, prefix string) (int64, error) {
	return queryDeleteMenuLinks(ctx, s.db, prefix)
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.db, event)
}

func (s *PostgresStore) ListEvents(ctx context.Context, component string, limit int) ([]*model.Event, error) {
	return queryListEvents(ctx, s.db, component, limit)
}

// LockComponent outside a transaction would release immediately, so it
// runs the lock in its own short transaction only to wait for other holders.
func (s *PostgresStore) LockComponent(ctx context.Context, name string) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.LockComponent(ctx, name)
	})
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

// Ping is a no-op inside a transaction; the transaction holds a live connection.
func (s *txStore) Ping(ctx context.Context) error {
	return nil
}

func (s *txStore) TableExists(ctx context.Context, table string) (bool, error) {
	return queryTableExists(ctx, s.tx, table)
}

func (s *txStore) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	return queryColumnExists(ctx, s.tx, table, column)
}

func (s *txStore) Exec(ctx context.Context, stmt string, args ...any) error {
	return queryExec(ctx, s.tx, stmt, args...)
}

func (s *txStore) DropTable(ctx context.Context, table string) error {
	return queryDropTable(ctx, s.tx, table)
}

func (s *txStore) DumpTable(ctx context.Context, table string) ([]model.Row, error) {
	return queryDumpTable(ctx, s.tx, table)
}

func (s *txStore) RegisterComponent(ctx context.Context, c *model.Component) error {
	return queryRegisterComponent(ctx, s.tx, c)
}

func (s *txStore) GetComponent(ctx context.Context, name string) (*model.Component, error) {
	return queryGetComponent(ctx, s.tx, name)
}

func (s *txStore) ListComponents(ctx context.Context) ([]*model.Component, error) {
	return queryListComponents(ctx, s.tx)
}

func (s *txStore) SetComponentVersion(ctx context.Context, name, version string) error {
	return querySetComponentVersion(ctx, s.tx, name, version)
}

func (s *txStore) DeleteComponent(ctx context.Context, name string) error {
	return queryDeleteComponent(ctx, s.tx, name)
}

func (s *txStore) GetConfigValue(ctx context.Context, component, key string) (string, error) {
	return queryGetConfigValue(ctx, s.tx, component, key)
}

func (s *txStore) SetConfigValue(ctx context.Context, component, key, value string) error {
	return querySetConfigValue(ctx, s.tx, component, key, value)
}

func (s *txStore) GetParameter(ctx context.Context, component, section, name string) (*model.Parameter, error) {
	return queryGetParameter(ctx, s.tx, component, section, name)
}

func (s *txStore) SetParameter(ctx context.Context, component string, p *model.Parameter) error {
	return querySetParameter(ctx, s.tx, component, p)
}

func (s *txStore) ListParameters(ctx context.Context, component string, filter model.ParameterFilter) ([]*model.Parameter, error) {
	return queryListParameters(ctx, s.tx, component, filter)
}

func (s *txStore) DeleteParameter(ctx context.Context, component, section, name string) error {
	return queryDeleteParameter(ctx, s.tx, component, section, name)
}

func (s *txStore) InsertMenuLink(ctx context.Context, link *model.MenuLink) error {
	return queryInsertMenuLink(ctx, s.tx, link)
}

func (s *txStore) ListMenuLinks(ctx context.Context, prefix string) ([]*model.MenuLink, error) {
	return queryListMenuLinks(ctx, s.tx, prefix)
}

func (s *txStore) DeleteMenuLinks(ctx context.Context, prefix string) (int64, error) {
	return queryDeleteMenuLinks(ctx, s.tx, prefix)
}

func (s *txStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.tx, event)
}

func (s *txStore) ListEvents(ctx context.Context, component string, limit int) ([]*model.Event, error) {
	return queryListEvents(ctx, s.tx, component, limit)
}

func (s *txStore) LockComponent(ctx context.Context, name string) error {
	return queryLockComponent(ctx, s.tx, name)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
