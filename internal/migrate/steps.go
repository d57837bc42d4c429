package migrate

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/panelkit/internal/schema"
	"github.com/alfredjeanlab/panelkit/internal/store"
)

// AddColumn adds a column unless it already exists, so a migration that
// failed halfway can be re-run.
func AddColumn(table, column, definition string) Step {
	return func(ctx context.Context, s store.Store) error {
		exists, err := s.ColumnExists(ctx, table, column)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			pq.QuoteIdentifier(table), pq.QuoteIdentifier(column), definition)
		if err := s.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, column, err)
		}
		return nil
	}
}

// CreateTable creates a declared table if it does not exist.
func CreateTable(t schema.Table) Step {
	return func(ctx context.Context, s store.Store) error {
		if err := s.Exec(ctx, t.CreateSQL()); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
		return nil
	}
}

// Exec runs raw statements in order.
func Exec(stmts ...string) Step {
	return func(ctx context.Context, s store.Store) error {
		for _, stmt := range stmts {
			if err := s.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

// Steps runs several steps in order.
func Steps(steps ...Step) Step {
	return func(ctx context.Context, s store.Store) error {
		for _, step := range steps {
			if err := step(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}
}
