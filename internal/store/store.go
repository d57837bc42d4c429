package store

import (
	"context"

	"github.com/alfredjeanlab/panelkit/internal/model"
)

// Store defines the persistence interface for component lifecycle state.
// Component-scoped methods derive table names from the component namespace
// ("{component}_config", "{component}_parameters"); callers must pass a name
// that passed model.ValidateComponentName.
type Store interface {
	// Connectivity
	Ping(ctx context.Context) error

	// Schema introspection and DDL
	TableExists(ctx context.Context, table string) (bool, error)
	ColumnExists(ctx context.Context, table, column string) (bool, error)
	Exec(ctx context.Context, stmt string, args ...any) error
	DropTable(ctx context.Context, table string) error
	DumpTable(ctx context.Context, table string) ([]model.Row, error)

	// Component registry
	RegisterComponent(ctx context.Context, c *model.Component) error
	GetComponent(ctx context.Context, name string) (*model.Component, error)
	ListComponents(ctx context.Context) ([]*model.Component, error)
	SetComponentVersion(ctx context.Context, name, version string) error
	DeleteComponent(ctx context.Context, name string) error

	// Component config table (key/value, e.g. "version")
	GetConfigValue(ctx context.Context, component, key string) (string, error)
	SetConfigValue(ctx context.Context, component, key, value string) error

	// Parameters
	GetParameter(ctx context.Context, component, section, name string) (*model.Parameter, error)
	SetParameter(ctx context.Context, component string, p *model.Parameter) error
	ListParameters(ctx context.Context, component string, filter model.ParameterFilter) ([]*model.Parameter, error)
	DeleteParameter(ctx context.Context, component, section, name string) error

	// Menu links (shared menu_system_menus table)
	InsertMenuLink(ctx context.Context, link *model.MenuLink) error
	ListMenuLinks(ctx context.Context, prefix string) ([]*model.MenuLink, error)
	DeleteMenuLinks(ctx context.Context, prefix string) (int64, error)

	// Lifecycle events
	RecordEvent(ctx context.Context, event *model.Event) error
	ListEvents(ctx context.Context, component string, limit int) ([]*model.Event, error)

	// Locking: held until the surrounding transaction ends.
	LockComponent(ctx context.Context, name string) error

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
