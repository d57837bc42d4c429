// Package component describes installable components: their tables, menu,
// default parameters and migrations.
package component

import (
	"fmt"
	"strings"

	"github.com/alfredjeanlab/panelkit/internal/menu"
	"github.com/alfredjeanlab/panelkit/internal/migrate"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/schema"
)

// Definition is everything panelkit needs to install, migrate and remove a
// component. Tables lists only component-specific tables; the config and
// parameters tables are implied.
type Definition struct {
	Name        string
	Title       string
	Description string
	Tables      []schema.Table
	Menu        menu.Menu
	Parameters  []model.Parameter
	Migrations  []migrate.Migration
}

// CoreTables returns the config and parameters tables every component owns.
func CoreTables(name string) []schema.Table {
	return []schema.Table{
		{
			Name: model.ConfigTable(name),
			Columns: []schema.Column{
				{Name: "key", Definition: "VARCHAR(100) PRIMARY KEY"},
				{Name: "value", Definition: "TEXT"},
				{Name: "updated_at", Definition: "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
			},
		},
		{
			Name: model.ParametersTable(name),
			Columns: []schema.Column{
				{Name: "id", Definition: "BIGSERIAL PRIMARY KEY"},
				{Name: "section", Definition: "VARCHAR(100) NOT NULL"},
				{Name: "parameter_name", Definition: "VARCHAR(100) NOT NULL"},
				{Name: "value", Definition: "TEXT NOT NULL DEFAULT ''"},
				{Name: "description", Definition: "TEXT"},
				{Name: "min_range", Definition: "DOUBLE PRECISION"},
				{Name: "max_range", Definition: "DOUBLE PRECISION"},
				{Name: "value_type", Definition: "VARCHAR(16) NOT NULL DEFAULT 'text'"},
				{Name: "updated_at", Definition: "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
			},
			Unique: [][]string{{"section", "parameter_name"}},
		},
	}
}

// AllTables returns the core tables followed by the declared tables.
func (d *Definition) AllTables() []schema.Table {
	return append(CoreTables(d.Name), d.Tables...)
}

// LatestVersion is the version a fresh install starts at: the highest
// migration version, or 1.0.0 for components without migrations.
func (d *Definition) LatestVersion() string {
	if len(d.Migrations) == 0 {
		return "1.0.0"
	}
	return migrate.Latest(d.Migrations)
}

// Validate checks the definition is internally consistent.
func (d *Definition) Validate() error {
	if err := model.ValidateComponentName(d.Name); err != nil {
		return err
	}
	prefix := model.NamespacePrefix(d.Name)
	core := map[string]bool{model.ConfigTable(d.Name): true, model.ParametersTable(d.Name): true}
	for _, t := range d.Tables {
		if !strings.HasPrefix(t.Name, prefix) {
			return fmt.Errorf("component %s: table %q is outside the %s namespace", d.Name, t.Name, prefix)
		}
		if core[t.Name] {
			return fmt.Errorf("component %s: table %q is reserved", d.Name, t.Name)
		}
	}
	if err := schema.Validate(d.AllTables()); err != nil {
		return fmt.Errorf("component %s: %w", d.Name, err)
	}
	if err := d.Menu.Validate(); err != nil {
		return fmt.Errorf("component %s: %w", d.Name, err)
	}
	seen := make(map[string]bool, len(d.Parameters))
	for i := range d.Parameters {
		p := &d.Parameters[i]
		if err := model.ValidateParameter(p); err != nil {
			return fmt.Errorf("component %s: default parameter %d: %w", d.Name, i, err)
		}
		key := p.Section + "\x00" + p.Name
		if seen[key] {
			return fmt.Errorf("component %s: duplicate default parameter %s/%s", d.Name, p.Section, p.Name)
		}
		seen[key] = true
	}
	if _, err := migrate.Sorted(d.Migrations); err != nil {
		return fmt.Errorf("component %s: %w", d.Name, err)
	}
	return nil
}
