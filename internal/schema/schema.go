// Package schema declares component tables and their foreign-key graph, and
// derives creation and drop order from that graph.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
)

// ErrCycle is returned when the foreign-key graph cannot be ordered.
var ErrCycle = errors.New("foreign key cycle")

// Column is a single column definition, e.g. {"id", "BIGSERIAL PRIMARY KEY"}.
type Column struct {
	Name       string `toml:"name" yaml:"name" json:"name"`
	Definition string `toml:"definition" yaml:"definition" json:"definition"`
}

// ForeignKey references another table. RefTable may name a table outside the
// declared set (e.g. a shared users table); such edges do not affect ordering.
type ForeignKey struct {
	Columns    []string `toml:"columns" yaml:"columns" json:"columns"`
	RefTable   string   `toml:"ref_table" yaml:"ref_table" json:"ref_table"`
	RefColumns []string `toml:"ref_columns" yaml:"ref_columns" json:"ref_columns"`
	OnDelete   string   `toml:"on_delete" yaml:"on_delete" json:"on_delete,omitempty"`
}

// Table is a declared component table.
type Table struct {
	Name        string       `toml:"name" yaml:"name" json:"name"`
	Columns     []Column     `toml:"columns" yaml:"columns" json:"columns"`
	Unique      [][]string   `toml:"unique" yaml:"unique" json:"unique,omitempty"`
	ForeignKeys []ForeignKey `toml:"foreign_keys" yaml:"foreign_keys" json:"foreign_keys,omitempty"`
}

// References returns the distinct tables t points at, excluding itself.
func (t Table) References() []string {
	seen := make(map[string]bool)
	var refs []string
	for _, fk := range t.ForeignKeys {
		if fk.RefTable == t.Name || seen[fk.RefTable] {
			continue
		}
		seen[fk.RefTable] = true
		refs = append(refs, fk.RefTable)
	}
	return refs
}

// CreateSQL renders an idempotent CREATE TABLE statement.
func (t Table) CreateSQL() string {
	var parts []string
	for _, c := range t.Columns {
		parts = append(parts, pq.QuoteIdentifier(c.Name)+" "+c.Definition)
	}
	for _, u := range t.Unique {
		parts = append(parts, "UNIQUE ("+quoteList(u)+")")
	}
	for _, fk := range t.ForeignKeys {
		clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteList(fk.Columns), pq.QuoteIdentifier(fk.RefTable), quoteList(fk.RefColumns))
		if fk.OnDelete != "" {
			clause += " ON DELETE " + strings.ToUpper(fk.OnDelete)
		}
		parts = append(parts, clause)
	}
	return "CREATE TABLE IF NOT EXISTS " + pq.QuoteIdentifier(t.Name) +
		" (\n\t" + strings.Join(parts, ",\n\t") + "\n)"
}

// Validate checks structural consistency of a set of tables.
func Validate(tables []Table) error {
	names := make(map[string]bool, len(tables))
	for _, t := range tables {
		if t.Name == "" {
			return errors.New("table name is required")
		}
		if names[t.Name] {
			return fmt.Errorf("duplicate table %q", t.Name)
		}
		names[t.Name] = true
		if len(t.Columns) == 0 {
			return fmt.Errorf("table %q has no columns", t.Name)
		}
		cols := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			cols[c.Name] = true
		}
		for _, fk := range t.ForeignKeys {
			if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) {
				return fmt.Errorf("table %q: foreign key to %q has mismatched columns", t.Name, fk.RefTable)
			}
			for _, c := range fk.Columns {
				if !cols[c] {
					return fmt.Errorf("table %q: foreign key column %q not declared", t.Name, c)
				}
			}
		}
	}
	return nil
}

// CreateOrder returns table names so that every table follows the tables it
// references. Ties keep declaration order.
func CreateOrder(tables []Table) ([]string, error) {
	index := make(map[string]int, len(tables))
	for i, t := range tables {
		index[t.Name] = i
	}

	// pending[t] counts in-set tables t still waits for.
	pending := make(map[string]int, len(tables))
	dependents := make(map[string][]string)
	for _, t := range tables {
		for _, ref := range t.References() {
			if _, ok := index[ref]; !ok {
				continue
			}
			pending[t.Name]++
			dependents[ref] = append(dependents[ref], t.Name)
		}
	}

	var ready []string
	for _, t := range tables {
		if pending[t.Name] == 0 {
			ready = append(ready, t.Name)
		}
	}

	order := make([]string, 0, len(tables))
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return index[ready[i]] < index[ready[j]] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, d := range dependents[next] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(order) != len(tables) {
		var stuck []string
		for _, t := range tables {
			if pending[t.Name] > 0 {
				stuck = append(stuck, t.Name)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(stuck, ", "))
	}
	return order, nil
}

// DropOrder returns table names so that referencing (child) tables are
// dropped before the tables they reference.
func DropOrder(tables []Table) ([]string, error) {
	order, err := CreateOrder(tables)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// Names returns the table names in declaration order.
func Names(tables []Table) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}

func quoteList(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(q, ", ")
}
