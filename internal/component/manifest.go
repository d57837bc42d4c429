package component

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/panelkit/internal/menu"
	"github.com/alfredjeanlab/panelkit/internal/migrate"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/schema"
)

// ManifestNames are the file names LoadDir looks for in each component
// directory, in order of preference.
var ManifestNames = []string{"component.toml", "component.yaml", "component.yml"}

// Manifest is the on-disk form of a Definition.
type Manifest struct {
	Name        string              `toml:"name" yaml:"name"`
	Title       string              `toml:"title" yaml:"title"`
	Description string              `toml:"description" yaml:"description"`
	Tables      []schema.Table      `toml:"tables" yaml:"tables"`
	Menu        menu.Menu           `toml:"menu" yaml:"menu"`
	Parameters  []ManifestParameter `toml:"parameters" yaml:"parameters"`
	Migrations  []ManifestMigration `toml:"migrations" yaml:"migrations"`
}

// ManifestParameter is a default parameter row.
type ManifestParameter struct {
	Section     string   `toml:"section" yaml:"section"`
	Name        string   `toml:"parameter_name" yaml:"parameter_name"`
	Value       string   `toml:"value" yaml:"value"`
	Description string   `toml:"description" yaml:"description"`
	ValueType   string   `toml:"value_type" yaml:"value_type"`
	MinRange    *float64 `toml:"min_range" yaml:"min_range"`
	MaxRange    *float64 `toml:"max_range" yaml:"max_range"`
}

// ManifestMigration is expressed declaratively: columns to add (guarded)
// and then raw SQL statements.
type ManifestMigration struct {
	Version     string              `toml:"version" yaml:"version"`
	Description string              `toml:"description" yaml:"description"`
	AddColumns  []ManifestAddColumn `toml:"add_columns" yaml:"add_columns"`
	SQL         []string            `toml:"sql" yaml:"sql"`
}

// ManifestAddColumn is one guarded ALTER TABLE ... ADD COLUMN.
type ManifestAddColumn struct {
	Table      string `toml:"table" yaml:"table"`
	Column     string `toml:"column" yaml:"column"`
	Definition string `toml:"definition" yaml:"definition"`
}

// Definition converts the manifest.
func (m *Manifest) Definition() (*Definition, error) {
	d := &Definition{
		Name:        m.Name,
		Title:       m.Title,
		Description: m.Description,
		Tables:      m.Tables,
		Menu:        m.Menu,
	}
	if d.Title == "" {
		d.Title = m.Name
	}
	if d.Menu.Heading == "" {
		d.Menu.Heading = d.Title
	}
	for _, p := range m.Parameters {
		d.Parameters = append(d.Parameters, model.Parameter{
			Section:     p.Section,
			Name:        p.Name,
			Value:       p.Value,
			Description: p.Description,
			ValueType:   model.ValueType(p.ValueType),
			MinRange:    p.MinRange,
			MaxRange:    p.MaxRange,
		})
	}
	for _, mm := range m.Migrations {
		if len(mm.AddColumns) == 0 && len(mm.SQL) == 0 {
			return nil, fmt.Errorf("migration %s has no steps", mm.Version)
		}
		var steps []migrate.Step
		for _, ac := range mm.AddColumns {
			if ac.Table == "" || ac.Column == "" || ac.Definition == "" {
				return nil, fmt.Errorf("migration %s: add_columns needs table, column and definition", mm.Version)
			}
			steps = append(steps, migrate.AddColumn(ac.Table, ac.Column, ac.Definition))
		}
		if len(mm.SQL) > 0 {
			steps = append(steps, migrate.Exec(mm.SQL...))
		}
		d.Migrations = append(d.Migrations, migrate.Migration{
			Version:     mm.Version,
			Description: mm.Description,
			Up:          migrate.Steps(steps...),
		})
	}
	return d, nil
}

// ParseManifest decodes a manifest; format is chosen by file extension.
func ParseManifest(path string, data []byte) (*Manifest, error) {
	var m Manifest
	switch filepath.Ext(path) {
	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&m)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse %s: unknown key %s", path, undecoded[0])
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("parse %s: unsupported manifest format", path)
	}
	return &m, nil
}

// LoadManifest reads and converts one manifest file.
func LoadManifest(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(path, data)
	if err != nil {
		return nil, err
	}
	d, err := m.Definition()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// LoadDir registers every manifest found in the immediate subdirectories of
// dir ("{dir}/{name}/component.toml"). A missing dir is not an error. The
// manifest's name must match its directory.
func (c *Catalog) LoadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read components dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	var loaded []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		for _, name := range ManifestNames {
			path := filepath.Join(dir, e.Name(), name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			d, err := LoadManifest(path)
			if err != nil {
				return loaded, err
			}
			if d.Name != e.Name() {
				return loaded, fmt.Errorf("%s: name %q does not match directory %q", path, d.Name, e.Name())
			}
			if err := c.Register(d); err != nil {
				return loaded, fmt.Errorf("%s: %w", path, err)
			}
			loaded = append(loaded, d.Name)
			break
		}
	}
	return loaded, nil
}
