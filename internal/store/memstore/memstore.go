// Package memstore is an in-memory store.Store used by tests of the lifecycle
// packages. It understands the DDL panelkit itself emits (CREATE TABLE IF NOT
// EXISTS, ALTER TABLE ... ADD COLUMN, DROP TABLE) and records every other
// statement verbatim.
package memstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/store"
)

var (
	createRe    = regexp.MustCompile(`(?is)^\s*CREATE TABLE IF NOT EXISTS "([^"]+)"\s*\((.*)\)\s*;?\s*$`)
	createColRe = regexp.MustCompile(`(?m)^\s*"([^"]+)"\s`)
	alterAddRe  = regexp.MustCompile(`(?is)^\s*ALTER TABLE "([^"]+)" ADD COLUMN "([^"]+)"`)
	dropRe      = regexp.MustCompile(`(?is)^\s*DROP TABLE IF EXISTS "([^"]+)"`)
)

type table struct {
	columns []string
	rows    []model.Row
}

func (t *table) clone() *table {
	c := &table{columns: append([]string(nil), t.columns...)}
	for _, r := range t.rows {
		nr := make(model.Row, len(r))
		for k, v := range r {
			nr[k] = v
		}
		c.rows = append(c.rows, nr)
	}
	return c
}

// Store is an in-memory store.Store. The exported fields inject failures.
type Store struct {
	mu         sync.Mutex
	tables     map[string]*table
	components map[string]*model.Component
	menu       []*model.MenuLink
	nextMenuID int64
	events     []*model.Event
	nextEvent  int64

	// Statements holds every statement passed to Exec, in order.
	Statements []string
	// Locks records LockComponent calls.
	Locks []string

	// FailExec, when set, is consulted before every Exec.
	FailExec func(stmt string) error
	// FailDrop maps table names to the error DropTable returns for them.
	FailDrop map[string]error
	// FailMenuInsertAt makes the n-th InsertMenuLink call (1-based) fail.
	FailMenuInsertAt int
	// FailDump maps table names to the error DumpTable returns for them.
	FailDump map[string]error
	// PingErr is returned by Ping.
	PingErr error

	menuInserts int
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New returns an empty store without the shared menu table.
func New() *Store {
	return &Store{
		tables:     make(map[string]*table),
		components: make(map[string]*model.Component),
		FailDrop:   make(map[string]error),
		FailDump:   make(map[string]error),
	}
}

// WithMenuTable creates the shared menu table and returns s.
func (s *Store) WithMenuTable() *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[model.MenuTable] = &table{}
	return s
}

// CreateTable registers an empty table with the given columns.
func (s *Store) CreateTable(name string, columns ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = &table{columns: columns}
}

// InsertRow appends a raw row to an existing table.
func (s *Store) InsertRow(name string, row model.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return missingRelation(name)
	}
	t.rows = append(t.rows, row)
	return nil
}

// Tables returns the names of existing tables, sorted.
func (s *Store) Tables() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tables))
	for n := range s.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Columns returns the columns of a table, or nil when it does not exist.
func (s *Store) Columns(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tables[name]; ok {
		return append([]string(nil), t.columns...)
	}
	return nil
}

// MenuLinks returns every stored menu link.
func (s *Store) MenuLinks() []*model.MenuLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.MenuLink(nil), s.menu...)
}

func missingRelation(name string) error {
	return fmt.Errorf("pq: relation %q does not exist", name)
}

func (s *Store) Ping(context.Context) error { return s.PingErr }

func (s *Store) TableExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[name]
	return ok, nil
}

func (s *Store) ColumnExists(_ context.Context, name, column string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return false, nil
	}
	for _, c := range t.columns {
		if c == column {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Exec(_ context.Context, stmt string, _ ...any) error {
	if s.FailExec != nil {
		if err := s.FailExec(stmt); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Statements = append(s.Statements, stmt)

	if m := createRe.FindStringSubmatch(stmt); m != nil {
		if _, ok := s.tables[m[1]]; ok {
			return nil
		}
		t := &table{}
		for _, c := range createColRe.FindAllStringSubmatch(m[2], -1) {
			t.columns = append(t.columns, c[1])
		}
		s.tables[m[1]] = t
		return nil
	}
	if m := alterAddRe.FindStringSubmatch(stmt); m != nil {
		t, ok := s.tables[m[1]]
		if !ok {
			return missingRelation(m[1])
		}
		for _, c := range t.columns {
			if c == m[2] {
				return fmt.Errorf("pq: column %q of relation %q already exists", m[2], m[1])
			}
		}
		t.columns = append(t.columns, m[2])
		return nil
	}
	if m := dropRe.FindStringSubmatch(stmt); m != nil {
		s.dropLocked(m[1])
	}
	return nil
}

func (s *Store) dropLocked(name string) {
	delete(s.tables, name)
	if name == model.MenuTable {
		s.menu = nil
	}
}

func (s *Store) DropTable(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailDrop[name]; err != nil {
		return err
	}
	s.dropLocked(name)
	return nil
}

func (s *Store) DumpTable(_ context.Context, name string) ([]model.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailDump[name]; err != nil {
		return nil, err
	}
	t, ok := s.tables[name]
	if !ok {
		return nil, missingRelation(name)
	}
	return t.clone().rows, nil
}

func (s *Store) RegisterComponent(_ context.Context, c *model.Component) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := s.components[c.Name]; ok {
		existing.BaseConfig = c.BaseConfig
		existing.UpdatedAt = now
		c.Version, c.InstalledAt, c.UpdatedAt = existing.Version, existing.InstalledAt, now
		return nil
	}
	cp := *c
	cp.InstalledAt, cp.UpdatedAt = now, now
	s.components[c.Name] = &cp
	c.InstalledAt, c.UpdatedAt = now, now
	return nil
}

func (s *Store) GetComponent(_ context.Context, name string) (*model.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.components[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListComponents(context.Context) ([]*model.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Component
	for _, c := range s.components {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SetComponentVersion(_ context.Context, name, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.components[name]
	if !ok {
		return sql.ErrNoRows
	}
	c.Version = version
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeleteComponent(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.components[name]; !ok {
		return sql.ErrNoRows
	}
	delete(s.components, name)
	return nil
}

func (s *Store) GetConfigValue(_ context.Context, component, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := model.ConfigTable(component)
	t, ok := s.tables[name]
	if !ok {
		return "", missingRelation(name)
	}
	for _, r := range t.rows {
		if r["key"] == key {
			v, _ := r["value"].(string)
			return v, nil
		}
	}
	return "", sql.ErrNoRows
}

func (s *Store) SetConfigValue(_ context.Context, component, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := model.ConfigTable(component)
	t, ok := s.tables[name]
	if !ok {
		return missingRelation(name)
	}
	now := time.Now().UTC()
	for _, r := range t.rows {
		if r["key"] == key {
			r["value"] = value
			r["updated_at"] = now
			return nil
		}
	}
	t.rows = append(t.rows, model.Row{"key": key, "value": value, "updated_at": now})
	return nil
}

func paramFromRow(r model.Row) *model.Parameter {
	p := &model.Parameter{}
	p.Section, _ = r["section"].(string)
	p.Name, _ = r["parameter_name"].(string)
	p.Value, _ = r["value"].(string)
	p.Description, _ = r["description"].(string)
	if v, ok := r["min_range"].(float64); ok {
		p.MinRange = &v
	}
	if v, ok := r["max_range"].(float64); ok {
		p.MaxRange = &v
	}
	vt, _ := r["value_type"].(string)
	p.ValueType = model.ValueType(vt)
	p.UpdatedAt, _ = r["updated_at"].(time.Time)
	return p
}

func (s *Store) paramTable(component string) (*table, error) {
	name := model.ParametersTable(component)
	t, ok := s.tables[name]
	if !ok {
		return nil, missingRelation(name)
	}
	return t, nil
}

func (s *Store) GetParameter(_ context.Context, component, section, name string) (*model.Parameter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.paramTable(component)
	if err != nil {
		return nil, err
	}
	for _, r := range t.rows {
		if r["section"] == section && r["parameter_name"] == name {
			return paramFromRow(r), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *Store) SetParameter(_ context.Context, component string, p *model.Parameter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.paramTable(component)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	p.UpdatedAt = now
	for _, r := range t.rows {
		if r["section"] == p.Section && r["parameter_name"] == p.Name {
			r["value"] = p.Value
			if p.Description != "" {
				r["description"] = p.Description
			}
			if p.MinRange != nil {
				r["min_range"] = *p.MinRange
			}
			if p.MaxRange != nil {
				r["max_range"] = *p.MaxRange
			}
			if p.ValueType != "" {
				r["value_type"] = string(p.ValueType)
			}
			r["updated_at"] = now
			return nil
		}
	}
	r := model.Row{
		"section":        p.Section,
		"parameter_name": p.Name,
		"value":          p.Value,
		"description":    nil,
		"min_range":      nil,
		"max_range":      nil,
		"value_type":     string(p.ValueType),
		"updated_at":     now,
	}
	if p.Description != "" {
		r["description"] = p.Description
	}
	if p.MinRange != nil {
		r["min_range"] = *p.MinRange
	}
	if p.MaxRange != nil {
		r["max_range"] = *p.MaxRange
	}
	t.rows = append(t.rows, r)
	return nil
}

func (s *Store) ListParameters(_ context.Context, component string, filter model.ParameterFilter) ([]*model.Parameter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.paramTable(component)
	if err != nil {
		return nil, err
	}
	var out []*model.Parameter
	for _, r := range t.rows {
		p := paramFromRow(r)
		if filter.Section != "" && p.Section != filter.Section {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Section != out[j].Section {
			return out[i].Section < out[j].Section
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) DeleteParameter(_ context.Context, component, section, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.paramTable(component)
	if err != nil {
		return err
	}
	for i, r := range t.rows {
		if r["section"] == section && r["parameter_name"] == name {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *Store) InsertMenuLink(_ context.Context, link *model.MenuLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[model.MenuTable]; !ok {
		return missingRelation(model.MenuTable)
	}
	s.menuInserts++
	if s.FailMenuInsertAt > 0 && s.menuInserts == s.FailMenuInsertAt {
		return fmt.Errorf("pq: insert into %s failed", model.MenuTable)
	}
	s.nextMenuID++
	link.ID = s.nextMenuID
	cp := *link
	s.menu = append(s.menu, &cp)
	return nil
}

func (s *Store) ListMenuLinks(_ context.Context, prefix string) ([]*model.MenuLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[model.MenuTable]; !ok {
		return nil, missingRelation(model.MenuTable)
	}
	var out []*model.MenuLink
	for _, l := range s.menu {
		if strings.HasPrefix(l.PageIdentifier, prefix) {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MenuOrder != out[j].MenuOrder {
			return out[i].MenuOrder < out[j].MenuOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteMenuLinks(_ context.Context, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[model.MenuTable]; !ok {
		return 0, missingRelation(model.MenuTable)
	}
	var kept []*model.MenuLink
	var n int64
	for _, l := range s.menu {
		if strings.HasPrefix(l.PageIdentifier, prefix) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	s.menu = kept
	return n, nil
}

func (s *Store) RecordEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEvent++
	e.ID = s.nextEvent
	e.CreatedAt = time.Now().UTC()
	cp := *e
	s.events = append(s.events, &cp)
	return nil
}

func (s *Store) ListEvents(_ context.Context, component string, limit int) ([]*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	var out []*model.Event
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].Component == component {
			cp := *s.events[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) LockComponent(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Locks = append(s.Locks, name)
	return nil
}

// RunInTransaction snapshots the store and restores it when fn fails.
func (s *Store) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	s.mu.Lock()
	saved := s.snapshotLocked()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.restoreLocked(saved)
		s.mu.Unlock()
		return err
	}
	return nil
}

type state struct {
	tables     map[string]*table
	components map[string]*model.Component
	menu       []*model.MenuLink
	nextMenuID int64
	events     []*model.Event
}

func (s *Store) snapshotLocked() state {
	st := state{
		tables:     make(map[string]*table, len(s.tables)),
		components: make(map[string]*model.Component, len(s.components)),
		nextMenuID: s.nextMenuID,
		events:     append([]*model.Event(nil), s.events...),
	}
	for n, t := range s.tables {
		st.tables[n] = t.clone()
	}
	for n, c := range s.components {
		cp := *c
		st.components[n] = &cp
	}
	for _, l := range s.menu {
		cp := *l
		st.menu = append(st.menu, &cp)
	}
	return st
}

func (s *Store) restoreLocked(st state) {
	s.tables = st.tables
	s.components = st.components
	s.menu = st.menu
	s.nextMenuID = st.nextMenuID
	s.events = st.events
}

func (s *Store) Close() error { return nil }
