// Package params is the per-component section/name/value settings store.
// Values are stored and returned as text; the stored value_type is only a
// rendering hint.
package params

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/store"
)

// MaxListed bounds List. Settings are shown all at once, so a component
// with more rows than this is treated as misconfigured.
const MaxListed = 1000

// ErrTooMany is returned by List when more than MaxListed rows match.
var ErrTooMany = fmt.Errorf("more than %d parameters", MaxListed)

// Option adjusts a Set call.
type Option func(*model.Parameter)

// WithDescription sets the parameter description.
func WithDescription(d string) Option {
	return func(p *model.Parameter) { p.Description = d }
}

// WithRange sets both bounds of the numeric rendering range.
func WithRange(lo, hi float64) Option {
	return func(p *model.Parameter) {
		p.MinRange = &lo
		p.MaxRange = &hi
	}
}

// WithMin sets the lower bound only; a stored upper bound is kept.
func WithMin(lo float64) Option {
	return func(p *model.Parameter) { p.MinRange = &lo }
}

// WithMax sets the upper bound only; a stored lower bound is kept.
func WithMax(hi float64) Option {
	return func(p *model.Parameter) { p.MaxRange = &hi }
}

// WithType stores an explicit value type. Without it a new parameter gets
// an inferred type and an existing one keeps its stored type.
func WithType(vt model.ValueType) Option {
	return func(p *model.Parameter) { p.ValueType = vt }
}

// Store reads and writes one component's parameters.
type Store struct {
	store     store.Store
	component string
}

// New returns the parameter store of component.
func New(s store.Store, component string) *Store {
	return &Store{store: s, component: component}
}

// Component returns the component this store is bound to.
func (s *Store) Component() string {
	return s.component
}

// Get returns the stored value, or def when the row does not exist.
func (s *Store) Get(ctx context.Context, section, name, def string) (string, error) {
	p, err := s.store.GetParameter(ctx, s.component, section, name)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("get parameter %s/%s: %w", section, name, err)
	}
	return p.Value, nil
}

// Lookup returns the full parameter record, or sql.ErrNoRows.
func (s *Store) Lookup(ctx context.Context, section, name string) (*model.Parameter, error) {
	return s.store.GetParameter(ctx, s.component, section, name)
}

// Set upserts the value. Description, range bounds and type are
// overwritten only when given.
func (s *Store) Set(ctx context.Context, section, name, value string, opts ...Option) (bool, error) {
	p := &model.Parameter{Section: section, Name: name, Value: value}
	for _, opt := range opts {
		opt(p)
	}
	return s.Put(ctx, p)
}

// Put upserts p. An empty ValueType keeps the stored type, and is inferred
// from name and value only when the row is new or its type is unset.
func (s *Store) Put(ctx context.Context, p *model.Parameter) (bool, error) {
	prev, err := s.store.GetParameter(ctx, s.component, p.Section, p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		prev, err = nil, nil
	}
	if err != nil {
		return false, fmt.Errorf("set parameter %s/%s: %w", p.Section, p.Name, err)
	}
	if p.ValueType == "" {
		if prev != nil && prev.ValueType.IsValid() {
			p.ValueType = prev.ValueType
		} else {
			p.ValueType = model.InferValueType(p.Name, p.Value)
		}
	}
	if err := model.ValidateParameter(withStoredRange(p, prev)); err != nil {
		return false, err
	}
	if err := s.store.SetParameter(ctx, s.component, p); err != nil {
		return false, fmt.Errorf("set parameter %s/%s: %w", p.Section, p.Name, err)
	}
	return true, nil
}

// withStoredRange fills the bounds p leaves unset from prev, so that a
// one-sided update is validated against the bound that stays stored.
func withStoredRange(p, prev *model.Parameter) *model.Parameter {
	if prev == nil || (p.MinRange != nil && p.MaxRange != nil) {
		return p
	}
	merged := *p
	if merged.MinRange == nil {
		merged.MinRange = prev.MinRange
	}
	if merged.MaxRange == nil {
		merged.MaxRange = prev.MaxRange
	}
	return &merged
}

// List returns parameters ordered by section then name.
func (s *Store) List(ctx context.Context, filter model.ParameterFilter) ([]*model.Parameter, error) {
	list, err := s.store.ListParameters(ctx, s.component, filter)
	if err != nil {
		return nil, fmt.Errorf("list parameters: %w", err)
	}
	if len(list) > MaxListed {
		return nil, ErrTooMany
	}
	return list, nil
}

// Delete removes one parameter. Deleting a missing parameter returns sql.ErrNoRows.
func (s *Store) Delete(ctx context.Context, section, name string) error {
	return s.store.DeleteParameter(ctx, s.component, section, name)
}

// Hint returns the widget type for p, inferring it for rows written before
// value_type was stored.
func Hint(p *model.Parameter) model.ValueType {
	if p.ValueType.IsValid() {
		return p.ValueType
	}
	return model.InferValueType(p.Name, p.Value)
}

// Group splits an ordered list into sections, preserving order.
func Group(list []*model.Parameter) []Section {
	var out []Section
	for _, p := range list {
		if len(out) == 0 || out[len(out)-1].Name != p.Section {
			out = append(out, Section{Name: p.Section})
		}
		last := &out[len(out)-1]
		last.Parameters = append(last.Parameters, p)
	}
	return out
}

// Section is one display group of parameters.
type Section struct {
	Name       string             `json:"section"`
	Parameters []*model.Parameter `json:"parameters"`
}
