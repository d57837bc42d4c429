// Package migrate applies a component's versioned schema migrations in
// ascending semver order, at most once each, recording the current version
// in the component's config table.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/alfredjeanlab/panelkit/internal/events"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/store"
)

// VersionKey is the config-table key holding the current schema version.
const VersionKey = "version"

// BaseVersion is the version of a component with no recorded version.
const BaseVersion = "0.0.0"

// Step is one unit of migration work, run inside the migration's transaction.
type Step func(ctx context.Context, s store.Store) error

// Migration upgrades a component to Version.
type Migration struct {
	Version     string
	Description string
	Up          Step
}

// canonical turns "1.2.0" or "v1.2.0" into the "v"-prefixed form semver expects.
func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// ValidVersion reports whether v is a semantic version, with or without "v".
func ValidVersion(v string) bool {
	return semver.IsValid(canonical(v))
}

// Compare compares two versions like semver.Compare, accepting either form.
func Compare(a, b string) int {
	return semver.Compare(canonical(a), canonical(b))
}

// Sorted validates the list and returns a copy in ascending version order.
func Sorted(migrations []Migration) ([]Migration, error) {
	out := append([]Migration(nil), migrations...)
	seen := make(map[string]bool, len(out))
	for _, m := range out {
		if !ValidVersion(m.Version) {
			return nil, fmt.Errorf("invalid migration version %q", m.Version)
		}
		key := semver.Canonical(canonical(m.Version))
		if seen[key] {
			return nil, fmt.Errorf("duplicate migration version %q", m.Version)
		}
		seen[key] = true
		if m.Up == nil {
			return nil, fmt.Errorf("migration %s has no steps", m.Version)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Compare(out[i].Version, out[j].Version) < 0
	})
	return out, nil
}

// Latest returns the highest version in the list, or BaseVersion when empty.
func Latest(migrations []Migration) string {
	latest := BaseVersion
	for _, m := range migrations {
		if ValidVersion(m.Version) && Compare(m.Version, latest) > 0 {
			latest = m.Version
		}
	}
	return latest
}

// Runner applies migrations through a store.
type Runner struct {
	store   store.Store
	emitter *events.Emitter
	logger  *slog.Logger
}

// NewRunner returns a Runner. emitter and logger may be nil.
func NewRunner(s store.Store, emitter *events.Emitter, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{store: s, emitter: emitter, logger: logger}
}

// CurrentVersion reads the recorded version; a component with none is at BaseVersion.
func CurrentVersion(ctx context.Context, s store.Store, component string) (string, error) {
	v, err := s.GetConfigValue(ctx, component, VersionKey)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && v == "") {
		return BaseVersion, nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s version: %w", component, err)
	}
	return v, nil
}

// SetVersion records v in the config table and mirrors it to the registry
// when the component is registered.
func SetVersion(ctx context.Context, s store.Store, component, v string) error {
	if err := s.SetConfigValue(ctx, component, VersionKey, v); err != nil {
		return fmt.Errorf("record version %s: %w", v, err)
	}
	if err := s.SetComponentVersion(ctx, component, v); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update registry version: %w", err)
	}
	return nil
}

// Run applies every migration newer than the recorded version. Each
// migration runs in its own transaction together with its version bump,
// under a per-component lock, and the version is re-read inside the lock so
// concurrent runners never apply the same migration twice. The first
// failure stops the run; earlier migrations stay applied.
func (r *Runner) Run(ctx context.Context, component string, migrations []Migration) *model.MigrationResult {
	res := &model.MigrationResult{Component: component, Applied: []string{}, Errors: []string{}}

	sorted, err := Sorted(migrations)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	current, err := CurrentVersion(ctx, r.store, component)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	if !ValidVersion(current) {
		res.Errors = append(res.Errors, fmt.Sprintf("recorded version %q is not a semantic version", current))
		res.StartVersion, res.FinalVersion = current, current
		return res
	}
	res.StartVersion, res.FinalVersion = current, current

	for _, m := range sorted {
		if Compare(current, m.Version) >= 0 {
			continue
		}

		applied := false
		err := r.store.RunInTransaction(ctx, func(tx store.Store) error {
			if err := tx.LockComponent(ctx, component); err != nil {
				return err
			}
			locked, err := CurrentVersion(ctx, tx, component)
			if err != nil {
				return err
			}
			if Compare(locked, m.Version) >= 0 {
				current = locked
				return nil
			}
			if err := m.Up(ctx, tx); err != nil {
				return err
			}
			if err := SetVersion(ctx, tx, component, m.Version); err != nil {
				return err
			}
			applied = true
			return nil
		})
		if err != nil {
			r.logger.Error("migration failed", "component", component, "version", m.Version, "err", err)
			res.Errors = append(res.Errors, fmt.Sprintf("migration %s failed: %v", m.Version, err))
			break
		}
		if !applied {
			r.logger.Info("migration already applied", "component", component, "version", m.Version)
			res.FinalVersion = current
			continue
		}

		r.logger.Info("migration applied", "component", component, "version", m.Version, "description", m.Description)
		current = m.Version
		res.FinalVersion = current
		res.Applied = append(res.Applied, m.Version)
	}

	if len(res.Applied) > 0 {
		r.emitter.Emit(ctx, events.TopicComponentMigrated, component, events.ComponentMigrated{
			From:    res.StartVersion,
			To:      res.FinalVersion,
			Applied: res.Applied,
		})
	}
	return res
}
