// Package uninstall removes an installed component: backup, menu links,
// tables, registry row and config file, in that order.
package uninstall

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/panelkit/internal/backup"
	"github.com/alfredjeanlab/panelkit/internal/component"
	"github.com/alfredjeanlab/panelkit/internal/config"
	"github.com/alfredjeanlab/panelkit/internal/events"
	"github.com/alfredjeanlab/panelkit/internal/menu"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/schema"
	"github.com/alfredjeanlab/panelkit/internal/store"
)

// ErrNotConfirmed is reported when neither Confirm, Silent nor Auto is set.
var ErrNotConfirmed = errors.New("uninstall not confirmed")

// Options selects the invocation surface. Silent and Auto both imply
// confirmation; they differ only in how callers present the result.
type Options struct {
	Confirm  bool
	Silent   bool
	Auto     bool
	NoBackup bool
}

func (o Options) confirmed() bool {
	return o.Confirm || o.Silent || o.Auto
}

// Uninstaller runs the uninstall steps against a store.
type Uninstaller struct {
	store         store.Store
	menus         *menu.Installer
	componentsDir string
	destinations  []backup.Destination
	emitter       *events.Emitter
	logger        *slog.Logger
	now           func() time.Time
}

// New returns an Uninstaller. emitter and logger may be nil. Backups and
// config files live under componentsDir.
func New(s store.Store, componentsDir string, emitter *events.Emitter, logger *slog.Logger) *Uninstaller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Uninstaller{
		store:         s,
		menus:         menu.NewInstaller(s, logger),
		componentsDir: componentsDir,
		emitter:       emitter,
		logger:        logger,
		now:           time.Now,
	}
}

// WithDestinations mirrors the uninstall backup to the given destinations.
func (u *Uninstaller) WithDestinations(d ...backup.Destination) *Uninstaller {
	u.destinations = append(u.destinations, d...)
	return u
}

// Uninstall removes def. Only the initial connection check is essential;
// every later failure becomes a warning and the remaining steps still run.
func (u *Uninstaller) Uninstall(ctx context.Context, def *component.Definition, opts Options) model.UninstallResult {
	res := model.UninstallResult{
		Component:      def.Name,
		StepsCompleted: []string{},
		Errors:         []string{},
		Warnings:       []string{},
	}
	if !opts.confirmed() {
		res.Errors = append(res.Errors, ErrNotConfirmed.Error())
		return res
	}
	log := u.logger.With("component", def.Name)

	if err := u.store.Ping(ctx); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("database connection: %v", err))
		return res
	}
	res.StepsCompleted = append(res.StepsCompleted, model.StepConnect)

	if !opts.NoBackup {
		b := backup.Create(ctx, u.store, def, u.componentsDir, u.now())
		if b.Success {
			res.BackupFile = b.Path
			res.StepsCompleted = append(res.StepsCompleted, model.StepBackup)
			res.Warnings = append(res.Warnings, backup.Mirror(ctx, def.Name, b.Path, u.destinations)...)
			log.Info("backup written", "path", b.Path, "rows", b.Rows)
		} else {
			res.Warnings = append(res.Warnings, "backup failed: "+b.Error)
			log.Warn("backup failed", "err", b.Error)
		}
	}

	if m := u.menus.RemoveLinks(ctx, def.Name); m.Success {
		res.StepsCompleted = append(res.StepsCompleted, model.StepRemoveMenu)
	} else {
		res.Warnings = append(res.Warnings, "menu removal failed: "+m.Error)
	}

	order, err := schema.DropOrder(def.AllTables())
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("drop order: %v; dropping in reverse declaration order", err))
		order = reverse(schema.Names(def.AllTables()))
	}
	dropFailed := false
	for _, table := range order {
		if err := u.store.DropTable(ctx, table); err != nil {
			dropFailed = true
			res.Warnings = append(res.Warnings, fmt.Sprintf("drop table %s: %v", table, err))
			log.Warn("drop table failed", "table", table, "err", err)
			continue
		}
		res.DroppedTables = append(res.DroppedTables, table)
	}
	if !dropFailed {
		res.StepsCompleted = append(res.StepsCompleted, model.StepDropTables)
	}

	if err := u.store.DeleteComponent(ctx, def.Name); err != nil && !errors.Is(err, sql.ErrNoRows) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("unregister component: %v", err))
	} else {
		res.StepsCompleted = append(res.StepsCompleted, model.StepUnregister)
	}

	if _, err := config.DeleteComponent(u.componentsDir, def.Name); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("delete config file: %v", err))
	} else {
		res.StepsCompleted = append(res.StepsCompleted, model.StepDeleteConfig)
	}

	res.Success = true
	log.Info("component uninstalled", "dropped", len(res.DroppedTables), "warnings", len(res.Warnings))
	u.emitter.Emit(ctx, events.TopicComponentUninstalled, def.Name, events.ComponentUninstalled{
		BackupFile:    res.BackupFile,
		DroppedTables: res.DroppedTables,
		Warnings:      res.Warnings,
	})
	return res
}

func reverse(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[len(names)-1-i] = n
	}
	return out
}
