// Package install creates a component's tables, registers it, seeds its
// default parameters and menu links and writes its config file.
package install

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alfredjeanlab/panelkit/internal/component"
	"github.com/alfredjeanlab/panelkit/internal/config"
	"github.com/alfredjeanlab/panelkit/internal/events"
	"github.com/alfredjeanlab/panelkit/internal/menu"
	"github.com/alfredjeanlab/panelkit/internal/migrate"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/params"
	"github.com/alfredjeanlab/panelkit/internal/schema"
	"github.com/alfredjeanlab/panelkit/internal/store"
)

// Install step names, in execution order.
const (
	StepValidate    = "validate"
	StepSchema      = "create_tables"
	StepRegister    = "register_component"
	StepSeed        = "seed_parameters"
	StepMenu        = "install_menu_links"
	StepWriteConfig = "write_config_file"
)

// Options carries environment-specific install settings.
type Options struct {
	AdminBaseURL string
	// BaseConfig is written to the component config file. TablePrefix and
	// BaseURL are filled in when empty.
	BaseConfig config.ComponentConfig
}

// Installer installs component definitions.
type Installer struct {
	store         store.Store
	menus         *menu.Installer
	componentsDir string
	emitter       *events.Emitter
	logger        *slog.Logger
}

// New returns an Installer. emitter and logger may be nil.
func New(s store.Store, componentsDir string, emitter *events.Emitter, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Installer{
		store:         s,
		menus:         menu.NewInstaller(s, logger),
		componentsDir: componentsDir,
		emitter:       emitter,
		logger:        logger,
	}
}

// Install installs def. Running it again for an installed component only
// fills in what is missing: existing tables, parameter values, menu links
// and the recorded version are left alone.
func (i *Installer) Install(ctx context.Context, def *component.Definition, opts Options) model.InstallResult {
	res := model.InstallResult{
		Component:      def.Name,
		StepsCompleted: []string{},
		Errors:         []string{},
		Warnings:       []string{},
	}
	fail := func(err error) model.InstallResult {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	log := i.logger.With("component", def.Name)

	if err := def.Validate(); err != nil {
		return fail(err)
	}
	if err := i.checkCollisions(ctx, def.Name); err != nil {
		return fail(err)
	}
	res.StepsCompleted = append(res.StepsCompleted, StepValidate)

	order, err := schema.CreateOrder(def.AllTables())
	if err != nil {
		return fail(err)
	}
	byName := make(map[string]schema.Table, len(order))
	for _, t := range def.AllTables() {
		byName[t.Name] = t
	}

	baseConfig, err := json.Marshal(opts.BaseConfig)
	if err != nil {
		return fail(fmt.Errorf("encode base config: %w", err))
	}

	var created []string
	version := def.LatestVersion()
	err = i.store.RunInTransaction(ctx, func(tx store.Store) error {
		created = created[:0]
		if err := tx.LockComponent(ctx, def.Name); err != nil {
			return err
		}
		for _, name := range order {
			exists, err := tx.TableExists(ctx, name)
			if err != nil {
				return fmt.Errorf("check table %s: %w", name, err)
			}
			if exists {
				continue
			}
			if err := tx.Exec(ctx, byName[name].CreateSQL()); err != nil {
				return fmt.Errorf("create table %s: %w", name, err)
			}
			created = append(created, name)
		}

		existing, err := tx.GetComponent(ctx, def.Name)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if err := tx.RegisterComponent(ctx, &model.Component{Name: def.Name, Version: version, BaseConfig: baseConfig}); err != nil {
				return fmt.Errorf("register component: %w", err)
			}
			if err := migrate.SetVersion(ctx, tx, def.Name, version); err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("get component: %w", err)
		default:
			version = existing.Version
		}

		ps := params.New(tx, def.Name)
		for _, d := range def.Parameters {
			_, err := ps.Lookup(ctx, d.Section, d.Name)
			if err == nil {
				continue
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("lookup parameter %s/%s: %w", d.Section, d.Name, err)
			}
			p := d
			if _, err := ps.Put(ctx, &p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	res.Version = version
	res.CreatedTables = created
	res.StepsCompleted = append(res.StepsCompleted, StepSchema, StepRegister, StepSeed)

	m := i.menus.InstallOrSkip(ctx, def.Name, opts.AdminBaseURL, def.Menu)
	if m.Success {
		res.MenuIDs = m.MenuIDs
		res.StepsCompleted = append(res.StepsCompleted, StepMenu)
	} else {
		res.Warnings = append(res.Warnings, "menu links not installed: "+m.Error)
	}

	cc := opts.BaseConfig
	if cc.TablePrefix == "" {
		cc.TablePrefix = model.NamespacePrefix(def.Name)
	}
	if cc.BaseURL == "" {
		cc.BaseURL = strings.TrimRight(opts.AdminBaseURL, "/") + "/" + def.Name
	}
	path, err := config.WriteComponent(i.componentsDir, def.Name, &cc)
	if err != nil {
		return fail(err)
	}
	res.StepsCompleted = append(res.StepsCompleted, StepWriteConfig)

	res.Success = true
	log.Info("component installed", "version", version, "created_tables", len(created), "config", path)
	i.emitter.Emit(ctx, events.TopicComponentInstalled, def.Name, events.ComponentInstalled{
		Version:       version,
		CreatedTables: created,
		MenuIDs:       res.MenuIDs,
	})
	return res
}

func (i *Installer) checkCollisions(ctx context.Context, name string) error {
	installed, err := i.store.ListComponents(ctx)
	if err != nil {
		return fmt.Errorf("list components: %w", err)
	}
	for _, c := range installed {
		if c.Name != name && model.NamespacesCollide(c.Name, name) {
			return fmt.Errorf("component %s collides with installed component %s", name, c.Name)
		}
	}
	return nil
}
