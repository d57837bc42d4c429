package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/panelkit/internal/component"
	"github.com/alfredjeanlab/panelkit/internal/config"
	"github.com/alfredjeanlab/panelkit/internal/menu"
	"github.com/alfredjeanlab/panelkit/internal/migrate"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/params"
	"github.com/alfredjeanlab/panelkit/internal/store"
	"github.com/alfredjeanlab/panelkit/internal/ui"
)

// componentStatus is what `pk status` reports for one component.
type componentStatus struct {
	Name          string                  `json:"name"`
	Installed     bool                    `json:"installed"`
	InstalledAt   *time.Time              `json:"installed_at,omitempty"`
	Version       string                  `json:"version,omitempty"`
	LatestVersion string                  `json:"latest_version"`
	Pending       []string                `json:"pending_migrations"`
	Tables        map[string]bool         `json:"tables"`
	Parameters    int                     `json:"parameters"`
	MenuLinks     int                     `json:"menu_links"`
	ConfigFile    string                  `json:"config_file,omitempty"`
	Config        *config.ComponentConfig `json:"config,omitempty"`
}

func collectStatus(ctx context.Context, s store.Store, def *component.Definition, componentsDir string) (*componentStatus, error) {
	st := &componentStatus{Name: def.Name, LatestVersion: def.LatestVersion(), Pending: []string{}, Tables: map[string]bool{}}

	c, err := s.GetComponent(ctx, def.Name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		st.Installed = true
		at := c.InstalledAt
		st.InstalledAt = &at
	}

	for _, t := range def.AllTables() {
		ok, err := s.TableExists(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		st.Tables[t.Name] = ok
	}

	if st.Installed && st.Tables[model.ConfigTable(def.Name)] {
		v, err := migrate.CurrentVersion(ctx, s, def.Name)
		if err != nil {
			return nil, err
		}
		st.Version = v
		for _, m := range def.Migrations {
			if migrate.Compare(v, m.Version) < 0 {
				st.Pending = append(st.Pending, m.Version)
			}
		}
	}
	if st.Tables[model.ParametersTable(def.Name)] {
		list, err := params.New(s, def.Name).List(ctx, model.ParameterFilter{})
		if err != nil {
			return nil, err
		}
		st.Parameters = len(list)
	}
	links, err := menu.NewInstaller(s, nil).ListLinks(ctx, def.Name)
	if err != nil {
		return nil, err
	}
	st.MenuLinks = len(links)

	cc, err := config.LoadComponent(componentsDir, def.Name)
	if err == nil {
		st.ConfigFile = config.ComponentFilePath(componentsDir, def.Name)
		st.Config = cc
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return st, nil
}

func printStatus(w io.Writer, st *componentStatus) {
	state := ui.RenderMuted("not installed")
	if st.Installed {
		state = ui.RenderPass("installed")
	}
	fmt.Fprintf(w, "%s: %s\n", st.Name, state)
	if st.InstalledAt != nil {
		fmt.Fprintf(w, "  Installed At: %s\n", st.InstalledAt.Format("2006-01-02 15:04:05"))
	}
	if st.Version != "" {
		fmt.Fprintf(w, "  Version:      %s (latest %s)\n", st.Version, st.LatestVersion)
	}
	if len(st.Pending) > 0 {
		fmt.Fprintf(w, "  Pending:      %s\n", ui.RenderWarn(fmt.Sprint(st.Pending)))
	}
	fmt.Fprintf(w, "  Parameters:   %d\n", st.Parameters)
	fmt.Fprintf(w, "  Menu Links:   %d\n", st.MenuLinks)
	if st.ConfigFile != "" {
		fmt.Fprintf(w, "  Config File:  %s\n", st.ConfigFile)
		fmt.Fprintf(w, "  Base URL:     %s\n", st.Config.BaseURL)
	}
	fmt.Fprintln(w, "  Tables:")
	for _, name := range sortedKeys(st.Tables) {
		mark := ui.RenderPass("present")
		if !st.Tables[name] {
			mark = ui.RenderMuted("missing")
		}
		fmt.Fprintf(w, "    %-32s %s\n", name, mark)
	}
}

var statusCmd = &cobra.Command{
	Use:     "status <component>",
	Short:   "Show a component's version, tables, parameters and config file",
	GroupID: "system",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := lookup(args[0])
		if err != nil {
			return err
		}
		st, err := collectStatus(cmd.Context(), db, def, cfg.ComponentsDir)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), st)
		}
		printStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
