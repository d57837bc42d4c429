package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/panelkit/internal/component"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/store"
	"github.com/alfredjeanlab/panelkit/internal/ui"
)

// componentRow is one line of the components listing.
type componentRow struct {
	Name          string `json:"name"`
	Title         string `json:"title"`
	Installed     bool   `json:"installed"`
	Known         bool   `json:"known"`
	Version       string `json:"version,omitempty"`
	LatestVersion string `json:"latest_version,omitempty"`
}

// listComponents merges the catalog with the registry. Registered names the
// catalog does not know are listed last.
func listComponents(ctx context.Context, s store.Store, c *component.Catalog) ([]componentRow, error) {
	registered, err := s.ListComponents(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*model.Component, len(registered))
	for _, r := range registered {
		byName[r.Name] = r
	}

	rows := []componentRow{}
	for _, name := range c.Names() {
		def, _ := c.Get(name)
		row := componentRow{Name: name, Title: def.Title, Known: true, LatestVersion: def.LatestVersion()}
		if r, ok := byName[name]; ok {
			row.Installed, row.Version = true, r.Version
			delete(byName, name)
		}
		rows = append(rows, row)
	}
	for _, r := range registered {
		if _, orphan := byName[r.Name]; orphan {
			rows = append(rows, componentRow{Name: r.Name, Title: r.Name, Installed: true, Version: r.Version})
		}
	}
	return rows, nil
}

var componentsCmd = &cobra.Command{
	Use:     "components",
	Short:   "List known and installed components",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := listComponents(cmd.Context(), db, catalog)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), rows)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTATUS\tVERSION\tLATEST\tTITLE")
		for _, r := range rows {
			status := ui.RenderMuted("available")
			switch {
			case r.Installed && !r.Known:
				status = ui.RenderWarn("unknown")
			case r.Installed:
				status = ui.RenderPass("installed")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Name, status, r.Version, r.LatestVersion, r.Title)
		}
		return w.Flush()
	},
}
