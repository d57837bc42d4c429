package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/panelkit/internal/menu"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/ui"
)

var menuCmd = &cobra.Command{
	Use:     "menu",
	Short:   "Manage a component's admin menu links",
	GroupID: "data",
}

var menuInstallCmd = &cobra.Command{
	Use:   "install <component>",
	Short: "Create the component's menu links unless they exist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := lookup(args[0])
		if err != nil {
			return err
		}
		res := menu.NewInstaller(db, logger).InstallOrSkip(cmd.Context(), def.Name, cfg.AdminBaseURL, def.Menu)
		out := cmd.OutOrStdout()
		return report(out, res.Success, res, func() { printMenuResult(out, "install", def.Name, res) })
	},
}

var menuRemoveCmd = &cobra.Command{
	Use:   "remove <component>",
	Short: "Delete every menu link in the component's namespace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := lookup(args[0])
		if err != nil {
			return err
		}
		res := menu.NewInstaller(db, logger).RemoveLinks(cmd.Context(), def.Name)
		out := cmd.OutOrStdout()
		return report(out, res.Success, res, func() { printMenuResult(out, "remove", def.Name, res) })
	},
}

var menuListCmd = &cobra.Command{
	Use:   "list <component>",
	Short: "List the component's menu links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := lookup(args[0])
		if err != nil {
			return err
		}
		links, err := menu.NewInstaller(db, logger).ListLinks(cmd.Context(), def.Name)
		if err != nil {
			return err
		}
		if jsonOutput {
			if links == nil {
				links = []*model.MenuLink{}
			}
			return printJSON(cmd.OutOrStdout(), links)
		}
		printMenuLinks(cmd, links)
		return nil
	},
}

func printMenuLinks(cmd *cobra.Command, links []*model.MenuLink) {
	out := cmd.OutOrStdout()
	if len(links) == 0 {
		fmt.Fprintln(out, "No menu links.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tORDER\tPAGE\tTITLE\tURL")
	for _, l := range links {
		title := l.Title
		if l.IsSectionHeading {
			title = ui.RenderAccent(title)
		} else {
			title = "  " + title
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", l.ID, l.MenuOrder, l.PageIdentifier, title, l.URL)
	}
	w.Flush()
}

func init() {
	menuCmd.AddCommand(menuInstallCmd, menuRemoveCmd, menuListCmd)
}
