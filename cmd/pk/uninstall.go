package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/panelkit/internal/component"
	"github.com/alfredjeanlab/panelkit/internal/uninstall"
	"github.com/alfredjeanlab/panelkit/internal/ui"
)

// prompter asks the user to confirm a destructive action. Replaced in tests.
var prompter = func(in io.Reader, out io.Writer, question string) (bool, error) {
	if !ui.IsInteractive() {
		return false, fmt.Errorf("no terminal to confirm on; pass --silent or --auto")
	}
	return ui.Confirm(in, out, question), nil
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <component>",
	Short: "Back up and remove a component",
	Long: `Back up and remove a component: its menu links, tables, registry row and
config file.

Without --silent or --auto the command asks for confirmation on the
terminal. --silent prints the result as JSON and --auto as text; neither
prompts.`,
	GroupID: "lifecycle",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := lookup(args[0])
		if err != nil {
			return err
		}
		silent, _ := cmd.Flags().GetBool("silent")
		yes, _ := cmd.Flags().GetBool("yes-to-all")
		auto, _ := cmd.Flags().GetBool("auto")
		noBackup, _ := cmd.Flags().GetBool("no-backup")

		opts := uninstall.Options{Silent: silent || yes, Auto: auto, NoBackup: noBackup}
		if !opts.Silent && !opts.Auto {
			ok, err := prompter(os.Stdin, cmd.ErrOrStderr(), confirmQuestion(def))
			if err != nil {
				return err
			}
			opts.Confirm = ok
		}

		emitter, closeEmitter := newEmitter()
		defer closeEmitter()

		u := uninstall.New(db, cfg.ComponentsDir, emitter, logger).WithDestinations(backupDestinations(cmd.Context())...)
		res := u.Uninstall(cmd.Context(), def, opts)

		out := cmd.OutOrStdout()
		if opts.Silent {
			if err := printJSON(out, res); err != nil {
				return err
			}
			if !res.Success {
				return errReported
			}
			return nil
		}
		return report(out, res.Success, res, func() { printUninstallResult(out, res) })
	},
}

func confirmQuestion(def *component.Definition) string {
	return fmt.Sprintf("Uninstall %s and drop its %d tables?", def.Name, len(def.AllTables()))
}

func init() {
	uninstallCmd.Flags().Bool("silent", false, "do not prompt; print the result as JSON")
	uninstallCmd.Flags().Bool("yes-to-all", false, "alias for --silent")
	uninstallCmd.Flags().Bool("auto", false, "do not prompt; print the result as text")
	uninstallCmd.Flags().Bool("no-backup", false, "skip the JSON backup")
}
