package main

import (
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/panelkit/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate <component>",
	Short:   "Apply pending migrations",
	GroupID: "lifecycle",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := lookup(args[0])
		if err != nil {
			return err
		}
		emitter, closeEmitter := newEmitter()
		defer closeEmitter()

		res := migrate.NewRunner(db, emitter, logger).Run(cmd.Context(), def.Name, def.Migrations)
		return report(cmd.OutOrStdout(), res.OK(), res, func() {
			printMigrationResult(cmd.OutOrStdout(), res)
		})
	},
}
