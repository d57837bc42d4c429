package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/panelkit/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:     "backup <component>",
	Short:   "Write a JSON snapshot of the component's parameters, config and tables",
	GroupID: "data",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := lookup(args[0])
		if err != nil {
			return err
		}
		res := backup.Create(cmd.Context(), db, def, cfg.ComponentsDir, time.Now())
		if mirror, _ := cmd.Flags().GetBool("mirror"); mirror && res.Success {
			res.Warnings = append(res.Warnings, backup.Mirror(cmd.Context(), def.Name, res.Path, backupDestinations(cmd.Context()))...)
		}
		out := cmd.OutOrStdout()
		return report(out, res.Success, res, func() { printBackupResult(out, def.Name, res) })
	},
}

func init() {
	backupCmd.Flags().Bool("mirror", false, "also copy the snapshot to the configured S3 bucket and git repository")
}
