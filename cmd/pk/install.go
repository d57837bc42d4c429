package main

import (
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/panelkit/internal/config"
	"github.com/alfredjeanlab/panelkit/internal/install"
)

var installCmd = &cobra.Command{
	Use:     "install <component>",
	Short:   "Create a component's tables, parameters, menu links and config file",
	GroupID: "lifecycle",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := lookup(args[0])
		if err != nil {
			return err
		}
		base, err := config.FromDatabaseURL(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		base.EncryptionKey, _ = cmd.Flags().GetString("encryption-key")

		emitter, closeEmitter := newEmitter()
		defer closeEmitter()

		res := install.New(db, cfg.ComponentsDir, emitter, logger).Install(cmd.Context(), def, install.Options{
			AdminBaseURL: cfg.AdminBaseURL,
			BaseConfig:   base,
		})
		return report(cmd.OutOrStdout(), res.Success, res, func() {
			printInstallResult(cmd.OutOrStdout(), res)
		})
	},
}

func init() {
	installCmd.Flags().String("encryption-key", "", "encryption key written to the component config file")
}
