package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/panelkit/internal/backup"
	"github.com/alfredjeanlab/panelkit/internal/component"
	"github.com/alfredjeanlab/panelkit/internal/config"
	"github.com/alfredjeanlab/panelkit/internal/events"
	"github.com/alfredjeanlab/panelkit/internal/store"
	"github.com/alfredjeanlab/panelkit/internal/store/postgres"
	"github.com/alfredjeanlab/panelkit/internal/ui"
)

var (
	jsonOutput    bool
	verbose       bool
	databaseURL   string
	componentsDir string

	cfg     *config.Config
	catalog *component.Catalog
	db      store.Store
	logger  *slog.Logger
)

// openStore is replaced in tests.
var openStore = func(url string) (store.Store, error) {
	return postgres.New(url)
}

// loadEnv reads configuration, applies flag overrides and loads the
// component catalog. It does not touch the database.
func loadEnv(cmd *cobra.Command) error {
	c, err := config.LoadLocal()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("database-url") {
		c.DatabaseURL = databaseURL
	}
	if cmd.Flags().Changed("components-dir") {
		c.ComponentsDir = componentsDir
	}
	cfg = c
	if jsonOutput || !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	catalog = component.Builtin()
	loaded, err := catalog.LoadDir(cfg.ComponentsDir)
	if err != nil {
		return fmt.Errorf("loading component manifests: %w", err)
	}
	if len(loaded) > 0 {
		logger.Info("component manifests loaded", "components", loaded)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:           "pk <command>",
	Short:         "Install, migrate and remove admin panel components",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(cmd); err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("database URL is required (--database-url or PANELKIT_DATABASE_URL)")
		}
		s, err := openStore(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		db = s
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
			db = nil
		}
	},
}

// lookup resolves a component name against the catalog.
func lookup(name string) (*component.Definition, error) {
	def, ok := catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown component %q", name)
	}
	return def, nil
}

// newEmitter returns an emitter that records events in the store and, when
// PANELKIT_NATS_URL is set, publishes them. The returned func closes the
// publisher.
func newEmitter() (*events.Emitter, func()) {
	var pub events.Publisher = &events.NoopPublisher{}
	if cfg.NATSURL != "" {
		p, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			logger.Warn("events will not be published", "err", err)
		} else {
			pub = p
		}
	}
	return events.NewEmitter(db, pub, "cli", logger), func() { pub.Close() }
}

// backupDestinations builds the configured snapshot mirrors.
func backupDestinations(ctx context.Context) []backup.Destination {
	var dests []backup.Destination
	if cfg.BackupS3Bucket != "" {
		s3Dest, err := backup.NewS3Destination(ctx, backup.S3Options{
			Bucket:   cfg.BackupS3Bucket,
			Prefix:   cfg.BackupS3Prefix,
			Region:   cfg.BackupS3Region,
			Endpoint: cfg.BackupS3Endpoint,
		})
		if err != nil {
			logger.Error("failed to create S3 backup destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("backup S3 destination enabled", "bucket", cfg.BackupS3Bucket, "prefix", cfg.BackupS3Prefix)
		}
	}
	if cfg.BackupGitRepo != "" {
		dests = append(dests, backup.NewGitDestination(cfg.BackupGitRepo, "backups", cfg.BackupGitBranch))
		logger.Info("backup git destination enabled", "repo", cfg.BackupGitRepo)
	}
	return dests
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (default $PANELKIT_DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&componentsDir, "components-dir", "", "component manifests, config files and backups (default $PANELKIT_COMPONENTS_DIR or \"components\")")

	rootCmd.AddGroup(
		&cobra.Group{ID: "lifecycle", Title: "Lifecycle:"},
		&cobra.Group{ID: "data", Title: "Data:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Lifecycle
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(migrateCmd)

	// Data
	rootCmd.AddCommand(paramCmd)
	rootCmd.AddCommand(menuCmd)
	rootCmd.AddCommand(backupCmd)

	// System
	rootCmd.AddCommand(componentsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
