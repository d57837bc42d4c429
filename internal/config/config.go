package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL   string // PANELKIT_DATABASE_URL (required)
	GRPCAddr      string // PANELKIT_GRPC_ADDR (default ":9090")
	HTTPAddr      string // PANELKIT_HTTP_ADDR (default ":8080")
	NATSURL       string // PANELKIT_NATS_URL (optional, empty = no events)
	AuthToken     string // PANELKIT_AUTH_TOKEN (optional, empty = auth disabled)
	ComponentsDir string // PANELKIT_COMPONENTS_DIR (default "components")
	AdminBaseURL  string // PANELKIT_ADMIN_BASE_URL (default "/admin")

	// Backup settings
	SnapshotInterval time.Duration // PANELKIT_SNAPSHOT_INTERVAL (default 0 = disabled)
	BackupS3Bucket   string        // PANELKIT_BACKUP_S3_BUCKET (enables S3 mirroring when set)
	BackupS3Endpoint string        // PANELKIT_BACKUP_S3_ENDPOINT (custom endpoint for MinIO)
	BackupS3Region   string        // PANELKIT_BACKUP_S3_REGION (default "us-east-1")
	BackupS3Prefix   string        // PANELKIT_BACKUP_S3_PREFIX (default "panelkit/backups")
	BackupGitRepo    string        // PANELKIT_BACKUP_GIT_REPO (enables git mirroring when set; path to clone)
	BackupGitBranch  string        // PANELKIT_BACKUP_GIT_BRANCH (default "main")
}

// Load reads the process configuration. Commands that do not touch the
// database call LoadLocal instead.
func Load() (*Config, error) {
	c, err := LoadLocal()
	if err != nil {
		return nil, err
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("PANELKIT_DATABASE_URL is required")
	}
	return c, nil
}

// LoadLocal reads the configuration without requiring a database URL.
func LoadLocal() (*Config, error) {
	c := &Config{
		DatabaseURL:      os.Getenv("PANELKIT_DATABASE_URL"),
		GRPCAddr:         envOrDefault("PANELKIT_GRPC_ADDR", ":9090"),
		HTTPAddr:         envOrDefault("PANELKIT_HTTP_ADDR", ":8080"),
		NATSURL:          os.Getenv("PANELKIT_NATS_URL"),
		AuthToken:        os.Getenv("PANELKIT_AUTH_TOKEN"),
		ComponentsDir:    envOrDefault("PANELKIT_COMPONENTS_DIR", "components"),
		AdminBaseURL:     envOrDefault("PANELKIT_ADMIN_BASE_URL", "/admin"),
		BackupS3Bucket:   os.Getenv("PANELKIT_BACKUP_S3_BUCKET"),
		BackupS3Endpoint: os.Getenv("PANELKIT_BACKUP_S3_ENDPOINT"),
		BackupS3Region:   envOrDefault("PANELKIT_BACKUP_S3_REGION", "us-east-1"),
		BackupS3Prefix:   envOrDefault("PANELKIT_BACKUP_S3_PREFIX", "panelkit/backups"),
		BackupGitRepo:    os.Getenv("PANELKIT_BACKUP_GIT_REPO"),
		BackupGitBranch:  envOrDefault("PANELKIT_BACKUP_GIT_BRANCH", "main"),
	}

	intervalStr := envOrDefault("PANELKIT_SNAPSHOT_INTERVAL", "0")
	d, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("PANELKIT_SNAPSHOT_INTERVAL: %w", err)
	}
	if d < 0 {
		return nil, fmt.Errorf("PANELKIT_SNAPSHOT_INTERVAL: must not be negative")
	}
	c.SnapshotInterval = d

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
