package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ComponentFileName is the per-component config file inside the component directory.
const ComponentFileName = "config.toml"

// ComponentConfig is the environment-specific configuration written for a
// component at install time and removed at uninstall.
type ComponentConfig struct {
	DBHost        string `toml:"db_host" json:"db_host"`
	DBPort        string `toml:"db_port" json:"db_port,omitempty"`
	DBUser        string `toml:"db_user" json:"db_user"`
	DBPassword    string `toml:"db_pass" json:"-"`
	DBName        string `toml:"db_name" json:"db_name"`
	TablePrefix   string `toml:"table_prefix" json:"table_prefix"`
	BaseURL       string `toml:"base_url" json:"base_url"`
	EncryptionKey string `toml:"encryption_key" json:"-"`
}

// ComponentDir returns "{componentsDir}/{component}".
func ComponentDir(componentsDir, component string) string {
	return filepath.Join(componentsDir, component)
}

// ComponentFilePath returns the config file path of component.
func ComponentFilePath(componentsDir, component string) string {
	return filepath.Join(ComponentDir(componentsDir, component), ComponentFileName)
}

// FromDatabaseURL fills the DB fields from a postgres:// URL.
func FromDatabaseURL(databaseURL string) (ComponentConfig, error) {
	var c ComponentConfig
	if databaseURL == "" {
		return c, nil
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return c, fmt.Errorf("parse database url: %w", err)
	}
	c.DBHost = u.Hostname()
	c.DBPort = u.Port()
	if u.User != nil {
		c.DBUser = u.User.Username()
		c.DBPassword, _ = u.User.Password()
	}
	if len(u.Path) > 1 {
		c.DBName = u.Path[1:]
	}
	return c, nil
}

// LoadComponent reads the config file of component.
func LoadComponent(componentsDir, component string) (*ComponentConfig, error) {
	var c ComponentConfig
	if _, err := toml.DecodeFile(ComponentFilePath(componentsDir, component), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// WriteComponent writes the config file, creating the directory. The file
// holds credentials, so it is written 0600.
func WriteComponent(componentsDir, component string, c *ComponentConfig) (string, error) {
	dir := ComponentDir(componentsDir, component)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create component dir: %w", err)
	}
	path := ComponentFilePath(componentsDir, component)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// DeleteComponent removes the config file. A missing file is not an error;
// the second return reports whether a file was removed.
func DeleteComponent(componentsDir, component string) (bool, error) {
	err := os.Remove(ComponentFilePath(componentsDir, component))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
