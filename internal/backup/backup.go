// Package backup exports a component's rows to a JSON file before it is
// removed, and mirrors snapshots to remote destinations.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alfredjeanlab/panelkit/internal/component"
	"github.com/alfredjeanlab/panelkit/internal/idgen"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/store"
)

// File name prefixes. Uninstall backups and scheduled snapshots share the
// same document format.
const (
	UninstallPrefix = "uninstall_backup"
	SnapshotPrefix  = "snapshot"
)

// FileTimeLayout is the timestamp embedded in backup file names.
const FileTimeLayout = "2006-01-02_15-04-05"

// Dir returns "{componentsDir}/{component}/backups".
func Dir(componentsDir, component string) string {
	return filepath.Join(componentsDir, component, "backups")
}

// FileName returns "{prefix}_{timestamp}.json".
func FileName(prefix string, now time.Time) string {
	return prefix + "_" + now.Format(FileTimeLayout) + ".json"
}

// Snapshot reads every row of every table the component owns. Tables that
// do not exist are exported as empty arrays.
func Snapshot(ctx context.Context, s store.Store, def *component.Definition, now time.Time) (*model.BackupSnapshot, error) {
	id, err := idgen.Backup()
	if err != nil {
		return nil, fmt.Errorf("backup id: %w", err)
	}
	snap := &model.BackupSnapshot{
		ID:        id,
		Component: def.Name,
		Timestamp: now.UTC(),
		Tables:    make(map[string][]model.Row),
	}
	for _, t := range def.AllTables() {
		key := t.Name
		switch t.Name {
		case model.ParametersTable(def.Name):
			key = model.BackupKeyParameters
		case model.ConfigTable(def.Name):
			key = model.BackupKeyConfig
		}

		exists, err := s.TableExists(ctx, t.Name)
		if err != nil {
			return nil, fmt.Errorf("check table %s: %w", t.Name, err)
		}
		if !exists {
			snap.Tables[key] = []model.Row{}
			continue
		}
		rows, err := s.DumpTable(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []model.Row{}
		}
		snap.Tables[key] = rows
	}
	return snap, nil
}

// Create writes an uninstall backup of def under componentsDir. Failures are
// reported in the result, never as a Go error.
func Create(ctx context.Context, s store.Store, def *component.Definition, componentsDir string, now time.Time) model.BackupResult {
	return write(ctx, s, def, componentsDir, UninstallPrefix, now)
}

func write(ctx context.Context, s store.Store, def *component.Definition, componentsDir, prefix string, now time.Time) model.BackupResult {
	snap, err := Snapshot(ctx, s, def, now)
	if err != nil {
		return model.BackupResult{Error: err.Error()}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return model.BackupResult{Error: fmt.Sprintf("encode backup: %v", err)}
	}

	dir := Dir(componentsDir, def.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.BackupResult{Error: fmt.Sprintf("create backup dir: %v", err)}
	}
	path, err := writeExclusive(dir, FileName(prefix, now), snap.ID, data)
	if err != nil {
		return model.BackupResult{Error: err.Error()}
	}
	return model.BackupResult{Success: true, Path: path, Rows: snap.RowCount()}
}

// writeExclusive never overwrites an earlier backup taken in the same second;
// the backup ID is appended to the name instead.
func writeExclusive(dir, name, id string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		ext := filepath.Ext(name)
		path = filepath.Join(dir, name[:len(name)-len(ext)]+"_"+id+ext)
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	}
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("write backup file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close backup file: %w", err)
	}
	return path, nil
}

// Load reads a backup file.
func Load(path string) (*model.BackupSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap model.BackupSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &snap, nil
}
