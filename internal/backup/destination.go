package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Destination is a mirror target for backup files (S3, git, etc.).
type Destination interface {
	// Write stores data under name, a slash-separated relative path such as
	// "widgets/uninstall_backup_2026-01-02_15-04-05.json".
	Write(ctx context.Context, name string, data []byte) error
}

// ObjectName returns the mirror name of a backup file.
func ObjectName(component, path string) string {
	return component + "/" + filepath.Base(path)
}

// Mirror copies a written backup file to every destination. It returns one
// warning per failed destination.
func Mirror(ctx context.Context, component, path string, destinations []Destination) []string {
	if len(destinations) == 0 {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("mirror backup: %v", err)}
	}
	name := ObjectName(component, path)
	var warnings []string
	for i, d := range destinations {
		if err := d.Write(ctx, name, data); err != nil {
			warnings = append(warnings, fmt.Sprintf("mirror backup to destination %d: %v", i, err))
		}
	}
	return warnings
}
