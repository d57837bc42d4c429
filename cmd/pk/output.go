package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/ui"
)

// errReported marks a failure whose details were already printed as part of
// a result, so main only sets the exit code.
var errReported = errors.New("operation failed")

func errorsReported(err error) bool {
	return errors.Is(err, errReported)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// printLines writes a labelled, indented list and skips empty ones.
func printLines(w io.Writer, label string, lines []string, style func(string) string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", label)
	for _, l := range lines {
		fmt.Fprintf(w, "  %s\n", style(l))
	}
}

func outcome(ok bool) string {
	if ok {
		return ui.RenderPass("ok")
	}
	return ui.RenderFail("failed")
}

func printInstallResult(w io.Writer, res model.InstallResult) {
	fmt.Fprintf(w, "Install %s: %s\n", res.Component, outcome(res.Success))
	if res.Version != "" {
		fmt.Fprintf(w, "  Version: %s\n", res.Version)
	}
	if len(res.CreatedTables) > 0 {
		fmt.Fprintf(w, "  Created: %s\n", strings.Join(res.CreatedTables, ", "))
	}
	if len(res.MenuIDs) > 0 {
		fmt.Fprintf(w, "  Menu links: %d\n", len(res.MenuIDs))
	}
	printLines(w, "Steps", res.StepsCompleted, ui.RenderMuted)
	printLines(w, "Warnings", res.Warnings, ui.RenderWarn)
	printLines(w, "Errors", res.Errors, ui.RenderFail)
}

func printUninstallResult(w io.Writer, res model.UninstallResult) {
	fmt.Fprintf(w, "Uninstall %s: %s\n", res.Component, outcome(res.Success))
	if res.BackupFile != "" {
		fmt.Fprintf(w, "  Backup: %s\n", res.BackupFile)
	}
	if len(res.DroppedTables) > 0 {
		fmt.Fprintf(w, "  Dropped: %s\n", strings.Join(res.DroppedTables, ", "))
	}
	printLines(w, "Steps", res.StepsCompleted, ui.RenderMuted)
	printLines(w, "Warnings", res.Warnings, ui.RenderWarn)
	printLines(w, "Errors", res.Errors, ui.RenderFail)
}

func printMigrationResult(w io.Writer, res *model.MigrationResult) {
	fmt.Fprintf(w, "Migrate %s: %s\n", res.Component, outcome(res.OK()))
	if res.StartVersion == res.FinalVersion && len(res.Applied) == 0 {
		fmt.Fprintf(w, "  Up to date at %s\n", res.FinalVersion)
	} else {
		fmt.Fprintf(w, "  %s -> %s\n", res.StartVersion, res.FinalVersion)
	}
	printLines(w, "Applied", res.Applied, ui.RenderMuted)
	printLines(w, "Errors", res.Errors, ui.RenderFail)
}

func printMenuResult(w io.Writer, action, name string, res model.MenuResult) {
	fmt.Fprintf(w, "Menu %s %s: %s\n", action, name, outcome(res.Success))
	switch {
	case res.Skipped:
		fmt.Fprintf(w, "  Already present (%d links)\n", len(res.MenuIDs))
	case len(res.MenuIDs) > 0:
		fmt.Fprintf(w, "  Created %d links\n", len(res.MenuIDs))
	case res.Success && action == "remove":
		fmt.Fprintf(w, "  Deleted %d links\n", res.DeletedCount)
	}
	if res.Error != "" {
		fmt.Fprintf(w, "  %s\n", ui.RenderFail(res.Error))
	}
}

func printBackupResult(w io.Writer, name string, res model.BackupResult) {
	fmt.Fprintf(w, "Backup %s: %s\n", name, outcome(res.Success))
	if res.Path != "" {
		fmt.Fprintf(w, "  File: %s (%d rows)\n", res.Path, res.Rows)
	}
	printLines(w, "Warnings", res.Warnings, ui.RenderWarn)
	if res.Error != "" {
		fmt.Fprintf(w, "  %s\n", ui.RenderFail(res.Error))
	}
}

// report prints v as JSON or through human, and turns an unsuccessful
// result into errReported.
func report(w io.Writer, ok bool, v any, human func()) error {
	if jsonOutput {
		if err := printJSON(w, v); err != nil {
			return err
		}
	} else {
		human()
	}
	if !ok {
		return errReported
	}
	return nil
}
