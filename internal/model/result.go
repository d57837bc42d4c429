package model

// MigrationResult is returned by the migration runner. Applied lists the
// versions applied by this run, in order.
type MigrationResult struct {
	Component    string   `json:"component"`
	StartVersion string   `json:"start_version"`
	FinalVersion string   `json:"final_version"`
	Applied      []string `json:"applied"`
	Errors       []string `json:"errors"`
}

// OK reports whether the run finished without errors.
func (r *MigrationResult) OK() bool {
	return len(r.Errors) == 0
}

// BackupResult reports the outcome of a snapshot.
type BackupResult struct {
	Success  bool     `json:"success"`
	Path     string   `json:"backup_file_path,omitempty"`
	Rows     int      `json:"rows"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Uninstall step names, in execution order.
const (
	StepConnect      = "connect"
	StepBackup       = "backup"
	StepRemoveMenu   = "remove_menu_links"
	StepDropTables   = "drop_tables"
	StepUnregister   = "unregister_component"
	StepDeleteConfig = "delete_config_file"
)

// UninstallResult has the same shape for every invocation surface (web
// form, silent CLI, automatic CLI).
type UninstallResult struct {
	Component      string   `json:"component"`
	Success        bool     `json:"success"`
	StepsCompleted []string `json:"steps_completed"`
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
	BackupFile     string   `json:"backup_file,omitempty"`
	DroppedTables  []string `json:"dropped_tables,omitempty"`
}

// InstallResult reports the outcome of installing a component.
type InstallResult struct {
	Component      string   `json:"component"`
	Success        bool     `json:"success"`
	Version        string   `json:"version"`
	StepsCompleted []string `json:"steps_completed"`
	CreatedTables  []string `json:"created_tables,omitempty"`
	MenuIDs        []int64  `json:"menu_ids,omitempty"`
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
}
