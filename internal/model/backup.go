package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// BackupTimeLayout is the format of the backup_timestamp field.
const BackupTimeLayout = "2006-01-02 15:04:05"

// Export keys used for the two tables every component owns. Component
// specific tables are exported under their full table name.
const (
	BackupKeyParameters = "parameters"
	BackupKeyConfig     = "config"
)

// Row is one exported database row, column name to value.
type Row map[string]any

// BackupSnapshot is a point-in-time export of a component's rows. It
// serializes to a flat JSON object: one array per table plus the
// backup_timestamp, backup_id and component fields.
type BackupSnapshot struct {
	ID        string
	Component string
	Timestamp time.Time
	Tables    map[string][]Row
}

// RowCount returns the total number of rows across all tables.
func (s *BackupSnapshot) RowCount() int {
	n := 0
	for _, rows := range s.Tables {
		n += len(rows)
	}
	return n
}

func (s BackupSnapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Tables)+3)
	for key, rows := range s.Tables {
		if rows == nil {
			rows = []Row{}
		}
		out[key] = rows
	}
	out["backup_timestamp"] = s.Timestamp.Format(BackupTimeLayout)
	out["backup_id"] = s.ID
	out["component"] = s.Component
	return json.Marshal(out)
}

func (s *BackupSnapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Tables = make(map[string][]Row)
	for key, val := range raw {
		switch key {
		case "backup_timestamp":
			var ts string
			if err := json.Unmarshal(val, &ts); err != nil {
				return fmt.Errorf("backup_timestamp: %w", err)
			}
			t, err := time.ParseInLocation(BackupTimeLayout, ts, time.UTC)
			if err != nil {
				return fmt.Errorf("backup_timestamp: %w", err)
			}
			s.Timestamp = t
		case "backup_id":
			if err := json.Unmarshal(val, &s.ID); err != nil {
				return fmt.Errorf("backup_id: %w", err)
			}
		case "component":
			if err := json.Unmarshal(val, &s.Component); err != nil {
				return fmt.Errorf("component: %w", err)
			}
		default:
			var rows []Row
			if err := json.Unmarshal(val, &rows); err != nil {
				return fmt.Errorf("table %s: %w", key, err)
			}
			s.Tables[key] = rows
		}
	}
	return nil
}
