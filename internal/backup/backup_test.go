package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/panelkit/internal/component"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/store/memstore"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func seededStore(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	s.CreateTable("widgets_config", "key", "value", "updated_at")
	s.CreateTable("widgets_parameters", "section", "parameter_name", "value")
	s.CreateTable("widgets_items", "id", "name")
	// widgets_item_tags is deliberately absent.
	if err := s.SetConfigValue(ctx, "widgets", "version", "1.0.0"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetParameter(ctx, "widgets", &model.Parameter{Section: "Display", Name: "per_page", Value: "25", ValueType: model.ValueNumber}); err != nil {
		t.Fatal(err)
	}
	for _, row := range []model.Row{{"id": 1, "name": "anvil"}, {"id": 2, "name": "bell"}} {
		if err := s.InsertRow("widgets_items", row); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func jsonOf(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestCreate_ReloadMatchesRows(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	dir := t.TempDir()

	res := Create(ctx, s, component.Widgets(), dir, fixedNow)
	if !res.Success {
		t.Fatalf("Create failed: %s", res.Error)
	}
	wantPath := filepath.Join(dir, "widgets", "backups", "uninstall_backup_2026-03-14_09-26-53.json")
	if res.Path != wantPath {
		t.Fatalf("path = %s, want %s", res.Path, wantPath)
	}
	if res.Rows != 4 {
		t.Errorf("rows = %d, want 4", res.Rows)
	}

	snap, err := Load(res.Path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Component != "widgets" || !strings.HasPrefix(snap.ID, "bk-") || !snap.Timestamp.Equal(fixedNow) {
		t.Fatalf("snapshot header = %q %q %v", snap.Component, snap.ID, snap.Timestamp)
	}

	for key, table := range map[string]string{
		model.BackupKeyConfig:     "widgets_config",
		model.BackupKeyParameters: "widgets_parameters",
		"widgets_items":           "widgets_items",
	} {
		rows, err := s.DumpTable(ctx, table)
		if err != nil {
			t.Fatal(err)
		}
		if got, want := jsonOf(t, snap.Tables[key]), jsonOf(t, rows); got != want {
			t.Errorf("%s reload:\n got %s\nwant %s", key, got, want)
		}
	}
	if tags, ok := snap.Tables["widgets_item_tags"]; !ok || len(tags) != 0 {
		t.Errorf("absent table should export as empty array, got %v (present=%v)", tags, ok)
	}
}

func TestCreate_RawDocumentShape(t *testing.T) {
	res := Create(context.Background(), seededStore(t), component.Widgets(), t.TempDir(), fixedNow)
	if !res.Success {
		t.Fatal(res.Error)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"parameters", "config", "widgets_items", "widgets_item_tags", "backup_timestamp", "backup_id"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if string(doc["backup_timestamp"]) != `"2026-03-14 09:26:53"` {
		t.Errorf("backup_timestamp = %s", doc["backup_timestamp"])
	}
	if string(doc["widgets_item_tags"]) != "[]" {
		t.Errorf("widgets_item_tags = %s", doc["widgets_item_tags"])
	}
}

func TestCreate_SameSecondDoesNotOverwrite(t *testing.T) {
	s := seededStore(t)
	dir := t.TempDir()
	first := Create(context.Background(), s, component.Widgets(), dir, fixedNow)
	second := Create(context.Background(), s, component.Widgets(), dir, fixedNow)
	if !first.Success || !second.Success {
		t.Fatalf("results = %+v / %+v", first, second)
	}
	if first.Path == second.Path {
		t.Fatal("second backup overwrote the first")
	}
}

func TestCreate_DumpFailure(t *testing.T) {
	s := seededStore(t)
	s.FailDump["widgets_items"] = errors.New("permission denied for table widgets_items")
	res := Create(context.Background(), s, component.Widgets(), t.TempDir(), fixedNow)
	if res.Success || !strings.Contains(res.Error, "permission denied") {
		t.Fatalf("result = %+v", res)
	}
}

func TestCreate_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "widgets")
	if err := os.WriteFile(blocker, []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := Create(context.Background(), seededStore(t), component.Widgets(), dir, fixedNow)
	if res.Success || res.Error == "" {
		t.Fatalf("expected failure, got %+v", res)
	}
}

type memDestination struct {
	mu     sync.Mutex
	writes map[string][]byte
	err    error
}

func (d *memDestination) Write(_ context.Context, name string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	if d.writes == nil {
		d.writes = make(map[string][]byte)
	}
	d.writes[name] = append([]byte(nil), data...)
	return nil
}

func (d *memDestination) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.writes)
}

func TestMirror(t *testing.T) {
	res := Create(context.Background(), seededStore(t), component.Widgets(), t.TempDir(), fixedNow)
	good := &memDestination{}
	bad := &memDestination{err: errors.New("bucket gone")}

	warnings := Mirror(context.Background(), "widgets", res.Path, []Destination{good, bad})
	if len(warnings) != 1 || !strings.Contains(warnings[0], "bucket gone") {
		t.Fatalf("warnings = %v", warnings)
	}
	want, _ := os.ReadFile(res.Path)
	got := good.writes["widgets/uninstall_backup_2026-03-14_09-26-53.json"]
	if !bytes.Equal(got, want) {
		t.Fatalf("mirrored %d bytes, want %d", len(got), len(want))
	}

	if w := Mirror(context.Background(), "widgets", res.Path, nil); w != nil {
		t.Errorf("no destinations should produce no warnings, got %v", w)
	}
}

func TestS3Destination(t *testing.T) {
	var (
		mu      sync.Mutex
		gotPath string
		gotMeta string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.Method == http.MethodPut {
			gotPath = r.URL.Path
			gotMeta = r.Header.Get("X-Amz-Meta-Component")
			gotBody, _ = io.ReadAll(r.Body)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "none"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "none"))

	dest, err := NewS3Destination(context.Background(), S3Options{
		Bucket:   "panel-backups",
		Prefix:   "panelkit/backups",
		Region:   "us-east-1",
		Endpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewS3Destination: %v", err)
	}
	if err := dest.Write(context.Background(), "widgets/snap.json", []byte(`{"backup_id":"bk-1"}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/panel-backups/panelkit/backups/widgets/snap.json" {
		t.Errorf("path = %s", gotPath)
	}
	if gotMeta != "widgets" {
		t.Errorf("component metadata = %q", gotMeta)
	}
	if len(gotBody) == 0 {
		t.Error("empty upload body")
	}

	if _, err := NewS3Destination(context.Background(), S3Options{Region: "us-east-1"}); err == nil {
		t.Error("missing bucket should fail")
	}
}

func TestSchedulerSnapshotsInstalledComponents(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	if err := s.RegisterComponent(ctx, &model.Component{Name: "widgets", Version: "1.0.0"}); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterComponent(ctx, &model.Component{Name: "ghost", Version: "1.0.0"}); err != nil {
		t.Fatal(err)
	}

	dest := &memDestination{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	sched := NewScheduler(s, component.Builtin(), t.TempDir(), []Destination{dest}, time.Hour, logger)

	if n := sched.SnapshotAll(ctx); n != 1 {
		t.Fatalf("SnapshotAll = %d, want 1", n)
	}
	if dest.count() != 1 {
		t.Fatalf("destination writes = %d", dest.count())
	}
	for name := range dest.writes {
		if !strings.HasPrefix(name, "widgets/snapshot_") {
			t.Errorf("unexpected object %s", name)
		}
	}
}

func TestSchedulerStartStop(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	if err := s.RegisterComponent(ctx, &model.Component{Name: "widgets", Version: "1.0.0"}); err != nil {
		t.Fatal(err)
	}
	dest := &memDestination{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	sched := NewScheduler(s, component.Builtin(), t.TempDir(), []Destination{dest}, 50*time.Millisecond, logger)
	tick := 0
	sched.now = func() time.Time {
		tick++
		return fixedNow.Add(time.Duration(tick) * time.Second)
	}
	sched.Start()
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if n := dest.count(); n < 2 {
		t.Fatalf("expected at least 2 snapshots, got %d", n)
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	sched := NewScheduler(memstore.New(), component.Builtin(), t.TempDir(), nil, time.Minute, logger)
	sched.Stop()
}

func TestScheduler_NilLoggerZeroInterval(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	if err := s.RegisterComponent(ctx, &model.Component{Name: "widgets", Version: "1.0.0"}); err != nil {
		t.Fatal(err)
	}
	dest := &memDestination{}

	sched := NewScheduler(s, component.Builtin(), t.TempDir(), []Destination{dest}, 0, nil)
	sched.Start()
	time.Sleep(50 * time.Millisecond)
	sched.Stop()

	if n := dest.count(); n != 1 {
		t.Fatalf("zero interval should snapshot once, got %d", n)
	}
}
