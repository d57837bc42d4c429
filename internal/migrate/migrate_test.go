package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/schema"
	"github.com/alfredjeanlab/panelkit/internal/store"
	"github.com/alfredjeanlab/panelkit/internal/store/memstore"
)

// installed returns a store where component has its config table and an
// orders table, registered at version.
func installed(t *testing.T, component, version string) *memstore.Store {
	t.Helper()
	s := memstore.New()
	s.CreateTable(model.ConfigTable(component), "key", "value", "updated_at")
	s.CreateTable(component+"_orders", "id", "total")
	ctx := context.Background()
	if err := s.RegisterComponent(ctx, &model.Component{Name: component, Version: version}); err != nil {
		t.Fatal(err)
	}
	if version != "" {
		if err := s.SetConfigValue(ctx, component, VersionKey, version); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func commerceMigrations(calls *[]string) []Migration {
	record := func(v string, step Step) Step {
		return func(ctx context.Context, s store.Store) error {
			*calls = append(*calls, v)
			return step(ctx, s)
		}
	}
	return []Migration{
		{Version: "1.2.0", Description: "coupon code", Up: record("1.2.0", AddColumn("commerce_orders", "coupon_code", "VARCHAR(64)"))},
		{Version: "1.0.1", Description: "currency", Up: record("1.0.1", AddColumn("commerce_orders", "currency", "CHAR(3) NOT NULL DEFAULT 'USD'"))},
		{Version: "1.10.0", Description: "notes", Up: record("1.10.0", AddColumn("commerce_orders", "notes", "TEXT"))},
	}
}

func TestRun_AscendingAndRecorded(t *testing.T) {
	s := installed(t, "commerce", "1.0.0")
	var calls []string
	res := NewRunner(s, nil, nil).Run(context.Background(), "commerce", commerceMigrations(&calls))

	if !res.OK() {
		t.Fatalf("errors: %v", res.Errors)
	}
	want := []string{"1.0.1", "1.2.0", "1.10.0"}
	if fmt.Sprint(res.Applied) != fmt.Sprint(want) || fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Fatalf("applied = %v calls = %v, want %v", res.Applied, calls, want)
	}
	if res.StartVersion != "1.0.0" || res.FinalVersion != "1.10.0" {
		t.Fatalf("start=%s final=%s", res.StartVersion, res.FinalVersion)
	}

	v, _ := CurrentVersion(context.Background(), s, "commerce")
	if v != "1.10.0" {
		t.Fatalf("recorded version = %q", v)
	}
	c, _ := s.GetComponent(context.Background(), "commerce")
	if c.Version != "1.10.0" {
		t.Fatalf("registry version = %q", c.Version)
	}
	if len(s.Locks) != 3 {
		t.Fatalf("expected a lock per migration, got %v", s.Locks)
	}
}

func TestRun_SecondRunIsNoop(t *testing.T) {
	s := installed(t, "commerce", "1.0.0")
	var calls []string
	r := NewRunner(s, nil, nil)
	ctx := context.Background()

	first := r.Run(ctx, "commerce", commerceMigrations(&calls))
	second := r.Run(ctx, "commerce", commerceMigrations(&calls))

	if second.FinalVersion != first.FinalVersion {
		t.Fatalf("final versions differ: %s vs %s", first.FinalVersion, second.FinalVersion)
	}
	if len(second.Applied) != 0 || !second.OK() {
		t.Fatalf("second run = %+v", second)
	}
	if len(calls) != 3 {
		t.Fatalf("migration functions ran %d times, want 3", len(calls))
	}
}

func TestRun_SkipsAtOrBelowCurrent(t *testing.T) {
	s := installed(t, "commerce", "1.2.0")
	var calls []string
	res := NewRunner(s, nil, nil).Run(context.Background(), "commerce", commerceMigrations(&calls))

	if fmt.Sprint(res.Applied) != "[1.10.0]" {
		t.Fatalf("applied = %v", res.Applied)
	}
}

func TestRun_NoRecordedVersionStartsAtBase(t *testing.T) {
	s := installed(t, "commerce", "")
	var calls []string
	res := NewRunner(s, nil, nil).Run(context.Background(), "commerce", commerceMigrations(&calls))

	if res.StartVersion != BaseVersion || len(res.Applied) != 3 {
		t.Fatalf("res = %+v", res)
	}
}

func TestRun_FailureHaltsAndKeepsLastVersion(t *testing.T) {
	s := installed(t, "commerce", "1.0.0")
	boom := errors.New("disk full")
	var ran []string
	migrations := []Migration{
		{Version: "1.1.0", Up: func(context.Context, store.Store) error { ran = append(ran, "1.1.0"); return nil }},
		{Version: "1.2.0", Up: func(context.Context, store.Store) error { ran = append(ran, "1.2.0"); return boom }},
		{Version: "1.3.0", Up: func(context.Context, store.Store) error { ran = append(ran, "1.3.0"); return nil }},
	}

	res := NewRunner(s, nil, nil).Run(context.Background(), "commerce", migrations)

	if res.OK() || len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "1.2.0") {
		t.Fatalf("errors = %v", res.Errors)
	}
	if res.FinalVersion != "1.1.0" || fmt.Sprint(res.Applied) != "[1.1.0]" {
		t.Fatalf("final=%s applied=%v", res.FinalVersion, res.Applied)
	}
	if fmt.Sprint(ran) != "[1.1.0 1.2.0]" {
		t.Fatalf("ran = %v; 1.3.0 must not run after a failure", ran)
	}
	if v, _ := CurrentVersion(context.Background(), s, "commerce"); v != "1.1.0" {
		t.Fatalf("recorded version = %q", v)
	}
}

func TestRun_InvalidVersion(t *testing.T) {
	s := installed(t, "commerce", "1.0.0")
	ran := false
	res := NewRunner(s, nil, nil).Run(context.Background(), "commerce", []Migration{
		{Version: "1.1.0", Up: func(context.Context, store.Store) error { ran = true; return nil }},
		{Version: "next", Up: func(context.Context, store.Store) error { return nil }},
	})
	if res.OK() || ran {
		t.Fatalf("expected validation error before anything runs, got %+v ran=%v", res, ran)
	}
}

// racingStore simulates another runner committing a migration between the
// first version read and the lock.
type racingStore struct {
	*memstore.Store
	once bool
}

func (r *racingStore) LockComponent(ctx context.Context, name string) error {
	if !r.once {
		r.once = true
		if err := r.Store.SetConfigValue(ctx, name, VersionKey, "1.1.0"); err != nil {
			return err
		}
	}
	return r.Store.LockComponent(ctx, name)
}

func (r *racingStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return r.Store.RunInTransaction(ctx, func(store.Store) error { return fn(r) })
}

func TestRun_RereadsVersionUnderLock(t *testing.T) {
	s := &racingStore{Store: installed(t, "commerce", "1.0.0")}
	ran := 0
	res := NewRunner(s, nil, nil).Run(context.Background(), "commerce", []Migration{
		{Version: "1.1.0", Up: func(context.Context, store.Store) error { ran++; return nil }},
	})
	if !res.OK() {
		t.Fatalf("errors: %v", res.Errors)
	}
	if ran != 0 || len(res.Applied) != 0 {
		t.Fatalf("migration applied by another runner must not re-run (ran=%d applied=%v)", ran, res.Applied)
	}
	if res.FinalVersion != "1.1.0" {
		t.Fatalf("final = %s", res.FinalVersion)
	}
}

func TestAddColumn_Idempotent(t *testing.T) {
	s := installed(t, "commerce", "1.0.0")
	step := AddColumn("commerce_orders", "coupon_code", "VARCHAR(64)")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := step(ctx, s); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}
	cols := s.Columns("commerce_orders")
	n := 0
	for _, c := range cols {
		if c == "coupon_code" {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("columns = %v", cols)
	}
	alters := 0
	for _, stmt := range s.Statements {
		if strings.HasPrefix(stmt, "ALTER TABLE") {
			alters++
		}
	}
	if alters != 1 {
		t.Fatalf("expected a single ALTER, got %d", alters)
	}
}

func TestCreateTableAndSteps(t *testing.T) {
	s := installed(t, "commerce", "1.0.0")
	tbl := schema.Table{Name: "commerce_coupons", Columns: []schema.Column{
		{Name: "id", Definition: "BIGSERIAL PRIMARY KEY"},
		{Name: "code", Definition: "VARCHAR(64) NOT NULL"},
	}}
	step := Steps(CreateTable(tbl), AddColumn("commerce_coupons", "expires_at", "TIMESTAMPTZ"), Exec("CREATE INDEX IF NOT EXISTS x ON commerce_coupons (code)"))
	if err := step(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(s.Columns("commerce_coupons")); got != "[id code expires_at]" {
		t.Fatalf("columns = %s", got)
	}
}

func TestLatestAndCompare(t *testing.T) {
	if got := Latest(nil); got != BaseVersion {
		t.Errorf("Latest(nil) = %s", got)
	}
	var calls []string
	if got := Latest(commerceMigrations(&calls)); got != "1.10.0" {
		t.Errorf("Latest = %s", got)
	}
	if Compare("1.2.0", "v1.10.0") >= 0 {
		t.Error("1.2.0 should sort before 1.10.0")
	}
	if !ValidVersion("v2.0.0") || ValidVersion("2.x") {
		t.Error("ValidVersion mismatch")
	}
}

func TestSorted_Duplicates(t *testing.T) {
	noop := func(context.Context, store.Store) error { return nil }
	if _, err := Sorted([]Migration{{Version: "1.0.0", Up: noop}, {Version: "v1.0.0", Up: noop}}); err == nil {
		t.Fatal("expected duplicate error")
	}
	if _, err := Sorted([]Migration{{Version: "1.0.0"}}); err == nil {
		t.Fatal("expected missing steps error")
	}
}
