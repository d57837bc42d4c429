package component

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/schema"
	"github.com/alfredjeanlab/panelkit/internal/store/memstore"
)

func TestBuiltin(t *testing.T) {
	c := Builtin()
	if got := fmt.Sprint(c.Names()); got != "[commerce inventory sms widgets]" {
		t.Fatalf("names = %s", got)
	}
	w, ok := c.Get("widgets")
	if !ok {
		t.Fatal("widgets missing")
	}
	if len(w.Menu.Pages) != 5 {
		t.Fatalf("widgets should install 5 links below its heading, has %d", len(w.Menu.Pages))
	}
	if len(w.Parameters) != 0 {
		t.Fatalf("widgets should not seed parameters, has %d", len(w.Parameters))
	}
}

func TestCommerceDropOrder(t *testing.T) {
	order, err := schema.DropOrder(Commerce().AllTables())
	if err != nil {
		t.Fatal(err)
	}
	pos := map[string]int{}
	for i, n := range order {
		pos[n] = i
	}
	for _, edge := range [][2]string{
		{"commerce_order_items", "commerce_orders"},
		{"commerce_orders", "commerce_customers"},
		{"commerce_orders", "commerce_coupons"},
	} {
		if pos[edge[0]] > pos[edge[1]] {
			t.Errorf("%s must be dropped before %s (order %v)", edge[0], edge[1], order)
		}
	}
	if len(order) != 6 {
		t.Fatalf("expected core + 4 tables, got %v", order)
	}
}

func TestLatestVersion(t *testing.T) {
	if got := Widgets().LatestVersion(); got != "1.0.0" {
		t.Errorf("widgets latest = %s", got)
	}
	if got := Commerce().LatestVersion(); got != "1.2.0" {
		t.Errorf("commerce latest = %s", got)
	}
}

func TestRegister_Collisions(t *testing.T) {
	c := NewCatalog()
	if err := c.Register(&Definition{Name: "shop"}); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"shop", "shop_admin"} {
		if err := c.Register(&Definition{Name: name}); err == nil {
			t.Errorf("Register(%q) should fail", name)
		}
	}
	if err := c.Register(&Definition{Name: "shopping"}); err != nil {
		t.Errorf("Register(shopping): %v", err)
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		def  Definition
		want string
	}{
		{"bad name", Definition{Name: "Bad-Name"}, "invalid value"},
		{"foreign table", Definition{Name: "shop", Tables: []schema.Table{{Name: "orders", Columns: []schema.Column{{Name: "id", Definition: "INT"}}}}}, "outside"},
		{"reserved table", Definition{Name: "shop", Tables: []schema.Table{{Name: "shop_config", Columns: []schema.Column{{Name: "id", Definition: "INT"}}}}}, "reserved"},
		{"duplicate param", Definition{Name: "shop", Parameters: []model.Parameter{
			{Section: "A", Name: "x"}, {Section: "A", Name: "x"},
		}}, "duplicate default"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.def.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %v, want containing %q", err, tc.want)
			}
		})
	}
}

const shopTOML = `
name = "shop"
title = "Shop"

[menu]
heading = "Shop"

[[menu.pages]]
slug = "orders"
title = "Orders"

[[tables]]
name = "shop_orders"
columns = [
  { name = "id", definition = "BIGSERIAL PRIMARY KEY" },
  { name = "total", definition = "NUMERIC(12,2)" },
]

[[parameters]]
section = "Checkout"
parameter_name = "guest_checkout"
value = "yes"
value_type = "boolean"

[[migrations]]
version = "1.1.0"
description = "notes"
add_columns = [{ table = "shop_orders", column = "notes", definition = "TEXT" }]

[[migrations]]
version = "1.2.0"
sql = ["CREATE INDEX IF NOT EXISTS shop_orders_total ON shop_orders (total)"]
`

const blogYAML = `
name: blog
title: Blog
menu:
  pages:
    - slug: posts
      title: Posts
tables:
  - name: blog_posts
    columns:
      - name: id
        definition: BIGSERIAL PRIMARY KEY
      - name: title
        definition: VARCHAR(255) NOT NULL
parameters:
  - section: Display
    parameter_name: per_page
    value: "10"
    min_range: 1
    max_range: 100
`

func writeManifest(t *testing.T, dir, component, file, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, component), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, component, file), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "shop", "component.toml", shopTOML)
	writeManifest(t, dir, "blog", "component.yaml", blogYAML)
	// Runtime-only directory without a manifest.
	if err := os.MkdirAll(filepath.Join(dir, "widgets", "backups"), 0o755); err != nil {
		t.Fatal(err)
	}

	c := Builtin()
	loaded, err := c.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if fmt.Sprint(loaded) != "[blog shop]" {
		t.Fatalf("loaded = %v", loaded)
	}

	shop, _ := c.Get("shop")
	if shop.LatestVersion() != "1.2.0" || len(shop.Migrations) != 2 {
		t.Fatalf("shop migrations = %+v", shop.Migrations)
	}
	if shop.Parameters[0].ValueType != model.ValueBoolean {
		t.Errorf("shop param type = %q", shop.Parameters[0].ValueType)
	}

	blog, _ := c.Get("blog")
	if blog.Menu.Heading != "Blog" {
		t.Errorf("blog heading defaults to title, got %q", blog.Menu.Heading)
	}
	if p := blog.Parameters[0]; p.MinRange == nil || *p.MaxRange != 100 {
		t.Errorf("blog param range = %+v", p)
	}

	// The manifest migrations run through the guarded steps.
	s := memstore.New()
	s.CreateTable("shop_orders", "id", "total")
	for _, m := range shop.Migrations {
		for i := 0; i < 2; i++ {
			if err := m.Up(context.Background(), s); err != nil {
				t.Fatalf("migration %s run %d: %v", m.Version, i+1, err)
			}
		}
	}
	if got := fmt.Sprint(s.Columns("shop_orders")); got != "[id total notes]" {
		t.Errorf("columns = %s", got)
	}
}

func TestLoadDir_Missing(t *testing.T) {
	loaded, err := NewCatalog().LoadDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil || loaded != nil {
		t.Fatalf("LoadDir = %v, %v", loaded, err)
	}
}

func TestLoadDir_NameMismatch(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "store", "component.toml", shopTOML)
	if _, err := NewCatalog().LoadDir(dir); err == nil || !strings.Contains(err.Error(), "does not match") {
		t.Fatalf("expected name mismatch, got %v", err)
	}
}

func TestLoadDir_CollidesWithBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "sms_extra", "component.yml", "name: sms_extra\n")
	if _, err := Builtin().LoadDir(dir); err == nil || !strings.Contains(err.Error(), "collides") {
		t.Fatalf("expected collision, got %v", err)
	}
}

func TestParseManifest_Errors(t *testing.T) {
	if _, err := ParseManifest("x.toml", []byte("name = \"a\"\nbogus = 1\n")); err == nil {
		t.Error("unknown TOML key should fail")
	}
	if _, err := ParseManifest("x.yaml", []byte("name: a\nbogus: 1\n")); err == nil {
		t.Error("unknown YAML key should fail")
	}
	if _, err := ParseManifest("x.json", []byte("{}")); err == nil {
		t.Error("unsupported extension should fail")
	}
	m := &Manifest{Name: "a", Migrations: []ManifestMigration{{Version: "1.0.0"}}}
	if _, err := m.Definition(); err == nil {
		t.Error("migration without steps should fail")
	}
}
