package schema

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func table(name string, refs ...string) Table {
	t := Table{Name: name, Columns: []Column{{Name: "id", Definition: "BIGSERIAL PRIMARY KEY"}}}
	for _, ref := range refs {
		col := ref + "_id"
		t.Columns = append(t.Columns, Column{Name: col, Definition: "BIGINT"})
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey{Columns: []string{col}, RefTable: ref, RefColumns: []string{"id"}})
	}
	return t
}

func TestCreateOrder(t *testing.T) {
	for _, tc := range []struct {
		name   string
		tables []Table
		want   []string
	}{
		{
			name:   "NoForeignKeys",
			tables: []Table{table("a"), table("b"), table("c")},
			want:   []string{"a", "b", "c"},
		},
		{
			name: "ChildDeclaredFirst",
			tables: []Table{
				table("shop_order_items", "shop_orders", "shop_products"),
				table("shop_orders"),
				table("shop_products"),
			},
			want: []string{"shop_orders", "shop_products", "shop_order_items"},
		},
		{
			name: "Chain",
			tables: []Table{
				table("c", "b"),
				table("b", "a"),
				table("a"),
			},
			want: []string{"a", "b", "c"},
		},
		{
			name:   "ExternalReferenceIgnored",
			tables: []Table{table("x", "users"), table("y")},
			want:   []string{"x", "y"},
		},
		{
			name:   "SelfReferenceIgnored",
			tables: []Table{table("tree", "tree")},
			want:   []string{"tree"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CreateOrder(tc.tables)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("CreateOrder = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDropOrder_ChildrenFirst(t *testing.T) {
	tables := []Table{
		table("shop_orders"),
		table("shop_products"),
		table("shop_order_items", "shop_orders", "shop_products"),
		table("shop_coupons"),
	}
	got, err := DropOrder(tables)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos := make(map[string]int)
	for i, n := range got {
		pos[n] = i
	}
	if pos["shop_order_items"] > pos["shop_orders"] || pos["shop_order_items"] > pos["shop_products"] {
		t.Errorf("child must be dropped before parents: %v", got)
	}
	if len(got) != 4 {
		t.Errorf("expected 4 tables, got %v", got)
	}
}

func TestCreateOrder_Cycle(t *testing.T) {
	_, err := CreateOrder([]Table{table("a", "b"), table("b", "a"), table("c")})
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if !strings.Contains(err.Error(), "a") || !strings.Contains(err.Error(), "b") {
		t.Errorf("error should name the cyclic tables: %v", err)
	}
}

func TestCreateSQL(t *testing.T) {
	tbl := Table{
		Name: "shop_order_items",
		Columns: []Column{
			{Name: "id", Definition: "BIGSERIAL PRIMARY KEY"},
			{Name: "order_id", Definition: "BIGINT NOT NULL"},
		},
		Unique:      [][]string{{"order_id", "id"}},
		ForeignKeys: []ForeignKey{{Columns: []string{"order_id"}, RefTable: "shop_orders", RefColumns: []string{"id"}, OnDelete: "cascade"}},
	}
	got := tbl.CreateSQL()
	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "shop_order_items"`,
		`"id" BIGSERIAL PRIMARY KEY`,
		`UNIQUE ("order_id", "id")`,
		`FOREIGN KEY ("order_id") REFERENCES "shop_orders" ("id") ON DELETE CASCADE`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("CreateSQL missing %q:\n%s", want, got)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate([]Table{table("a"), table("b", "a")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tc := range []struct {
		name   string
		tables []Table
	}{
		{"EmptyName", []Table{{Columns: []Column{{Name: "id", Definition: "INT"}}}}},
		{"Duplicate", []Table{table("a"), table("a")}},
		{"NoColumns", []Table{{Name: "a"}}},
		{"UndeclaredFKColumn", []Table{{
			Name:        "a",
			Columns:     []Column{{Name: "id", Definition: "INT"}},
			ForeignKeys: []ForeignKey{{Columns: []string{"b_id"}, RefTable: "b", RefColumns: []string{"id"}}},
		}}},
		{"MismatchedFKColumns", []Table{{
			Name:        "a",
			Columns:     []Column{{Name: "b_id", Definition: "INT"}},
			ForeignKeys: []ForeignKey{{Columns: []string{"b_id"}, RefTable: "b"}},
		}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := Validate(tc.tables); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
