package menu

import (
	"context"
	"strings"
	"testing"

	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/store/memstore"
)

func widgetsMenu() Menu {
	return Menu{
		Heading: "Widgets",
		Icon:    "fa-cubes",
		Pages: []Page{
			{Slug: "dashboard", Title: "Dashboard"},
			{Slug: "list", Title: "All Widgets"},
			{Slug: "create", Title: "New Widget", Parent: "list"},
			{Slug: "settings", Title: "Settings", Path: "widgets/settings.php"},
			{Slug: "docs", Title: "Docs", Path: "https://example.com/widgets"},
		},
	}
}

func TestCreateLinks(t *testing.T) {
	s := memstore.New().WithMenuTable()
	inst := NewInstaller(s, nil)

	res := inst.CreateLinks(context.Background(), "widgets", "/admin/", widgetsMenu())
	if !res.Success {
		t.Fatalf("CreateLinks failed: %s", res.Error)
	}
	if len(res.MenuIDs) != 6 {
		t.Fatalf("expected 6 ids, got %d", len(res.MenuIDs))
	}

	links := s.MenuLinks()
	heading := links[0]
	if !heading.IsSectionHeading || heading.PageIdentifier != "widgets_section" || heading.MenuOrder != OrderOffset {
		t.Fatalf("unexpected heading: %+v", heading)
	}
	for n, l := range links[1:] {
		if l.MenuOrder != OrderOffset+n {
			t.Errorf("%s: menu_order = %d, want %d", l.PageIdentifier, l.MenuOrder, OrderOffset+n)
		}
		if l.SectionHeadingID == nil || *l.SectionHeadingID != heading.ID {
			t.Errorf("%s: section_heading_id = %v", l.PageIdentifier, l.SectionHeadingID)
		}
		if !strings.HasPrefix(l.PageIdentifier, "widgets_") {
			t.Errorf("page_identifier %q outside namespace", l.PageIdentifier)
		}
	}

	byID := map[string]*model.MenuLink{}
	for _, l := range links {
		byID[l.PageIdentifier] = l
	}
	if got := byID["widgets_dashboard"].URL; got != "/admin/widgets/dashboard" {
		t.Errorf("dashboard url = %q", got)
	}
	if got := byID["widgets_settings"].URL; got != "/admin/widgets/settings.php" {
		t.Errorf("settings url = %q", got)
	}
	if got := byID["widgets_docs"].URL; got != "https://example.com/widgets" {
		t.Errorf("docs url = %q", got)
	}
	create := byID["widgets_create"]
	if create.ParentID == nil || *create.ParentID != byID["widgets_list"].ID {
		t.Errorf("create parent = %v, want %d", create.ParentID, byID["widgets_list"].ID)
	}
}

func TestCreateLinks_NoMenuTable(t *testing.T) {
	inst := NewInstaller(memstore.New(), nil)

	res := inst.CreateLinks(context.Background(), "widgets", "/admin", widgetsMenu())
	if res.Success {
		t.Fatal("expected soft failure without menu table")
	}
	if res.Error != ErrNoMenuTable.Error() {
		t.Fatalf("error = %q", res.Error)
	}
}

func TestCreateLinks_RollsBackOnFailure(t *testing.T) {
	s := memstore.New().WithMenuTable()
	s.FailMenuInsertAt = 3
	inst := NewInstaller(s, nil)

	res := inst.CreateLinks(context.Background(), "widgets", "/admin", widgetsMenu())
	if res.Success {
		t.Fatal("expected failure")
	}
	if n := len(s.MenuLinks()); n != 0 {
		t.Fatalf("expected no links after rollback, got %d", n)
	}
}

func TestCreateLinks_RejectsDeepTree(t *testing.T) {
	s := memstore.New().WithMenuTable()
	inst := NewInstaller(s, nil)
	m := Menu{Heading: "W", Pages: []Page{
		{Slug: "a", Title: "A"},
		{Slug: "b", Title: "B", Parent: "a"},
		{Slug: "c", Title: "C", Parent: "b"},
	}}

	res := inst.CreateLinks(context.Background(), "widgets", "/admin", m)
	if res.Success || !strings.Contains(res.Error, "sub-item") {
		t.Fatalf("expected depth error, got %+v", res)
	}
	if len(s.MenuLinks()) != 0 {
		t.Fatal("nothing should be inserted")
	}
}

func TestMenuValidate(t *testing.T) {
	for _, tc := range []struct {
		name  string
		pages []Page
		want  string
	}{
		{"empty slug", []Page{{Title: "x"}}, "slug is required"},
		{"reserved", []Page{{Slug: HeadingPage}}, "reserved"},
		{"duplicate", []Page{{Slug: "a"}, {Slug: "a"}}, "duplicate"},
		{"unknown parent", []Page{{Slug: "a", Parent: "zzz"}}, "unknown parent"},
		{"ok", []Page{{Slug: "a"}, {Slug: "b", Parent: "a"}}, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := Menu{Pages: tc.pages}.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestInstallOrSkip(t *testing.T) {
	s := memstore.New().WithMenuTable()
	inst := NewInstaller(s, nil)
	ctx := context.Background()

	first := inst.InstallOrSkip(ctx, "widgets", "/admin", widgetsMenu())
	if !first.Success || first.Skipped {
		t.Fatalf("first install = %+v", first)
	}
	second := inst.InstallOrSkip(ctx, "widgets", "/admin", widgetsMenu())
	if !second.Success || !second.Skipped {
		t.Fatalf("second install = %+v", second)
	}
	if len(second.MenuIDs) != len(first.MenuIDs) {
		t.Fatalf("skipped ids = %v, want %v", second.MenuIDs, first.MenuIDs)
	}
	if n := len(s.MenuLinks()); n != 6 {
		t.Fatalf("expected 6 links after re-run, got %d", n)
	}
}

func TestRemoveLinks(t *testing.T) {
	s := memstore.New().WithMenuTable()
	inst := NewInstaller(s, nil)
	ctx := context.Background()

	inst.CreateLinks(ctx, "widgets", "/admin", widgetsMenu())
	inst.CreateLinks(ctx, "widgetsplus", "/admin", Menu{Heading: "Plus", Pages: []Page{{Slug: "home", Title: "Home"}}})

	res := inst.RemoveLinks(ctx, "widgets")
	if !res.Success || res.DeletedCount != 6 {
		t.Fatalf("RemoveLinks = %+v", res)
	}
	left := s.MenuLinks()
	if len(left) != 2 {
		t.Fatalf("expected the other component's 2 links to remain, got %d", len(left))
	}
	for _, l := range left {
		if strings.HasPrefix(l.PageIdentifier, "widgets_") {
			t.Errorf("link %q should be removed", l.PageIdentifier)
		}
	}
}

func TestRemoveLinks_NoMenuTable(t *testing.T) {
	for _, name := range []string{"widgets", "commerce", "sms"} {
		res := NewInstaller(memstore.New(), nil).RemoveLinks(context.Background(), name)
		if !res.Success || res.DeletedCount != 0 || res.Error != "" {
			t.Errorf("%s: RemoveLinks = %+v, want success with 0 deleted", name, res)
		}
	}
}

func TestListLinks_NoMenuTable(t *testing.T) {
	links, err := NewInstaller(memstore.New(), nil).ListLinks(context.Background(), "widgets")
	if err != nil || links != nil {
		t.Fatalf("ListLinks = %v, %v", links, err)
	}
}
