// Package menu installs and removes a component's navigation links in the
// shared menu table. The menu table belongs to an optional external
// component; when it is absent, installs report a soft failure and removals
// succeed as no-ops.
package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/store"
)

// OrderOffset is the menu_order of the section heading and first child.
// Lower values stay free for manually curated entries.
const OrderOffset = 100

// HeadingPage is the page suffix of the section heading row.
const HeadingPage = "section"

// ErrNoMenuTable is the soft-failure reason when the menu system is not installed.
var ErrNoMenuTable = errors.New("menu table " + model.MenuTable + " does not exist")

// Page is one link below a component's section heading. Parent names the
// Slug of a top-level page and makes this page a sub-item of it.
type Page struct {
	Slug        string `toml:"slug" yaml:"slug" json:"slug"`
	Title       string `toml:"title" yaml:"title" json:"title"`
	Path        string `toml:"path" yaml:"path" json:"path,omitempty"`
	Icon        string `toml:"icon" yaml:"icon" json:"icon,omitempty"`
	IconSVGPath string `toml:"icon_svg_path" yaml:"icon_svg_path" json:"icon_svg_path,omitempty"`
	Parent      string `toml:"parent" yaml:"parent" json:"parent,omitempty"`
}

// Menu is the tree a component installs: one heading and its pages.
type Menu struct {
	Heading string `toml:"heading" yaml:"heading" json:"heading"`
	Icon    string `toml:"icon" yaml:"icon" json:"icon,omitempty"`
	Pages   []Page `toml:"pages" yaml:"pages" json:"pages"`
}

// Validate checks slugs are unique and the tree is at most two levels below
// the heading.
func (m Menu) Validate() error {
	seen := make(map[string]Page, len(m.Pages))
	for _, p := range m.Pages {
		if p.Slug == "" {
			return errors.New("menu page slug is required")
		}
		if p.Slug == HeadingPage {
			return fmt.Errorf("menu page slug %q is reserved", HeadingPage)
		}
		if _, dup := seen[p.Slug]; dup {
			return fmt.Errorf("duplicate menu page %q", p.Slug)
		}
		seen[p.Slug] = p
	}
	for _, p := range m.Pages {
		if p.Parent == "" {
			continue
		}
		parent, ok := seen[p.Parent]
		if !ok {
			return fmt.Errorf("menu page %q: unknown parent %q", p.Slug, p.Parent)
		}
		if parent.Parent != "" {
			return fmt.Errorf("menu page %q: parent %q is itself a sub-item", p.Slug, p.Parent)
		}
	}
	return nil
}

// Installer writes menu links through a store.
type Installer struct {
	store  store.Store
	logger *slog.Logger
}

// NewInstaller returns an Installer. A nil logger discards output.
func NewInstaller(s store.Store, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Installer{store: s, logger: logger}
}

// linkURL joins the admin base URL with a page path. Pages without an
// explicit path link to "{base}/{component}/{slug}".
func linkURL(adminBaseURL, component string, p Page) string {
	path := p.Path
	if path == "" {
		path = component + "/" + p.Slug
	}
	if strings.Contains(path, "://") {
		return path
	}
	return strings.TrimRight(adminBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// CreateLinks inserts the section heading followed by every page, in one
// transaction. A missing menu table or any failed insert yields
// Success=false; nothing is left half-created.
func (i *Installer) CreateLinks(ctx context.Context, component, adminBaseURL string, m Menu) model.MenuResult {
	if err := m.Validate(); err != nil {
		return model.MenuResult{Error: err.Error()}
	}
	exists, err := i.store.TableExists(ctx, model.MenuTable)
	if err != nil {
		return model.MenuResult{Error: fmt.Sprintf("check menu table: %v", err)}
	}
	if !exists {
		return model.MenuResult{Error: ErrNoMenuTable.Error()}
	}

	var ids []int64
	err = i.store.RunInTransaction(ctx, func(tx store.Store) error {
		ids = ids[:0]
		heading := &model.MenuLink{
			Title:            m.Heading,
			URL:              "#",
			Icon:             m.Icon,
			PageIdentifier:   model.PageIdentifier(component, HeadingPage),
			MenuOrder:        OrderOffset,
			IsActive:         true,
			MenuType:         model.MenuTypeAdmin,
			IsSectionHeading: true,
		}
		if err := tx.InsertMenuLink(ctx, heading); err != nil {
			return fmt.Errorf("insert section heading: %w", err)
		}
		ids = append(ids, heading.ID)

		parents := make(map[string]int64)
		for n, p := range m.Pages {
			link := &model.MenuLink{
				Title:            p.Title,
				URL:              linkURL(adminBaseURL, component, p),
				Icon:             p.Icon,
				IconSVGPath:      p.IconSVGPath,
				PageIdentifier:   model.PageIdentifier(component, p.Slug),
				SectionHeadingID: &heading.ID,
				MenuOrder:        OrderOffset + n,
				IsActive:         true,
				MenuType:         model.MenuTypeAdmin,
			}
			if p.Parent != "" {
				pid, ok := parents[p.Parent]
				if !ok {
					return fmt.Errorf("menu page %q: parent %q must be declared before it", p.Slug, p.Parent)
				}
				link.ParentID = &pid
			}
			if err := tx.InsertMenuLink(ctx, link); err != nil {
				return fmt.Errorf("insert menu link %s: %w", link.PageIdentifier, err)
			}
			if p.Parent == "" {
				parents[p.Slug] = link.ID
			}
			ids = append(ids, link.ID)
		}
		return nil
	})
	if err != nil {
		i.logger.Warn("menu install rolled back", "component", component, "err", err)
		return model.MenuResult{Error: err.Error()}
	}

	i.logger.Info("menu links created", "component", component, "count", len(ids))
	return model.MenuResult{Success: true, MenuIDs: ids}
}

// InstallOrSkip creates the links only when the component has none yet, so
// install can be re-run safely.
func (i *Installer) InstallOrSkip(ctx context.Context, component, adminBaseURL string, m Menu) model.MenuResult {
	exists, err := i.store.TableExists(ctx, model.MenuTable)
	if err != nil {
		return model.MenuResult{Error: fmt.Sprintf("check menu table: %v", err)}
	}
	if !exists {
		return model.MenuResult{Error: ErrNoMenuTable.Error()}
	}

	existing, err := i.store.ListMenuLinks(ctx, model.NamespacePrefix(component))
	if err != nil {
		return model.MenuResult{Error: fmt.Sprintf("list menu links: %v", err)}
	}
	if len(existing) > 0 {
		ids := make([]int64, len(existing))
		for n, l := range existing {
			ids[n] = l.ID
		}
		i.logger.Info("menu links already present", "component", component, "count", len(ids))
		return model.MenuResult{Success: true, Skipped: true, MenuIDs: ids}
	}
	return i.CreateLinks(ctx, component, adminBaseURL, m)
}

// RemoveLinks deletes every link in the component's namespace. A missing
// menu table is a successful no-op.
func (i *Installer) RemoveLinks(ctx context.Context, component string) model.MenuResult {
	exists, err := i.store.TableExists(ctx, model.MenuTable)
	if err != nil {
		return model.MenuResult{Error: fmt.Sprintf("check menu table: %v", err)}
	}
	if !exists {
		return model.MenuResult{Success: true}
	}

	n, err := i.store.DeleteMenuLinks(ctx, model.NamespacePrefix(component))
	if err != nil {
		return model.MenuResult{Error: fmt.Sprintf("delete menu links: %v", err)}
	}
	i.logger.Info("menu links removed", "component", component, "deleted", n)
	return model.MenuResult{Success: true, DeletedCount: n}
}

// ListLinks returns the component's links ordered by menu_order. A missing
// menu table yields an empty list.
func (i *Installer) ListLinks(ctx context.Context, component string) ([]*model.MenuLink, error) {
	exists, err := i.store.TableExists(ctx, model.MenuTable)
	if err != nil {
		return nil, fmt.Errorf("check menu table: %w", err)
	}
	if !exists {
		return nil, nil
	}
	return i.store.ListMenuLinks(ctx, model.NamespacePrefix(component))
}
