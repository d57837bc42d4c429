package model

// MenuTable is the shared navigation table owned by the menu_system component.
const MenuTable = "menu_system_menus"

// MenuTypeAdmin is the menu_type value written for admin navigation links.
const MenuTypeAdmin = "admin"

// MenuLink is one row of the shared menu table.
type MenuLink struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	URL              string `json:"url"`
	Icon             string `json:"icon,omitempty"`
	IconSVGPath      string `json:"icon_svg_path,omitempty"`
	PageIdentifier   string `json:"page_identifier"`
	ParentID         *int64 `json:"parent_id,omitempty"`
	SectionHeadingID *int64 `json:"section_heading_id,omitempty"`
	MenuOrder        int    `json:"menu_order"`
	IsActive         bool   `json:"is_active"`
	MenuType         string `json:"menu_type"`
	IsSectionHeading bool   `json:"is_section_heading"`
}

// MenuResult reports the outcome of a menu install or removal. A missing
// menu system is reported through Success/Error, never as a Go error.
type MenuResult struct {
	Success      bool    `json:"success"`
	MenuIDs      []int64 `json:"menu_ids,omitempty"`
	DeletedCount int64   `json:"deleted_count"`
	Skipped      bool    `json:"skipped,omitempty"`
	Error        string  `json:"error,omitempty"`
}
