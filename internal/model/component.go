package model

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// MaxComponentNameLength bounds component names so derived table names
// ("{name}_parameters") stay well under PostgreSQL's 63-byte identifier limit.
const MaxComponentNameLength = 32

var componentNameRe = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

// Component is an installable admin-panel unit identified by its namespace.
type Component struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	InstalledAt time.Time       `json:"installed_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	BaseConfig  json.RawMessage `json:"base_config,omitempty"`
}

// ConfigTable returns the name of the component's key/value config table.
func ConfigTable(component string) string {
	return component + "_config"
}

// ParametersTable returns the name of the component's parameter table.
func ParametersTable(component string) string {
	return component + "_parameters"
}

// PageIdentifier returns the namespaced menu page identifier "{component}_{page}".
func PageIdentifier(component, page string) string {
	return component + "_" + page
}

// NamespacePrefix is the prefix every page identifier and table of the
// component starts with.
func NamespacePrefix(component string) string {
	return component + "_"
}

// NamespacesCollide reports whether two component names would match each
// other's prefix patterns ("shop" and "shop_admin" collide because
// "shop_admin_orders" starts with "shop_").
func NamespacesCollide(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasPrefix(a, NamespacePrefix(b)) || strings.HasPrefix(b, NamespacePrefix(a))
}
