package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alfredjeanlab/panelkit/internal/component"
	"github.com/alfredjeanlab/panelkit/internal/migrate"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/schema"
	"github.com/alfredjeanlab/panelkit/internal/uninstall"
)

type componentView struct {
	Name          string     `json:"name"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Installed     bool       `json:"installed"`
	Known         bool       `json:"known"`
	Version       string     `json:"version,omitempty"`
	LatestVersion string     `json:"latest_version,omitempty"`
	InstalledAt   *time.Time `json:"installed_at,omitempty"`
	Tables        []string   `json:"tables,omitempty"`
	Pending       []string   `json:"pending_migrations,omitempty"`
}

func newComponentView(def *component.Definition, c *model.Component) componentView {
	v := componentView{}
	if def != nil {
		v.Name, v.Title, v.Description = def.Name, def.Title, def.Description
		v.Known = true
		v.LatestVersion = def.LatestVersion()
	}
	if c != nil {
		v.Name = c.Name
		if v.Title == "" {
			v.Title = c.Name
		}
		v.Installed = true
		v.Version = c.Version
		at := c.InstalledAt
		v.InstalledAt = &at
	}
	return v
}

// handleListComponents handles GET /v1/components. Registered components
// without a definition are listed as unknown.
func (s *Server) handleListComponents(w http.ResponseWriter, r *http.Request) {
	registered, err := s.store.ListComponents(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	byName := make(map[string]*model.Component, len(registered))
	for _, c := range registered {
		byName[c.Name] = c
	}

	views := make([]componentView, 0, len(registered))
	for _, name := range s.catalog.Names() {
		def, _ := s.catalog.Get(name)
		views = append(views, newComponentView(def, byName[name]))
		delete(byName, name)
	}
	for _, c := range registered {
		if _, orphan := byName[c.Name]; orphan {
			views = append(views, newComponentView(nil, c))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"components": views})
}

// handleGetComponent handles GET /v1/components/{name}.
func (s *Server) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	def, c, err := s.installed(r.Context(), r.PathValue("name"))
	if err != nil && !errors.Is(err, errNotInstalled) {
		writeStoreError(w, err)
		return
	}
	v := newComponentView(def, c)
	v.Tables = schema.Names(def.AllTables())
	if c != nil {
		for _, m := range def.Migrations {
			if migrate.Compare(c.Version, m.Version) < 0 {
				v.Pending = append(v.Pending, m.Version)
			}
		}
	}
	writeJSON(w, http.StatusOK, v)
}

// handleMigrate handles POST /v1/components/{name}/migrate.
func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	def, _, err := s.installed(r.Context(), r.PathValue("name"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	res := s.runner.Run(r.Context(), def.Name, def.Migrations)
	status := http.StatusOK
	if !res.OK() {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

type uninstallRequest struct {
	Confirm  bool `json:"confirm"`
	NoBackup bool `json:"no_backup"`
}

// handleUninstall handles POST /v1/components/{name}/uninstall. The body
// must carry {"confirm": true}.
func (s *Server) handleUninstall(w http.ResponseWriter, r *http.Request) {
	def, ok := s.catalog.Get(r.PathValue("name"))
	if !ok {
		writeStoreError(w, sql.ErrNoRows)
		return
	}

	var req uninstallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res := s.uninstaller.Uninstall(r.Context(), def, uninstall.Options{Confirm: req.Confirm, NoBackup: req.NoBackup})
	status := http.StatusOK
	switch {
	case !req.Confirm:
		status = http.StatusBadRequest
	case !res.Success:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

// handleGetMenu handles GET /v1/components/{name}/menu.
func (s *Server) handleGetMenu(w http.ResponseWriter, r *http.Request) {
	def, ok := s.catalog.Get(r.PathValue("name"))
	if !ok {
		writeStoreError(w, sql.ErrNoRows)
		return
	}
	links, err := s.menus.ListLinks(r.Context(), def.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if links == nil {
		links = []*model.MenuLink{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

// handleListEvents handles GET /v1/components/{name}/events.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	evs, err := s.store.ListEvents(r.Context(), r.PathValue("name"), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if evs == nil {
		evs = []*model.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": evs})
}
