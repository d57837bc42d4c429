// Package server exposes the component lifecycle over HTTP and serves the
// standard gRPC health service.
package server

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/alfredjeanlab/panelkit/internal/backup"
	"github.com/alfredjeanlab/panelkit/internal/component"
	"github.com/alfredjeanlab/panelkit/internal/events"
	"github.com/alfredjeanlab/panelkit/internal/menu"
	"github.com/alfredjeanlab/panelkit/internal/migrate"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/store"
	"github.com/alfredjeanlab/panelkit/internal/uninstall"
)

// Options configures a Server.
type Options struct {
	ComponentsDir string
	AdminBaseURL  string
	// Publisher receives lifecycle events in addition to SSE clients.
	Publisher    events.Publisher
	Destinations []backup.Destination
	Logger       *slog.Logger
}

// Server implements the admin API on top of a store and a component catalog.
type Server struct {
	store       store.Store
	catalog     *component.Catalog
	opts        Options
	emitter     *events.Emitter
	menus       *menu.Installer
	runner      *migrate.Runner
	uninstaller *uninstall.Uninstaller
	sseHub      *sseHub
	logger      *slog.Logger
}

// New returns a Server. Every lifecycle event it produces is recorded in the
// store, sent to opts.Publisher and broadcast to SSE clients.
func New(s store.Store, catalog *component.Catalog, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hub := newSSEHub()
	emitter := events.NewEmitter(s, events.Multi(opts.Publisher, hub), "api", logger)
	return &Server{
		store:       s,
		catalog:     catalog,
		opts:        opts,
		emitter:     emitter,
		menus:       menu.NewInstaller(s, logger),
		runner:      migrate.NewRunner(s, emitter, logger),
		uninstaller: uninstall.New(s, opts.ComponentsDir, emitter, logger).WithDestinations(opts.Destinations...),
		sseHub:      hub,
		logger:      logger,
	}
}

// inputError indicates invalid user input.
// Transport layers map this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }

// errNotInstalled is returned for a known component without a registry row.
var errNotInstalled = errors.New("component is not installed")

// installed resolves name to its definition and registry row.
func (s *Server) installed(ctx context.Context, name string) (*component.Definition, *model.Component, error) {
	def, ok := s.catalog.Get(name)
	if !ok {
		return nil, nil, sql.ErrNoRows
	}
	c, err := s.store.GetComponent(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil, errNotInstalled
	}
	if err != nil {
		return nil, nil, err
	}
	return def, c, nil
}
