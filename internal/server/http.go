package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alfredjeanlab/panelkit/internal/model"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/components", s.handleListComponents)
	mux.HandleFunc("GET /v1/components/{name}", s.handleGetComponent)
	mux.HandleFunc("GET /v1/components/{name}/parameters", s.handleListParameters)
	mux.HandleFunc("GET /v1/components/{name}/parameters/{section}/{param}", s.handleGetParameter)
	mux.HandleFunc("PUT /v1/components/{name}/parameters/{section}/{param}", s.handleSetParameter)
	mux.HandleFunc("DELETE /v1/components/{name}/parameters/{section}/{param}", s.handleDeleteParameter)
	mux.HandleFunc("POST /v1/components/{name}/migrate", s.handleMigrate)
	mux.HandleFunc("POST /v1/components/{name}/uninstall", s.handleUninstall)
	mux.HandleFunc("GET /v1/components/{name}/menu", s.handleGetMenu)
	mux.HandleFunc("GET /v1/components/{name}/events", s.handleListEvents)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps lookup and validation failures to status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	var ie inputError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, errNotInstalled):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ve), errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
