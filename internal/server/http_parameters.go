package server

import (
	"encoding/json"
	"net/http"

	"github.com/alfredjeanlab/panelkit/internal/events"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/params"
)

// parameterView adds the render hint to a stored parameter.
type parameterView struct {
	*model.Parameter
	Hint model.ValueType `json:"hint"`
}

type sectionView struct {
	Name       string          `json:"name"`
	Parameters []parameterView `json:"parameters"`
}

// parameterStore resolves the {name} path value to an installed component.
func (s *Server) parameterStore(w http.ResponseWriter, r *http.Request) (*params.Store, bool) {
	def, _, err := s.installed(r.Context(), r.PathValue("name"))
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	return params.New(s.store, def.Name), true
}

// handleListParameters handles GET /v1/components/{name}/parameters.
// Query: section (exact), q (name substring).
func (s *Server) handleListParameters(w http.ResponseWriter, r *http.Request) {
	ps, ok := s.parameterStore(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	list, err := ps.List(r.Context(), model.ParameterFilter{Section: q.Get("section"), Search: q.Get("q")})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sections := []sectionView{}
	for _, sec := range params.Group(list) {
		sv := sectionView{Name: sec.Name}
		for _, p := range sec.Parameters {
			sv.Parameters = append(sv.Parameters, parameterView{Parameter: p, Hint: params.Hint(p)})
		}
		sections = append(sections, sv)
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": sections, "total": len(list)})
}

// handleGetParameter handles GET /v1/components/{name}/parameters/{section}/{param}.
func (s *Server) handleGetParameter(w http.ResponseWriter, r *http.Request) {
	ps, ok := s.parameterStore(w, r)
	if !ok {
		return
	}
	p, err := ps.Lookup(r.Context(), r.PathValue("section"), r.PathValue("param"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parameterView{Parameter: p, Hint: params.Hint(p)})
}

type setParameterRequest struct {
	Value       *string  `json:"value"`
	Description string   `json:"description"`
	MinRange    *float64 `json:"min_range"`
	MaxRange    *float64 `json:"max_range"`
	ValueType   string   `json:"value_type"`
}

// handleSetParameter handles PUT /v1/components/{name}/parameters/{section}/{param}.
func (s *Server) handleSetParameter(w http.ResponseWriter, r *http.Request) {
	ps, ok := s.parameterStore(w, r)
	if !ok {
		return
	}
	var req setParameterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeStoreError(w, inputError("value is required"))
		return
	}

	p := &model.Parameter{
		Section:     r.PathValue("section"),
		Name:        r.PathValue("param"),
		Value:       *req.Value,
		Description: req.Description,
		MinRange:    req.MinRange,
		MaxRange:    req.MaxRange,
		ValueType:   model.ValueType(req.ValueType),
	}
	if _, err := ps.Put(r.Context(), p); err != nil {
		writeStoreError(w, err)
		return
	}
	s.emitter.Emit(r.Context(), events.TopicParameterSet, ps.Component(), events.ParameterSet{
		Section:   p.Section,
		Name:      p.Name,
		Value:     p.Value,
		ValueType: string(p.ValueType),
	})

	stored, err := ps.Lookup(r.Context(), p.Section, p.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parameterView{Parameter: stored, Hint: params.Hint(stored)})
}

// handleDeleteParameter handles DELETE /v1/components/{name}/parameters/{section}/{param}.
func (s *Server) handleDeleteParameter(w http.ResponseWriter, r *http.Request) {
	ps, ok := s.parameterStore(w, r)
	if !ok {
		return
	}
	section, name := r.PathValue("section"), r.PathValue("param")
	if err := ps.Delete(r.Context(), section, name); err != nil {
		writeStoreError(w, err)
		return
	}
	s.emitter.Emit(r.Context(), events.TopicParameterDeleted, ps.Component(), events.ParameterDeleted{Section: section, Name: name})
	w.WriteHeader(http.StatusNoContent)
}
