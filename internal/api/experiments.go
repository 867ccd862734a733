package api

import (
	"net/http"

	"github.com/nerrad567/potentiostat-core/internal/auth"
	"github.com/nerrad567/potentiostat-core/internal/experiment"
	"github.com/nerrad567/potentiostat-core/internal/measurement"
	"github.com/nerrad567/potentiostat-core/internal/pagination"
)

func (s *Server) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var req experiment.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.experiments.Create(r.Context(), auth.PrincipalFrom(r.Context()), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSearchExperiments lists experiments. Non-admins only see their own.
//
// Query parameters: status, username, client_id, page, size.
func (s *Server) handleSearchExperiments(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	result, err := s.experiments.Search(r.Context(), auth.PrincipalFrom(r.Context()), experiment.SearchQuery{
		Status:   q.Get("status"),
		Username: q.Get("username"),
		ClientID: q.Get("client_id"),
	}, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetExperiment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.experiments.Get(r.Context(), auth.PrincipalFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartExperiment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.experiments.Start(r.Context(), auth.PrincipalFrom(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStopExperiment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.experiments.Stop(r.Context(), auth.PrincipalFrom(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMeasurements(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.experiments.Measurements(r.Context(), auth.PrincipalFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []measurement.Response{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateMeasurement(w http.ResponseWriter, r *http.Request) {
	var req measurement.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.measurements.Create(r.Context(), auth.PrincipalFrom(r.Context()), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
