package api

import (
	"net/http"

	"github.com/nerrad567/potentiostat-core/internal/auth"
	"github.com/nerrad567/potentiostat-core/internal/client"
	"github.com/nerrad567/potentiostat-core/internal/pagination"
)

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req client.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.clients.Create(r.Context(), auth.PrincipalFrom(r.Context()), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSearchClients lists clients (admin only), optionally filtered by
// an identifier substring.
func (s *Server) handleSearchClients(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.clients.Search(r.Context(), auth.PrincipalFrom(r.Context()), r.URL.Query().Get("identifier"), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.clients.Get(r.Context(), auth.PrincipalFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
