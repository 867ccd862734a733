package api

import (
	"net/http"

	"github.com/nerrad567/potentiostat-core/internal/auth"
	"github.com/nerrad567/potentiostat-core/internal/pagination"
	"github.com/nerrad567/potentiostat-core/internal/user"
)

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req user.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.users.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSearchUsers lists users (admin only).
//
// Query parameters: username, email, first_name, middle_name, last_name
// (substring filters), page, size.
func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	result, err := s.users.Search(r.Context(), auth.PrincipalFrom(r.Context()), user.SearchQuery{
		Username:   q.Get("username"),
		Email:      q.Get("email"),
		FirstName:  q.Get("first_name"),
		MiddleName: q.Get("middle_name"),
		LastName:   q.Get("last_name"),
	}, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	resp, err := s.users.Me(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.users.Get(r.Context(), auth.PrincipalFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req user.UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.users.Update(r.Context(), auth.PrincipalFrom(r.Context()), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChangeAdminStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req user.AdminStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.users.ChangeAdminStatus(r.Context(), auth.PrincipalFrom(r.Context()), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
