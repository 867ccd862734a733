package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/potentiostat-core/internal/audit"
	"github.com/nerrad567/potentiostat-core/internal/auth"
)

// handleListAuditLogs returns audit log entries with optional filters
// (admin only).
//
// Query parameters:
//   - action: created, started, stopped, create_rolled_back
//   - entity_type: experiment
//   - entity_id: filter by specific entity ID
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireAdmin(auth.PrincipalFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
