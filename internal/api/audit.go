package api

import (
	"net"
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-hub/internal/audit"
	"github.com/nerrad567/gray-logic-hub/internal/property"
)

// sourceHeader lets callers name themselves in the audit log.
const sourceHeader = "X-Graylogic-Source"

// recordWrite appends a state write to the audit log. Failures are logged
// and never fail the request.
func (s *Server) recordWrite(r *http.Request, p property.Property, action string, details map[string]any) {
	if s.audit == nil {
		return
	}
	def := p.Def()
	entry := &audit.Entry{
		Action:     action,
		Entity:     def.Entity,
		PropertyID: def.ID,
		OwnerID:    def.OwnerID,
		Source:     requestSource(r),
		Details:    details,
	}
	if err := s.audit.Create(r.Context(), entry); err != nil {
		s.logger.Warn("recording audit entry", "property_id", def.ID, "action", action, "error", err)
	}
}

func requestSource(r *http.Request) string {
	if v := r.Header.Get(sourceHeader); v != "" && len(v) <= maxQueryParamLen {
		return v
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// handleListAudit returns recorded state writes, most recent first.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeUnavailable(w, "audit log")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		Entity:     property.EntityKind(q.Get("entity")),
		PropertyID: q.Get("property_id"),
	}
	if len(filter.Action) > maxQueryParamLen || len(filter.PropertyID) > maxQueryParamLen || len(filter.Entity) > maxQueryParamLen {
		writeBadRequest(w, "query parameter too long")
		return
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, name+" must be an integer")
			return
		}
		*dst = n
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit entries", "error", err)
		writeInternalError(w, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
