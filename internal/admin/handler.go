package admin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/auth"
	"github.com/frahmantamala/org-management/internal/transport"
)

type ServiceAPI interface {
	GetDashboard(scope access.Scope) (*DashboardStats, error)
	ListAuditLogs(scope access.Scope, limit, offset int) ([]*AuditLog, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(logger *slog.Logger, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     svc,
	}
}

func (h *Handler) requesterScope(w http.ResponseWriter, r *http.Request) (access.Scope, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return access.Scope{}, false
	}
	return user.Scope(), true
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}

	stats, err := h.Service.GetDashboard(scope)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	logs, err := h.Service.ListAuditLogs(scope, limit, offset)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"audit_logs": logs,
		"total":      len(logs),
	})
}
