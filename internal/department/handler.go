package department

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/auth"
	"github.com/frahmantamala/org-management/internal/transport"
)

type ServiceAPI interface {
	ListDepartments(scope access.Scope) ([]*Department, error)
	GetDepartment(scope access.Scope, id int64) (*Department, error)
	GetSubtree(scope access.Scope, id int64) (*SubtreeView, error)
	GetAncestors(scope access.Scope, id int64) ([]*Department, error)
	CreateDepartment(scope access.Scope, dto CreateDepartmentDTO) (*Department, error)
	UpdateDepartment(scope access.Scope, id int64, dto UpdateDepartmentDTO) (*Department, error)
	DeleteDepartment(scope access.Scope, id int64) error
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

func (h *Handler) departmentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid department id")
		return 0, false
	}
	return id, true
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}

	departments, err := h.Service.ListDepartments(scope)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"departments": departments,
		"total":       len(departments),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}

	d, err := h.Service.GetDepartment(scope, id)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) GetSubtree(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}

	view, err := h.Service.GetSubtree(scope, id)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) GetAncestors(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}

	ancestors, err := h.Service.GetAncestors(scope, id)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ancestors": ancestors,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}

	var dto CreateDepartmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Service.CreateDepartment(scope, dto)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.Logger.InfoContext(r.Context(), "department created via api", "department_id", d.ID, "actor_id", scope.UserID)
	h.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}

	var dto UpdateDepartmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Service.UpdateDepartment(scope, id, dto)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteDepartment(scope, id); err != nil {
		h.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
