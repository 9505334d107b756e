package resource

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
	ListResources(scope access.Scope) ([]*Resource, error)
	GetResource(scope access.Scope, id int64) (*Resource, error)
	CreateResource(scope access.Scope, dto CreateResourceDTO) (*Resource, error)
	UpdateResource(scope access.Scope, id int64, dto UpdateResourceDTO) (*Resource, error)
	DeleteResource(scope access.Scope, id int64) error
	AssignResource(scope access.Scope, id int64, userID int64) (*Resource, error)
	ReleaseResource(scope access.Scope, id int64) (*Resource, error)

	ListFacilities(scope access.Scope) ([]*Facility, error)
	GetFacility(scope access.Scope, id int64) (*Facility, error)
	CreateFacility(scope access.Scope, dto CreateFacilityDTO) (*Facility, error)
	UpdateFacility(scope access.Scope, id int64, dto UpdateFacilityDTO) (*Facility, error)
	DeleteFacility(scope access.Scope, id int64) error
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

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}

	resources, err := h.Service.ListResources(scope)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"resources": resources,
		"total":     len(resources),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	res, err := h.Service.GetResource(scope, id)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}

	var dto CreateResourceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.CreateResource(scope, dto)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var dto UpdateResourceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.UpdateResource(scope, id, dto)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteResource(scope, id); err != nil {
		h.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var dto AssignResourceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.AssignResource(scope, id, dto.UserID)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.Logger.InfoContext(r.Context(), "resource assigned via api", "resource_id", id, "user_id", dto.UserID)
	h.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	res, err := h.Service.ReleaseResource(scope, id)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) ListFacilities(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}

	facilities, err := h.Service.ListFacilities(scope)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"facilities": facilities,
		"total":      len(facilities),
	})
}

func (h *Handler) GetFacility(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	f, err := h.Service.GetFacility(scope, id)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) CreateFacility(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}

	var dto CreateFacilityDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := h.Service.CreateFacility(scope, dto)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, f)
}

func (h *Handler) UpdateFacility(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var dto UpdateFacilityDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := h.Service.UpdateFacility(scope, id, dto)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) DeleteFacility(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteFacility(scope, id); err != nil {
		h.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
