package importer

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/auth"
	"github.com/frahmantamala/org-management/internal/transport"
)

const maxUploadBytes = 8 << 20 // 8 MiB

type ServiceAPI interface {
	ImportDepartments(scope access.Scope, r io.Reader) (*ImportJob, error)
	ImportUsers(scope access.Scope, r io.Reader) (*ImportJob, error)
	ImportFacilities(scope access.Scope, r io.Reader) (*ImportJob, error)
	GetJob(scope access.Scope, id string) (*ImportJob, error)
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

// uploadFile pulls the csv out of the multipart form field "file".
func (h *Handler) uploadFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.WriteError(w, http.StatusBadRequest, "expected a multipart form with a file field")
		return nil, false
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "missing file field")
		return nil, false
	}
	return file, true
}

func (h *Handler) importWith(w http.ResponseWriter, r *http.Request,
	run func(scope access.Scope, reader io.Reader) (*ImportJob, error)) {

	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}
	file, ok := h.uploadFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	job, err := run(scope, file)
	if err != nil {
		// a failed batch still has a persisted job the client can inspect
		if job != nil {
			h.Logger.WarnContext(r.Context(), "import rejected", "job_id", job.ID, "kind", job.Kind)
			h.WriteJSON(w, http.StatusUnprocessableEntity, job)
			return
		}
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, job)
}

func (h *Handler) ImportDepartments(w http.ResponseWriter, r *http.Request) {
	h.importWith(w, r, h.Service.ImportDepartments)
}

func (h *Handler) ImportUsers(w http.ResponseWriter, r *http.Request) {
	h.importWith(w, r, h.Service.ImportUsers)
}

func (h *Handler) ImportFacilities(w http.ResponseWriter, r *http.Request) {
	h.importWith(w, r, h.Service.ImportFacilities)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.requesterScope(w, r)
	if !ok {
		return
	}

	job, err := h.Service.GetJob(scope, chi.URLParam(r, "id"))
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, job)
}
