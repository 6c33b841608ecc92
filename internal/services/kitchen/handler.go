package kitchen

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/web"
)

// Handler handles HTTP requests for kitchen tickets
type Handler struct {
	service *Service
	logger  *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// Routes mounts the handler under /api/kot.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/branch/{branchId}", h.ListByBranch)
	r.Post("/{id}/print", h.Print)
}

// ListByBranch handles GET /api/kot/branch/{branchId}
func (h *Handler) ListByBranch(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	branchID, err := web.PathUUID(r, "branchId")
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	page, err := web.QueryInt(r, "page", 1)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	limit, err := web.QueryInt(r, "limit", DefaultPageLimit)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	result, err := h.service.ListByBranch(r.Context(), branchID, id.TenantID, page, limit)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "", result)
}

// Print handles POST /api/kot/{id}/print
func (h *Handler) Print(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	ticketID, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	ack, err := h.service.PrintKOT(r.Context(), ticketID, id.TenantID)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusAccepted, "Print job queued", ack)
}
