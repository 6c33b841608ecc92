package booking

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"cafe-backoffice/internal/apperr"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/validation"
	"cafe-backoffice/internal/web"
)

// Handler handles HTTP requests for table bookings
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

// Routes mounts the handler under /api/bookings.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/branch/{branchId}", h.ListByBranch)
	r.Get("/availability", h.CheckAvailability)
	r.Get("/available-tables", h.AvailableTables)
	r.Post("/{id}/confirm", h.Confirm)
	r.Post("/{id}/cancel", h.Cancel)
	r.Post("/{id}/complete", h.Complete)
}

// Create handles POST /api/bookings
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	var req CreateBookingRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	req.TenantID = id.TenantID

	b, err := h.service.CreateBooking(r.Context(), &req)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusCreated, "Booking created", b)
}

// ListByBranch handles GET /api/bookings/branch/{branchId}
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

	bookings, err := h.service.ListByBranch(r.Context(), branchID, id.TenantID)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "", bookings)
}

// CheckAvailability handles GET /api/bookings/availability
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	tableID, err := web.RequiredQueryUUID(r, "tableId")
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	start, err := web.QueryTime(r, "start", false)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	end, err := web.QueryTime(r, "end", false)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	result, err := h.service.CheckTableAvailability(r.Context(), tableID, id.TenantID, start, end)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "", result)
}

// AvailableTables handles GET /api/bookings/available-tables
func (h *Handler) AvailableTables(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	branchID, err := web.RequiredQueryUUID(r, "branchId")
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	start, err := web.QueryTime(r, "start", false)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	end, err := web.QueryTime(r, "end", false)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	partySize, err := web.QueryInt(r, "partySize", 0)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	tables, err := h.service.GetAvailableTables(r.Context(), branchID, id.TenantID, start, end, partySize)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "", tables)
}

// Confirm handles POST /api/bookings/{id}/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, models.BookingConfirmed)
}

// Cancel handles POST /api/bookings/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, models.BookingCancelled)
}

// Complete handles POST /api/bookings/{id}/complete
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, models.BookingCompleted)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request, next models.BookingStatus) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	bookingID, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	var b *models.Booking
	switch next {
	case models.BookingConfirmed:
		b, err = h.service.ConfirmBooking(r.Context(), bookingID, id.TenantID)
	case models.BookingCompleted:
		b, err = h.service.CompleteBooking(r.Context(), bookingID, id.TenantID)
	default:
		var req CancelRequest
		if req, err = decodeCancel(r); err == nil {
			b, err = h.service.CancelBooking(r.Context(), bookingID, id.TenantID, req.Reason)
		}
	}
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "Booking "+string(b.Status), b)
}

// decodeCancel reads the optional cancel body. An empty body means no
// reason.
func decodeCancel(r *http.Request) (CancelRequest, error) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, apperr.InvalidInput("invalid request body: %v", err)
	}
	return req, validation.Struct(&req)
}
