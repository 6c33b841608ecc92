package billing

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cafe-backoffice/internal/apperr"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/web"
)

// IdempotencyHeader carries the client's key for ProcessPayment.
const IdempotencyHeader = "Idempotency-Key"

// Handler handles HTTP requests for invoices and payments
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

// Routes mounts the handler under /api/billing.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/invoices", h.CreateInvoice)
	r.Get("/invoices", h.ListInvoices)
	r.Get("/invoices/{id}", h.GetInvoice)
	r.Patch("/invoices/{id}/status", h.UpdateStatus)
	r.Post("/invoices/{id}/payments", h.ProcessPayment)
	r.Get("/summary", h.Summary)
	r.Get("/analytics", h.Analytics)
}

// CreateInvoice handles POST /api/billing/invoices
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	var req CreateInvoiceRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	req.TenantID = id.TenantID

	inv, err := h.service.CreateInvoice(r.Context(), &req)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusCreated, "Invoice created", inv)
}

// ListInvoices handles GET /api/billing/invoices
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	page, err := web.QueryInt(r, "page", 1)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	limit, err := web.QueryInt(r, "limit", defaultPageLimit)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	result, err := h.service.ListInvoices(r.Context(), id.TenantID, page, limit)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "", result)
}

// GetInvoice handles GET /api/billing/invoices/{id}
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	invoiceID, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	detail, err := h.service.GetInvoice(r.Context(), invoiceID, id.TenantID)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "", detail)
}

// UpdateStatus handles PATCH /api/billing/invoices/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	invoiceID, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	var req UpdateStatusRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	status, err := models.ParseInvoiceStatus(req.Status)
	if err != nil {
		web.Error(w, r, h.logger, apperr.InvalidInput("%v", err))
		return
	}

	inv, err := h.service.UpdateInvoiceStatus(r.Context(), invoiceID, id.TenantID, status)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "Invoice status updated", inv)
}

// ProcessPayment handles POST /api/billing/invoices/{id}/payments
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	invoiceID, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	var req PaymentRequest
	req.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	result, err := h.service.ProcessPayment(r.Context(), invoiceID, id.TenantID, &req)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	if result.Replayed {
		web.JSON(w, http.StatusOK, "Payment already recorded", result)
		return
	}
	web.JSON(w, http.StatusCreated, "Payment processed", result)
}

// Summary handles GET /api/billing/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	summary, err := h.service.GetBillingSummary(r.Context(), id.TenantID)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "", summary)
}

// Analytics handles GET /api/billing/analytics?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	start, err := web.QueryTime(r, "start", false)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	end, err := web.QueryTime(r, "end", true)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	analytics, err := h.service.GetRevenueAnalytics(r.Context(), id.TenantID, start, end)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "", analytics)
}
