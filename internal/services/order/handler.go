package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cafe-backoffice/internal/apperr"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/web"
)

// Handler handles HTTP requests for the order service
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new order handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// Routes mounts the handler under /api/orders.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.SubmitOrder)
	r.Get("/stats", h.GetStats)
	r.Get("/{id}", h.GetOrder)
	r.Post("/{id}/items", h.AddItem)
	r.Delete("/{id}/items/{itemId}", h.RemoveItem)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// SubmitOrder handles POST /api/orders
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	var req SubmitOrderRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	req.TenantID = id.TenantID
	userID := id.UserID
	req.UserID = &userID

	result, err := h.service.SubmitOrder(r.Context(), &req)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	message := "Order created"
	if !result.KitchenNotified {
		message = "Order accepted, kitchen notification pending"
	}
	web.JSON(w, http.StatusCreated, message, result)
}

// GetOrder handles GET /api/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	orderID, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	o, err := h.service.GetOrder(r.Context(), orderID, id.TenantID)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "", o)
}

// AddItem handles POST /api/orders/{id}/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	orderID, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	var req ItemRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	o, err := h.service.AddOrderItem(r.Context(), orderID, id.TenantID, &req)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "Item added", o)
}

// RemoveItem handles DELETE /api/orders/{id}/items/{itemId}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	orderID, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	itemID, err := web.PathUUID(r, "itemId")
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	o, err := h.service.RemoveOrderItem(r.Context(), orderID, itemID, id.TenantID)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "Item removed", o)
}

// UpdateStatus handles PATCH /api/orders/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	orderID, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	var req UpdateStatusRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		web.Error(w, r, h.logger, apperr.InvalidInput("%v", err))
		return
	}

	o, err := h.service.UpdateOrderStatus(r.Context(), orderID, id.TenantID, status)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "Order status updated", o)
}

// GetStats handles GET /api/orders/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	id, err := web.Identity(r)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	branchID, err := web.QueryUUID(r, "branchId")
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}

	stats, err := h.service.GetOrderStats(r.Context(), id.TenantID, branchID)
	if err != nil {
		web.Error(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, "", stats)
}
