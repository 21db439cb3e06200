package analytics_api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"dinner-ticketing/internal/analytics"
	"dinner-ticketing/internal/logger"
	"dinner-ticketing/internal/models"
	"dinner-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, logger *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger,
	}
}

// RegisterRoutes registers the order list and stats on the admin sub-router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.ListOrders)
	r.Get("/stats", h.GetStats)
}

type ordersBody struct {
	Success bool `json:"success"`
	*analytics.OrderPage
}

type statsBody struct {
	Success bool                  `json:"success"`
	Stats   *analytics.OrderStats `json:"stats"`
}

// ListOrders handles GET /admin/orders?status=&limit=&offset=
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "limit must be a number")
		return
	}
	offset, err := queryInt(q.Get("offset"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "offset must be a number")
		return
	}

	page, err := h.Service.ListOrders(r.Context(), models.PaymentStatus(q.Get("status")), limit, offset)
	if errors.Is(err, analytics.ErrInvalidStatus) {
		utils.WriteError(w, http.StatusBadRequest, "status must be pending, paid or failed")
		return
	}
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to list orders: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}

	utils.WriteJSON(w, http.StatusOK, ordersBody{Success: true, OrderPage: page})
}

// GetStats handles GET /admin/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to compute stats: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	h.Logger.Debug("ANALYTICS", fmt.Sprintf("Stats: %d orders, %d paid, revenue %d", stats.TotalOrders, stats.PaidOrders, stats.TotalRevenue))
	utils.WriteJSON(w, http.StatusOK, statsBody{Success: true, Stats: stats})
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
