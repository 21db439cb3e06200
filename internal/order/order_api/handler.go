package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"dinner-ticketing/internal/logger"
	"dinner-ticketing/internal/models"
	"dinner-ticketing/internal/order"
	"dinner-ticketing/internal/utils"
)

type Handler struct {
	OrderService *order.OrderService
	Logger       *logger.Logger
}

func NewHandler(orderService *order.OrderService, log *logger.Logger) *Handler {
	return &Handler{
		OrderService: orderService,
		Logger:       log,
	}
}

type validationBody struct {
	Success bool               `json:"success"`
	Error   string             `json:"error"`
	Fields  []order.FieldError `json:"fields,omitempty"`
}

type callbackBody struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	Status  models.PaymentStatus `json:"status,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// CreateOrder stores a pending order and triggers the STK push.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateOrder: failed to decode request body: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.OrderService.CreateOrder(r.Context(), req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.writeCreateError(w, err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("CreateOrder: order %s awaiting payment (checkout %s)", resp.OrderID, resp.CheckoutID))
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeCreateError(w http.ResponseWriter, err error) {
	var verr *order.ValidationError
	var gerr *order.GatewayError
	switch {
	case errors.As(err, &verr):
		utils.WriteJSON(w, http.StatusBadRequest, validationBody{Success: false, Error: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, order.ErrDuplicateRequest):
		utils.WriteError(w, http.StatusConflict, "A request with this idempotency key is already in progress")
	case errors.As(err, &gerr):
		h.Logger.Warn("API", fmt.Sprintf("CreateOrder: gateway refused push for order %s: %v", gerr.OrderID, gerr.Err))
		utils.WriteError(w, http.StatusBadGateway, gerr.Reason)
	default:
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create order")
	}
}

// PaymentStatus is polled by the buyer's page until the order settles.
func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.OrderService.PaymentStatus(r.Context(), req.TicketID, req.CheckoutID)
	if errors.Is(err, order.ErrValidation) {
		utils.WriteError(w, http.StatusBadRequest, "ticketId and checkoutId are required")
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("PaymentStatus: ticket %s: %v", req.TicketID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to check payment status")
		return
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

// PaymentCallback receives the gateway's asynchronous result. Unknown and
// repeated deliveries are acknowledged with 200 so the gateway stops retrying.
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	notification, err := order.ParseNotification(r)
	if err != nil {
		h.writeWebhookError(w, err)
		return
	}

	result, err := h.OrderService.HandlePaymentNotification(r.Context(), notification)
	if err != nil {
		h.writeWebhookError(w, err)
		return
	}

	switch {
	case !result.Found:
		utils.WriteJSON(w, http.StatusOK, callbackBody{Success: false, Error: "Order not found"})
	case result.AlreadyProcessed:
		utils.WriteJSON(w, http.StatusOK, callbackBody{Success: true, Message: "Already processed", Status: result.Status})
	default:
		utils.WriteJSON(w, http.StatusOK, callbackBody{Success: true, Status: result.Status})
	}
}

func (h *Handler) writeWebhookError(w http.ResponseWriter, err error) {
	var werr *order.WebhookError
	if errors.As(err, &werr) {
		h.Logger.Error("WEBHOOK", fmt.Sprintf("[%s] %s", werr.Category, werr.InternalError))
		utils.WriteError(w, werr.StatusCode, werr.PublicError)
		return
	}
	h.Logger.Error("WEBHOOK", fmt.Sprintf("unexpected webhook error: %v", err))
	utils.WriteError(w, http.StatusInternalServerError, "Failed to update order status")
}

// ResendTicket re-sends a paid order's confirmation email.
func (h *Handler) ResendTicket(w http.ResponseWriter, r *http.Request) {
	var req models.ResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	o, err := h.OrderService.ResendTicket(r.Context(), req.OrderID)
	switch {
	case errors.Is(err, order.ErrValidation):
		utils.WriteError(w, http.StatusBadRequest, "orderId is required")
		return
	case errors.Is(err, order.ErrOrderNotFound):
		utils.WriteError(w, http.StatusNotFound, "Order not found")
		return
	case errors.Is(err, order.ErrNotPaid):
		utils.WriteError(w, http.StatusConflict, "Can only resend tickets for paid orders")
		return
	case err != nil:
		h.Logger.Error("API", fmt.Sprintf("ResendTicket: order %s: %v", req.OrderID, err))
		utils.WriteError(w, http.StatusBadGateway, "Failed to send ticket email")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket resent to "+o.Email, map[string]string{
		"orderId":  o.ID,
		"ticketId": o.TicketID,
	}))
}
