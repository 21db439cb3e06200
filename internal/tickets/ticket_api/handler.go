package ticket_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"dinner-ticketing/internal/auth"
	"dinner-ticketing/internal/logger"
	"dinner-ticketing/internal/models"
	tickets "dinner-ticketing/internal/tickets/service"
	"dinner-ticketing/internal/utils"
)

type Handler struct {
	TicketService *tickets.TicketService
	Logger        *logger.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(ticketService *tickets.TicketService, log *logger.Logger) *Handler {
	return &Handler{
		TicketService: ticketService,
		Logger:        log,
	}
}

type verifyBody struct {
	Success bool `json:"success"`
	*models.VerifyResult
}

type lookupBody struct {
	Success bool               `json:"success"`
	Ticket  *models.TicketView `json:"ticket"`
}

// VerifyTicket checks a scanned code and, with "mark": true, admits the
// holder. Expected POST body: {"ticketId": "...", "qr": "...", "mark": true}
// Marking is refused with 409 unless the order is paid, so an unpaid ticket
// can never be admitted; checking works for any payment status.
func (h *Handler) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.TicketService.Verify(r.Context(), req)
	if err != nil {
		h.writeError(w, "VerifyTicket", err)
		return
	}

	if req.Mark {
		h.Logger.Info("API", fmt.Sprintf("VerifyTicket: staff %s scanned %s -> %s", auth.UserID(r.Context()), result.Ticket.TicketID, result.Status))
	}
	utils.WriteJSON(w, http.StatusOK, verifyBody{Success: true, VerifyResult: result})
}

// LookupTicket is a read-only view by ticket id or opaque code.
func (h *Handler) LookupTicket(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.TicketService.Lookup(r.Context(), req.TicketID, req.QR)
	if err != nil {
		h.writeError(w, "LookupTicket", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, lookupBody{Success: true, Ticket: view})
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, tickets.ErrMissingIdentifier):
		utils.WriteError(w, http.StatusBadRequest, "Missing qr or ticketId")
	case errors.Is(err, tickets.ErrTicketNotFound):
		utils.WriteError(w, http.StatusNotFound, "Ticket not found")
	case errors.Is(err, tickets.ErrTicketNotPaid):
		utils.WriteError(w, http.StatusConflict, "Ticket not paid")
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to verify ticket")
	}
}
