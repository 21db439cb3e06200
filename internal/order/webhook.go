package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"dinner-ticketing/internal/models"
	"dinner-ticketing/internal/order/db"
)

const maxWebhookBody = 64 << 10

// WebhookResult describes what a notification did to its order.
type WebhookResult struct {
	Found            bool
	AlreadyProcessed bool
	OrderID          string
	TicketID         string
	Status           models.PaymentStatus
	EmailSent        bool
}

// ParseNotification decodes a gateway callback sent as JSON or as a form.
// Bodies with any other content type are tried as JSON first, then as a form.
func ParseNotification(r *http.Request) (models.PaymentNotification, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return models.PaymentNotification{}, &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook payload",
			InternalError: fmt.Sprintf("read webhook body: %v", err),
			OriginalErr:   err,
		}
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var fields map[string]string
	switch mediaType {
	case "application/json":
		fields, err = jsonFields(body)
	case "application/x-www-form-urlencoded":
		fields, err = formFields(body)
	default:
		if fields, err = jsonFields(body); err != nil {
			fields, err = formFields(body)
		}
	}
	if err != nil {
		return models.PaymentNotification{}, &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook payload",
			InternalError: fmt.Sprintf("decode webhook body (%s): %v", mediaType, err),
			OriginalErr:   err,
		}
	}

	return models.PaymentNotification{
		ResponseCode:         fields["ResponseCode"],
		CheckoutRequestID:    fields["CheckoutRequestID"],
		TransactionID:        fields["TransactionID"],
		TransactionAmount:    fields["TransactionAmount"],
		TransactionReceipt:   fields["TransactionReceipt"],
		TransactionReference: fields["TransactionReference"],
	}, nil
}

// jsonFields flattens a JSON object's scalar members to strings so that
// ResponseCode 0 and "0" read the same.
func jsonFields(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("payload is not an object")
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = strings.TrimSpace(val)
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = strconv.FormatBool(val)
		}
	}
	return out, nil
}

func formFields(body []byte) (map[string]string, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.New("empty form payload")
	}
	out := make(map[string]string, len(values))
	for k := range values {
		out[k] = strings.TrimSpace(values.Get(k))
	}
	return out, nil
}

// HandlePaymentNotification applies a gateway result to its order. The
// pending→terminal move is one conditional write, so only one delivery per
// order can win it and send the ticket email.
func (s *OrderService) HandlePaymentNotification(ctx context.Context, n models.PaymentNotification) (*WebhookResult, error) {
	if n.ResponseCode == "" {
		return nil, &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook payload",
			InternalError: "webhook payload has no ResponseCode",
		}
	}
	if n.CheckoutRequestID == "" {
		return nil, &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook payload",
			InternalError: "webhook payload has no CheckoutRequestID",
		}
	}

	s.Logger.LogPayment("CALLBACK", n.CheckoutRequestID, fmt.Sprintf("code=%s txn=%s receipt=%s amount=%s",
		n.ResponseCode, n.TransactionID, n.TransactionReceipt, n.TransactionAmount))

	order, err := s.DB.GetOrderByCheckoutID(ctx, n.CheckoutRequestID)
	if errors.Is(err, db.ErrNotFound) {
		s.Logger.Warn("WEBHOOK", fmt.Sprintf("No order for checkout id %s, acknowledging", n.CheckoutRequestID))
		return &WebhookResult{Found: false}, nil
	}
	if err != nil {
		return nil, &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Failed to update order status",
			InternalError: fmt.Sprintf("lookup order by checkout id %s: %v", n.CheckoutRequestID, err),
			OriginalErr:   err,
		}
	}

	result := &WebhookResult{Found: true, OrderID: order.ID, TicketID: order.TicketID, Status: order.PaymentStatus}
	if order.PaymentStatus.Terminal() {
		s.Logger.Info("WEBHOOK", fmt.Sprintf("Order %s already %s, skipping", order.TicketID, order.PaymentStatus))
		result.AlreadyProcessed = true
		return result, nil
	}

	to := models.PaymentFailed
	if n.Succeeded() {
		to = models.PaymentPaid
	}
	ref := ""
	if to == models.PaymentPaid {
		ref = n.SettlementReference()
	}

	won, err := s.DB.TransitionPayment(ctx, n.CheckoutRequestID, to, ref)
	if err != nil {
		return nil, &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Failed to update order status",
			InternalError: fmt.Sprintf("transition %s to %s: %v", order.ID, to, err),
			OriginalErr:   err,
		}
	}
	if !won {
		// A concurrent delivery got there first.
		s.Logger.Info("WEBHOOK", fmt.Sprintf("Order %s transitioned by a concurrent delivery", order.TicketID))
		result.AlreadyProcessed = true
		if latest, err := s.DB.GetOrderByID(ctx, order.ID); err == nil {
			result.Status = latest.PaymentStatus
		}
		return result, nil
	}

	order.PaymentStatus = to
	if ref != "" {
		order.TransactionID = ref
	}
	result.Status = to
	s.Logger.LogOrder("PAYMENT", order.ID, fmt.Sprintf("ticket %s is now %s", order.TicketID, to))

	if to == models.PaymentFailed {
		s.Events.PublishOrderEvent(ctx, models.NewOrderEvent(models.EventOrderFailed, order))
		return result, nil
	}
	s.Events.PublishOrderEvent(ctx, models.NewOrderEvent(models.EventOrderPaid, order))

	// Payment truth stands even if the email cannot be delivered.
	if err := s.sendTicket(context.WithoutCancel(ctx), order, false); err != nil {
		s.Logger.Error("EMAIL", fmt.Sprintf("Ticket email for %s failed, resend required: %v", order.TicketID, err))
		return result, nil
	}
	result.EmailSent = true
	s.Logger.Info("EMAIL", fmt.Sprintf("Ticket email sent to %s for %s", order.Email, order.TicketID))
	return result, nil
}
