package models

import "time"

// PaymentNotification is the gateway callback after field normalisation.
// ResponseCode is kept as received; "0" means the payment settled.
type PaymentNotification struct {
	ResponseCode         string `json:"ResponseCode"`
	CheckoutRequestID    string `json:"CheckoutRequestID"`
	TransactionID        string `json:"TransactionID"`
	TransactionAmount    string `json:"TransactionAmount"`
	TransactionReceipt   string `json:"TransactionReceipt"`
	TransactionReference string `json:"TransactionReference"`
}

func (n PaymentNotification) Succeeded() bool {
	return n.ResponseCode == "0"
}

// SettlementReference prefers the transaction id over the receipt number.
func (n PaymentNotification) SettlementReference() string {
	if n.TransactionID != "" {
		return n.TransactionID
	}
	return n.TransactionReceipt
}

// OrderEvent is emitted on every lifecycle transition, to Kafka and to the
// admin live feed.
type OrderEvent struct {
	Type          string        `json:"type"`
	OrderID       string        `json:"order_id"`
	TicketID      string        `json:"ticket_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	TotalAmount   int64         `json:"total_amount"`
	TransactionID string        `json:"transaction_id,omitempty"`
	ScannedAt     *time.Time    `json:"scanned_at,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

const (
	EventOrderCreated  = "order.created"
	EventOrderPaid     = "order.paid"
	EventOrderFailed   = "order.failed"
	EventTicketScanned = "ticket.scanned"
)

func NewOrderEvent(eventType string, o *Order) OrderEvent {
	return OrderEvent{
		Type:          eventType,
		OrderID:       o.ID,
		TicketID:      o.TicketID,
		PaymentStatus: o.PaymentStatus,
		TotalAmount:   o.TotalAmount,
		TransactionID: o.TransactionID,
		ScannedAt:     o.ScannedAt,
		Timestamp:     time.Now().UTC(),
	}
}
