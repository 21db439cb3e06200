package models

import "time"

type ScanStatus string

const (
	ScanNotScanned     ScanStatus = "not_scanned"
	ScanAlreadyScanned ScanStatus = "already_scanned"
	ScanScanned        ScanStatus = "scanned"
)

// VerifyRequest selects an order by ticket id or opaque code. Ticket id wins
// when both are present.
type VerifyRequest struct {
	TicketID string `json:"ticketId"`
	QR       string `json:"qr"`
	Mark     bool   `json:"mark"`
}

// TicketView is the identity and scan state shown to door staff.
type TicketView struct {
	OrderID       string        `json:"orderId"`
	TicketID      string        `json:"ticketId"`
	FullName      string        `json:"fullName"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	TicketType    string        `json:"ticketType"`
	Quantity      int           `json:"quantity"`
	TotalAmount   int64         `json:"totalAmount"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Scanned       bool          `json:"scanned"`
	ScannedAt     *time.Time    `json:"scannedAt,omitempty"`
}

type VerifyResult struct {
	Status    ScanStatus  `json:"status"`
	ScannedAt *time.Time  `json:"scannedAt,omitempty"`
	Ticket    *TicketView `json:"ticket"`
}

func NewTicketView(o *Order) *TicketView {
	return &TicketView{
		OrderID:       o.ID,
		TicketID:      o.TicketID,
		FullName:      o.FullName,
		Email:         o.Email,
		Phone:         o.Phone,
		TicketType:    o.TicketType,
		Quantity:      o.Quantity,
		TotalAmount:   o.TotalAmount,
		PaymentStatus: o.PaymentStatus,
		Scanned:       o.Scanned,
		ScannedAt:     o.ScannedAt,
	}
}
