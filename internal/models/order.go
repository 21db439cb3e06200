package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentFailed
}

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID            string        `bun:"id,pk" json:"id"`
	TicketID      string        `bun:"ticket_id,notnull,unique" json:"ticket_id"`
	QRCode        string        `bun:"qr_code,notnull,unique" json:"qr_code"`
	FullName      string        `bun:"full_name,notnull" json:"full_name"`
	Email         string        `bun:"email,notnull" json:"email"`
	Phone         string        `bun:"phone,notnull" json:"phone"`
	TicketType    string        `bun:"ticket_type,notnull" json:"ticket_type"`
	Quantity      int           `bun:"quantity,notnull" json:"quantity"`
	TotalAmount   int64         `bun:"total_amount,notnull" json:"total_amount"`
	PaymentStatus PaymentStatus `bun:"payment_status,notnull" json:"payment_status"`
	CheckoutID    string        `bun:"checkout_id,nullzero,unique" json:"checkout_id,omitempty"`
	TransactionID string        `bun:"transaction_id,nullzero" json:"transaction_id,omitempty"`
	Scanned       bool          `bun:"scanned,notnull" json:"scanned"`
	ScannedAt     *time.Time    `bun:"scanned_at,nullzero" json:"scanned_at,omitempty"`
	CreatedAt     time.Time     `bun:"created_at,notnull" json:"created_at"`
}

// OrderRequest is the buyer-supplied purchase form.
type OrderRequest struct {
	FullName string `json:"fullName" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Phone    string `json:"phone" validate:"required,kenyan_mobile"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type OrderResponse struct {
	Success    bool   `json:"success"`
	OrderID    string `json:"orderId"`
	TicketID   string `json:"ticketId"`
	QRCode     string `json:"qrCode"`
	CheckoutID string `json:"checkoutId"`
	Total      int64  `json:"totalAmount"`
	Message    string `json:"message,omitempty"`
}

type PaymentStatusRequest struct {
	TicketID   string `json:"ticketId"`
	CheckoutID string `json:"checkoutId"`
}

// PaymentStatusResponse only carries buyer details once the order is paid.
type PaymentStatusResponse struct {
	Success       bool          `json:"success"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	FullName      string        `json:"fullName,omitempty"`
	TicketType    string        `json:"ticketType,omitempty"`
	Quantity      int           `json:"quantity,omitempty"`
	TotalAmount   int64         `json:"totalAmount,omitempty"`
}

type ResendRequest struct {
	OrderID string `json:"orderId"`
}
