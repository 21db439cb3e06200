package order

import (
	"errors"
	"strings"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrGatewayRejected  = errors.New("payment request failed")
	ErrNotPaid          = errors.New("can only resend tickets for paid orders")
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicateRequest = errors.New("duplicate request in progress")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field in input order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// GatewayError carries the gateway's reason for refusing a push. The order
// it refers to has already been persisted as failed.
type GatewayError struct {
	OrderID  string
	TicketID string
	Reason   string
	Err      error
}

func (e *GatewayError) Error() string { return e.Reason }

func (e *GatewayError) Unwrap() []error { return []error{ErrGatewayRejected, e.Err} }

// WebhookError represents an error that occurred during webhook processing
type WebhookError struct {
	Category      string // "validation", "processing"
	StatusCode    int    // HTTP status code
	PublicError   string // Safe to expose to clients
	InternalError string // Detailed error for logs only
	OriginalErr   error  // Underlying error
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

func (e *WebhookError) Unwrap() error { return e.OriginalErr }
