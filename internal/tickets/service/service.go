package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dinner-ticketing/internal/logger"
	"dinner-ticketing/internal/models"
	"dinner-ticketing/internal/order/db"
)

var (
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrTicketNotPaid     = errors.New("ticket not paid")
	ErrMissingIdentifier = errors.New("missing qr or ticketId")
)

type TicketDBLayer interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByTicketID(ctx context.Context, ticketID string) (*models.Order, error)
	GetOrderByQRCode(ctx context.Context, code string) (*models.Order, error)
	MarkScanned(ctx context.Context, orderID string, at time.Time) (bool, error)
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent)
}

type TicketService struct {
	DB     TicketDBLayer
	Events EventPublisher
	Logger *logger.Logger
	now    func() time.Time
}

func NewTicketService(store TicketDBLayer, events EventPublisher, log *logger.Logger) *TicketService {
	return &TicketService{
		DB:     store,
		Events: events,
		Logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// locate resolves a ticket by ticket id, falling back to the opaque code.
func (s *TicketService) locate(ctx context.Context, ticketID, qr string) (*models.Order, error) {
	ticketID = strings.TrimSpace(ticketID)
	qr = strings.TrimSpace(qr)

	var (
		o   *models.Order
		err error
	)
	switch {
	case ticketID != "":
		o, err = s.DB.GetOrderByTicketID(ctx, ticketID)
	case qr != "":
		o, err = s.DB.GetOrderByQRCode(ctx, qr)
	default:
		return nil, ErrMissingIdentifier
	}
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locate ticket: %w", err)
	}
	return o, nil
}

// Lookup is a read-only view of a ticket for staff.
func (s *TicketService) Lookup(ctx context.Context, ticketID, qr string) (*models.TicketView, error) {
	o, err := s.locate(ctx, ticketID, qr)
	if err != nil {
		return nil, err
	}
	return models.NewTicketView(o), nil
}

// Verify reports a ticket's scan state and, when req.Mark is set, admits it.
// Admission is a single conditional write: of any number of concurrent marks
// exactly one sees "scanned" and the rest see "already_scanned" with the same
// timestamp.
func (s *TicketService) Verify(ctx context.Context, req models.VerifyRequest) (*models.VerifyResult, error) {
	o, err := s.locate(ctx, req.TicketID, req.QR)
	if err != nil {
		return nil, err
	}

	if !req.Mark {
		return scanState(o), nil
	}
	if o.Scanned {
		s.Logger.Info("TICKET", fmt.Sprintf("Ticket %s already scanned at %v", o.TicketID, o.ScannedAt))
		return scanState(o), nil
	}
	if o.PaymentStatus != models.PaymentPaid {
		s.Logger.Warn("TICKET", fmt.Sprintf("Refusing to admit ticket %s with payment %s", o.TicketID, o.PaymentStatus))
		return nil, ErrTicketNotPaid
	}

	won, err := s.DB.MarkScanned(ctx, o.ID, s.now().Truncate(time.Microsecond))
	if err != nil {
		return nil, fmt.Errorf("mark ticket scanned: %w", err)
	}

	// Re-read so every caller reports the stored timestamp.
	latest, err := s.DB.GetOrderByID(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("reload ticket: %w", err)
	}

	if !won {
		if !latest.Scanned {
			return nil, ErrTicketNotPaid
		}
		return scanState(latest), nil
	}

	s.Logger.LogSecurity("SCAN", fmt.Sprintf("Ticket %s admitted (%d guests)", latest.TicketID, latest.Quantity))
	s.Events.PublishOrderEvent(ctx, models.NewOrderEvent(models.EventTicketScanned, latest))

	return &models.VerifyResult{
		Status:    models.ScanScanned,
		ScannedAt: latest.ScannedAt,
		Ticket:    models.NewTicketView(latest),
	}, nil
}

func scanState(o *models.Order) *models.VerifyResult {
	status := models.ScanNotScanned
	if o.Scanned {
		status = models.ScanAlreadyScanned
	}
	return &models.VerifyResult{
		Status:    status,
		ScannedAt: o.ScannedAt,
		Ticket:    models.NewTicketView(o),
	}
}
