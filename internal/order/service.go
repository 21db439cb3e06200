package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dinner-ticketing/internal/config"
	"dinner-ticketing/internal/email"
	"dinner-ticketing/internal/logger"
	"dinner-ticketing/internal/models"
	"dinner-ticketing/internal/order/db"
	"dinner-ticketing/internal/order/redis"
	"dinner-ticketing/internal/payment/hashpay"
	"dinner-ticketing/internal/utils"

	"github.com/go-playground/validator/v10"
)

type DBLayer interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	SetCheckoutID(ctx context.Context, orderID, checkoutID string) error
	MarkFailed(ctx context.Context, orderID string) (bool, error)
	TransitionPayment(ctx context.Context, checkoutID string, to models.PaymentStatus, reference string) (bool, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByCheckoutID(ctx context.Context, checkoutID string) (*models.Order, error)
	GetOrderByTicketAndCheckout(ctx context.Context, ticketID, checkoutID string) (*models.Order, error)
}

type PaymentGateway interface {
	InitiatePush(ctx context.Context, req hashpay.PushRequest) (*hashpay.PushResult, error)
}

type TicketRenderer interface {
	Render(order *models.Order, resent bool) (email.Message, error)
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent)
}

type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (*models.OrderResponse, bool, error)
	Complete(ctx context.Context, key string, resp *models.OrderResponse) error
	Release(ctx context.Context, key string) error
}

type OrderService struct {
	DB          DBLayer
	Gateway     PaymentGateway
	Mailer      email.Sender
	Renderer    TicketRenderer
	Events      EventPublisher
	Idempotency IdempotencyStore // optional
	Logger      *logger.Logger

	ticket    config.TicketConfig
	refPrefix string
	validate  *validator.Validate
	now       func() time.Time
}

func NewOrderService(
	db DBLayer,
	gateway PaymentGateway,
	mailer email.Sender,
	renderer TicketRenderer,
	events EventPublisher,
	ticket config.TicketConfig,
	refPrefix string,
	log *logger.Logger,
) *OrderService {
	return &OrderService{
		DB:        db,
		Gateway:   gateway,
		Mailer:    mailer,
		Renderer:  renderer,
		Events:    events,
		Logger:    log,
		ticket:    ticket,
		refPrefix: refPrefix,
		validate:  newValidator(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ---------------- CREATION ----------------

// CreateOrder validates the request, stores a pending order and pushes one
// STK prompt to the buyer's phone. A non-empty idempotencyKey makes repeated
// submissions return the first successful response.
func (s *OrderService) CreateOrder(ctx context.Context, req models.OrderRequest, idempotencyKey string) (*models.OrderResponse, error) {
	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}
	phone, _ := NormalizePhone(req.Phone)

	if idempotencyKey != "" && s.Idempotency != nil {
		cached, claimed, err := s.Idempotency.Claim(ctx, idempotencyKey)
		switch {
		case errors.Is(err, redis.ErrInFlight):
			return nil, ErrDuplicateRequest
		case err != nil:
			s.Logger.Warn("REDIS", fmt.Sprintf("Idempotency unavailable, continuing without it: %v", err))
			idempotencyKey = ""
		case !claimed:
			s.Logger.LogOrder("REPLAY", cached.OrderID, "returning cached creation response")
			return cached, nil
		}
	} else {
		idempotencyKey = ""
	}

	resp, err := s.createAndPush(ctx, req, phone)
	if idempotencyKey != "" {
		bg := context.WithoutCancel(ctx)
		if err != nil {
			if rerr := s.Idempotency.Release(bg, idempotencyKey); rerr != nil {
				s.Logger.Warn("REDIS", fmt.Sprintf("Failed to release idempotency key: %v", rerr))
			}
		} else if cerr := s.Idempotency.Complete(bg, idempotencyKey, resp); cerr != nil {
			s.Logger.Warn("REDIS", fmt.Sprintf("Failed to cache creation response: %v", cerr))
		}
	}
	return resp, err
}

func (s *OrderService) createAndPush(ctx context.Context, req models.OrderRequest, phone string) (*models.OrderResponse, error) {
	order := &models.Order{
		ID:            utils.GenerateOrderID(),
		TicketID:      utils.GenerateTicketID(),
		QRCode:        utils.GenerateQRCode(),
		FullName:      req.FullName,
		Email:         req.Email,
		Phone:         phone,
		TicketType:    s.ticket.Type,
		Quantity:      req.Quantity,
		TotalAmount:   s.ticket.UnitPrice * int64(req.Quantity),
		PaymentStatus: models.PaymentPending,
		CreatedAt:     s.now(),
	}

	if err := s.DB.CreateOrder(ctx, order); err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to store order for %s: %v", order.Email, err))
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.Logger.LogOrder("CREATE", order.ID, fmt.Sprintf("ticket=%s qty=%d total=%d", order.TicketID, order.Quantity, order.TotalAmount))
	s.Events.PublishOrderEvent(ctx, models.NewOrderEvent(models.EventOrderCreated, order))

	result, err := s.Gateway.InitiatePush(ctx, hashpay.PushRequest{
		Amount:    order.TotalAmount,
		Phone:     order.Phone,
		Reference: s.refPrefix + "-" + order.TicketID,
	})
	if err != nil {
		return nil, s.failOrder(ctx, order, err)
	}

	if err := s.DB.SetCheckoutID(ctx, order.ID, result.CheckoutID); err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Push sent but checkout id %s not stored for %s: %v", result.CheckoutID, order.ID, err))
		return nil, fmt.Errorf("store checkout id: %w", err)
	}
	s.Logger.LogPayment("PUSH", result.CheckoutID, fmt.Sprintf("STK push accepted for ticket %s", order.TicketID))

	return &models.OrderResponse{
		Success:    true,
		OrderID:    order.ID,
		TicketID:   order.TicketID,
		QRCode:     order.QRCode,
		CheckoutID: result.CheckoutID,
		Total:      order.TotalAmount,
		Message:    "Check your phone to complete the payment",
	}, nil
}

// failOrder persists the gateway refusal. The row is kept for audit.
func (s *OrderService) failOrder(ctx context.Context, order *models.Order, pushErr error) error {
	s.Logger.Warn("PAYMENT", fmt.Sprintf("STK push failed for ticket %s: %v", order.TicketID, pushErr))

	bg := context.WithoutCancel(ctx)
	if _, err := s.DB.MarkFailed(bg, order.ID); err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to mark order %s failed: %v", order.ID, err))
		return fmt.Errorf("mark order failed: %w", err)
	}
	order.PaymentStatus = models.PaymentFailed
	s.Events.PublishOrderEvent(bg, models.NewOrderEvent(models.EventOrderFailed, order))

	reason := "STK push failed"
	var rejected *hashpay.RejectedError
	if errors.As(pushErr, &rejected) {
		reason = rejected.Error()
	}
	return &GatewayError{OrderID: order.ID, TicketID: order.TicketID, Reason: reason, Err: pushErr}
}

// ---------------- STATUS ----------------

// PaymentStatus is the polling read. An unknown ticket/checkout pair looks
// exactly like a pending one.
func (s *OrderService) PaymentStatus(ctx context.Context, ticketID, checkoutID string) (*models.PaymentStatusResponse, error) {
	if ticketID == "" || checkoutID == "" {
		verr := &ValidationError{}
		verr.add("ticketId", "ticketId and checkoutId are required")
		return nil, verr
	}

	order, err := s.DB.GetOrderByTicketAndCheckout(ctx, ticketID, checkoutID)
	if errors.Is(err, db.ErrNotFound) {
		return &models.PaymentStatusResponse{Success: true, PaymentStatus: models.PaymentPending}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("payment status: %w", err)
	}

	resp := &models.PaymentStatusResponse{Success: true, PaymentStatus: order.PaymentStatus}
	if order.PaymentStatus == models.PaymentPaid {
		resp.FullName = order.FullName
		resp.TicketType = order.TicketType
		resp.Quantity = order.Quantity
		resp.TotalAmount = order.TotalAmount
	}
	return resp, nil
}

// ---------------- RESEND ----------------

// ResendTicket re-sends the issuance email of a paid order. No field changes.
func (s *OrderService) ResendTicket(ctx context.Context, orderID string) (*models.Order, error) {
	if orderID == "" {
		verr := &ValidationError{}
		verr.add("orderId", "orderId is required")
		return nil, verr
	}

	order, err := s.DB.GetOrderByID(ctx, orderID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resend ticket: %w", err)
	}
	if order.PaymentStatus != models.PaymentPaid {
		return nil, ErrNotPaid
	}

	if err := s.sendTicket(ctx, order, true); err != nil {
		return nil, err
	}
	s.Logger.LogOrder("RESEND", order.ID, fmt.Sprintf("ticket %s resent to %s", order.TicketID, order.Email))
	return order, nil
}

func (s *OrderService) sendTicket(ctx context.Context, order *models.Order, resent bool) error {
	msg, err := s.Renderer.Render(order, resent)
	if err != nil {
		return fmt.Errorf("render ticket email: %w", err)
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send ticket email: %w", err)
	}
	return nil
}
