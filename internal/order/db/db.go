package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dinner-ticketing/internal/models"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned by every single-row lookup that matches nothing.
var ErrNotFound = errors.New("order not found")

type DB struct {
	Bun *bun.DB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

// ---------------- WRITES ----------------

// CreateOrder → insert new order
func (d *DB) CreateOrder(ctx context.Context, order *models.Order) error {
	_, err := d.Bun.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}
	return nil
}

// SetCheckoutID stores the gateway correlation id on a pending order.
func (d *DB) SetCheckoutID(ctx context.Context, orderID, checkoutID string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("checkout_id = ?", checkoutID).
		Where("id = ?", orderID).
		Where("payment_status = ?", models.PaymentPending).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set checkout id on %s: %w", orderID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed moves a pending order to failed. Returns false when the order
// was not pending.
func (d *DB) MarkFailed(ctx context.Context, orderID string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("payment_status = ?", models.PaymentFailed).
		Where("id = ?", orderID).
		Where("payment_status = ?", models.PaymentPending).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("mark order %s failed: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// TransitionPayment moves the order matching checkoutID out of pending in a
// single conditional write. It returns true only for the caller that won the
// transition; replays and concurrent duplicates get false.
func (d *DB) TransitionPayment(ctx context.Context, checkoutID string, to models.PaymentStatus, reference string) (bool, error) {
	if !to.Terminal() {
		return false, fmt.Errorf("invalid target status %q", to)
	}

	q := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("payment_status = ?", to)
	if reference != "" {
		q = q.Set("transaction_id = ?", reference)
	}

	res, err := q.
		Where("checkout_id = ?", checkoutID).
		Where("payment_status = ?", models.PaymentPending).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("transition payment %s: %w", checkoutID, err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MarkScanned flips scanned false→true on a paid order. Only one caller can
// ever see true for a given order.
func (d *DB) MarkScanned(ctx context.Context, orderID string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("scanned = ?", true).
		Set("scanned_at = ?", at).
		Where("id = ?", orderID).
		Where("scanned = ?", false).
		Where("payment_status = ?", models.PaymentPaid).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("mark order %s scanned: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ---------------- READS ----------------

func (d *DB) getOne(ctx context.Context, column, value string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order by %s: %w", column, err)
	}
	return &order, nil
}

// GetOrderByID → fetch one order by its internal id
func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	return d.getOne(ctx, "id", id)
}

func (d *DB) GetOrderByCheckoutID(ctx context.Context, checkoutID string) (*models.Order, error) {
	return d.getOne(ctx, "checkout_id", checkoutID)
}

func (d *DB) GetOrderByTicketID(ctx context.Context, ticketID string) (*models.Order, error) {
	return d.getOne(ctx, "ticket_id", ticketID)
}

func (d *DB) GetOrderByQRCode(ctx context.Context, code string) (*models.Order, error) {
	return d.getOne(ctx, "qr_code", code)
}

// GetOrderByTicketAndCheckout requires both identifiers to match.
func (d *DB) GetOrderByTicketAndCheckout(ctx context.Context, ticketID, checkoutID string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("ticket_id = ?", ticketID).
		Where("checkout_id = ?", checkoutID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order by ticket and checkout: %w", err)
	}
	return &order, nil
}
