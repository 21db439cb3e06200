package analytics

import (
	"context"
	"time"

	"dinner-ticketing/internal/models"

	"github.com/uptrace/bun"
)

// DB handles analytics database operations
type DB struct {
	bun *bun.DB
}

// NewDB creates a new analytics DB handler
func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// ListOrders returns one page of orders, newest first, and the total number
// of orders matching status. An empty status matches every order.
func (db *DB) ListOrders(ctx context.Context, status models.PaymentStatus, limit, offset int) ([]models.Order, int, error) {
	orders := make([]models.Order, 0)
	q := db.bun.NewSelect().
		Model(&orders).
		OrderExpr("created_at DESC").
		Limit(limit).
		Offset(offset)
	if status != "" {
		q = q.Where("payment_status = ?", status)
	}

	total, err := q.ScanAndCount(ctx)
	return orders, total, err
}

// StatsData represents raw aggregate counters from the database
type StatsData struct {
	TotalOrders   int   `bun:"total_orders"`
	PendingOrders int   `bun:"pending_orders"`
	PaidOrders    int   `bun:"paid_orders"`
	FailedOrders  int   `bun:"failed_orders"`
	ScannedOrders int   `bun:"scanned_orders"`
	Revenue       int64 `bun:"revenue"`
	TicketsSold   int   `bun:"tickets_sold"`
}

// GetStats aggregates every order in one pass.
func (db *DB) GetStats(ctx context.Context) (*StatsData, error) {
	var stats StatsData
	err := db.bun.NewRaw(`
		SELECT
			COUNT(*) AS total_orders,
			COALESCE(SUM(CASE WHEN payment_status = ? THEN 1 ELSE 0 END), 0) AS pending_orders,
			COALESCE(SUM(CASE WHEN payment_status = ? THEN 1 ELSE 0 END), 0) AS paid_orders,
			COALESCE(SUM(CASE WHEN payment_status = ? THEN 1 ELSE 0 END), 0) AS failed_orders,
			COALESCE(SUM(CASE WHEN scanned = ? THEN 1 ELSE 0 END), 0) AS scanned_orders,
			COALESCE(SUM(CASE WHEN payment_status = ? THEN total_amount ELSE 0 END), 0) AS revenue,
			COALESCE(SUM(CASE WHEN payment_status = ? THEN quantity ELSE 0 END), 0) AS tickets_sold
		FROM orders`,
		models.PaymentPending,
		models.PaymentPaid,
		models.PaymentFailed,
		true,
		models.PaymentPaid,
		models.PaymentPaid,
	).Scan(ctx, &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// PaidSale is one paid order reduced to what daily sales need.
type PaidSale struct {
	CreatedAt   time.Time `bun:"created_at"`
	Quantity    int       `bun:"quantity"`
	TotalAmount int64     `bun:"total_amount"`
}

// GetPaidSales retrieves the paid orders, oldest first.
func (db *DB) GetPaidSales(ctx context.Context) ([]PaidSale, error) {
	sales := make([]PaidSale, 0)
	err := db.bun.NewSelect().
		Model((*models.Order)(nil)).
		Column("created_at", "quantity", "total_amount").
		Where("payment_status = ?", models.PaymentPaid).
		OrderExpr("created_at ASC").
		Scan(ctx, &sales)

	return sales, err
}
