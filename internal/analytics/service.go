package analytics

import (
	"context"
	"errors"
	"fmt"

	"dinner-ticketing/internal/models"

	"github.com/uptrace/bun"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

var ErrInvalidStatus = errors.New("invalid payment status filter")

// Service handles analytics operations
type Service struct {
	db *DB
}

// NewService creates a new analytics service
func NewService(db *bun.DB) *Service {
	return &Service{db: NewDB(db)}
}

// OrderPage is one page of the admin order list.
type OrderPage struct {
	Orders []models.Order `json:"orders"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// OrderStats represents aggregated figures for the whole event
type OrderStats struct {
	TotalOrders   int                 `json:"totalOrders"`
	PendingOrders int                 `json:"pendingOrders"`
	PaidOrders    int                 `json:"paidOrders"`
	FailedOrders  int                 `json:"failedOrders"`
	ScannedOrders int                 `json:"scannedOrders"`
	TotalRevenue  int64               `json:"totalRevenue"`
	TicketsSold   int                 `json:"ticketsSold"`
	DailySales    []DailySalesMetrics `json:"dailySales"`
}

// DailySalesMetrics contains metrics for a single day
type DailySalesMetrics struct {
	Date        string `json:"date"`
	Revenue     int64  `json:"revenue"`
	TicketsSold int    `json:"ticketsSold"`
}

// ListOrders returns orders newest first. limit is clamped to
// [1, MaxPageSize] with DefaultPageSize for zero.
func (s *Service) ListOrders(ctx context.Context, status models.PaymentStatus, limit, offset int) (*OrderPage, error) {
	switch status {
	case "", models.PaymentPending, models.PaymentPaid, models.PaymentFailed:
	default:
		return nil, ErrInvalidStatus
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	orders, total, err := s.db.ListOrders(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return &OrderPage{Orders: orders, Total: total, Limit: limit, Offset: offset}, nil
}

// Stats computes the admin dashboard figures.
func (s *Service) Stats(ctx context.Context) (*OrderStats, error) {
	raw, err := s.db.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}

	sales, err := s.db.GetPaidSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("paid sales: %w", err)
	}

	return &OrderStats{
		TotalOrders:   raw.TotalOrders,
		PendingOrders: raw.PendingOrders,
		PaidOrders:    raw.PaidOrders,
		FailedOrders:  raw.FailedOrders,
		ScannedOrders: raw.ScannedOrders,
		TotalRevenue:  raw.Revenue,
		TicketsSold:   raw.TicketsSold,
		DailySales:    dailySales(sales),
	}, nil
}

// dailySales buckets sales by UTC calendar day. Input must be ordered by time.
func dailySales(sales []PaidSale) []DailySalesMetrics {
	out := make([]DailySalesMetrics, 0)
	for _, sale := range sales {
		day := sale.CreatedAt.UTC().Format("2006-01-02")
		if n := len(out); n > 0 && out[n-1].Date == day {
			out[n-1].Revenue += sale.TotalAmount
			out[n-1].TicketsSold += sale.Quantity
			continue
		}
		out = append(out, DailySalesMetrics{Date: day, Revenue: sale.TotalAmount, TicketsSold: sale.Quantity})
	}
	return out
}
