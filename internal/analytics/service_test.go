package analytics_test

import (
	"context"
	"testing"
	"time"

	"dinner-ticketing/internal/analytics"
	"dinner-ticketing/internal/models"
	"dinner-ticketing/internal/order/db/dbtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) *analytics.Service {
	store, bunDB := dbtest.New(t)
	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	add := func(status models.PaymentStatus, qty int, at time.Time, scanned bool) {
		o := dbtest.Order()
		o.PaymentStatus = status
		o.Quantity = qty
		o.TotalAmount = int64(qty) * 6000
		o.CreatedAt = at
		if scanned {
			o.Scanned = true
			o.ScannedAt = &at
		}
		dbtest.Insert(t, store, o)
	}

	add(models.PaymentPaid, 2, day1, true)
	add(models.PaymentPaid, 1, day1.Add(time.Hour), false)
	add(models.PaymentPaid, 3, day2, false)
	add(models.PaymentPending, 1, day2.Add(time.Hour), false)
	add(models.PaymentFailed, 4, day2.Add(2*time.Hour), false)

	return analytics.NewService(bunDB)
}

func TestStats(t *testing.T) {
	svc := seed(t)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalOrders)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.Equal(t, 3, stats.PaidOrders)
	assert.Equal(t, 1, stats.FailedOrders)
	assert.Equal(t, 1, stats.ScannedOrders)
	assert.Equal(t, int64(36000), stats.TotalRevenue)
	assert.Equal(t, 6, stats.TicketsSold)

	assert.Equal(t, []analytics.DailySalesMetrics{
		{Date: "2026-03-01", Revenue: 18000, TicketsSold: 3},
		{Date: "2026-03-02", Revenue: 18000, TicketsSold: 3},
	}, stats.DailySales)
}

func TestStatsEmpty(t *testing.T) {
	_, bunDB := dbtest.New(t)

	stats, err := analytics.NewService(bunDB).Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalOrders)
	assert.Zero(t, stats.TotalRevenue)
	assert.Empty(t, stats.DailySales)
}

func TestListOrders(t *testing.T) {
	svc := seed(t)
	ctx := context.Background()

	page, err := svc.ListOrders(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, analytics.DefaultPageSize, page.Limit)
	require.Len(t, page.Orders, 5)
	for i := 1; i < len(page.Orders); i++ {
		assert.False(t, page.Orders[i].CreatedAt.After(page.Orders[i-1].CreatedAt), "newest first")
	}

	page, err = svc.ListOrders(ctx, models.PaymentPaid, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, 3, page.Orders[0].Quantity)

	page, err = svc.ListOrders(ctx, models.PaymentPaid, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, 2, page.Orders[0].Quantity)

	page, err = svc.ListOrders(ctx, "", 1000, -5)
	require.NoError(t, err)
	assert.Equal(t, analytics.MaxPageSize, page.Limit)
	assert.Equal(t, 0, page.Offset)

	_, err = svc.ListOrders(ctx, "refunded", 10, 0)
	assert.ErrorIs(t, err, analytics.ErrInvalidStatus)
}
