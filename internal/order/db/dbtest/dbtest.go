// Package dbtest opens throwaway SQLite-backed order stores for tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"dinner-ticketing/internal/models"
	"dinner-ticketing/internal/order/db"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// New returns an order store on a private in-memory SQLite database. The
// database is closed when the test ends.
func New(t testing.TB) (*db.DB, *bun.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.CreateSchema(context.Background(), bunDB); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { bunDB.Close() })
	return db.New(bunDB), bunDB
}

// Order builds a pending order with unique identifiers. Callers adjust the
// fields they care about before inserting.
func Order() *models.Order {
	id := uuid.NewString()
	return &models.Order{
		ID:            id,
		TicketID:      id[:8],
		QRCode:        uuid.NewString(),
		FullName:      "Jane Doe",
		Email:         "jane@x.com",
		Phone:         "254712345678",
		TicketType:    "single",
		Quantity:      2,
		TotalAmount:   12000,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     time.Now().UTC(),
	}
}

// Insert stores o, failing the test on error.
func Insert(t testing.TB, store *db.DB, o *models.Order) *models.Order {
	t.Helper()
	if err := store.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("Failed to insert order: %v", err)
	}
	return o
}
