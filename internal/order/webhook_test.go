package order_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"dinner-ticketing/internal/email"
	"dinner-ticketing/internal/models"
	"dinner-ticketing/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseNotification(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        models.PaymentNotification
	}{
		{
			name:        "json numeric code",
			contentType: "application/json",
			body:        `{"ResponseCode":0,"CheckoutRequestID":"ws_CO_1","TransactionID":"TX1","TransactionAmount":12000}`,
			want:        models.PaymentNotification{ResponseCode: "0", CheckoutRequestID: "ws_CO_1", TransactionID: "TX1", TransactionAmount: "12000"},
		},
		{
			name:        "json string code with charset",
			contentType: "application/json; charset=utf-8",
			body:        `{"ResponseCode":"1032","CheckoutRequestID":"ws_CO_2"}`,
			want:        models.PaymentNotification{ResponseCode: "1032", CheckoutRequestID: "ws_CO_2"},
		},
		{
			name:        "form",
			contentType: "application/x-www-form-urlencoded",
			body:        "ResponseCode=0&CheckoutRequestID=ws_CO_3&TransactionReceipt=RCP9",
			want:        models.PaymentNotification{ResponseCode: "0", CheckoutRequestID: "ws_CO_3", TransactionReceipt: "RCP9"},
		},
		{
			name: "sniffed json",
			body: `{"ResponseCode":"0","CheckoutRequestID":"ws_CO_4"}`,
			want: models.PaymentNotification{ResponseCode: "0", CheckoutRequestID: "ws_CO_4"},
		},
		{
			name:        "sniffed form",
			contentType: "text/plain",
			body:        "ResponseCode=1&CheckoutRequestID=ws_CO_5",
			want:        models.PaymentNotification{ResponseCode: "1", CheckoutRequestID: "ws_CO_5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/payment-callback", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			got, err := order.ParseNotification(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNotificationMalformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/payment-callback", strings.NewReader(`{"ResponseCode":`))
	req.Header.Set("Content-Type", "application/json")

	_, err := order.ParseNotification(req)

	var werr *order.WebhookError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, http.StatusBadRequest, werr.StatusCode)
	assert.Equal(t, "Invalid webhook payload", werr.PublicError)
}

func TestPaymentNotificationSettlesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createPending(t, "ws_CO_B")

	f.mailer.On("Send", mock.Anything, mock.MatchedBy(func(m email.Message) bool {
		return m.To == "jane@x.com" && strings.Contains(m.Subject, created.TicketID)
	})).Return(nil).Once()

	res, err := f.svc.HandlePaymentNotification(ctx, models.PaymentNotification{
		ResponseCode: "0", CheckoutRequestID: "ws_CO_B", TransactionID: "TX-FIRST",
	})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.False(t, res.AlreadyProcessed)
	assert.True(t, res.EmailSent)
	assert.Equal(t, models.PaymentPaid, res.Status)

	stored, err := f.store.GetOrderByID(ctx, created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, "TX-FIRST", stored.TransactionID)

	// Replay with a different reference changes nothing.
	res, err = f.svc.HandlePaymentNotification(ctx, models.PaymentNotification{
		ResponseCode: "0", CheckoutRequestID: "ws_CO_B", TransactionID: "TX-SECOND",
	})
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.False(t, res.EmailSent)

	stored, err = f.store.GetOrderByID(ctx, created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "TX-FIRST", stored.TransactionID)

	f.mailer.AssertNumberOfCalls(t, "Send", 1)
	assert.Equal(t, []string{models.EventOrderCreated, models.EventOrderPaid}, f.events.types())
}

func TestPaymentNotificationFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createPending(t, "ws_CO_C")

	res, err := f.svc.HandlePaymentNotification(ctx, models.PaymentNotification{ResponseCode: "1", CheckoutRequestID: "ws_CO_C", TransactionID: "TX-IGNORED"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, res.Status)
	assert.False(t, res.EmailSent)

	stored, err := f.store.GetOrderByID(ctx, created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, stored.PaymentStatus)
	assert.Empty(t, stored.TransactionID)

	// A late success cannot revive a failed order.
	res, err = f.svc.HandlePaymentNotification(ctx, models.PaymentNotification{ResponseCode: "0", CheckoutRequestID: "ws_CO_C"})
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.Equal(t, models.PaymentFailed, res.Status)

	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	assert.Equal(t, []string{models.EventOrderCreated, models.EventOrderFailed}, f.events.types())
}

func TestPaymentNotificationUnknownCheckout(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.HandlePaymentNotification(context.Background(), models.PaymentNotification{ResponseCode: "0", CheckoutRequestID: "ws_CO_unknown"})
	require.NoError(t, err)
	assert.False(t, res.Found)
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestPaymentNotificationMissingFields(t *testing.T) {
	f := newFixture(t)

	for _, n := range []models.PaymentNotification{
		{CheckoutRequestID: "ws_CO_1"},
		{ResponseCode: "0"},
	} {
		_, err := f.svc.HandlePaymentNotification(context.Background(), n)
		var werr *order.WebhookError
		require.ErrorAs(t, err, &werr)
		assert.Equal(t, http.StatusBadRequest, werr.StatusCode)
	}
}

func TestPaymentNotificationEmailFailureKeepsPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createPending(t, "ws_CO_mail")

	f.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp unavailable")).Once()

	res, err := f.svc.HandlePaymentNotification(ctx, models.PaymentNotification{ResponseCode: "0", CheckoutRequestID: "ws_CO_mail", TransactionReceipt: "RCP1"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, res.Status)
	assert.False(t, res.EmailSent)

	stored, err := f.store.GetOrderByID(ctx, created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, "RCP1", stored.TransactionID)
}

func TestConcurrentPaymentNotificationsSendOneEmail(t *testing.T) {
	f := newFixture(t)
	created := f.createPending(t, "ws_CO_race")

	f.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)

	const deliveries = 8
	var wg sync.WaitGroup
	results := make([]*order.WebhookResult, deliveries)
	errs := make([]error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.HandlePaymentNotification(context.Background(), models.PaymentNotification{
				ResponseCode: "0", CheckoutRequestID: "ws_CO_race", TransactionID: "TX-RACE",
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < deliveries; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, models.PaymentPaid, results[i].Status)
		if !results[i].AlreadyProcessed {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	f.mailer.AssertNumberOfCalls(t, "Send", 1)

	stored, err := f.store.GetOrderByID(context.Background(), created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
}
