package hashpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"dinner-ticketing/internal/config"
	"dinner-ticketing/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(config.PaymentConfig{
		BaseURL:   url,
		APIKey:    "key-123",
		AccountID: "acct-9",
		Timeout:   2 * time.Second,
	}, logger.NewStdout())
}

func TestInitiatePushSuccess(t *testing.T) {
	var got stkPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/initiatestk", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ResponseCode":"0","ResponseDescription":"Success. Request accepted","CheckoutRequestID":"ws_CO_123"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).InitiatePush(context.Background(), PushRequest{
		Amount: 12000, Phone: "254712345678", Reference: "WDD-ABCD1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_123", res.CheckoutID)

	assert.Equal(t, "key-123", got.APIKey)
	assert.Equal(t, "acct-9", got.AccountID)
	assert.Equal(t, "12000", got.Amount)
	assert.Equal(t, "254712345678", got.MSISDN)
	assert.Equal(t, "WDD-ABCD1234", got.Reference)
}

func TestInitiatePushNumericCodeAndAltCheckoutField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ResponseCode":0,"checkout_id":"chk-77"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).InitiatePush(context.Background(), PushRequest{Amount: 6000, Phone: "254112345678", Reference: "WDD-1"})
	require.NoError(t, err)
	assert.Equal(t, "chk-77", res.CheckoutID)
}

func TestInitiatePushRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"description", `{"ResponseCode":"1","ResponseDescription":"Insufficient balance"}`, "Insufficient balance"},
		{"message fallback", `{"ResponseCode":"500","message":"Invalid account"}`, "Invalid account"},
		{"no text", `{"ResponseCode":"2"}`, "STK push failed"},
		{"not json", `<html>bad gateway</html>`, "STK push failed"},
		{"missing checkout id", `{"ResponseCode":"0"}`, "gateway accepted push without a checkout id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).InitiatePush(context.Background(), PushRequest{Amount: 6000, Phone: "254712345678", Reference: "WDD-1"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRejected))
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestInitiatePushSingleAttemptOnTransportError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL).WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond})
	_, err := c.InitiatePush(context.Background(), PushRequest{Amount: 6000, Phone: "254712345678", Reference: "WDD-1"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRejected))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFlexString(t *testing.T) {
	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"0","b":17,"c":null}`), &v))
	assert.Equal(t, flexString("0"), v.A)
	assert.Equal(t, flexString("17"), v.B)
	assert.Equal(t, flexString(""), v.C)
}
