// Package client is the buyer-side view of an order: it polls the status
// endpoint until the payment settles or the client gives up.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dinner-ticketing/internal/logger"
	"dinner-ticketing/internal/models"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 30
)

// TimeoutMessage is what the buyer is shown once polling gives up.
const TimeoutMessage = "Payment verification timed out. If you completed payment, your ticket will be sent to your email shortly."

// ErrPollTimeout is client-local. The order itself is left untouched and may
// still be paid by a later webhook.
var ErrPollTimeout = errors.New("payment verification timed out")

var errEmptyStatus = errors.New("empty status response")

type StatusFetcher interface {
	PaymentStatus(ctx context.Context, ticketID, checkoutID string) (*models.PaymentStatusResponse, error)
}

// HTTPStatusClient calls POST /api/payments/status.
type HTTPStatusClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewHTTPStatusClient(baseURL string) *HTTPStatusClient {
	return &HTTPStatusClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPStatusClient) PaymentStatus(ctx context.Context, ticketID, checkoutID string) (*models.PaymentStatusResponse, error) {
	body, err := json.Marshal(models.PaymentStatusRequest{TicketID: ticketID, CheckoutID: checkoutID})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/payments/status", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status request: unexpected status %d", resp.StatusCode)
	}

	var out models.PaymentStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &out, nil
}

type Poller struct {
	Fetcher     StatusFetcher
	Interval    time.Duration
	MaxAttempts int
	Logger      *logger.Logger
}

func NewPoller(fetcher StatusFetcher, log *logger.Logger) *Poller {
	return &Poller{
		Fetcher:     fetcher,
		Interval:    DefaultInterval,
		MaxAttempts: DefaultMaxAttempts,
		Logger:      log,
	}
}

// Wait polls until the order is paid or failed. A failed fetch counts as an
// attempt and polling continues.
func (p *Poller) Wait(ctx context.Context, ticketID, checkoutID string) (*models.PaymentStatusResponse, error) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		status, err := p.Fetcher.PaymentStatus(ctx, ticketID, checkoutID)
		if err == nil && status == nil {
			err = errEmptyStatus
		}
		switch {
		case err != nil:
			p.Logger.Warn("PAYMENT", fmt.Sprintf("Status poll %d/%d for %s failed: %v", attempt, p.MaxAttempts, ticketID, err))
		case status.PaymentStatus.Terminal():
			return status, nil
		}

		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	p.Logger.Info("PAYMENT", fmt.Sprintf("Stopped polling %s after %d attempts", ticketID, p.MaxAttempts))
	return nil, ErrPollTimeout
}
