package hashpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dinner-ticketing/internal/config"
	"dinner-ticketing/internal/logger"
)

// ErrRejected is wrapped by every gateway refusal so callers can tell a
// declined push from a transport failure.
var ErrRejected = errors.New("stk push rejected")

type RejectedError struct {
	Code        string
	Description string
}

func (e *RejectedError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	return fmt.Sprintf("STK push failed (code %s)", e.Code)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

type PushRequest struct {
	Amount    int64
	Phone     string
	Reference string
}

type PushResult struct {
	CheckoutID   string
	ResponseCode string
	Description  string
}

// Client talks to the HashPay STK push API. Every call is bounded by the
// http.Client timeout.
type Client struct {
	baseURL   string
	apiKey    string
	accountID string
	http      *http.Client
	logger    *logger.Logger
}

func NewClient(cfg config.PaymentConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		accountID: cfg.AccountID,
		http:      &http.Client{Timeout: cfg.Timeout},
		logger:    log,
	}
}

// WithHTTPClient swaps the transport, e.g. for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

type stkPayload struct {
	APIKey    string `json:"api_key"`
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
	MSISDN    string `json:"msisdn"`
	Reference string `json:"reference"`
}

type stkResponse struct {
	ResponseCode        flexString `json:"ResponseCode"`
	ResponseDescription string     `json:"ResponseDescription"`
	CheckoutRequestID   string     `json:"CheckoutRequestID"`
	CheckoutID          string     `json:"checkout_id"`
	Message             string     `json:"message"`
}

// InitiatePush asks the gateway to prompt the buyer's phone. It makes exactly
// one request and never retries.
func (c *Client) InitiatePush(ctx context.Context, req PushRequest) (*PushResult, error) {
	body, err := json.Marshal(stkPayload{
		APIKey:    c.apiKey,
		AccountID: c.accountID,
		Amount:    strconv.FormatInt(req.Amount, 10),
		MSISDN:    req.Phone,
		Reference: req.Reference,
	})
	if err != nil {
		return nil, fmt.Errorf("encode stk payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/initiatestk", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build stk request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("PAYMENT", fmt.Sprintf("STK push %s amount=%d msisdn=%s", req.Reference, req.Amount, req.Phone))

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("PAYMENT", fmt.Sprintf("STK push %s transport error: %v", req.Reference, err))
		return nil, fmt.Errorf("stk push request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Error("PAYMENT", fmt.Sprintf("Failed to close STK response body: %v", err))
		}
	}(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read stk response: %w", err)
	}

	var out stkResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Error("PAYMENT", fmt.Sprintf("STK push %s returned HTTP %d with undecodable body", req.Reference, resp.StatusCode))
		return nil, &RejectedError{Code: strconv.Itoa(resp.StatusCode), Description: "STK push failed"}
	}

	c.logger.Info("PAYMENT", fmt.Sprintf("STK push %s answered HTTP %d code=%q in %s",
		req.Reference, resp.StatusCode, string(out.ResponseCode), time.Since(start)))

	if out.ResponseCode != "0" {
		desc := out.ResponseDescription
		if desc == "" {
			desc = out.Message
		}
		if desc == "" {
			desc = "STK push failed"
		}
		return nil, &RejectedError{Code: string(out.ResponseCode), Description: desc}
	}

	checkoutID := out.CheckoutRequestID
	if checkoutID == "" {
		checkoutID = out.CheckoutID
	}
	if checkoutID == "" {
		return nil, &RejectedError{Code: "0", Description: "gateway accepted push without a checkout id"}
	}

	return &PushResult{
		CheckoutID:   checkoutID,
		ResponseCode: string(out.ResponseCode),
		Description:  out.ResponseDescription,
	}, nil
}

// flexString decodes a JSON string or number into its textual form.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
