package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dinner-ticketing/internal/logger"
	"dinner-ticketing/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix     = "order_idem:"
	inFlightValue = "in_flight"
	inFlightTTL   = 2 * time.Minute
)

// ErrInFlight means another request holding the same key has not finished.
var ErrInFlight = errors.New("a request with this idempotency key is already in progress")

// Store keeps creation idempotency keys. A key is claimed with SetNX before
// the order is created, replaced by the cached response on success, and
// released on failure so the buyer can resubmit.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewStore(client *redis.Client, ttl time.Duration, log *logger.Logger) *Store {
	return &Store{Client: client, TTL: ttl, Logger: log}
}

func key(k string) string { return keyPrefix + k }

// Claim reserves k. When an earlier request already completed, its response
// is returned with claimed=false. An unfinished earlier request yields
// ErrInFlight.
func (s *Store) Claim(ctx context.Context, k string) (*models.OrderResponse, bool, error) {
	ok, err := s.Client.SetNX(ctx, key(k), inFlightValue, inFlightTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	val, err := s.Client.Get(ctx, key(k)).Result()
	if err == redis.Nil {
		// Expired between SETNX and GET; try once more.
		ok, err = s.Client.SetNX(ctx, key(k), inFlightValue, inFlightTTL).Result()
		if err != nil {
			return nil, false, fmt.Errorf("claim idempotency key: %w", err)
		}
		if ok {
			return nil, true, nil
		}
		return nil, false, ErrInFlight
	}
	if err != nil {
		return nil, false, fmt.Errorf("read idempotency key: %w", err)
	}
	if val == inFlightValue {
		return nil, false, ErrInFlight
	}

	var resp models.OrderResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, false, fmt.Errorf("decode cached response: %w", err)
	}
	s.Logger.Debug("REDIS", fmt.Sprintf("Replaying cached response for key %s (order %s)", k, resp.OrderID))
	return &resp, false, nil
}

// Complete stores the successful response under k for the configured TTL.
func (s *Store) Complete(ctx context.Context, k string, resp *models.OrderResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := s.Client.Set(ctx, key(k), b, s.TTL).Err(); err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

// Release drops a claim that did not produce a response. Completed keys are
// left alone.
func (s *Store) Release(ctx context.Context, k string) error {
	val, err := s.Client.Get(ctx, key(k)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val != inFlightValue {
		return nil
	}
	return s.Client.Del(ctx, key(k)).Err()
}
