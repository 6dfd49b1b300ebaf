package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// Store keeps all per-session checkout state in Redis: the cart, the staged
// voucher, and pending redirect checkouts keyed by correlation id. Every key
// carries the session TTL, so an abandoned redirect simply expires and no
// order is ever created from it.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a session store backed by Redis
func NewStore(addr, password string, db int, ttl time.Duration) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Store{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.rdb.Close()
}

// StagedVoucher is the voucher a customer applied before checkout. The
// discount here is display state only; checkout recomputes it.
type StagedVoucher struct {
	Code     string `json:"code"`
	Discount int64  `json:"discount"`
}

// PendingCheckout is the state a redirect or capture gateway round-trip
// loses: the delivery profile, the staged voucher code, and the amount the
// gateway was asked to collect. Keyed by the gateway correlation id.
type PendingCheckout struct {
	SessionID  string                 `json:"session_id"`
	CustomerID string                 `json:"customer_id"`
	Profile    models.DeliveryProfile `json:"profile"`
	Lines      []models.CartLine      `json:"lines"`
	Voucher    *StagedVoucher         `json:"voucher,omitempty"`
	Amount     int64                  `json:"amount"`
	Gateway    string                 `json:"gateway"`
	CreatedAt  time.Time              `json:"created_at"`
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("session:%s:cart", sessionID)
}

func voucherKey(sessionID string) string {
	return fmt.Sprintf("session:%s:voucher", sessionID)
}

func pendingKey(ref string) string {
	return fmt.Sprintf("pending:%s", ref)
}

// GetCart returns the cart lines for a session, empty when none exist.
func (s *Store) GetCart(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	var lines []models.CartLine
	if err := s.getJSON(ctx, cartKey(sessionID), &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// SetCart replaces the cart lines for a session.
func (s *Store) SetCart(ctx context.Context, sessionID string, lines []models.CartLine) error {
	return s.setJSON(ctx, cartKey(sessionID), lines)
}

// ClearCart removes the session cart.
func (s *Store) ClearCart(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, cartKey(sessionID)).Err()
}

// GetVoucher returns the staged voucher for a session, nil when none.
func (s *Store) GetVoucher(ctx context.Context, sessionID string) (*StagedVoucher, error) {
	var staged StagedVoucher
	found, err := s.getJSONFound(ctx, voucherKey(sessionID), &staged)
	if err != nil || !found {
		return nil, err
	}
	return &staged, nil
}

// SetVoucher stages a voucher for a session.
func (s *Store) SetVoucher(ctx context.Context, sessionID string, staged *StagedVoucher) error {
	return s.setJSON(ctx, voucherKey(sessionID), staged)
}

// ClearVoucher removes the staged voucher.
func (s *Store) ClearVoucher(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, voucherKey(sessionID)).Err()
}

// StashPending stores the checkout state for a gateway round-trip.
func (s *Store) StashPending(ctx context.Context, ref string, pending *PendingCheckout) error {
	return s.setJSON(ctx, pendingKey(ref), pending)
}

// TakePending retrieves and removes pending checkout state. Returns nil when
// the reference is unknown or already consumed, which also makes duplicate
// gateway callbacks harmless.
func (s *Store) TakePending(ctx context.Context, ref string) (*PendingCheckout, error) {
	var pending PendingCheckout
	data, err := s.rdb.GetDel(ctx, pendingKey(ref)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending checkout: %w", err)
	}
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("decode pending checkout: %w", err)
	}
	return &pending, nil
}

func (s *Store) getJSON(ctx context.Context, key string, dest interface{}) error {
	_, err := s.getJSONFound(ctx, key, dest)
	return err
}

func (s *Store) getJSONFound(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
