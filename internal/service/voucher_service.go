package service

import (
	"context"
	"fmt"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/session"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// VoucherService is the voucher ledger's validation side. Redemption itself
// happens inside the order transaction in the store, which re-runs the same
// rules under a row lock.
type VoucherService struct {
	store    OrderStore
	sessions SessionStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewVoucherService creates a new voucher service
func NewVoucherService(store OrderStore, sessions SessionStore) *VoucherService {
	return &VoucherService{
		store:    store,
		sessions: sessions,
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// ApplyResult is what the voucher endpoint returns on success.
type ApplyResult struct {
	Code            string `json:"voucher_code"`
	DiscountPercent int64  `json:"discount_percent"`
	Discount        int64  `json:"discount_amount"`
	MaxDiscount     int64  `json:"max_discount"`
	FinalAmount     int64  `json:"final_amount"`
}

// Apply validates a code against the session's current cart total and, when
// it passes, stages it for checkout. The staged discount is display state;
// checkout recomputes it.
func (s *VoucherService) Apply(ctx context.Context, sessionID, code string) (*ApplyResult, error) {
	if code == "" {
		return nil, models.NewValidationError("voucher code is required")
	}

	lines, err := s.sessions.GetCart(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	orderAmount := models.CartTotal(lines)

	voucher, discount, err := s.Validate(ctx, code, orderAmount, s.now())
	if err != nil {
		if re, ok := models.AsRule(err); ok {
			util.VoucherRejectionsTotal.WithLabelValues(string(re.Reason)).Inc()
		}
		return nil, err
	}

	staged := &session.StagedVoucher{Code: voucher.Code, Discount: discount}
	if err := s.sessions.SetVoucher(ctx, sessionID, staged); err != nil {
		return nil, fmt.Errorf("stage voucher: %w", err)
	}

	s.logger.Info("Voucher applied",
		zap.String("session_id", sessionID),
		zap.String("code", voucher.Code),
		zap.Int64("discount", discount))

	maxDiscount := discount
	if voucher.MaxDiscount != nil {
		maxDiscount = *voucher.MaxDiscount
	}
	return &ApplyResult{
		Code:            voucher.Code,
		DiscountPercent: voucher.DiscountPercent,
		Discount:        discount,
		MaxDiscount:     maxDiscount,
		FinalAmount:     orderAmount - discount,
	}, nil
}

// Usages returns the redemption audit trail for a code.
func (s *VoucherService) Usages(ctx context.Context, code string) ([]models.VoucherUsage, error) {
	voucher, err := s.store.GetVoucherByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup voucher: %w", err)
	}
	if voucher == nil {
		return nil, &models.RuleError{Reason: models.VoucherNotFound}
	}
	return s.store.GetVoucherUsages(ctx, voucher.ID)
}

// Validate looks a code up and runs every redemption rule against an order
// amount. Rejections come back as *models.RuleError with the reason.
func (s *VoucherService) Validate(ctx context.Context, code string, orderAmount int64, now time.Time) (*models.Voucher, int64, error) {
	voucher, err := s.store.GetVoucherByCode(ctx, code)
	if err != nil {
		return nil, 0, fmt.Errorf("lookup voucher: %w", err)
	}
	if voucher == nil {
		return nil, 0, &models.RuleError{Reason: models.VoucherNotFound}
	}

	discount, reason := voucher.Evaluate(orderAmount, now)
	if reason != models.VoucherOK {
		return nil, 0, &models.RuleError{Reason: reason}
	}
	return voucher, discount, nil
}
