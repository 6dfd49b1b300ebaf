package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func i64(v int64) *int64 { return &v }

func activeVoucher() Voucher {
	return Voucher{
		ID:              1,
		Code:            "SALE10",
		DiscountPercent: 10,
		StartsAt:        time.Now().Add(-24 * time.Hour),
		EndsAt:          time.Now().Add(24 * time.Hour),
		Quota:           100,
		Active:          true,
	}
}

func TestVoucherEvaluatePercentDiscount(t *testing.T) {
	v := activeVoucher()
	v.MinOrderAmount = i64(100_000)

	discount, reason := v.Evaluate(500_000, time.Now())

	assert.Equal(t, VoucherOK, reason)
	assert.Equal(t, int64(50_000), discount)
}

func TestVoucherEvaluateClampsToMaxDiscount(t *testing.T) {
	v := activeVoucher()
	v.DiscountPercent = 20
	v.MaxDiscount = i64(100_000)

	discount, reason := v.Evaluate(1_000_000, time.Now())

	assert.Equal(t, VoucherOK, reason)
	assert.Equal(t, int64(100_000), discount)
}

func TestVoucherEvaluateQuotaExhausted(t *testing.T) {
	v := activeVoucher()
	v.Quota = 1
	v.UsedCount = 1

	_, reason := v.Evaluate(500_000, time.Now())
	assert.Equal(t, VoucherQuotaExhausted, reason)

	// Amount does not matter once the quota is gone.
	_, reason = v.Evaluate(5, time.Now())
	assert.Equal(t, VoucherQuotaExhausted, reason)
}

func TestVoucherEvaluateMinimumIsInclusive(t *testing.T) {
	v := activeVoucher()
	v.MinOrderAmount = i64(100_000)

	_, reason := v.Evaluate(100_000, time.Now())
	assert.Equal(t, VoucherOK, reason)

	_, reason = v.Evaluate(99_999, time.Now())
	assert.Equal(t, VoucherBelowMinimum, reason)
}

func TestVoucherEvaluateWindow(t *testing.T) {
	v := activeVoucher()

	_, reason := v.Evaluate(500_000, v.StartsAt.Add(-time.Minute))
	assert.Equal(t, VoucherNotStarted, reason)

	_, reason = v.Evaluate(500_000, v.EndsAt.Add(time.Minute))
	assert.Equal(t, VoucherExpired, reason)
}

func TestVoucherEvaluateInactive(t *testing.T) {
	v := activeVoucher()
	v.Active = false

	_, reason := v.Evaluate(500_000, time.Now())
	assert.Equal(t, VoucherNotFound, reason)
}

func TestVoucherEvaluateIdempotent(t *testing.T) {
	v := activeVoucher()
	now := time.Now()

	first, _ := v.Evaluate(500_000, now)
	second, _ := v.Evaluate(500_000, now)
	assert.Equal(t, first, second)
}

func TestCartTotals(t *testing.T) {
	lines := []CartLine{
		{ProductID: 1, UnitPrice: 1000, Quantity: 2},
		{ProductID: 2, UnitPrice: 500, Quantity: 3},
	}

	assert.Equal(t, int64(2000), lines[0].LineTotal())
	assert.Equal(t, int64(3500), CartTotal(lines))
	assert.Equal(t, int64(0), CartTotal(nil))
}

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusProcessing))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusDelivered))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusProcessing.CanTransitionTo(OrderStatusDelivered))
	assert.True(t, OrderStatusProcessing.CanTransitionTo(OrderStatusCancelled))

	// No way back, and terminal states stay terminal.
	assert.False(t, OrderStatusProcessing.CanTransitionTo(OrderStatusPending))
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusProcessing))
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusProcessing))
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusPending))
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatus(99)))
}

func TestDeliveryProfileComplete(t *testing.T) {
	assert.True(t, DeliveryProfile{Name: "a", Address: "b", Phone: "c"}.Complete())
	assert.False(t, DeliveryProfile{Name: "a", Address: "b"}.Complete())
	assert.False(t, DeliveryProfile{}.Complete())
}
