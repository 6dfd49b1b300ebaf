package service

import (
	"context"
	"testing"
	"time"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64 { return &v }

func seedVoucher(store *fakeStore, code string, percent int64) *models.Voucher {
	v := &models.Voucher{
		ID:              int64(len(store.vouchers) + 1),
		Code:            code,
		DiscountPercent: percent,
		StartsAt:        time.Now().Add(-time.Hour),
		EndsAt:          time.Now().Add(time.Hour),
		Quota:           10,
		Active:          true,
	}
	store.vouchers[code] = v
	return v
}

func TestApplyStagesVoucher(t *testing.T) {
	store := newFakeStore()
	sessions := newFakeSessions()
	svc := NewVoucherService(store, sessions)

	v := seedVoucher(store, "SALE10", 10)
	v.MinOrderAmount = i64(100_000)

	ctx := context.Background()
	require.NoError(t, sessions.SetCart(ctx, "s1", []models.CartLine{
		{ProductID: 1, UnitPrice: 250_000, Quantity: 2},
	}))

	result, err := svc.Apply(ctx, "s1", "SALE10")
	require.NoError(t, err)

	assert.Equal(t, int64(50_000), result.Discount)
	assert.Equal(t, int64(450_000), result.FinalAmount)
	assert.Equal(t, int64(10), result.DiscountPercent)

	staged, err := sessions.GetVoucher(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, staged)
	assert.Equal(t, "SALE10", staged.Code)
	assert.Equal(t, int64(50_000), staged.Discount)
}

func TestApplyUnknownCode(t *testing.T) {
	svc := NewVoucherService(newFakeStore(), newFakeSessions())

	_, err := svc.Apply(context.Background(), "s1", "NOPE")

	re, ok := models.AsRule(err)
	require.True(t, ok)
	assert.Equal(t, models.VoucherNotFound, re.Reason)
}

func TestApplyBelowMinimumNotStaged(t *testing.T) {
	store := newFakeStore()
	sessions := newFakeSessions()
	svc := NewVoucherService(store, sessions)

	v := seedVoucher(store, "BIG", 20)
	v.MinOrderAmount = i64(1_000_000)

	ctx := context.Background()
	require.NoError(t, sessions.SetCart(ctx, "s1", []models.CartLine{
		{ProductID: 1, UnitPrice: 100_000, Quantity: 1},
	}))

	_, err := svc.Apply(ctx, "s1", "BIG")

	re, ok := models.AsRule(err)
	require.True(t, ok)
	assert.Equal(t, models.VoucherBelowMinimum, re.Reason)

	staged, err := sessions.GetVoucher(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, staged)
}

func TestApplyEmptyCode(t *testing.T) {
	svc := NewVoucherService(newFakeStore(), newFakeSessions())

	_, err := svc.Apply(context.Background(), "s1", "")
	_, ok := models.AsValidation(err)
	assert.True(t, ok)
}

func TestValidateIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := NewVoucherService(store, newFakeSessions())
	seedVoucher(store, "SALE10", 10)

	ctx := context.Background()
	now := time.Now()

	_, first, err := svc.Validate(ctx, "SALE10", 500_000, now)
	require.NoError(t, err)
	_, second, err := svc.Validate(ctx, "SALE10", 500_000, now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// Validation never consumes quota.
	assert.Equal(t, 0, store.vouchers["SALE10"].UsedCount)
}
