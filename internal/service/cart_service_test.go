package service

import (
	"context"
	"testing"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(store *fakeStore, id int64, price int64) {
	store.products[id] = &models.Product{
		ID:    id,
		Name:  "Product",
		Price: price,
	}
}

func TestCartAddCapturesPrice(t *testing.T) {
	store := newFakeStore()
	sessions := newFakeSessions()
	svc := NewCartService(store, sessions)
	seedProduct(store, 1, 120_000)

	ctx := context.Background()
	lines, err := svc.Add(ctx, "s1", 1, 2)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(120_000), lines[0].UnitPrice)
	assert.Equal(t, 2, lines[0].Quantity)

	// A later price change must not affect the captured line.
	store.products[1].Price = 999_000

	lines, err = svc.Add(ctx, "s1", 1, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, int64(120_000), lines[0].UnitPrice)
}

func TestCartAddUnknownProductLeavesCartUntouched(t *testing.T) {
	store := newFakeStore()
	sessions := newFakeSessions()
	svc := NewCartService(store, sessions)
	seedProduct(store, 1, 1000)

	ctx := context.Background()
	_, err := svc.Add(ctx, "s1", 1, 1)
	require.NoError(t, err)

	_, err = svc.Add(ctx, "s1", 99, 1)
	_, ok := models.AsValidation(err)
	assert.True(t, ok)

	cart, _ := sessions.GetCart(ctx, "s1")
	assert.Len(t, cart, 1)
}

func TestCartAddRejectsNonPositiveQuantity(t *testing.T) {
	svc := NewCartService(newFakeStore(), newFakeSessions())

	_, err := svc.Add(context.Background(), "s1", 1, 0)
	_, ok := models.AsValidation(err)
	assert.True(t, ok)

	_, err = svc.Add(context.Background(), "s1", 1, -2)
	_, ok = models.AsValidation(err)
	assert.True(t, ok)
}

func TestCartRemove(t *testing.T) {
	store := newFakeStore()
	sessions := newFakeSessions()
	svc := NewCartService(store, sessions)
	seedProduct(store, 1, 1000)
	seedProduct(store, 2, 2000)

	ctx := context.Background()
	_, err := svc.Add(ctx, "s1", 1, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "s1", 2, 1)
	require.NoError(t, err)

	lines, err := svc.Remove(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].ProductID)

	// Removing something that is not there is a no-op.
	lines, err = svc.Remove(ctx, "s1", 42)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestCartList(t *testing.T) {
	store := newFakeStore()
	sessions := newFakeSessions()
	svc := NewCartService(store, sessions)
	seedProduct(store, 1, 1000)
	seedProduct(store, 2, 500)

	ctx := context.Background()
	_, err := svc.Add(ctx, "s1", 1, 2)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "s1", 2, 3)
	require.NoError(t, err)

	lines, total, err := svc.List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, lines, 2)
	assert.Equal(t, int64(3500), total)

	lines, total, err = svc.List(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Zero(t, total)
}
