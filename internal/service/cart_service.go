package service

import (
	"context"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/session"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// CartService manages the session cart. Prices are captured at add time and
// never looked up live again.
type CartService struct {
	store    OrderStore
	sessions SessionStore
	logger   *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store OrderStore, sessions SessionStore) *CartService {
	return &CartService{
		store:    store,
		sessions: sessions,
		logger:   util.GetLogger(),
	}
}

// Catalog returns the product listing.
func (s *CartService) Catalog(ctx context.Context) ([]models.Product, error) {
	return s.store.GetProducts(ctx)
}

// Add puts a product in the cart or increments an existing line. An unknown
// product fails before the stored cart is touched.
func (s *CartService) Add(ctx context.Context, sessionID string, productID int64, quantity int) ([]models.CartLine, error) {
	if quantity <= 0 {
		return nil, models.NewValidationError("quantity must be positive")
	}

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	lines, err := s.sessions.GetCart(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	found := false
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, models.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.Image,
			UnitPrice: product.Price,
			Quantity:  quantity,
		})
	}

	if err := s.sessions.SetCart(ctx, sessionID, lines); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.logger.Debug("Cart line added",
		zap.String("session_id", sessionID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity))
	return lines, nil
}

// Remove drops a product line from the cart. Removing an absent product is
// a no-op.
func (s *CartService) Remove(ctx context.Context, sessionID string, productID int64) ([]models.CartLine, error) {
	lines, err := s.sessions.GetCart(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	kept := lines[:0]
	for _, l := range lines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(lines) {
		return lines, nil
	}

	if err := s.sessions.SetCart(ctx, sessionID, kept); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return kept, nil
}

// List returns the cart lines and their total.
func (s *CartService) List(ctx context.Context, sessionID string) ([]models.CartLine, int64, error) {
	lines, err := s.sessions.GetCart(ctx, sessionID)
	if err != nil {
		return nil, 0, fmt.Errorf("load cart: %w", err)
	}
	return lines, models.CartTotal(lines), nil
}

// StagedVoucher returns the voucher currently staged on the session, nil
// when none is.
func (s *CartService) StagedVoucher(ctx context.Context, sessionID string) (*session.StagedVoucher, error) {
	return s.sessions.GetVoucher(ctx, sessionID)
}
