package service

import (
	"context"

	"checkout-service/internal/models"
	"checkout-service/internal/session"
)

// OrderStore is the persistence surface the services need. *store.Store
// satisfies it; tests use fakes.
type OrderStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetCustomerByID(ctx context.Context, id string) (*models.Customer, error)
	GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error)
	GetVoucherUsages(ctx context.Context, voucherID int64) ([]models.VoucherUsage, error)
	PlaceOrder(ctx context.Context, order *models.Order, lines []models.OrderLine, redeem *models.VoucherRedemption) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error)
	GetOrdersByCustomerID(ctx context.Context, customerID string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, next models.OrderStatus, note string) (models.OrderStatus, error)
}

// SessionStore is the per-session state surface. *session.Store satisfies it.
type SessionStore interface {
	GetCart(ctx context.Context, sessionID string) ([]models.CartLine, error)
	SetCart(ctx context.Context, sessionID string, lines []models.CartLine) error
	ClearCart(ctx context.Context, sessionID string) error
	GetVoucher(ctx context.Context, sessionID string) (*session.StagedVoucher, error)
	SetVoucher(ctx context.Context, sessionID string, staged *session.StagedVoucher) error
	ClearVoucher(ctx context.Context, sessionID string) error
	StashPending(ctx context.Context, ref string, pending *session.PendingCheckout) error
	TakePending(ctx context.Context, ref string) (*session.PendingCheckout, error)
}

// EventPublisher publishes post-commit domain events, best-effort.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
}
