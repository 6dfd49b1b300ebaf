package service

import (
	"context"
	"fmt"
	"sync"

	"checkout-service/internal/models"
	"checkout-service/internal/session"
)

// fakeStore is an in-memory OrderStore that mirrors the transactional
// semantics of the real one: PlaceOrder re-evaluates the voucher and either
// everything lands or nothing does.
type fakeStore struct {
	mu        sync.Mutex
	products  map[int64]*models.Product
	customers map[string]*models.Customer
	vouchers  map[string]*models.Voucher
	orders    map[int64]*models.Order
	lines     map[int64][]models.OrderLine
	usages    []models.VoucherUsage
	nextID    int64
	failPlace bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:  make(map[int64]*models.Product),
		customers: make(map[string]*models.Customer),
		vouchers:  make(map[string]*models.Voucher),
		orders:    make(map[int64]*models.Order),
		lines:     make(map[int64][]models.OrderLine),
		nextID:    1,
	}
}

func (f *fakeStore) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, models.NewValidationError("product not found: %d", id)
}

func (f *fakeStore) GetProducts(_ context.Context) ([]models.Product, error) {
	var products []models.Product
	for _, p := range f.products {
		products = append(products, *p)
	}
	return products, nil
}

func (f *fakeStore) GetCustomerByID(_ context.Context, id string) (*models.Customer, error) {
	if c, ok := f.customers[id]; ok {
		return c, nil
	}
	return nil, models.NewValidationError("customer not found: %s", id)
}

func (f *fakeStore) GetVoucherByCode(_ context.Context, code string) (*models.Voucher, error) {
	return f.vouchers[code], nil
}

func (f *fakeStore) GetVoucherUsages(_ context.Context, voucherID int64) ([]models.VoucherUsage, error) {
	var usages []models.VoucherUsage
	for _, u := range f.usages {
		if u.VoucherID == voucherID {
			usages = append(usages, u)
		}
	}
	return usages, nil
}

func (f *fakeStore) PlaceOrder(_ context.Context, order *models.Order, lines []models.OrderLine, redeem *models.VoucherRedemption) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failPlace {
		return fmt.Errorf("simulated persistence failure")
	}

	orderID := f.nextID

	if redeem != nil {
		voucher := f.vouchers[redeem.Code]
		if voucher == nil {
			return &models.RuleError{Reason: models.VoucherNotFound}
		}
		gross := order.TotalAmount + order.VoucherDiscount
		discount, reason := voucher.Evaluate(gross, order.PlacedAt)
		if reason != models.VoucherOK {
			return &models.RuleError{Reason: reason}
		}
		voucher.UsedCount++
		f.usages = append(f.usages, models.VoucherUsage{
			VoucherID:  voucher.ID,
			CustomerID: redeem.CustomerID,
			OrderID:    orderID,
			Discount:   discount,
			UsedAt:     order.PlacedAt,
		})
		order.TotalAmount = gross - discount
		order.VoucherDiscount = discount
	}

	f.nextID++
	order.ID = orderID
	for i := range lines {
		lines[i].OrderID = orderID
	}
	stored := *order
	f.orders[orderID] = &stored
	f.lines[orderID] = append([]models.OrderLine(nil), lines...)
	return nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, fmt.Errorf("order not found: %d", id)
}

func (f *fakeStore) GetOrderLines(_ context.Context, orderID int64) ([]models.OrderLine, error) {
	return f.lines[orderID], nil
}

func (f *fakeStore) GetOrdersByCustomerID(_ context.Context, customerID string) ([]models.Order, error) {
	var orders []models.Order
	for _, o := range f.orders {
		if o.CustomerID == customerID {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, orderID int64, next models.OrderStatus, note string) (models.OrderStatus, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return 0, fmt.Errorf("order not found: %d", orderID)
	}
	current := order.Status
	if !current.CanTransitionTo(next) {
		return current, models.NewValidationError("illegal status transition %s -> %s", current, next)
	}
	order.Status = next
	if note != "" {
		order.Note = &note
	}
	return current, nil
}

// fakeSessions is an in-memory SessionStore.
type fakeSessions struct {
	mu       sync.Mutex
	carts    map[string][]models.CartLine
	vouchers map[string]*session.StagedVoucher
	pending  map[string]*session.PendingCheckout
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		carts:    make(map[string][]models.CartLine),
		vouchers: make(map[string]*session.StagedVoucher),
		pending:  make(map[string]*session.PendingCheckout),
	}
}

func (f *fakeSessions) GetCart(_ context.Context, sid string) ([]models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CartLine(nil), f.carts[sid]...), nil
}

func (f *fakeSessions) SetCart(_ context.Context, sid string, lines []models.CartLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[sid] = append([]models.CartLine(nil), lines...)
	return nil
}

func (f *fakeSessions) ClearCart(_ context.Context, sid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, sid)
	return nil
}

func (f *fakeSessions) GetVoucher(_ context.Context, sid string) (*session.StagedVoucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vouchers[sid], nil
}

func (f *fakeSessions) SetVoucher(_ context.Context, sid string, staged *session.StagedVoucher) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vouchers[sid] = staged
	return nil
}

func (f *fakeSessions) ClearVoucher(_ context.Context, sid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vouchers, sid)
	return nil
}

func (f *fakeSessions) StashPending(_ context.Context, ref string, pending *session.PendingCheckout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[ref] = pending
	return nil
}

func (f *fakeSessions) TakePending(_ context.Context, ref string) (*session.PendingCheckout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.pending[ref]
	delete(f.pending, ref)
	return p, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu             sync.Mutex
	placed         []*models.OrderPlacedEvent
	statusChanged  []*models.OrderStatusChangedEvent
	paymentFailed  []*models.PaymentFailedEvent
	failNextPlaced bool
}

func (f *fakePublisher) PublishOrderPlaced(_ context.Context, event *models.OrderPlacedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNextPlaced {
		f.failNextPlaced = false
		return fmt.Errorf("broker unavailable")
	}
	f.placed = append(f.placed, event)
	return nil
}

func (f *fakePublisher) PublishOrderStatusChanged(_ context.Context, event *models.OrderStatusChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusChanged = append(f.statusChanged, event)
	return nil
}

func (f *fakePublisher) PublishPaymentFailed(_ context.Context, event *models.PaymentFailedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paymentFailed = append(f.paymentFailed, event)
	return nil
}
