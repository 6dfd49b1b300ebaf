package models

import "time"

// Product represents a product in the catalog
type Product struct {
	ID        int64     `db:"id" json:"id"`
	SKU       string    `db:"sku" json:"sku"`
	Name      string    `db:"name" json:"name"`
	Image     string    `db:"image" json:"image,omitempty"`
	Price     int64     `db:"price" json:"price"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Customer represents a registered customer account
type Customer struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Address   string    `db:"address" json:"address,omitempty"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CartLine is one line of a session cart. UnitPrice is captured when the
// line is added so later catalog price changes do not move the cart total.
type CartLine struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// LineTotal returns quantity x captured unit price.
func (l CartLine) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// CartTotal sums the line totals of a cart.
func CartTotal(lines []CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.LineTotal()
	}
	return total
}

// Voucher is a discount code with a quota, a validity window and
// percentage/cap rules.
type Voucher struct {
	ID              int64     `db:"id" json:"id"`
	Code            string    `db:"code" json:"code"`
	DiscountPercent int64     `db:"discount_percent" json:"discount_percent"`
	MaxDiscount     *int64    `db:"max_discount" json:"max_discount,omitempty"`
	MinOrderAmount  *int64    `db:"min_order_amount" json:"min_order_amount,omitempty"`
	StartsAt        time.Time `db:"starts_at" json:"starts_at"`
	EndsAt          time.Time `db:"ends_at" json:"ends_at"`
	Quota           int       `db:"quota" json:"quota"`
	UsedCount       int       `db:"used_count" json:"used_count"`
	Active          bool      `db:"active" json:"active"`
	Description     *string   `db:"description" json:"description,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// VoucherReason explains why a voucher was rejected. Callers surface a
// distinct user-facing message per reason.
type VoucherReason string

const (
	VoucherOK             VoucherReason = ""
	VoucherNotFound       VoucherReason = "NOT_FOUND"
	VoucherNotStarted     VoucherReason = "NOT_STARTED"
	VoucherExpired        VoucherReason = "EXPIRED"
	VoucherQuotaExhausted VoucherReason = "QUOTA_EXHAUSTED"
	VoucherBelowMinimum   VoucherReason = "BELOW_MINIMUM"
)

// Evaluate applies every redemption rule against an order amount at a point
// in time and returns the computed discount. The same rules run at
// apply-time and again inside the redeem transaction, so a voucher that
// went invalid between the two calls fails closed.
func (v *Voucher) Evaluate(orderAmount int64, now time.Time) (int64, VoucherReason) {
	if !v.Active {
		return 0, VoucherNotFound
	}
	if now.Before(v.StartsAt) {
		return 0, VoucherNotStarted
	}
	if now.After(v.EndsAt) {
		return 0, VoucherExpired
	}
	if v.UsedCount >= v.Quota {
		return 0, VoucherQuotaExhausted
	}
	if v.MinOrderAmount != nil && orderAmount < *v.MinOrderAmount {
		return 0, VoucherBelowMinimum
	}

	discount := orderAmount * v.DiscountPercent / 100
	if v.MaxDiscount != nil && discount > *v.MaxDiscount {
		discount = *v.MaxDiscount
	}
	return discount, VoucherOK
}

// VoucherUsage is the immutable audit record of one redemption. Written in
// the same transaction as the order it belongs to.
type VoucherUsage struct {
	ID         int64     `db:"id" json:"id"`
	VoucherID  int64     `db:"voucher_id" json:"voucher_id"`
	CustomerID string    `db:"customer_id" json:"customer_id"`
	OrderID    int64     `db:"order_id" json:"order_id"`
	Discount   int64     `db:"discount" json:"discount"`
	UsedAt     time.Time `db:"used_at" json:"used_at"`
}

// OrderStatus is the order lifecycle enumeration. Transitions are
// staff-driven and forward-only.
type OrderStatus int

const (
	OrderStatusPending    OrderStatus = 0
	OrderStatusProcessing OrderStatus = 1
	OrderStatusDelivered  OrderStatus = 2
	OrderStatusCancelled  OrderStatus = 3
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "PENDING"
	case OrderStatusProcessing:
		return "PROCESSING"
	case OrderStatusDelivered:
		return "DELIVERED"
	case OrderStatusCancelled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}

// Valid reports whether s is a known status value.
func (s OrderStatus) Valid() bool {
	return s >= OrderStatusPending && s <= OrderStatusCancelled
}

// CanTransitionTo enforces the forward-only state machine: Delivered and
// Cancelled are terminal, and no transition leads back to an earlier state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.Valid() || s == next {
		return false
	}
	switch s {
	case OrderStatusPending:
		return next == OrderStatusProcessing || next == OrderStatusDelivered || next == OrderStatusCancelled
	case OrderStatusProcessing:
		return next == OrderStatusDelivered || next == OrderStatusCancelled
	}
	return false
}

// Payment method tags persisted on the order header.
const (
	PaymentMethodCOD    = "COD"
	PaymentMethodVNPay  = "VNPAY"
	PaymentMethodPayPal = "PAYPAL"
)

// DeliveryProfile is the recipient information captured at checkout.
type DeliveryProfile struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Note    string `json:"note,omitempty"`
}

// Complete reports whether the profile can be shipped to.
func (p DeliveryProfile) Complete() bool {
	return p.Name != "" && p.Address != "" && p.Phone != ""
}

// Order is a persisted order header. Line items are immutable once the
// header exists; only status, note and handler change afterwards.
type Order struct {
	ID              int64       `db:"id" json:"id"`
	CustomerID      string      `db:"customer_id" json:"customer_id"`
	Name            string      `db:"name" json:"name"`
	Address         string      `db:"address" json:"address"`
	Phone           string      `db:"phone" json:"phone"`
	Note            *string     `db:"note" json:"note,omitempty"`
	PlacedAt        time.Time   `db:"placed_at" json:"placed_at"`
	PaymentMethod   string      `db:"payment_method" json:"payment_method"`
	ShipmentMethod  string      `db:"shipment_method" json:"shipment_method"`
	Status          OrderStatus `db:"status" json:"status"`
	TotalAmount     int64       `db:"total_amount" json:"total_amount"`
	VoucherCode     *string     `db:"voucher_code" json:"voucher_code,omitempty"`
	VoucherDiscount int64       `db:"voucher_discount" json:"voucher_discount"`
	GatewayTxID     *string     `db:"gateway_tx_id" json:"gateway_tx_id,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// OrderLine is one line of a persisted order. UnitPrice is the price at
// order time, never a live product reference.
type OrderLine struct {
	ID        int64 `db:"id" json:"id"`
	OrderID   int64 `db:"order_id" json:"order_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Quantity  int   `db:"quantity" json:"quantity"`
	UnitPrice int64 `db:"unit_price" json:"unit_price"`
	Discount  int64 `db:"discount" json:"discount"`
}

// VoucherRedemption carries the staged voucher into the order transaction.
// The discount is recomputed inside the transaction; a staged figure is
// never trusted.
type VoucherRedemption struct {
	Code       string
	CustomerID string
}

// ProcessedEvent records consumed event ids for idempotent handling.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
