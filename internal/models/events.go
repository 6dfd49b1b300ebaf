package models

import "time"

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypePaymentFailed      = "PAYMENT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published after the order transaction commits. It is
// best-effort: a publish failure never rolls the order back.
type OrderPlacedEvent struct {
	BaseEvent
	OrderID         int64           `json:"order_id"`
	CustomerID      string          `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	TotalAmount     int64           `json:"total_amount"`
	VoucherCode     string          `json:"voucher_code,omitempty"`
	VoucherDiscount int64           `json:"voucher_discount"`
	PaymentMethod   string          `json:"payment_method"`
	Lines           []OrderLineData `json:"lines"`
}

// OrderStatusChangedEvent is published on staff-driven transitions.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID int64       `json:"order_id"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
	Note    string      `json:"note,omitempty"`
}

// PaymentFailedEvent is published when a gateway declines or errors during
// callback or capture handling.
type PaymentFailedEvent struct {
	BaseEvent
	Gateway   string `json:"gateway"`
	Reference string `json:"reference"`
	Code      string `json:"code,omitempty"`
	Declined  bool   `json:"declined"`
}

// OrderLineData represents line data in events
type OrderLineData struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}
