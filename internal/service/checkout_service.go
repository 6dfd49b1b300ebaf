package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/payment"
	"checkout-service/internal/session"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutService is the order transaction manager. It owns the checkout
// algorithm: empty-cart rejection, delivery profile resolution, discount
// recomputation, the gateway branch, and the atomic materialization of the
// order. Gateway confirmation always happens before the database
// transaction opens, never inside it.
type CheckoutService struct {
	store     OrderStore
	sessions  SessionStore
	vouchers  *VoucherService
	flows     *payment.Registry
	publisher EventPublisher
	logger    *zap.Logger
	shipping  string
	now       func() time.Time
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	store OrderStore,
	sessions SessionStore,
	vouchers *VoucherService,
	flows *payment.Registry,
	publisher EventPublisher,
	shippingMethod string,
) *CheckoutService {
	return &CheckoutService{
		store:     store,
		sessions:  sessions,
		vouchers:  vouchers,
		flows:     flows,
		publisher: publisher,
		logger:    util.GetLogger(),
		shipping:  shippingMethod,
		now:       time.Now,
	}
}

// CheckoutRequest carries everything a checkout needs.
type CheckoutRequest struct {
	SessionID        string
	CustomerID       string
	Profile          models.DeliveryProfile
	UseStoredProfile bool
	PaymentMethod    string
	ClientIP         string
}

// CheckoutResult is the gateway-shaped outcome: an order id for synchronous
// flows, a redirect URL for hosted-page flows, an intent id for two-phase
// capture.
type CheckoutResult struct {
	OrderID     int64  `json:"order_id,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	IntentID    string `json:"intent_id,omitempty"`
}

// Checkout runs the checkout algorithm up to the gateway branch. Only the
// synchronous flow materializes an order here; the other flows stash the
// draft and materialize when the gateway confirms.
func (s *CheckoutService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	lines, err := s.sessions.GetCart(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		util.CheckoutsFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, models.ErrEmptyCart
	}

	profile, err := s.resolveProfile(ctx, req)
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("invalid_profile").Inc()
		return nil, err
	}

	grossAmount := models.CartTotal(lines)

	// The staged discount is never trusted: if a voucher is staged, run the
	// full validation again against the live cart total. The recomputed
	// figure is the one that gets persisted.
	staged, err := s.sessions.GetVoucher(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load staged voucher: %w", err)
	}
	var discount int64
	if staged != nil {
		_, discount, err = s.vouchers.Validate(ctx, staged.Code, grossAmount, s.now())
		if err != nil {
			util.CheckoutsFailedTotal.WithLabelValues("voucher_rejected").Inc()
			return nil, err
		}
		staged.Discount = discount
	}
	payable := grossAmount - discount

	flow := s.flows.Get(req.PaymentMethod)
	if flow == nil {
		util.CheckoutsFailedTotal.WithLabelValues("unknown_method").Inc()
		return nil, models.NewValidationError("unknown payment method: %s", req.PaymentMethod)
	}

	ref := uuid.New().String()
	util.PaymentAttemptsTotal.WithLabelValues(flow.Method()).Inc()

	switch f := flow.(type) {
	case payment.SynchronousFlow:
		conf, err := f.Confirm(ctx, payable, ref)
		if err != nil {
			return nil, s.gatewayFailure(ctx, flow.Method(), ref, err)
		}
		orderID, err := s.materialize(ctx, &session.PendingCheckout{
			SessionID:  req.SessionID,
			CustomerID: req.CustomerID,
			Profile:    profile,
			Lines:      lines,
			Voucher:    staged,
			Amount:     payable,
			Gateway:    flow.Method(),
		}, conf)
		if err != nil {
			return nil, err
		}
		return &CheckoutResult{OrderID: orderID}, nil

	case payment.RedirectFlow:
		// Persist nothing yet. The stash carries the draft across the
		// redirect round-trip; if the callback never arrives it expires
		// with the session and no order is ever created.
		pending := &session.PendingCheckout{
			SessionID:  req.SessionID,
			CustomerID: req.CustomerID,
			Profile:    profile,
			Lines:      lines,
			Voucher:    staged,
			Amount:     payable,
			Gateway:    flow.Method(),
			CreatedAt:  s.now(),
		}
		if err := s.sessions.StashPending(ctx, ref, pending); err != nil {
			return nil, fmt.Errorf("stash pending checkout: %w", err)
		}
		payURL, err := f.Initiate(ctx, payment.InitiateRequest{
			Amount:    payable,
			Ref:       ref,
			OrderInfo: fmt.Sprintf("Order for %s", profile.Name),
			ClientIP:  req.ClientIP,
		})
		if err != nil {
			return nil, s.gatewayFailure(ctx, flow.Method(), ref, err)
		}
		return &CheckoutResult{RedirectURL: payURL}, nil

	case payment.CaptureFlow:
		intentID, err := f.CreateIntent(ctx, payable, ref)
		if err != nil {
			return nil, s.gatewayFailure(ctx, flow.Method(), ref, err)
		}
		pending := &session.PendingCheckout{
			SessionID:  req.SessionID,
			CustomerID: req.CustomerID,
			Profile:    profile,
			Lines:      lines,
			Voucher:    staged,
			Amount:     payable,
			Gateway:    flow.Method(),
			CreatedAt:  s.now(),
		}
		if err := s.sessions.StashPending(ctx, intentID, pending); err != nil {
			return nil, fmt.Errorf("stash pending checkout: %w", err)
		}
		return &CheckoutResult{IntentID: intentID}, nil
	}

	return nil, models.NewValidationError("payment method %s has no usable flow", req.PaymentMethod)
}

// HandleRedirectReturn processes the redirect gateway's signed callback.
// Only a verified, successful callback materializes the order; a decline
// consumes the stash and leaves the cart intact.
func (s *CheckoutService) HandleRedirectReturn(ctx context.Context, method string, params url.Values) (int64, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.HandleRedirectReturn")
	defer span.End()

	flow, ok := s.flows.Get(method).(payment.RedirectFlow)
	if !ok {
		return 0, models.NewValidationError("%s is not a redirect gateway", method)
	}

	conf, ref, err := flow.ConfirmCallback(params)
	if err != nil {
		if ref != "" {
			// Drop the stash so a declined reference cannot be replayed.
			if _, takeErr := s.sessions.TakePending(ctx, ref); takeErr != nil {
				s.logger.Error("Failed to discard pending checkout", zap.Error(takeErr))
			}
		}
		return 0, s.gatewayFailure(ctx, method, ref, err)
	}

	pending, err := s.sessions.TakePending(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("take pending checkout: %w", err)
	}
	if pending == nil {
		return 0, models.NewValidationError("unknown or expired payment reference")
	}

	return s.materialize(ctx, pending, conf)
}

// CaptureWallet captures an approved two-phase intent and materializes the
// order on completion.
func (s *CheckoutService) CaptureWallet(ctx context.Context, method, intentID string) (int64, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CaptureWallet")
	defer span.End()

	flow, ok := s.flows.Get(method).(payment.CaptureFlow)
	if !ok {
		return 0, models.NewValidationError("%s is not a capture gateway", method)
	}

	conf, err := flow.Capture(ctx, intentID)
	if err != nil {
		return 0, s.gatewayFailure(ctx, method, intentID, err)
	}

	pending, err := s.sessions.TakePending(ctx, intentID)
	if err != nil {
		return 0, fmt.Errorf("take pending checkout: %w", err)
	}
	if pending == nil {
		return 0, models.NewValidationError("unknown or expired payment intent")
	}

	return s.materialize(ctx, pending, conf)
}

// materialize is the atomic step: order header, lines, and the voucher
// redemption commit or roll back together. On success the session cart and
// staged voucher are cleared and the confirmation event goes out
// best-effort.
func (s *CheckoutService) materialize(ctx context.Context, pending *session.PendingCheckout, conf *payment.Confirmation) (int64, error) {
	start := time.Now()
	defer func() {
		util.OrderMaterializeLatency.Observe(time.Since(start).Seconds())
	}()

	order := &models.Order{
		CustomerID:      pending.CustomerID,
		Name:            pending.Profile.Name,
		Address:         pending.Profile.Address,
		Phone:           pending.Profile.Phone,
		PlacedAt:        s.now(),
		PaymentMethod:   pending.Gateway,
		ShipmentMethod:  s.shipping,
		Status:          models.OrderStatusPending,
		TotalAmount:     pending.Amount,
	}
	if pending.Profile.Note != "" {
		note := pending.Profile.Note
		order.Note = &note
	}
	if conf != nil && conf.TransactionID != "" {
		txID := conf.TransactionID
		order.GatewayTxID = &txID
	}

	var redeem *models.VoucherRedemption
	if pending.Voucher != nil {
		code := pending.Voucher.Code
		order.VoucherCode = &code
		order.VoucherDiscount = pending.Voucher.Discount
		redeem = &models.VoucherRedemption{Code: code, CustomerID: pending.CustomerID}
	}

	lines := make([]models.OrderLine, 0, len(pending.Lines))
	for _, l := range pending.Lines {
		lines = append(lines, models.OrderLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}

	if err := s.store.PlaceOrder(ctx, order, lines, redeem); err != nil {
		if _, ok := models.AsRule(err); ok {
			util.CheckoutsFailedTotal.WithLabelValues("voucher_rejected").Inc()
		} else {
			util.CheckoutsFailedTotal.WithLabelValues("persistence").Inc()
		}
		return 0, err
	}

	util.OrdersPlacedTotal.WithLabelValues(order.PaymentMethod).Inc()
	if redeem != nil {
		util.VouchersRedeemedTotal.Inc()
	}
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("payment_method", order.PaymentMethod),
		zap.Int64("total", order.TotalAmount))

	if err := s.sessions.ClearCart(ctx, pending.SessionID); err != nil {
		s.logger.Error("Failed to clear cart after checkout", zap.Error(err))
	}
	if err := s.sessions.ClearVoucher(ctx, pending.SessionID); err != nil {
		s.logger.Error("Failed to clear staged voucher after checkout", zap.Error(err))
	}

	s.publishOrderPlaced(ctx, order, lines)
	return order.ID, nil
}

// publishOrderPlaced emits the post-commit event. Failures are logged only;
// the order stands regardless.
func (s *CheckoutService) publishOrderPlaced(ctx context.Context, order *models.Order, lines []models.OrderLine) {
	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: s.now(),
		},
		OrderID:         order.ID,
		CustomerID:      order.CustomerID,
		CustomerName:    order.Name,
		TotalAmount:     order.TotalAmount,
		VoucherDiscount: order.VoucherDiscount,
		PaymentMethod:   order.PaymentMethod,
	}
	if order.VoucherCode != nil {
		event.VoucherCode = *order.VoucherCode
	}
	for _, l := range lines {
		event.Lines = append(event.Lines, models.OrderLineData{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}

	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event",
			zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// resolveProfile copies the stored customer profile or validates the one
// supplied with the request.
func (s *CheckoutService) resolveProfile(ctx context.Context, req *CheckoutRequest) (models.DeliveryProfile, error) {
	if req.UseStoredProfile {
		customer, err := s.store.GetCustomerByID(ctx, req.CustomerID)
		if err != nil {
			return models.DeliveryProfile{}, err
		}
		profile := models.DeliveryProfile{
			Name:    customer.FullName,
			Address: customer.Address,
			Phone:   customer.Phone,
			Note:    req.Profile.Note,
		}
		if !profile.Complete() {
			return models.DeliveryProfile{}, models.NewValidationError(
				"stored customer profile is incomplete")
		}
		return profile, nil
	}

	if !req.Profile.Complete() {
		return models.DeliveryProfile{}, models.NewValidationError(
			"delivery name, address and phone are required")
	}
	return req.Profile, nil
}

// gatewayFailure records metrics and the payment-failed event, keeping the
// declined/fault distinction for logs.
func (s *CheckoutService) gatewayFailure(ctx context.Context, method, ref string, err error) error {
	ge, ok := models.AsGateway(err)
	if ok && ge.Declined {
		util.PaymentDeclinedTotal.WithLabelValues(method).Inc()
		s.logger.Warn("Payment declined",
			zap.String("gateway", method),
			zap.String("ref", ref),
			zap.String("code", ge.Code))
	} else {
		util.PaymentErrorsTotal.WithLabelValues(method).Inc()
		s.logger.Error("Payment gateway failure",
			zap.String("gateway", method),
			zap.String("ref", ref),
			zap.Error(err))
	}

	event := &models.PaymentFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentFailed,
			Timestamp: s.now(),
		},
		Gateway:   method,
		Reference: ref,
	}
	if ok {
		event.Code = ge.Code
		event.Declined = ge.Declined
	}
	if pubErr := s.publisher.PublishPaymentFailed(ctx, event); pubErr != nil {
		s.logger.Error("Failed to publish PaymentFailed event", zap.Error(pubErr))
	}
	return err
}

// GetOrder retrieves an order header with its lines.
func (s *CheckoutService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderLine, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.store.GetOrderLines(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, lines, nil
}

// GetOrderHistory retrieves a customer's orders, newest first.
func (s *CheckoutService) GetOrderHistory(ctx context.Context, customerID string) ([]models.Order, error) {
	if customerID == "" {
		return nil, models.NewValidationError("customer id is required")
	}
	return s.store.GetOrdersByCustomerID(ctx, customerID)
}

// UpdateStatus applies a staff-driven forward transition and publishes the
// change.
func (s *CheckoutService) UpdateStatus(ctx context.Context, orderID int64, next models.OrderStatus, note string) error {
	prev, err := s.store.UpdateOrderStatus(ctx, orderID, next, note)
	if err != nil {
		return err
	}

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: s.now(),
		},
		OrderID: orderID,
		From:    prev,
		To:      next,
		Note:    note,
	}
	if pubErr := s.publisher.PublishOrderStatusChanged(ctx, event); pubErr != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(pubErr))
	}
	return nil
}
