// Package notifier sends order confirmation notifications. Sending is
// post-commit and best-effort: a failed notification never affects the
// order it describes.
package notifier

import (
	"context"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// Notifier delivers an order confirmation to a customer.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, event *models.OrderPlacedEvent) error
}

// CustomerLookup resolves the customer's contact address.
type CustomerLookup interface {
	GetCustomerByID(ctx context.Context, id string) (*models.Customer, error)
}

// EmailNotifier renders and dispatches the confirmation email. Delivery is
// delegated to a Sender so transports (SMTP relay, provider API) can swap
// without touching the rendering.
type EmailNotifier struct {
	customers CustomerLookup
	sender    Sender
	logger    *zap.Logger
}

// Sender hands a rendered message to a mail transport.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(customers CustomerLookup, sender Sender) *EmailNotifier {
	return &EmailNotifier{
		customers: customers,
		sender:    sender,
		logger:    util.GetLogger(),
	}
}

// SendOrderConfirmation emails the customer that the order was placed.
func (n *EmailNotifier) SendOrderConfirmation(ctx context.Context, event *models.OrderPlacedEvent) error {
	customer, err := n.customers.GetCustomerByID(ctx, event.CustomerID)
	if err != nil {
		return fmt.Errorf("resolve customer: %w", err)
	}

	subject := fmt.Sprintf("Order #%d confirmed", event.OrderID)
	body := fmt.Sprintf(
		"Dear %s,\n\nThank you for your order! Order #%d has been placed.\n\n"+
			"Total: %d\nPayment method: %s\n\nWe'll let you know when it ships.",
		customer.FullName, event.OrderID, event.TotalAmount, event.PaymentMethod)
	if event.VoucherCode != "" {
		body += fmt.Sprintf("\nVoucher %s applied: -%d", event.VoucherCode, event.VoucherDiscount)
	}

	if err := n.sender.Send(ctx, customer.Email, subject, body); err != nil {
		util.NotificationsFailedTotal.Inc()
		return fmt.Errorf("send confirmation: %w", err)
	}

	util.NotificationsSentTotal.Inc()
	n.logger.Info("Order confirmation sent",
		zap.Int64("order_id", event.OrderID),
		zap.String("customer_id", event.CustomerID))
	return nil
}

// LogSender is the development transport: it logs instead of delivering.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender() *LogSender {
	return &LogSender{logger: util.GetLogger()}
}

// Send logs the message.
func (s *LogSender) Send(_ context.Context, to, subject, _ string) error {
	s.logger.Info("Email (log transport)",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}
