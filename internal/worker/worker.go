package worker

import (
	"context"
	"log"

	"checkout-service/internal/broker"
	"checkout-service/internal/models"
	"checkout-service/internal/notifier"
)

// EventLedger tracks consumed event ids so redelivered messages are not
// handled twice.
type EventLedger interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// NotificationWorker consumes OrderPlaced events and sends the confirmation
// notification. It sits outside the checkout path so a slow or failing mail
// transport never delays an order.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, ledger EventLedger, n notifier.Notifier) *NotificationWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnOrderPlaced(func(ctx context.Context, event *models.OrderPlacedEvent) error {
		processed, err := ledger.IsEventProcessed(ctx, event.EventID)
		if err != nil {
			return err
		}
		if processed {
			log.Printf("Event already processed: %s", event.EventID)
			return nil
		}

		if err := n.SendOrderConfirmation(ctx, event); err != nil {
			// Confirmation is best-effort; commit the message anyway so a
			// broken mailbox does not wedge the consumer group.
			log.Printf("Failed to send confirmation for order %d: %v", event.OrderID, err)
		}

		return ledger.MarkEventProcessed(ctx, event.EventID, event.EventType)
	})

	return &NotificationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}
