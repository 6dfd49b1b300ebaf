package store

import (
	"context"
	"database/sql"
	"fmt"

	"checkout-service/internal/models"
)

// PlaceOrder materializes an order in a single transaction: the header, one
// line per cart line, and when a voucher is staged, the usage record plus the
// counter increment. The voucher row is locked and every redemption rule is
// re-checked under the lock, so two concurrent checkouts cannot both consume
// the last unit of a quota-limited code. Any failure rolls back every write.
func (s *Store) PlaceOrder(ctx context.Context, order *models.Order, lines []models.OrderLine, redeem *models.VoucherRedemption) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, order, `
		INSERT INTO orders (customer_id, name, address, phone, note, placed_at,
			payment_method, shipment_method, status, total_amount,
			voucher_code, voucher_discount, gateway_tx_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`,
		order.CustomerID, order.Name, order.Address, order.Phone, order.Note,
		order.PlacedAt, order.PaymentMethod, order.ShipmentMethod, order.Status,
		order.TotalAmount, order.VoucherCode, order.VoucherDiscount, order.GatewayTxID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range lines {
		lines[i].OrderID = order.ID
		err = tx.GetContext(ctx, &lines[i].ID, `
			INSERT INTO order_lines (order_id, product_id, quantity, unit_price, discount)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			lines[i].OrderID, lines[i].ProductID, lines[i].Quantity,
			lines[i].UnitPrice, lines[i].Discount)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	if redeem != nil {
		discount, err := s.redeemVoucherTx(ctx, tx, redeem, order)
		if err != nil {
			return err
		}
		// The recomputed discount is authoritative; overwrite whatever the
		// caller staged before persisting the header figure.
		if discount != order.VoucherDiscount {
			_, err = tx.ExecContext(ctx,
				"UPDATE orders SET voucher_discount = $1, total_amount = $2 WHERE id = $3",
				discount, order.TotalAmount+order.VoucherDiscount-discount, order.ID)
			if err != nil {
				return fmt.Errorf("update order discount: %w", err)
			}
			order.TotalAmount = order.TotalAmount + order.VoucherDiscount - discount
			order.VoucherDiscount = discount
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order transaction: %w", err)
	}
	return nil
}

// redeemVoucherTx locks the voucher row, re-evaluates every rule, increments
// the usage counter and writes the audit record. Runs inside the caller's
// transaction; returning an error aborts the whole order.
func (s *Store) redeemVoucherTx(ctx context.Context, tx txGetter, redeem *models.VoucherRedemption, order *models.Order) (int64, error) {
	var voucher models.Voucher
	err := tx.GetContext(ctx, &voucher,
		"SELECT * FROM vouchers WHERE code = $1 FOR UPDATE", redeem.Code)
	if err == sql.ErrNoRows {
		return 0, &models.RuleError{Reason: models.VoucherNotFound}
	}
	if err != nil {
		return 0, fmt.Errorf("lock voucher: %w", err)
	}

	grossAmount := order.TotalAmount + order.VoucherDiscount
	discount, reason := voucher.Evaluate(grossAmount, order.PlacedAt)
	if reason != models.VoucherOK {
		return 0, &models.RuleError{Reason: reason}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE vouchers SET used_count = used_count + 1 WHERE id = $1",
		voucher.ID)
	if err != nil {
		return 0, fmt.Errorf("increment voucher usage: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO voucher_usages (voucher_id, customer_id, order_id, discount, used_at)
		VALUES ($1, $2, $3, $4, $5)`,
		voucher.ID, redeem.CustomerID, order.ID, discount, order.PlacedAt)
	if err != nil {
		return 0, fmt.Errorf("insert voucher usage: %w", err)
	}

	return discount, nil
}

// txGetter is the slice of sqlx.Tx the redeem step needs.
type txGetter interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderLines retrieves all lines for an order
func (s *Store) GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

// GetOrdersByCustomerID retrieves the order history for a customer
func (s *Store) GetOrdersByCustomerID(ctx context.Context, customerID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE customer_id = $1 ORDER BY placed_at DESC", customerID)
	return orders, err
}

// UpdateOrderStatus moves an order forward in its lifecycle. The current
// status is locked and checked inside the transaction so two staff updates
// cannot race past the forward-only rule.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, next models.OrderStatus, note string) (models.OrderStatus, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current models.OrderStatus
	err = tx.GetContext(ctx, &current,
		"SELECT status FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("order not found: %d", orderID)
	}
	if err != nil {
		return 0, fmt.Errorf("lock order: %w", err)
	}

	if !current.CanTransitionTo(next) {
		return current, models.NewValidationError(
			"illegal status transition %s -> %s", current, next)
	}

	if note != "" {
		_, err = tx.ExecContext(ctx,
			"UPDATE orders SET status = $1, note = $2, updated_at = NOW() WHERE id = $3",
			next, note, orderID)
	} else {
		_, err = tx.ExecContext(ctx,
			"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
			next, orderID)
	}
	if err != nil {
		return current, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return current, fmt.Errorf("commit status update: %w", err)
	}
	return current, nil
}
