package orders

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/somethingsbrewing/storefront-api/internal/emails"
	"github.com/somethingsbrewing/storefront-api/internal/logging"
)

// HandlePaymentSucceeded settles a pending order as paid. The gateway may
// deliver the same callback more than once; the conditional Settle write
// makes every delivery after the first a no-op, so the confirmation email is
// queued at most once.
func (s *Service) HandlePaymentSucceeded(ctx context.Context, intentID string, metadata map[string]string) error {
	log := logging.FromContext(ctx)

	orderID := metadata["order_id"]
	if orderID == "" {
		log.Warn("payment succeeded without order metadata", zap.String("payment_intent_id", intentID))
		return nil
	}

	changed, err := s.store.Settle(ctx, orderID, StatusPaid)
	if err != nil {
		return fmt.Errorf("settle order %s: %w", orderID, err)
	}
	if !changed {
		log.Info("payment outcome already applied",
			zap.String("order_id", orderID),
			zap.String("payment_intent_id", intentID))
		return nil
	}

	log.Info("order paid",
		zap.String("order_id", orderID),
		zap.String("payment_intent_id", intentID))

	if email := metadata["customer_email"]; email != "" {
		job := emails.Job{
			Recipient: email,
			Subject:   "Your Something's Brewing order is confirmed",
			Body:      fmt.Sprintf("Thank you for your order! Your payment (%s) was successful.", intentID),
		}
		if err := s.emails.Enqueue(ctx, job); err != nil {
			log.Error("queue confirmation email failed",
				zap.String("order_id", orderID), zap.Error(err))
		}
	}

	s.publish(TopicOrderPaid, EventOrderPaid, orderID, OrderPaidPayload{
		OrderID:         orderID,
		PaymentIntentID: intentID,
	})
	return nil
}

// HandlePaymentFailed settles a pending order as payment_failed and reverses
// the optimistic stock reservation. Restocking only runs when the conditional
// Settle actually changed the row, so duplicate failure callbacks cannot
// double-increment the ledger, and a failure arriving after a success is a
// no-op.
func (s *Service) HandlePaymentFailed(ctx context.Context, intentID string, metadata map[string]string) error {
	log := logging.FromContext(ctx)

	orderID := metadata["order_id"]
	if orderID == "" {
		log.Warn("payment failed without order metadata", zap.String("payment_intent_id", intentID))
		return nil
	}

	changed, err := s.store.Settle(ctx, orderID, StatusPaymentFailed)
	if err != nil {
		return fmt.Errorf("settle order %s: %w", orderID, err)
	}
	if !changed {
		log.Info("payment outcome already applied",
			zap.String("order_id", orderID),
			zap.String("payment_intent_id", intentID))
		return nil
	}

	log.Info("order payment failed",
		zap.String("order_id", orderID),
		zap.String("payment_intent_id", intentID))

	items, err := s.store.ItemsByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load items for restock %s: %w", orderID, err)
	}
	var restocked []ItemQty
	for _, it := range items {
		ok, err := s.stock.IncrementStock(ctx, it.ProductID, it.Qty)
		if err != nil {
			log.Error("restock failed",
				zap.String("order_id", orderID),
				zap.String("product_id", it.ProductID),
				zap.Error(err))
			continue
		}
		if ok {
			restocked = append(restocked, ItemQty{ProductID: it.ProductID, Qty: it.Qty})
		}
	}

	s.publish(TopicOrderPaymentFailed, EventOrderPaymentFailed, orderID, OrderPaymentFailedPayload{
		OrderID:         orderID,
		PaymentIntentID: intentID,
		Restocked:       restocked,
	})
	return nil
}
