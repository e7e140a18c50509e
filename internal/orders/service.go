package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/somethingsbrewing/storefront-api/internal/catalog"
	"github.com/somethingsbrewing/storefront-api/internal/emails"
	kafkax "github.com/somethingsbrewing/storefront-api/internal/kafka"
	"github.com/somethingsbrewing/storefront-api/internal/logging"
	"github.com/somethingsbrewing/storefront-api/internal/payments"
)

// Store is the durable order state. The relational store is the sole arbiter
// of consistency; no step of the create saga spans a transaction with another.
type Store interface {
	InsertOrder(ctx context.Context, o *Order) error
	InsertItems(ctx context.Context, orderID string, items []OrderItem) error
	DeleteItems(ctx context.Context, orderID string) error
	DeleteOrder(ctx context.Context, id string) error
	GetOrder(ctx context.Context, id string) (Order, error)
	ItemsByOrder(ctx context.Context, orderID string) ([]OrderItem, error)
	ListOrders(ctx context.Context, f ListFilter) ([]Order, error)
	Settle(ctx context.Context, id string, to Status) (bool, error)
	AppendTracking(ctx context.Context, ev *TrackingEvent) error
	TrackingHistory(ctx context.Context, orderID string) ([]TrackingEvent, error)
	UpdateTrackingFields(ctx context.Context, orderID string, status Status, trackingNumber, carrier string) error
}

type Catalog interface {
	Product(ctx context.Context, id string) (catalog.Product, error)
}

type StockLedger interface {
	DecrementStock(ctx context.Context, id string, qty int64) (bool, error)
	IncrementStock(ctx context.Context, id string, qty int64) (bool, error)
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, req payments.IntentRequest) (payments.Intent, error)
}

type EmailQueue interface {
	Enqueue(ctx context.Context, job emails.Job) error
}

type EventPublisher interface {
	Publish(topic string, key, value []byte, headers ...kafka.Header)
}

type Service struct {
	store    Store
	catalog  Catalog
	stock    StockLedger
	gateway  PaymentGateway
	emails   EmailQueue
	events   EventPublisher
	producer string
}

func NewService(store Store, cat Catalog, stock StockLedger, gateway PaymentGateway, mail EmailQueue, events EventPublisher, producer string) *Service {
	return &Service{
		store:    store,
		catalog:  cat,
		stock:    stock,
		gateway:  gateway,
		emails:   mail,
		events:   events,
		producer: producer,
	}
}

type CreateItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int64  `json:"quantity"`
}

type CreateOrderInput struct {
	Items           []CreateItemInput `json:"items"`
	CustomerID      string            `json:"customer_id"`
	AffiliateID     string            `json:"affiliate_id,omitempty"`
	ShippingAddress string            `json:"shipping_address,omitempty"`
}

type CreateOrderResult struct {
	Order           Order
	PaymentIntentID string
	ClientSecret    string
}

// CreateOrder runs the checkout saga: validate every item, snapshot prices,
// write order and items, create the payment intent, then optimistically
// reserve stock. Each write that precedes a failure is undone by its
// compensating delete, in reverse creation order. The stock reservation is
// the one best-effort step: once the payment intent exists the order is never
// discarded over a failed decrement.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderResult, error) {
	log := logging.FromContext(ctx)

	if len(in.Items) == 0 {
		return CreateOrderResult{}, ErrEmptyItems
	}
	if in.CustomerID == "" {
		return CreateOrderResult{}, ErrMissingCustomer
	}
	for _, it := range in.Items {
		if it.Qty < 1 {
			return CreateOrderResult{}, fmt.Errorf("%w: product %s", ErrInvalidQty, it.ProductID)
		}
	}

	// Validation phase: every item is checked against the live catalog before
	// any write happens, so a single bad item aborts with zero side effects.
	type pricedItem struct {
		item    OrderItem
		tracked bool
	}
	var (
		total  int64
		priced []pricedItem
	)
	for _, it := range in.Items {
		p, err := s.catalog.Product(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return CreateOrderResult{}, fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
			}
			return CreateOrderResult{}, fmt.Errorf("fetch product %s: %w", it.ProductID, err)
		}
		if !p.Available {
			return CreateOrderResult{}, fmt.Errorf("%w: %s", ErrProductUnavailable, p.Name)
		}
		if p.Stock != nil && *p.Stock < it.Qty {
			return CreateOrderResult{}, fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
		}
		total += p.PriceCents * it.Qty
		priced = append(priced, pricedItem{
			item: OrderItem{
				ProductID:      p.ID,
				Qty:            it.Qty,
				UnitPriceCents: p.PriceCents,
			},
			tracked: p.Stock != nil,
		})
	}

	order := Order{
		CustomerID:      in.CustomerID,
		AffiliateID:     in.AffiliateID,
		ShippingAddress: in.ShippingAddress,
		TotalCents:      total,
		Status:          StatusPending,
	}
	if err := s.store.InsertOrder(ctx, &order); err != nil {
		return CreateOrderResult{}, fmt.Errorf("create order: %w", err)
	}

	items := make([]OrderItem, len(priced))
	for i, pi := range priced {
		items[i] = pi.item
	}
	if err := s.store.InsertItems(ctx, order.ID, items); err != nil {
		if derr := s.store.DeleteOrder(ctx, order.ID); derr != nil {
			log.Error("compensating order delete failed",
				zap.String("order_id", order.ID), zap.Error(derr))
		}
		return CreateOrderResult{}, fmt.Errorf("create order items: %w", err)
	}

	intent, err := s.gateway.CreateIntent(ctx, payments.IntentRequest{
		AmountCents: total,
		Currency:    "usd",
		Metadata: map[string]string{
			"order_id":     order.ID,
			"customer_id":  in.CustomerID,
			"affiliate_id": in.AffiliateID,
			"item_count":   fmt.Sprintf("%d", len(in.Items)),
		},
	})
	if err != nil {
		// Reverse creation order: items first, then the order row.
		if derr := s.store.DeleteItems(ctx, order.ID); derr != nil {
			log.Error("compensating items delete failed",
				zap.String("order_id", order.ID), zap.Error(derr))
		}
		if derr := s.store.DeleteOrder(ctx, order.ID); derr != nil {
			log.Error("compensating order delete failed",
				zap.String("order_id", order.ID), zap.Error(derr))
		}
		return CreateOrderResult{}, fmt.Errorf("create payment intent: %w", err)
	}

	// Optimistic reservation: stock is committed before payment confirms.
	// A failed decrement is logged, never rolled back, and never aborts the
	// order; the payment is already in flight.
	for _, pi := range priced {
		if !pi.tracked {
			continue
		}
		ok, err := s.stock.DecrementStock(ctx, pi.item.ProductID, pi.item.Qty)
		if err != nil || !ok {
			log.Warn("stock reservation failed",
				zap.String("order_id", order.ID),
				zap.String("product_id", pi.item.ProductID),
				zap.Int64("qty", pi.item.Qty),
				zap.Error(err))
		}
	}

	s.publish(TopicOrderCreated, EventOrderCreated, order.ID, OrderCreatedPayload{
		OrderID:     order.ID,
		CustomerID:  in.CustomerID,
		AffiliateID: in.AffiliateID,
		Items:       itemQtys(items),
		TotalCents:  total,
	})

	return CreateOrderResult{
		Order:           order,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	}, nil
}

func itemQtys(items []OrderItem) []ItemQty {
	out := make([]ItemQty, len(items))
	for i, it := range items {
		out[i] = ItemQty{ProductID: it.ProductID, Qty: it.Qty}
	}
	return out
}

func (s *Service) publish(topic, eventType, orderID string, payload any) {
	if s.events == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.producer,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.events.Publish(topic, PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafka.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafka.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
