package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/somethingsbrewing/storefront-api/internal/config"
	kafkax "github.com/somethingsbrewing/storefront-api/internal/kafka"
	"github.com/somethingsbrewing/storefront-api/internal/logging"
	"github.com/somethingsbrewing/storefront-api/internal/orders"
	"github.com/somethingsbrewing/storefront-api/internal/redisx"
)

// orderRef is the shape every lifecycle payload shares: the order it is about.
type orderRef struct {
	OrderID string `json:"order_id"`
}

// The notifier tails the order lifecycle topics and keeps the Redis
// order-status cache current so status reads stay off Postgres.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.MustNew(cfg.ServiceName+"-notifier", cfg.Env)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	statusByTopic := map[string]orders.Status{
		orders.TopicOrderCreated:       orders.StatusPending,
		orders.TopicOrderPaid:          orders.StatusPaid,
		orders.TopicOrderPaymentFailed: orders.StatusPaymentFailed,
	}

	g, gctx := errgroup.WithContext(ctx)
	for topic, status := range statusByTopic {
		topic, status := topic, status
		consumer := kafkax.NewConsumer(cfg.KafkaBrokers, "storefront-notifier", topic, 2, log)
		g.Go(func() error {
			return consumer.Start(gctx, func(ctx context.Context, m kafkago.Message) error {
				var env orders.Envelope
				if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
					log.Warn("bad event envelope", zap.String("topic", topic), zap.Error(err))
					return nil // poison message, commit and move on
				}
				ref, err := kafkax.UnwrapPayload[orderRef](env.Payload)
				if err != nil {
					log.Warn("bad event payload", zap.String("topic", topic), zap.Error(err))
					return nil
				}
				orderID := ref.OrderID
				if orderID == "" {
					orderID = env.CorrelationID
				}
				if orderID == "" {
					return nil
				}

				body, _ := json.Marshal(map[string]any{"status": status})
				key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
				if err := rdb.Set(ctx, key, body, redisx.TTLStatusCache).Err(); err != nil {
					return err
				}
				log.Info("order status cached",
					zap.String("order_id", orderID),
					zap.String("status", string(status)),
					zap.String("event", env.EventType))
				return nil
			})
		})
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		cancel()
	}()

	if err := g.Wait(); err != nil {
		log.Fatal("consumer stopped", zap.Error(err))
	}
}
