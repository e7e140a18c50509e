package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/somethingsbrewing/storefront-api/internal/auth"
	"github.com/somethingsbrewing/storefront-api/internal/catalog"
	"github.com/somethingsbrewing/storefront-api/internal/config"
	"github.com/somethingsbrewing/storefront-api/internal/customers"
	"github.com/somethingsbrewing/storefront-api/internal/emails"
	"github.com/somethingsbrewing/storefront-api/internal/httpx"
	kafkax "github.com/somethingsbrewing/storefront-api/internal/kafka"
	"github.com/somethingsbrewing/storefront-api/internal/logging"
	"github.com/somethingsbrewing/storefront-api/internal/orders"
	"github.com/somethingsbrewing/storefront-api/internal/payments"
	"github.com/somethingsbrewing/storefront-api/internal/postgres"
	"github.com/somethingsbrewing/storefront-api/internal/ratelimit"
	"github.com/somethingsbrewing/storefront-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.MustNew(cfg.ServiceName, cfg.Env)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := postgres.Migrate(cfg.PostgresDSN, cfg.MigrationsDir); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	producer := kafkax.NewProducer(cfg.KafkaBrokers, log, 1024)
	producer.Start(ctx)

	catalogRepo := &catalog.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	customerRepo := &customers.Repo{DB: db}
	emailRepo := &emails.Repo{DB: db}

	gateway := payments.NewGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	svc := orders.NewService(orderRepo, catalogRepo, catalogRepo, gateway, emailRepo, producer, cfg.ServiceName)

	verifier := auth.NewHostedVerifier(cfg.AuthBaseURL, cfg.AuthAPIKey, customerRepo)
	adminOnly := auth.RequireAdmin(verifier)

	limiter := ratelimit.New(&ratelimit.RedisCounter{R: rdb}, ratelimit.DefaultRules(), log)

	router := httpx.NewRouter(log, limiter.Middleware)
	(&httpx.OrdersHandler{Service: svc, Redis: rdb}).Register(router, adminOnly)
	(&httpx.ProductsHandler{Catalog: catalogRepo}).Register(router, adminOnly)
	(&httpx.WebhookHandler{Verifier: gateway, Service: svc}).Register(router)
	(&httpx.EmailsHandler{Queue: emailRepo}).Register(router)
	(&httpx.AdminHandler{Customers: customerRepo}).Register(router, adminOnly)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	cancel()              // stop producer loop
	producer.WaitClosed() // flush pending events
}
