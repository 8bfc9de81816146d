package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/supplyhub-backend/api/controllers"
	"github.com/angelmondragon/supplyhub-backend/api/routes"
	"github.com/angelmondragon/supplyhub-backend/internal/actioncodes"
	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/internal/deliveryotp"
	"github.com/angelmondragon/supplyhub-backend/internal/ledger"
	"github.com/angelmondragon/supplyhub-backend/internal/notifications"
	"github.com/angelmondragon/supplyhub-backend/internal/payouts"
	"github.com/angelmondragon/supplyhub-backend/internal/purchaseorders"
	"github.com/angelmondragon/supplyhub-backend/internal/refunds"
	"github.com/angelmondragon/supplyhub-backend/pkg/config"
	"github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/env"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/metrics"
	"github.com/angelmondragon/supplyhub-backend/pkg/migrate"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox"
	"github.com/angelmondragon/supplyhub-backend/pkg/pubsub"
	"github.com/angelmondragon/supplyhub-backend/pkg/redis"
	"github.com/angelmondragon/supplyhub-backend/pkg/security"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(context.Background(), logg, "failed to load config", err)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fatal(ctx, logg, "failed to bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		fatal(ctx, logg, "failed to run dev migrations", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		fatal(ctx, logg, "failed to bootstrap redis", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	ready := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	// Channel deliveries go out over Pub/Sub when a project is configured;
	// otherwise notifications only land in the inbox.
	var sender notifications.ChannelSender
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			fatal(ctx, logg, "failed to bootstrap pubsub", err)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub client", err)
			}
		}()
		ready["pubsub"] = pubsubClient
		pubSender, err := notifications.NewPubSubSender(notifications.PublisherFunc(pubsubClient.NotificationPublisher()))
		if err != nil {
			fatal(ctx, logg, "failed to create notification sender", err)
		}
		sender = pubSender
	} else {
		logg.Warn(ctx, "gcp project not configured, notification channels disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	fulfillmentMetrics := metrics.NewFulfillmentMetrics(registry)

	conn := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	notificationRepo := notifications.NewRepository(conn)
	dispatcher, err := notifications.NewDispatcher(notificationRepo, sender)
	if err != nil {
		fatal(ctx, logg, "failed to create notification dispatcher", err)
	}
	notificationService, err := notifications.NewService(notificationRepo)
	if err != nil {
		fatal(ctx, logg, "failed to create notification service", err)
	}

	hasher, err := security.NewCodeHasher(cfg.DeliveryOTP.HashKey)
	if err != nil {
		fatal(ctx, logg, "failed to create code hasher", err)
	}
	actionCodeService, err := actioncodes.NewService(redisClient, hasher, dispatcher, cfg.ActionCodes.TTL, logg)
	if err != nil {
		fatal(ctx, logg, "failed to create action code service", err)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		fatal(ctx, logg, "failed to create ledger service", err)
	}
	payoutService, err := payouts.NewService(payouts.ServiceParams{
		Repo:     payouts.NewRepository(conn),
		Tx:       dbClient,
		Ledger:   ledgerService,
		Outbox:   outboxService,
		Notifier: dispatcher,
		Metrics:  fulfillmentMetrics,
		Logger:   logg,
		Config:   payouts.Config{SupportedCountries: cfg.Payouts.SupportedCountries},
	})
	if err != nil {
		fatal(ctx, logg, "failed to create payout service", err)
	}
	refundService, err := refunds.NewService(refunds.NewRepository(conn), dbClient, outboxService)
	if err != nil {
		fatal(ctx, logg, "failed to create refund service", err)
	}
	purchaseOrderService, err := purchaseorders.NewService(purchaseorders.ServiceParams{
		Repo:        purchaseorders.NewRepository(conn),
		Tx:          dbClient,
		Refunds:     refundService,
		Payouts:     payoutService,
		ActionCodes: actionCodeService,
		Outbox:      outboxService,
		Notifier:    dispatcher,
		Metrics:     fulfillmentMetrics,
		Logger:      logg,
	})
	if err != nil {
		fatal(ctx, logg, "failed to create purchase order service", err)
	}
	deliveryService, err := deliveryotp.NewService(deliveryotp.ServiceParams{
		Repo:           deliveryotp.NewRepository(conn),
		Tx:             dbClient,
		PurchaseOrders: purchaseOrderService,
		Limiter:        redisClient,
		Hasher:         hasher,
		Outbox:         outboxService,
		Notifier:       dispatcher,
		Metrics:        fulfillmentMetrics,
		Logger:         logg,
		Config:         cfg.DeliveryOTP,
	})
	if err != nil {
		fatal(ctx, logg, "failed to create delivery code service", err)
	}

	resolver, err := actor.NewResolver(actor.NewRepository(conn))
	if err != nil {
		fatal(ctx, logg, "failed to create actor resolver", err)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		Idempotency:    redisClient,
		Resolver:       resolver,
		Ready:          ready,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		PurchaseOrders: purchaseOrderService,
		Delivery:       deliveryService,
		Refunds:        refundService,
		Payouts:        payoutService,
		ActionCodes:    actionCodeService,
		Ledger:         ledgerService,
		Notifications:  notificationService,
	})

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": env.Get("DYNO", "local"),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(ctx, logg, "api server stopped unexpectedly", err)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func fatal(ctx context.Context, logg *logger.Logger, msg string, err error) {
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
