package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goldenleafkennels/reservations-backend/api/routes"
	"github.com/goldenleafkennels/reservations-backend/internal/alerting"
	"github.com/goldenleafkennels/reservations-backend/internal/deposit"
	"github.com/goldenleafkennels/reservations-backend/internal/inquiries"
	"github.com/goldenleafkennels/reservations-backend/internal/ledger"
	"github.com/goldenleafkennels/reservations-backend/internal/ratelimit"
	"github.com/goldenleafkennels/reservations-backend/internal/reservations"
	"github.com/goldenleafkennels/reservations-backend/internal/webhooks"
	paypalwebhook "github.com/goldenleafkennels/reservations-backend/internal/webhooks/paypal"
	stripewebhook "github.com/goldenleafkennels/reservations-backend/internal/webhooks/stripe"
	"github.com/goldenleafkennels/reservations-backend/pkg/config"
	"github.com/goldenleafkennels/reservations-backend/pkg/db"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
	"github.com/goldenleafkennels/reservations-backend/pkg/metrics"
	"github.com/goldenleafkennels/reservations-backend/pkg/migrate"
	"github.com/goldenleafkennels/reservations-backend/pkg/redis"
)

const guardTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	policy := deposit.PolicyFromConfig(cfg.Deposit)

	reservationsService, err := reservations.NewService(reservations.ServiceParams{
		Repo:    reservations.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Policy:  policy,
		HoldTTL: cfg.Reservations.HoldTTL,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reservations service", err)
		os.Exit(1)
	}

	inquiriesRepo := inquiries.NewRepository(dbClient.DB())
	limiter, err := ratelimit.NewService(inquiriesRepo, redisClient, cfg.RateLimit, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create rate limiter", err)
		os.Exit(1)
	}
	inquiriesService, err := inquiries.NewService(inquiriesRepo, limiter, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inquiries service", err)
		os.Exit(1)
	}

	notifiers := []alerting.Notifier{}
	logNotifier, err := alerting.NewLogNotifier(logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create log notifier", err)
		os.Exit(1)
	}
	notifiers = append(notifiers, logNotifier)
	if cfg.Alerting.SlackWebhookURL != "" {
		slackNotifier, err := alerting.NewSlackNotifier(cfg.Alerting)
		if err != nil {
			logg.Error(context.Background(), "failed to create slack notifier", err)
			os.Exit(1)
		}
		notifiers = append(notifiers, slackNotifier)
	}
	alerts, err := alerting.NewService(cfg.Alerting, logg, notifiers...)
	if err != nil {
		logg.Error(context.Background(), "failed to create alerting service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)
	processor, err := webhooks.NewProcessor(webhooks.ProcessorParams{
		Ledger:  ledgerService,
		Alerts:  alerts,
		Metrics: webhookMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook processor", err)
		os.Exit(1)
	}

	stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Reservations: reservationsService,
		Processor:    processor,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}
	stripeGuard, err := webhooks.NewIdempotencyGuard(redisClient, guardTTL, "stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe idempotency guard", err)
		os.Exit(1)
	}

	paypalWebhookService, err := paypalwebhook.NewService(paypalwebhook.ServiceParams{
		Reservations: reservationsService,
		Processor:    processor,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal webhook service", err)
		os.Exit(1)
	}
	// Without credentials the verifier cannot be built; the controller turns
	// a nil verifier into a 500 instead of accepting unverified deliveries.
	var paypalVerifier *paypalwebhook.Verifier
	if cfg.PayPal.WebhookID != "" {
		paypalVerifier, err = paypalwebhook.NewVerifier(cfg.PayPal)
		if err != nil {
			logg.Error(context.Background(), "failed to create paypal verifier", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "paypal webhook verification not configured")
	}
	paypalGuard, err := webhooks.NewIdempotencyGuard(redisClient, guardTTL, "paypal")
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			inquiriesService,
			reservationsService,
			stripeWebhookService,
			stripeGuard,
			paypalWebhookService,
			paypalVerifier,
			paypalGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
