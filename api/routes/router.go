package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goldenleafkennels/reservations-backend/api/controllers"
	webhookcontrollers "github.com/goldenleafkennels/reservations-backend/api/controllers/webhooks"
	"github.com/goldenleafkennels/reservations-backend/api/middleware"
	"github.com/goldenleafkennels/reservations-backend/internal/inquiries"
	"github.com/goldenleafkennels/reservations-backend/internal/reservations"
	"github.com/goldenleafkennels/reservations-backend/internal/webhooks"
	paypalwebhook "github.com/goldenleafkennels/reservations-backend/internal/webhooks/paypal"
	stripewebhook "github.com/goldenleafkennels/reservations-backend/internal/webhooks/stripe"
	"github.com/goldenleafkennels/reservations-backend/pkg/config"
	"github.com/goldenleafkennels/reservations-backend/pkg/db"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
	"github.com/goldenleafkennels/reservations-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	inquiriesService inquiries.Service,
	reservationsService reservations.Service,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *webhooks.IdempotencyGuard,
	paypalWebhookService *paypalwebhook.Service,
	paypalVerifier *paypalwebhook.Verifier,
	paypalWebhookGuard *webhooks.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, cfg.Stripe, stripeWebhookGuard, logg))
		r.Post("/paypal", webhookcontrollers.PayPalWebhook(paypalWebhookService, paypalVerifier, paypalWebhookGuard, logg))
	})

	r.Route("/api/v1/inquiries", func(r chi.Router) {
		r.Post("/", controllers.InquiryCreate(inquiriesService, logg))
	})

	// Both verbs so hosted schedulers that only speak GET can still trigger
	// the sweep.
	r.Route("/api/v1/cron", func(r chi.Router) {
		handler := controllers.CronExpireReservations(reservationsService, cfg.Cron, logg)
		r.Post("/expire-reservations", handler)
		r.Get("/expire-reservations", handler)
	})

	return r
}
