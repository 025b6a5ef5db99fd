package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/immofind/immofind-backend/api/controllers"
	"github.com/immofind/immofind-backend/api/middleware"
	"github.com/immofind/immofind-backend/internal/ledger"
	"github.com/immofind/immofind-backend/internal/listings"
	stripewebhook "github.com/immofind/immofind-backend/internal/webhooks/stripe"
	"github.com/immofind/immofind-backend/pkg/config"
	"github.com/immofind/immofind-backend/pkg/db"
	"github.com/immofind/immofind-backend/pkg/logger"
	"github.com/immofind/immofind-backend/pkg/metrics"
	"github.com/immofind/immofind-backend/pkg/redis"
	"github.com/immofind/immofind-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	listingService listings.Service,
	ledgerService ledger.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
	webhookMetrics *metrics.WebhookMetrics,
	cpcMetrics *metrics.CPCMetrics,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", controllers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, webhookMetrics, logg))
	})

	r.Route("/api/v1/listings", func(r chi.Router) {
		r.Get("/", controllers.SearchListings(listingService, logg))
		r.Get("/map", controllers.ListingsMap(listingService, logg))
		r.Post("/", controllers.SubmitListing(listingService, logg))
		r.Post("/{listingID}/click", controllers.ListingClick(listingService, cpcMetrics, logg))
	})

	r.Route("/api/v1/billing", func(r chi.Router) {
		r.Post("/recharge", controllers.Recharge(listingService, logg))
		r.Get("/cpc", controllers.CPCSummary(ledgerService, logg))
		r.Get("/cpc/transactions", controllers.CPCTransactions(ledgerService, logg))
	})

	return r
}
