package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/immofind/immofind-backend/api/responses"
	pkgerrors "github.com/immofind/immofind-backend/pkg/errors"
	"github.com/immofind/immofind-backend/pkg/logger"
	"github.com/immofind/immofind-backend/pkg/metrics"
)

// maxWebhookBody bounds the payload read; Stripe events stay well under it.
const maxWebhookBody = 1 << 20

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

// StripeWebhook ingests payment and subscription events. Once the
// signature verifies, the endpoint always acknowledges with 200: a handler
// failure is logged and its idempotency mark released so the gateway's
// retry can reprocess, but a non-200 would only trigger redundant retries
// of events we already saw.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard stripeWebhookGuard, webhookMetrics *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || client == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			if webhookMetrics != nil {
				webhookMetrics.IncRejected()
			}
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEvent(payload, sigHeader, client.SigningSecret())
		if err != nil {
			if webhookMetrics != nil {
				webhookMetrics.IncRejected()
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature"))
			return
		}

		if webhookMetrics != nil {
			webhookMetrics.IncReceived(string(event.Type))
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			if webhookMetrics != nil {
				webhookMetrics.IncFailed(string(event.Type))
			}
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"event_id":   event.ID,
					"event_type": string(event.Type),
				})
				logg.Error(ctx, "webhook.idempotency_check_failed", err)
			}
			responses.WriteSuccess(w, map[string]string{"status": "error"})
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, map[string]string{"status": "duplicate"})
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			_ = guard.Delete(ctx, event.ID)
			if webhookMetrics != nil {
				webhookMetrics.IncFailed(string(event.Type))
			}
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"event_id":   event.ID,
					"event_type": string(event.Type),
				})
				logg.Error(ctx, "webhook.event_failed", err)
			}
			responses.WriteSuccess(w, map[string]string{"status": "error"})
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}
