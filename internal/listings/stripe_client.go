package listings

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"

	pkgstripe "github.com/immofind/immofind-backend/pkg/stripe"
)

// StripeCheckoutClient exposes the subset of Stripe checkout operations the
// recharge command needs.
type StripeCheckoutClient interface {
	CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeCheckoutWrapper struct{}

// NewStripeCheckoutClient wraps the configured Stripe client so the listing
// service can be tested without the network.
func NewStripeCheckoutClient(api *pkgstripe.Client) StripeCheckoutClient {
	if api == nil {
		return nil
	}
	return &stripeCheckoutWrapper{}
}

func (w *stripeCheckoutWrapper) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return checkoutsession.New(params)
}
