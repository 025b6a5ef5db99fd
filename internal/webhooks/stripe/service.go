package stripewebhook

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/immofind/immofind-backend/internal/agencies"
	"github.com/immofind/immofind-backend/internal/ledger"
	"github.com/immofind/immofind-backend/pkg/db/models"
	"github.com/immofind/immofind-backend/pkg/enums"
	pkgerrors "github.com/immofind/immofind-backend/pkg/errors"
)

const (
	reasonSubscriptionSync    = "subscription_sync"
	reasonSubscriptionDeleted = "subscription_deleted"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	AgencyRepo        agencies.Repository
	Ledger            ledger.Service
	TransactionRunner txRunner
}

// Service routes verified Stripe events into ledger credits and subscription
// pack transitions. Signature verification and the event-id guard live in
// the controller; by the time HandleEvent runs the payload is trusted.
type Service struct {
	agencyRepo agencies.Repository
	ledger     ledger.Service
	txRunner   txRunner
}

func NewService(params ServiceParams) (*Service, error) {
	if params.AgencyRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "agency repo required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		agencyRepo: params.AgencyRepo,
		ledger:     params.Ledger,
		txRunner:   params.TransactionRunner,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		return s.handleCheckoutCompleted(ctx, &session)
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.syncSubscription(ctx, &sub)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.handleSubscriptionDeleted(ctx, &sub)
	case stripe.EventTypeInvoicePaid:
		return s.updateSubscriptionStatus(ctx, event, enums.SubscriptionStatusActive)
	case stripe.EventTypeInvoicePaymentFailed:
		return s.updateSubscriptionStatus(ctx, event, enums.SubscriptionStatusPastDue)
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
		}
		return s.handlePaymentIntentSucceeded(ctx, &intent)
	default:
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	if session == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session is required")
	}
	if session.Mode == stripe.CheckoutSessionModeSubscription {
		return s.applyCheckoutSubscription(ctx, session)
	}

	agencyID, err := agencyIDFromMetadata(session.Metadata)
	if err != nil {
		return err
	}

	refs := ledger.ExternalRefs{CheckoutSessionID: session.ID}
	if session.PaymentIntent != nil {
		refs.PaymentIntentID = session.PaymentIntent.ID
	}

	input := ledger.CreditInput{
		AgencyID:     agencyID,
		Amount:       amountFromCents(session.AmountTotal),
		Currency:     strings.ToUpper(string(session.Currency)),
		CreditsAdded: creditsFromMetadata(session.Metadata),
		Description:  "cpc recharge via checkout",
		ExternalRefs: refs,
	}
	_, err = s.ledger.Credit(ctx, input)
	return err
}

// applyCheckoutSubscription records the subscription reference and pack as
// soon as checkout completes. The customer.subscription.created event that
// follows carries the authoritative period start and re-runs the same sync,
// which is a no-op when nothing changed.
func (s *Service) applyCheckoutSubscription(ctx context.Context, session *stripe.CheckoutSession) error {
	agency, err := s.resolveAgency(ctx, session.Metadata, subscriptionRef(session))
	if err != nil {
		return err
	}

	pack, ok := packFromMetadata(session.Metadata)
	if !ok {
		pack = agency.SubscriptionPack
	}

	var subID, customerID *string
	if session.Subscription != nil && session.Subscription.ID != "" {
		subID = &session.Subscription.ID
	}
	if session.Customer != nil && session.Customer.ID != "" {
		customerID = &session.Customer.ID
	}

	now := time.Now().UTC()
	return s.applyPackTransition(ctx, agency, packTransition{
		Pack:       pack,
		Status:     enums.SubscriptionStatusActive,
		StartDate:  &now,
		SubID:      subID,
		CustomerID: customerID,
		Reason:     reasonSubscriptionSync,
	})
}

func (s *Service) syncSubscription(ctx context.Context, sub *stripe.Subscription) error {
	if sub == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}

	agency, err := s.resolveAgency(ctx, sub.Metadata, sub.ID)
	if err != nil {
		return err
	}

	pack, ok := packFromMetadata(sub.Metadata)
	if !ok {
		pack = agency.SubscriptionPack
	}

	var subID, customerID *string
	if sub.ID != "" {
		subID = &sub.ID
	}
	if sub.Customer != nil && sub.Customer.ID != "" {
		customerID = &sub.Customer.ID
	}

	return s.applyPackTransition(ctx, agency, packTransition{
		Pack:       pack,
		Status:     mapSubscriptionStatus(sub.Status),
		StartDate:  periodStart(sub),
		SubID:      subID,
		CustomerID: customerID,
		Reason:     reasonSubscriptionSync,
	})
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	if sub == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}

	agency, err := s.resolveAgency(ctx, sub.Metadata, sub.ID)
	if err != nil {
		return err
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.agencyRepo.WithTx(tx)
		if agency.SubscriptionPack != enums.PackTierFree {
			if err := repo.AppendHistory(ctx, &models.SubscriptionHistory{
				AgencyID: agency.ID,
				FromPack: agency.SubscriptionPack,
				ToPack:   enums.PackTierFree,
				Reason:   reasonSubscriptionDeleted,
			}); err != nil {
				return err
			}
		}
		agency.SubscriptionPack = enums.PackTierFree
		agency.SubscriptionStatus = enums.SubscriptionStatusCanceled
		agency.SubscriptionStartDate = nil
		agency.StripeSubscriptionID = nil
		return repo.Update(ctx, agency)
	})
}

func (s *Service) updateSubscriptionStatus(ctx context.Context, event *stripe.Event, status enums.SubscriptionStatus) error {
	subscriptionID := event.GetObjectValue("subscription")
	if subscriptionID == "" {
		subscriptionID = event.GetObjectValue("parent", "subscription_details", "subscription")
	}
	if subscriptionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing from invoice event")
	}

	agency, err := s.agencyRepo.FindByStripeSubscriptionID(ctx, subscriptionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup agency by subscription")
	}
	if agency == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no agency for subscription")
	}
	if agency.SubscriptionStatus == status {
		return nil
	}
	agency.SubscriptionStatus = status
	if err := s.agencyRepo.Update(ctx, agency); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription status")
	}
	return nil
}

// handlePaymentIntentSucceeded is the fallback credit path for when the
// checkout.session.completed event was missed. Intents without agency
// metadata belong to subscription invoices and are skipped.
func (s *Service) handlePaymentIntentSucceeded(ctx context.Context, intent *stripe.PaymentIntent) error {
	if intent == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent is required")
	}
	agencyID, err := agencyIDFromMetadata(intent.Metadata)
	if err != nil {
		return nil
	}

	refs := ledger.ExternalRefs{PaymentIntentID: intent.ID}
	if intent.LatestCharge != nil {
		refs.ChargeID = intent.LatestCharge.ID
	}

	input := ledger.CreditInput{
		AgencyID:     agencyID,
		Amount:       amountFromCents(intent.Amount),
		Currency:     strings.ToUpper(string(intent.Currency)),
		CreditsAdded: creditsFromMetadata(intent.Metadata),
		Description:  "cpc recharge via payment intent",
		ExternalRefs: refs,
	}
	_, err = s.ledger.Credit(ctx, input)
	return err
}

type packTransition struct {
	Pack       enums.PackTier
	Status     enums.SubscriptionStatus
	StartDate  *time.Time
	SubID      *string
	CustomerID *string
	Reason     string
}

func (s *Service) applyPackTransition(ctx context.Context, agency *models.Agency, change packTransition) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.agencyRepo.WithTx(tx)
		if agency.SubscriptionPack != change.Pack {
			if err := repo.AppendHistory(ctx, &models.SubscriptionHistory{
				AgencyID: agency.ID,
				FromPack: agency.SubscriptionPack,
				ToPack:   change.Pack,
				Reason:   change.Reason,
			}); err != nil {
				return err
			}
		}
		agency.SubscriptionPack = change.Pack
		agency.SubscriptionStatus = change.Status
		if change.StartDate != nil {
			agency.SubscriptionStartDate = change.StartDate
		}
		if change.SubID != nil {
			agency.StripeSubscriptionID = change.SubID
		}
		if change.CustomerID != nil {
			agency.StripeCustomerID = change.CustomerID
		}
		return repo.Update(ctx, agency)
	})
}

// resolveAgency prefers the agency_id planted in event metadata and falls
// back to the stored subscription reference.
func (s *Service) resolveAgency(ctx context.Context, metadata map[string]string, subscriptionID string) (*models.Agency, error) {
	if agencyID, err := agencyIDFromMetadata(metadata); err == nil {
		agency, lookupErr := s.agencyRepo.FindByID(ctx, agencyID)
		if lookupErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lookupErr, "lookup agency")
		}
		if agency != nil {
			return agency, nil
		}
	}
	if subscriptionID != "" {
		agency, err := s.agencyRepo.FindByStripeSubscriptionID(ctx, subscriptionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup agency by subscription")
		}
		if agency != nil {
			return agency, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no agency for subscription event")
}

func agencyIDFromMetadata(metadata map[string]string) (uuid.UUID, error) {
	raw, ok := metadata["agency_id"]
	if !ok || strings.TrimSpace(raw) == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "agency_id missing from metadata")
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid agency_id metadata")
	}
	return id, nil
}

func packFromMetadata(metadata map[string]string) (enums.PackTier, bool) {
	raw, ok := metadata["pack"]
	if !ok {
		return "", false
	}
	pack, err := enums.ParsePackTier(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return "", false
	}
	return pack, true
}

func creditsFromMetadata(metadata map[string]string) *int {
	raw, ok := metadata["credits"]
	if !ok {
		return nil
	}
	credits, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || credits <= 0 {
		return nil
	}
	return &credits
}

func subscriptionRef(session *stripe.CheckoutSession) string {
	if session.Subscription != nil {
		return session.Subscription.ID
	}
	return ""
}

func periodStart(sub *stripe.Subscription) *time.Time {
	var ts int64
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0] != nil {
		ts = sub.Items.Data[0].CurrentPeriodStart
	}
	if ts == 0 {
		ts = sub.StartDate
	}
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

func amountFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func mapSubscriptionStatus(status stripe.SubscriptionStatus) enums.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return enums.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncomplete:
		return enums.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return enums.SubscriptionStatusCanceled
	default:
		return enums.SubscriptionStatusActive
	}
}
