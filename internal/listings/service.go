package listings

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/immofind/immofind-backend/internal/agencies"
	"github.com/immofind/immofind-backend/internal/boost"
	"github.com/immofind/immofind-backend/internal/geocluster"
	"github.com/immofind/immofind-backend/internal/ledger"
	"github.com/immofind/immofind-backend/internal/packs"
	"github.com/immofind/immofind-backend/internal/ranking"
	"github.com/immofind/immofind-backend/pkg/config"
	"github.com/immofind/immofind-backend/pkg/db/models"
	"github.com/immofind/immofind-backend/pkg/enums"
	pkgerrors "github.com/immofind/immofind-backend/pkg/errors"
	"github.com/immofind/immofind-backend/pkg/geo"
	"github.com/immofind/immofind-backend/pkg/types"
)

// Click billing outcomes that are normal declined paths, not errors.
const (
	ClickNotSponsored      = "not_sponsored"
	ClickNoAgency          = "no_agency"
	ClickInsufficientFunds = "insufficient_funds"
)

// SubmitInput carries the fields an agency provides for a new listing.
type SubmitInput struct {
	Title               string
	Description         string
	PropertyType        enums.PropertyType
	Price               decimal.Decimal
	Surface             float64
	Rooms               int
	RenovationScore     int
	AnnualEnergyCost    float64
	DPEClass            *enums.EnergyClass
	GESClass            *enums.EnergyClass
	InCoproperty        bool
	City                string
	PostalCode          string
	Department          string
	Location            *types.GeographyPoint
	ApproximateLocation bool
}

// ClickResult reports whether a click on a sponsored listing was billed.
// Declined outcomes never fail the page view that carried the click.
type ClickResult struct {
	Billed bool            `json:"billed"`
	Reason string          `json:"reason,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

// RechargeInput is an agency-initiated credit request, fulfilled only
// through the checkout flow and the webhook that confirms it.
type RechargeInput struct {
	Amount  decimal.Decimal
	Credits *int
}

// RechargeResult carries the hosted checkout redirect. No balance is
// touched here.
type RechargeResult struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

type Service interface {
	Search(ctx context.Context, input SearchInput) (*SearchResult, error)
	MapView(ctx context.Context, input MapViewInput) (*geocluster.Result, error)
	Submit(ctx context.Context, agencyID uuid.UUID, input SubmitInput) (*models.Listing, error)
	RecordClick(ctx context.Context, listingID uuid.UUID) (*ClickResult, error)
	Recharge(ctx context.Context, agencyID uuid.UUID, input RechargeInput) (*RechargeResult, error)
}

type ServiceParams struct {
	Repo       Repository
	AgencyRepo agencies.Repository
	Ranking    *ranking.Engine
	Ledger     ledger.Service
	Checkout   StripeCheckoutClient
	Stripe     config.StripeConfig
	CPC        config.CPCConfig
	Now        func() time.Time
}

type service struct {
	repo       Repository
	agencyRepo agencies.Repository
	ranking    *ranking.Engine
	ledger     ledger.Service
	checkout   StripeCheckoutClient
	stripeCfg  config.StripeConfig
	baseCPC    decimal.Decimal
	currency   string
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "listing repository required")
	}
	if params.AgencyRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "agency repository required")
	}
	if params.Ranking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ranking engine required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	baseCPC, err := decimal.NewFromString(params.CPC.BaseCostPerClick)
	if err != nil || baseCPC.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invalid base cost per click")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	currency := params.CPC.Currency
	if currency == "" {
		currency = "EUR"
	}
	return &service{
		repo:       params.Repo,
		agencyRepo: params.AgencyRepo,
		ranking:    params.Ranking,
		ledger:     params.Ledger,
		checkout:   params.Checkout,
		stripeCfg:  params.Stripe,
		baseCPC:    baseCPC,
		currency:   currency,
		now:        now,
	}, nil
}

func (s *service) Search(ctx context.Context, input SearchInput) (*SearchResult, error) {
	candidates, err := s.repo.Search(ctx, input.Filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search listings")
	}

	page, err := s.ranking.Rank(ctx, candidates, ranking.Params{
		SortKey: input.SortKey,
		Order:   input.Order,
		Radius:  input.Radius,
		Page:    input.Page,
		Limit:   input.Limit,
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	result := &SearchResult{
		Items: make([]ListingSummary, 0, len(page.Items)),
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
	}
	for _, item := range page.Items {
		result.Items = append(result.Items, summarize(item, now))
	}
	return result, nil
}

func (s *service) MapView(ctx context.Context, input MapViewInput) (*geocluster.Result, error) {
	if err := input.BBox.Validate(); err != nil {
		return nil, err
	}

	candidates, err := s.repo.SearchViewport(ctx, input.Filters, input.BBox, geocluster.CandidateCap(input.Zoom))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load viewport listings")
	}

	items, err := s.ranking.Enrich(ctx, candidates)
	if err != nil {
		return nil, err
	}
	return geocluster.Build(items, input.BBox, input.Zoom)
}

func (s *service) Submit(ctx context.Context, agencyID uuid.UUID, input SubmitInput) (*models.Listing, error) {
	if agencyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agency id is required")
	}

	agency, err := s.agencyRepo.FindByID(ctx, agencyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agency")
	}
	if agency == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agency not found")
	}
	if agency.Status == enums.AgencyStatusSuspended {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "agency is suspended")
	}
	if agency.Status != enums.AgencyStatusVerified {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "agency is not verified")
	}

	cfg := packs.ConfigFor(agency.SubscriptionPack)
	active, err := s.repo.CountActiveByAgency(ctx, agencyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active listings")
	}
	if cfg.MaxActiveListings != packs.UnlimitedListings && active >= cfg.MaxActiveListings {
		return nil, pkgerrors.New(pkgerrors.CodeQuotaExceeded, "listing quota reached").
			WithDetails(map[string]any{
				"current":          active,
				"max":              cfg.MaxActiveListings,
				"suggestedUpgrade": packs.SuggestedUpgrade(agency.SubscriptionPack),
			})
	}

	listing := &models.Listing{
		Title:               input.Title,
		Description:         input.Description,
		AgencyID:            &agencyID,
		Status:              enums.ListingStatusActive,
		PropertyType:        input.PropertyType,
		Price:               input.Price,
		Surface:             input.Surface,
		Rooms:               input.Rooms,
		RenovationScore:     input.RenovationScore,
		AnnualEnergyCost:    input.AnnualEnergyCost,
		DPEClass:            input.DPEClass,
		GESClass:            input.GESClass,
		InCoproperty:        input.InCoproperty,
		City:                input.City,
		PostalCode:          input.PostalCode,
		Department:          input.Department,
		Location:            input.Location,
		ApproximateLocation: input.ApproximateLocation,
	}
	boost.Apply(listing, cfg, s.now())

	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}
	return listing, nil
}

// RecordClick bills a click on a currently sponsored listing at the owning
// agency's effective CPC rate. Every declined path is a normal outcome; the
// page view that carried the click never fails because of billing.
func (s *service) RecordClick(ctx context.Context, listingID uuid.UUID) (*ClickResult, error) {
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}

	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if !listing.SponsoredNow(s.now().UTC()) {
		return &ClickResult{Billed: false, Reason: ClickNotSponsored}, nil
	}
	if listing.AgencyID == nil {
		return &ClickResult{Billed: false, Reason: ClickNoAgency}, nil
	}

	agency, err := s.agencyRepo.FindByID(ctx, *listing.AgencyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agency")
	}
	if agency == nil {
		return &ClickResult{Billed: false, Reason: ClickNoAgency}, nil
	}

	base := agency.CostPerClick
	if base.LessThanOrEqual(decimal.Zero) {
		base = s.baseCPC
	}
	price := packs.EffectiveCPCPrice(agency.SubscriptionPack, base)

	debit, err := s.ledger.Debit(ctx, agency.ID, price)
	if err != nil {
		return nil, err
	}
	if !debit.Applied {
		return &ClickResult{Billed: false, Reason: ClickInsufficientFunds}, nil
	}
	return &ClickResult{Billed: true, Amount: price}, nil
}

// Recharge opens a hosted checkout session for CPC credits. The balance
// moves only when the gateway confirms payment through the webhook.
func (s *service) Recharge(ctx context.Context, agencyID uuid.UUID, input RechargeInput) (*RechargeResult, error) {
	if agencyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agency id is required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recharge amount must be positive")
	}
	if s.checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout is not configured")
	}

	agency, err := s.agencyRepo.FindByID(ctx, agencyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agency")
	}
	if agency == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agency not found")
	}

	metadata := map[string]string{
		"agency_id": agencyID.String(),
	}
	if input.Credits != nil {
		metadata["credits"] = strconv.Itoa(*input.Credits)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.stripeCfg.SuccessURL),
		CancelURL:  stripe.String(s.stripeCfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(s.currency)),
				UnitAmount: stripe.Int64(input.Amount.Shift(2).IntPart()),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("CPC credit recharge"),
				},
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}
	if agency.StripeCustomerID != nil {
		params.Customer = stripe.String(*agency.StripeCustomerID)
	}

	session, err := s.checkout.CreateSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return &RechargeResult{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

// summarize builds the public listing shape, displacing approximate
// locations so true coordinates never leave the core.
func summarize(item ranking.Item, now time.Time) ListingSummary {
	listing := item.Listing
	summary := ListingSummary{
		ID:              listing.ID,
		Title:           listing.Title,
		City:            listing.City,
		PostalCode:      listing.PostalCode,
		PropertyType:    listing.PropertyType,
		Price:           listing.Price,
		Surface:         listing.Surface,
		Rooms:           listing.Rooms,
		RenovationScore: listing.RenovationScore,
		Sponsored:       listing.SponsoredNow(now),
		DistanceKm:      item.DistanceKm,
		AgencyBadge:     item.AgencyBadge,
		AgencyPack:      item.AgencyPack,
		MapHighlight:    item.MapHighlight,
	}
	if listing.Location != nil {
		location := *listing.Location
		if listing.ApproximateLocation {
			location = geo.ObfuscatePoint(listing.ID, location)
		}
		summary.Location = &location
	}
	return summary
}
