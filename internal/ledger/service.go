package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/immofind/immofind-backend/pkg/db"
	"github.com/immofind/immofind-backend/pkg/db/models"
	"github.com/immofind/immofind-backend/pkg/enums"
	pkgerrors "github.com/immofind/immofind-backend/pkg/errors"
	"github.com/immofind/immofind-backend/pkg/pagination"
)

const (
	// ReasonDuplicate marks a credit whose external reference was already
	// recorded. Expected under at-least-once webhook delivery, not an error.
	ReasonDuplicate = "duplicate"
	// ReasonInsufficientFunds marks a debit declined by the balance guard.
	ReasonInsufficientFunds = "insufficient_funds"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns all balance mutations. Credits are idempotent on the external
// payment reference; debits go through a single conditional update so the
// balance can never go negative under concurrent clicks.
type Service interface {
	Credit(ctx context.Context, input CreditInput) (*CreditResult, error)
	Debit(ctx context.Context, agencyID uuid.UUID, amount decimal.Decimal) (*DebitResult, error)
	Balance(ctx context.Context, agencyID uuid.UUID) (*models.Agency, error)
	ListTransactions(ctx context.Context, agencyID uuid.UUID, params pagination.Params) ([]models.CpcTransaction, string, error)
}

// ServiceParams groups dependencies for the ledger service.
type ServiceParams struct {
	Repo              Repository
	TransactionRunner txRunner
	Now               func() time.Time
}

type service struct {
	repo Repository
	txs  txRunner
	now  func() time.Time
}

// CreditInput captures a funding event driven by the payment gateway.
type CreditInput struct {
	AgencyID     uuid.UUID
	Amount       decimal.Decimal
	Currency     string
	CreditsAdded *int
	Description  string
	ExternalRefs ExternalRefs
}

// CreditResult reports whether the credit was applied or deduplicated.
type CreditResult struct {
	Applied     bool
	Reason      string
	Transaction *models.CpcTransaction
}

// DebitResult reports the outcome of a click debit.
type DebitResult struct {
	Applied    bool
	Reason     string
	NewBalance decimal.Decimal
}

// NewService wires a ledger service with the provided repository and
// transaction runner.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, txs: params.TransactionRunner, now: now}, nil
}

func (s *service) Credit(ctx context.Context, input CreditInput) (*CreditResult, error) {
	if input.AgencyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agency id is required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}
	if input.ExternalRefs.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "an external payment reference is required")
	}

	// Fast path: the reference was already recorded. The unique index below
	// still backstops the race between two deliveries of the same event.
	existing, err := s.repo.FindByExternalRefs(ctx, input.ExternalRefs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup external refs")
	}
	if existing != nil {
		return &CreditResult{Applied: false, Reason: ReasonDuplicate, Transaction: existing}, nil
	}

	currency := input.Currency
	if currency == "" {
		currency = "EUR"
	}

	entry := &models.CpcTransaction{
		AgencyID:     input.AgencyID,
		Type:         enums.CpcTransactionTypeCredit,
		Amount:       input.Amount,
		Currency:     currency,
		CreditsAdded: input.CreditsAdded,
		Description:  input.Description,
	}
	if input.ExternalRefs.PaymentIntentID != "" {
		entry.StripePaymentIntentID = &input.ExternalRefs.PaymentIntentID
	}
	if input.ExternalRefs.ChargeID != "" {
		entry.StripeChargeID = &input.ExternalRefs.ChargeID
	}
	if input.ExternalRefs.CheckoutSessionID != "" {
		entry.StripeCheckoutSessionID = &input.ExternalRefs.CheckoutSessionID
	}

	duplicate := false
	err = s.txs.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateTransaction(ctx, entry); err != nil {
			if db.IsUniqueViolation(err) {
				duplicate = true
				return nil
			}
			return err
		}
		return repo.AddBalance(ctx, input.AgencyID, input.Amount, s.now().UTC())
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply credit")
	}
	if duplicate {
		return &CreditResult{Applied: false, Reason: ReasonDuplicate}, nil
	}

	return &CreditResult{Applied: true, Transaction: entry}, nil
}

func (s *service) Debit(ctx context.Context, agencyID uuid.UUID, amount decimal.Decimal) (*DebitResult, error) {
	if agencyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agency id is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}

	entry := &models.CpcTransaction{
		AgencyID:    agencyID,
		Type:        enums.CpcTransactionTypeDebit,
		Amount:      amount,
		Currency:    "EUR",
		Description: "sponsored click",
	}

	// The conditional decrement and the ledger row commit or roll back
	// together.
	applied := false
	err := s.txs.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.DebitBalance(ctx, agencyID, amount)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		applied = true
		return repo.CreateTransaction(ctx, entry)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply debit")
	}
	if !applied {
		agency, err := s.repo.GetAgency(ctx, agencyID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agency after declined debit")
		}
		result := &DebitResult{Applied: false, Reason: ReasonInsufficientFunds}
		if agency != nil {
			result.NewBalance = agency.CpcBalance
		}
		return result, nil
	}

	s.touchClickCounter(ctx, agencyID)

	agency, err := s.repo.GetAgency(ctx, agencyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agency after debit")
	}
	result := &DebitResult{Applied: true}
	if agency != nil {
		result.NewBalance = agency.CpcBalance
	}
	return result, nil
}

// touchClickCounter maintains the advisory monthly click count: reset to 1
// on the first click of a new calendar month, otherwise incremented. Drift
// under concurrent clicks is tolerated; the ledger rows are the billing
// truth.
func (s *service) touchClickCounter(ctx context.Context, agencyID uuid.UUID) {
	agency, err := s.repo.GetAgency(ctx, agencyID)
	if err != nil || agency == nil {
		return
	}

	now := s.now().UTC()
	clicks := 1
	if agency.LastClickAt != nil && sameMonth(*agency.LastClickAt, now) {
		clicks = agency.ClicksThisMonth + 1
	}
	_ = s.repo.UpdateClickCounter(ctx, agencyID, clicks, now)
}

func sameMonth(a, b time.Time) bool {
	return a.UTC().Year() == b.UTC().Year() && a.UTC().Month() == b.UTC().Month()
}

func (s *service) Balance(ctx context.Context, agencyID uuid.UUID) (*models.Agency, error) {
	if agencyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agency id is required")
	}
	agency, err := s.repo.GetAgency(ctx, agencyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agency")
	}
	if agency == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agency not found")
	}
	return agency, nil
}

// ListTransactions pages the agency's ledger history and returns an opaque
// cursor for the next page, empty on the last one.
func (s *service) ListTransactions(ctx context.Context, agencyID uuid.UUID, params pagination.Params) ([]models.CpcTransaction, string, error) {
	if agencyID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "agency id is required")
	}
	txs, next, err := s.repo.ListByAgency(ctx, agencyID, params)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, "", err
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return txs, nextCursor, nil
}
