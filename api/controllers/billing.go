package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/immofind/immofind-backend/api/responses"
	"github.com/immofind/immofind-backend/api/validators"
	"github.com/immofind/immofind-backend/internal/ledger"
	"github.com/immofind/immofind-backend/internal/listings"
	"github.com/immofind/immofind-backend/internal/packs"
	"github.com/immofind/immofind-backend/pkg/db/models"
	"github.com/immofind/immofind-backend/pkg/enums"
	pkgerrors "github.com/immofind/immofind-backend/pkg/errors"
	"github.com/immofind/immofind-backend/pkg/logger"
	"github.com/immofind/immofind-backend/pkg/pagination"
)

type rechargeRequest struct {
	Amount  string `json:"amount" validate:"required"`
	Credits *int   `json:"credits" validate:"omitempty,gt=0"`
}

// Recharge opens a checkout session for CPC credits. The ledger is only
// credited once the payment webhook confirms the charge.
func Recharge(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agencyID, err := validators.ParseUUIDHeader(r, agencyIDHeader)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body rechargeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(body.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal string"))
			return
		}

		result, err := svc.Recharge(ctx, agencyID, listings.RechargeInput{
			Amount:  amount,
			Credits: body.Credits,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type cpcSummaryResponse struct {
	AgencyID        string          `json:"agencyId"`
	Pack            enums.PackTier  `json:"pack"`
	Balance         decimal.Decimal `json:"balance"`
	TotalSpent      decimal.Decimal `json:"totalSpent"`
	ClicksThisMonth int             `json:"clicksThisMonth"`
	CostPerClick    decimal.Decimal `json:"costPerClick"`
	EffectiveCPC    decimal.Decimal `json:"effectiveCpc"`
}

// CPCSummary reports the agency's click budget: balance, spend, and the
// discounted rate its pack grants.
func CPCSummary(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agencyID, err := validators.ParseUUIDHeader(r, agencyIDHeader)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		agency, err := svc.Balance(ctx, agencyID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summarizeBudget(agency))
	}
}

func summarizeBudget(agency *models.Agency) cpcSummaryResponse {
	return cpcSummaryResponse{
		AgencyID:        agency.ID.String(),
		Pack:            agency.SubscriptionPack,
		Balance:         agency.CpcBalance,
		TotalSpent:      agency.CpcTotalSpent,
		ClicksThisMonth: agency.ClicksThisMonth,
		CostPerClick:    agency.CostPerClick,
		EffectiveCPC:    packs.EffectiveCPCPrice(agency.SubscriptionPack, agency.CostPerClick),
	}
}

type cpcTransactionsResponse struct {
	Transactions []models.CpcTransaction `json:"transactions"`
	NextCursor   string                  `json:"nextCursor,omitempty"`
}

// CPCTransactions pages through the agency's ledger history, newest first.
func CPCTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agencyID, err := validators.ParseUUIDHeader(r, agencyIDHeader)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rawCursor := r.URL.Query().Get("cursor")
		if _, err := pagination.ParseCursor(rawCursor); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		transactions, next, err := svc.ListTransactions(ctx, agencyID, pagination.Params{
			Limit:  limit,
			Cursor: rawCursor,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cpcTransactionsResponse{
			Transactions: transactions,
			NextCursor:   next,
		})
	}
}
