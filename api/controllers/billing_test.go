package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/immofind/immofind-backend/internal/ledger"
	"github.com/immofind/immofind-backend/pkg/db/models"
	"github.com/immofind/immofind-backend/pkg/enums"
	pkgerrors "github.com/immofind/immofind-backend/pkg/errors"
	"github.com/immofind/immofind-backend/pkg/pagination"
)

type fakeLedgerService struct {
	agency       *models.Agency
	transactions []models.CpcTransaction
	nextCursor   string
	listParams   *pagination.Params
}

func (f *fakeLedgerService) Credit(ctx context.Context, input ledger.CreditInput) (*ledger.CreditResult, error) {
	return &ledger.CreditResult{Applied: true}, nil
}

func (f *fakeLedgerService) Debit(ctx context.Context, agencyID uuid.UUID, amount decimal.Decimal) (*ledger.DebitResult, error) {
	return &ledger.DebitResult{Applied: true}, nil
}

func (f *fakeLedgerService) Balance(ctx context.Context, agencyID uuid.UUID) (*models.Agency, error) {
	if f.agency == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agency not found")
	}
	return f.agency, nil
}

func (f *fakeLedgerService) ListTransactions(ctx context.Context, agencyID uuid.UUID, params pagination.Params) ([]models.CpcTransaction, string, error) {
	f.listParams = &params
	return f.transactions, f.nextCursor, nil
}

func TestCPCSummary(t *testing.T) {
	service := &fakeLedgerService{
		agency: &models.Agency{
			ID:               uuid.New(),
			SubscriptionPack: enums.PackTierPremium,
			CpcBalance:       decimal.RequireFromString("12.50"),
			CpcTotalSpent:    decimal.RequireFromString("37.50"),
			CostPerClick:     decimal.RequireFromString("0.50"),
			ClicksThisMonth:  83,
		},
	}
	handler := CPCSummary(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/cpc", nil)
	req.Header.Set(agencyIDHeader, service.agency.ID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data cpcSummaryResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Data.Balance.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("balance = %s", envelope.Data.Balance)
	}
	// Premium discounts the base rate by 10%.
	if !envelope.Data.EffectiveCPC.Equal(decimal.RequireFromString("0.45")) {
		t.Fatalf("effective cpc = %s", envelope.Data.EffectiveCPC)
	}
	if envelope.Data.ClicksThisMonth != 83 {
		t.Fatalf("clicks = %d", envelope.Data.ClicksThisMonth)
	}
}

func TestCPCSummaryUnknownAgency(t *testing.T) {
	handler := CPCSummary(&fakeLedgerService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/cpc", nil)
	req.Header.Set(agencyIDHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCPCTransactionsForwardsCursor(t *testing.T) {
	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()})
	service := &fakeLedgerService{nextCursor: "next-page"}
	handler := CPCTransactions(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/cpc/transactions?limit=5&cursor="+cursor, nil)
	req.Header.Set(agencyIDHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if service.listParams == nil || service.listParams.Limit != 5 || service.listParams.Cursor != cursor {
		t.Fatalf("params = %+v", service.listParams)
	}
	var envelope struct {
		Data cpcTransactionsResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.NextCursor != "next-page" {
		t.Fatalf("next cursor = %s", envelope.Data.NextCursor)
	}
}

func TestCPCTransactionsRejectsGarbageCursor(t *testing.T) {
	handler := CPCTransactions(&fakeLedgerService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/cpc/transactions?cursor=%21%21garbage", nil)
	req.Header.Set(agencyIDHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRechargeValidatesAmount(t *testing.T) {
	handler := Recharge(&fakeListingService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/recharge", strings.NewReader(`{"amount": "abc"}`))
	req.Header.Set(agencyIDHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRechargeReturnsCheckoutURL(t *testing.T) {
	service := &fakeListingService{}
	handler := Recharge(service, nil)
	agencyID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/recharge", strings.NewReader(`{"amount": "25.00", "credits": 50}`))
	req.Header.Set(agencyIDHeader, agencyID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if service.rechargeID != agencyID {
		t.Fatal("agency id not forwarded")
	}
}
