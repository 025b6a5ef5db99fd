package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/immofind/immofind-backend/internal/geocluster"
	"github.com/immofind/immofind-backend/internal/listings"
	"github.com/immofind/immofind-backend/pkg/db/models"
	"github.com/immofind/immofind-backend/pkg/enums"
	pkgerrors "github.com/immofind/immofind-backend/pkg/errors"
)

type fakeListingService struct {
	searchInput  *listings.SearchInput
	mapInput     *listings.MapViewInput
	submitID     uuid.UUID
	submitInput  *listings.SubmitInput
	submitErr    error
	clickID      uuid.UUID
	clickResult  *listings.ClickResult
	rechargeID   uuid.UUID
	rechargeWant *listings.RechargeResult
}

func (f *fakeListingService) Search(ctx context.Context, input listings.SearchInput) (*listings.SearchResult, error) {
	f.searchInput = &input
	return &listings.SearchResult{Items: []listings.ListingSummary{}, Page: input.Page}, nil
}

func (f *fakeListingService) MapView(ctx context.Context, input listings.MapViewInput) (*geocluster.Result, error) {
	f.mapInput = &input
	if err := input.BBox.Validate(); err != nil {
		return nil, err
	}
	return &geocluster.Result{Zoom: input.Zoom}, nil
}

func (f *fakeListingService) Submit(ctx context.Context, agencyID uuid.UUID, input listings.SubmitInput) (*models.Listing, error) {
	f.submitID = agencyID
	f.submitInput = &input
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &models.Listing{ID: uuid.New(), Title: input.Title, Status: enums.ListingStatusActive}, nil
}

func (f *fakeListingService) RecordClick(ctx context.Context, listingID uuid.UUID) (*listings.ClickResult, error) {
	f.clickID = listingID
	if f.clickResult != nil {
		return f.clickResult, nil
	}
	return &listings.ClickResult{Billed: true, Amount: decimal.RequireFromString("0.45")}, nil
}

func (f *fakeListingService) Recharge(ctx context.Context, agencyID uuid.UUID, input listings.RechargeInput) (*listings.RechargeResult, error) {
	f.rechargeID = agencyID
	if f.rechargeWant != nil {
		return f.rechargeWant, nil
	}
	return &listings.RechargeResult{SessionID: "cs_1", CheckoutURL: "https://checkout.test/cs_1"}, nil
}

func TestSearchListingsParsesQuery(t *testing.T) {
	service := &fakeListingService{}
	handler := SearchListings(service, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/listings?q=terrasse&city=Lyon&price_max=400000&rooms_min=2&sort=price&order=asc&lat=45.75&lng=4.85&radius_km=10&page=2&limit=10&dpe=A,B", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	input := service.searchInput
	if input == nil {
		t.Fatal("service not called")
	}
	if input.Filters.Query != "terrasse" || input.Filters.City != "Lyon" {
		t.Fatalf("unexpected filters %+v", input.Filters)
	}
	if input.Filters.PriceMax == nil || !input.Filters.PriceMax.Equal(decimal.RequireFromString("400000")) {
		t.Fatal("price_max not parsed")
	}
	if input.Filters.RoomsMin == nil || *input.Filters.RoomsMin != 2 {
		t.Fatal("rooms_min not parsed")
	}
	if len(input.Filters.DPEClasses) != 2 {
		t.Fatalf("dpe classes = %v", input.Filters.DPEClasses)
	}
	if input.SortKey != enums.SortKeyPrice || input.Order != enums.SortOrderAsc {
		t.Fatalf("sort = %s %s", input.SortKey, input.Order)
	}
	if input.Radius == nil || input.Radius.RadiusKm != 10 {
		t.Fatal("radius not parsed")
	}
	if input.Page != 2 || input.Limit != 10 {
		t.Fatalf("page/limit = %d/%d", input.Page, input.Limit)
	}
}

func TestSearchListingsRejectsBadSort(t *testing.T) {
	handler := SearchListings(&fakeListingService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings?sort=mileage", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchListingsRadiusRequiresCoordinates(t *testing.T) {
	handler := SearchListings(&fakeListingService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings?radius_km=5", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListingsMapRequiresBoundingBox(t *testing.T) {
	handler := ListingsMap(&fakeListingService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings/map?west=2&south=48&east=3", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListingsMapPassesViewport(t *testing.T) {
	service := &fakeListingService{}
	handler := ListingsMap(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings/map?west=2&south=48&east=3&north=49&zoom=14&city=Paris", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if service.mapInput == nil || service.mapInput.Zoom != 14 {
		t.Fatalf("map input %+v", service.mapInput)
	}
	if service.mapInput.BBox.East != 3 || service.mapInput.Filters.City != "Paris" {
		t.Fatalf("map input %+v", service.mapInput)
	}
}

func TestSubmitListingRequiresAgencyHeader(t *testing.T) {
	handler := SubmitListing(&fakeListingService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSubmitListingSuccess(t *testing.T) {
	service := &fakeListingService{}
	handler := SubmitListing(service, nil)
	agencyID := uuid.New()

	body := `{
		"title": "T3 lumineux",
		"propertyType": "apartment",
		"price": "320000",
		"surface": 64,
		"rooms": 3,
		"city": "Nantes",
		"postalCode": "44000",
		"location": {"lat": 47.2184, "lng": -1.5536}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings", strings.NewReader(body))
	req.Header.Set(agencyIDHeader, agencyID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if service.submitID != agencyID {
		t.Fatal("agency id not forwarded")
	}
	if service.submitInput.PropertyType != enums.PropertyTypeApartment {
		t.Fatalf("property type = %s", service.submitInput.PropertyType)
	}
	if service.submitInput.Location == nil || service.submitInput.Location.Lat != 47.2184 {
		t.Fatal("location not forwarded")
	}
}

func TestSubmitListingQuotaSurfacesDetails(t *testing.T) {
	service := &fakeListingService{
		submitErr: pkgerrors.New(pkgerrors.CodeQuotaExceeded, "listing quota reached").
			WithDetails(map[string]any{"current": 5, "max": 5, "suggestedUpgrade": enums.PackTierStarter}),
	}
	handler := SubmitListing(service, nil)

	body := `{"title": "T3 lumineux", "propertyType": "apartment", "price": "320000", "surface": 64, "city": "Nantes", "postalCode": "44000"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings", strings.NewReader(body))
	req.Header.Set(agencyIDHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var envelope struct {
		Error struct {
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Details["suggestedUpgrade"] != "starter" {
		t.Fatalf("details = %v", envelope.Error.Details)
	}
}

func TestSubmitListingRejectsBadPrice(t *testing.T) {
	handler := SubmitListing(&fakeListingService{}, nil)

	body := `{"title": "T3 lumineux", "propertyType": "apartment", "price": "-5", "surface": 64, "city": "Nantes", "postalCode": "44000"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings", strings.NewReader(body))
	req.Header.Set(agencyIDHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListingClick(t *testing.T) {
	service := &fakeListingService{}
	listingID := uuid.New()

	r := chi.NewRouter()
	r.Post("/api/v1/listings/{listingID}/click", ListingClick(service, nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/"+listingID.String()+"/click", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if service.clickID != listingID {
		t.Fatal("listing id not forwarded")
	}
	var envelope struct {
		Data listings.ClickResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Data.Billed {
		t.Fatal("expected billed click")
	}
}

func TestListingClickRejectsBadID(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/listings/{listingID}/click", ListingClick(&fakeListingService{}, nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/not-a-uuid/click", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
