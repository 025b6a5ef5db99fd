package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/immofind/immofind-backend/api/responses"
	"github.com/immofind/immofind-backend/api/validators"
	"github.com/immofind/immofind-backend/internal/geocluster"
	"github.com/immofind/immofind-backend/internal/listings"
	"github.com/immofind/immofind-backend/internal/ranking"
	"github.com/immofind/immofind-backend/pkg/enums"
	pkgerrors "github.com/immofind/immofind-backend/pkg/errors"
	"github.com/immofind/immofind-backend/pkg/logger"
	"github.com/immofind/immofind-backend/pkg/metrics"
	"github.com/immofind/immofind-backend/pkg/types"
)

const agencyIDHeader = "X-Agency-Id"

// SearchListings serves the ranked, filtered result list.
func SearchListings(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		input, err := parseSearchInput(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Search(ctx, *input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListingsMap serves the clustered viewport used by the map front end.
func ListingsMap(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		filters, err := parseSearchFilters(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		bbox, err := parseBoundingBox(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		zoom, err := validators.ParseQueryInt(r, "zoom", 12, 1, 22)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.MapView(ctx, listings.MapViewInput{
			BBox:    *bbox,
			Zoom:    zoom,
			Filters: *filters,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type locationPayload struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

type submitListingRequest struct {
	Title               string           `json:"title" validate:"required,min=3,max=200"`
	Description         string           `json:"description" validate:"max=10000"`
	PropertyType        string           `json:"propertyType" validate:"required"`
	Price               string           `json:"price" validate:"required"`
	Surface             float64          `json:"surface" validate:"gt=0"`
	Rooms               int              `json:"rooms" validate:"min=0,max=50"`
	RenovationScore     int              `json:"renovationScore" validate:"min=0,max=100"`
	AnnualEnergyCost    float64          `json:"annualEnergyCost" validate:"min=0"`
	DPEClass            *string          `json:"dpeClass"`
	GESClass            *string          `json:"gesClass"`
	InCoproperty        bool             `json:"inCoproperty"`
	City                string           `json:"city" validate:"required"`
	PostalCode          string           `json:"postalCode" validate:"required"`
	Department          string           `json:"department"`
	Location            *locationPayload `json:"location"`
	ApproximateLocation bool             `json:"approximateLocation"`
}

// SubmitListing creates a listing for the calling agency, enforcing the
// pack quota and applying the pack's automatic boost.
func SubmitListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agencyID, err := validators.ParseUUIDHeader(r, agencyIDHeader)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body submitListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		listing, err := svc.Submit(ctx, agencyID, *input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

func (b submitListingRequest) toInput() (*listings.SubmitInput, error) {
	propertyType, err := enums.ParsePropertyType(b.PropertyType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid property type")
	}
	price, err := decimal.NewFromString(b.Price)
	if err != nil || price.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be a positive amount")
	}

	input := &listings.SubmitInput{
		Title:               b.Title,
		Description:         b.Description,
		PropertyType:        propertyType,
		Price:               price,
		Surface:             b.Surface,
		Rooms:               b.Rooms,
		RenovationScore:     b.RenovationScore,
		AnnualEnergyCost:    b.AnnualEnergyCost,
		InCoproperty:        b.InCoproperty,
		City:                b.City,
		PostalCode:          b.PostalCode,
		Department:          b.Department,
		ApproximateLocation: b.ApproximateLocation,
	}
	if b.DPEClass != nil {
		class, err := enums.ParseEnergyClass(*b.DPEClass)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dpe class")
		}
		input.DPEClass = &class
	}
	if b.GESClass != nil {
		class, err := enums.ParseEnergyClass(*b.GESClass)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ges class")
		}
		input.GESClass = &class
	}
	if b.Location != nil {
		input.Location = &types.GeographyPoint{Lat: b.Location.Lat, Lng: b.Location.Lng}
	}
	return input, nil
}

// ListingClick records a click on a listing and, when the listing is
// sponsored, debits the owning agency.
func ListingClick(svc listings.Service, cpcMetrics *metrics.CPCMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		listingID, err := validators.ParseUUIDParam(chi.URLParam(r, "listingID"), "listingID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.RecordClick(ctx, listingID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if cpcMetrics != nil {
			outcome := result.Reason
			if result.Billed {
				outcome = "billed"
			}
			cpcMetrics.IncDebit(outcome)
		}
		responses.WriteSuccess(w, result)
	}
}

func parseSearchInput(r *http.Request) (*listings.SearchInput, error) {
	filters, err := parseSearchFilters(r)
	if err != nil {
		return nil, err
	}

	input := &listings.SearchInput{Filters: *filters}

	if raw := r.URL.Query().Get("sort"); raw != "" {
		key, err := enums.ParseSortKey(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort key")
		}
		input.SortKey = key
	}
	if raw := r.URL.Query().Get("order"); raw != "" {
		order, err := enums.ParseSortOrder(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort order")
		}
		input.Order = order
	}

	input.Page, err = validators.ParseQueryInt(r, "page", 1, 1, 10000)
	if err != nil {
		return nil, err
	}
	input.Limit, err = validators.ParseQueryInt(r, "limit", 0, 1, 100)
	if err != nil {
		return nil, err
	}

	lat, err := validators.ParseQueryFloat(r, "lat")
	if err != nil {
		return nil, err
	}
	lng, err := validators.ParseQueryFloat(r, "lng")
	if err != nil {
		return nil, err
	}
	radius, err := validators.ParseQueryFloat(r, "radius_km")
	if err != nil {
		return nil, err
	}
	if radius != nil {
		if lat == nil || lng == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "radius search requires lat and lng")
		}
		if *radius <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "radius must be positive")
		}
		input.Radius = &ranking.RadiusQuery{Lat: *lat, Lng: *lng, RadiusKm: *radius}
	}
	return input, nil
}

func parseSearchFilters(r *http.Request) (*listings.SearchFilters, error) {
	query := r.URL.Query()
	filters := &listings.SearchFilters{
		Query:      query.Get("q"),
		City:       query.Get("city"),
		PostalCode: query.Get("postal_code"),
	}

	for _, raw := range validators.ParseQueryList(r, "property_types") {
		propertyType, err := enums.ParsePropertyType(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid property type")
		}
		filters.PropertyTypes = append(filters.PropertyTypes, propertyType)
	}
	for _, raw := range validators.ParseQueryList(r, "dpe") {
		class, err := enums.ParseEnergyClass(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dpe class")
		}
		filters.DPEClasses = append(filters.DPEClasses, class)
	}
	for _, raw := range validators.ParseQueryList(r, "ges") {
		class, err := enums.ParseEnergyClass(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ges class")
		}
		filters.GESClasses = append(filters.GESClasses, class)
	}

	for key, target := range map[string]**decimal.Decimal{
		"price_min": &filters.PriceMin,
		"price_max": &filters.PriceMax,
	} {
		raw := query.Get(key)
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
		}
		*target = &value
	}

	var err error
	if filters.SurfaceMin, err = validators.ParseQueryFloat(r, "surface_min"); err != nil {
		return nil, err
	}
	if filters.SurfaceMax, err = validators.ParseQueryFloat(r, "surface_max"); err != nil {
		return nil, err
	}
	if filters.AnnualEnergyMax, err = validators.ParseQueryFloat(r, "energy_cost_max"); err != nil {
		return nil, err
	}
	if query.Get("rooms_min") != "" {
		rooms, err := validators.ParseQueryInt(r, "rooms_min", 0, 0, 50)
		if err != nil {
			return nil, err
		}
		filters.RoomsMin = &rooms
	}
	if query.Get("renovation_min") != "" {
		renovation, err := validators.ParseQueryInt(r, "renovation_min", 0, 0, 100)
		if err != nil {
			return nil, err
		}
		filters.RenovationMin = &renovation
	}
	if filters.InCoproperty, err = validators.ParseQueryBool(r, "in_coproperty"); err != nil {
		return nil, err
	}
	return filters, nil
}

func parseBoundingBox(r *http.Request) (*geocluster.BoundingBox, error) {
	coords := map[string]*float64{}
	for _, key := range []string{"west", "south", "east", "north"} {
		value, err := validators.ParseQueryFloat(r, key)
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "bounding box is required").WithDetails(map[string]any{"field": key})
		}
		coords[key] = value
	}
	return &geocluster.BoundingBox{
		West:  *coords["west"],
		South: *coords["south"],
		East:  *coords["east"],
		North: *coords["north"],
	}, nil
}
