package listings

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/immofind/immofind-backend/internal/geocluster"
	"github.com/immofind/immofind-backend/internal/ranking"
	"github.com/immofind/immofind-backend/pkg/enums"
	"github.com/immofind/immofind-backend/pkg/types"
)

// SearchFilters are the conventional query-builder knobs applied before
// ranking. Only active listings are ever searched.
type SearchFilters struct {
	Query            string
	City             string
	PostalCode       string
	PropertyTypes    []enums.PropertyType
	PriceMin         *decimal.Decimal
	PriceMax         *decimal.Decimal
	SurfaceMin       *float64
	SurfaceMax       *float64
	RoomsMin         *int
	RenovationMin    *int
	AnnualEnergyMax  *float64
	DPEClasses       []enums.EnergyClass
	GESClasses       []enums.EnergyClass
	InCoproperty     *bool
}

// SearchInput is a full search request: filters plus ordering and paging.
type SearchInput struct {
	Filters SearchFilters
	SortKey enums.SortKey
	Order   enums.SortOrder
	Radius  *ranking.RadiusQuery
	Page    int
	Limit   int
}

// MapViewInput is a viewport aggregation request.
type MapViewInput struct {
	BBox    geocluster.BoundingBox
	Zoom    int
	Filters SearchFilters
}

// ListingSummary is the public shape of a ranked listing. The location is
// already obfuscated for approximate-location listings.
type ListingSummary struct {
	ID              uuid.UUID             `json:"id"`
	Title           string                `json:"title"`
	City            string                `json:"city"`
	PostalCode      string                `json:"postalCode"`
	PropertyType    enums.PropertyType    `json:"propertyType"`
	Price           decimal.Decimal       `json:"price"`
	Surface         float64               `json:"surface"`
	Rooms           int                   `json:"rooms"`
	RenovationScore int                   `json:"renovationScore"`
	Location        *types.GeographyPoint `json:"location,omitempty"`
	Sponsored       bool                  `json:"sponsored"`
	DistanceKm      *float64              `json:"distanceKm,omitempty"`
	AgencyBadge     bool                  `json:"agencyBadge"`
	AgencyPack      *enums.PackTier       `json:"agencyPack,omitempty"`
	MapHighlight    bool                  `json:"mapHighlight"`
}

// SearchResult is an ordered page of summaries.
type SearchResult struct {
	Items []ListingSummary `json:"items"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}
