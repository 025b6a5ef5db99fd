package ranking

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/immofind/immofind-backend/internal/packs"
	"github.com/immofind/immofind-backend/pkg/db/models"
	"github.com/immofind/immofind-backend/pkg/enums"
	pkgerrors "github.com/immofind/immofind-backend/pkg/errors"
	"github.com/immofind/immofind-backend/pkg/geo"
)

// sponsoredPriority dominates any pack display priority (max 3), so a live
// sponsorship always outranks an unsponsored platinum listing.
const sponsoredPriority = 100

const (
	defaultLimit = 20
	maxLimit     = 100
)

type agencyLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Agency, error)
}

// RadiusQuery restricts and orders candidates around a center point.
type RadiusQuery struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// Params describe the requested ordering and page.
type Params struct {
	SortKey enums.SortKey
	Order   enums.SortOrder
	Radius  *RadiusQuery
	Page    int
	Limit   int
}

// Item is a listing annotated with everything the ordering decided on, so
// callers can render badges without re-deriving pack state.
type Item struct {
	Listing      models.Listing
	Priority     int
	DistanceKm   *float64
	AgencyPack   *enums.PackTier
	AgencyBadge  bool
	MapHighlight bool
}

// Page is a fully ordered slice of the candidate set. Total counts the whole
// ordered set, not just the returned window.
type Page struct {
	Items []Item
	Total int
	Page  int
	Limit int
}

// Engine computes the total order over filtered candidates: sponsorship
// first, then pack priority, then the requested sort. Pure and read-only
// apart from the batched agency enrichment.
type Engine struct {
	agencies agencyLookup
	now      func() time.Time
}

func NewEngine(agencies agencyLookup, now func() time.Time) (*Engine, error) {
	if agencies == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "agency lookup required")
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{agencies: agencies, now: now}, nil
}

// Rank enriches, orders, and pages the candidate set. The full ordering is
// always established before the page window is cut.
func (e *Engine) Rank(ctx context.Context, candidates []models.Listing, params Params) (*Page, error) {
	items, err := e.Enrich(ctx, candidates)
	if err != nil {
		return nil, err
	}

	if params.Radius != nil {
		items = restrictToRadius(items, *params.Radius)
	}

	Order(items, params)

	page, limit := normalizePage(params.Page, params.Limit)
	total := len(items)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &Page{
		Items: items[start:end],
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// Enrich resolves each candidate's owning agency in one batched lookup and
// stamps priority and pack annotations. Listings without an agency rank at
// pack priority 0.
func (e *Engine) Enrich(ctx context.Context, candidates []models.Listing) ([]Item, error) {
	agenciesByID, err := e.lookupAgencies(ctx, candidates)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	items := make([]Item, 0, len(candidates))
	for _, listing := range candidates {
		item := Item{Listing: listing}
		if listing.SponsoredNow(now) {
			item.Priority = sponsoredPriority
		}
		if listing.AgencyID != nil {
			if agency, ok := agenciesByID[*listing.AgencyID]; ok {
				cfg := packs.ConfigFor(agency.SubscriptionPack)
				pack := cfg.Tier
				item.AgencyPack = &pack
				item.AgencyBadge = cfg.HasFeature(packs.FeatureAgencyBadge)
				item.MapHighlight = cfg.MapHighlight
				item.Priority += cfg.DisplayPriority
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (e *Engine) lookupAgencies(ctx context.Context, candidates []models.Listing) (map[uuid.UUID]models.Agency, error) {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, listing := range candidates {
		if listing.AgencyID == nil {
			continue
		}
		if _, ok := seen[*listing.AgencyID]; ok {
			continue
		}
		seen[*listing.AgencyID] = struct{}{}
		ids = append(ids, *listing.AgencyID)
	}
	if len(ids) == 0 {
		return map[uuid.UUID]models.Agency{}, nil
	}
	agenciesByID, err := e.agencies.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "batch load agencies")
	}
	return agenciesByID, nil
}

// restrictToRadius drops candidates outside the great-circle radius and
// listings without coordinates, stamping each survivor's distance. For
// approximate-location listings the distance is measured from the displaced
// point the caller sees, never from the true coordinate.
func restrictToRadius(items []Item, radius RadiusQuery) []Item {
	within := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Listing.Location == nil {
			continue
		}
		point := *item.Listing.Location
		if item.Listing.ApproximateLocation {
			point = geo.ObfuscatePoint(item.Listing.ID, point)
		}
		d := geo.HaversineKm(radius.Lat, radius.Lng, point.Lat, point.Lng)
		if d > radius.RadiusKm {
			continue
		}
		dist := d
		item.DistanceKm = &dist
		within = append(within, item)
	}
	return within
}

// Order sorts items in place: priority descending, then distance ascending
// for radius queries or the requested sort key otherwise, then renovation
// score and submission date as fixed tie-breaks.
func Order(items []Item, params Params) {
	desc := params.Order == enums.SortOrderDesc
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}

		if params.Radius != nil {
			if c := compareDistance(a, b); c != 0 {
				return c < 0
			}
		} else {
			if c := compareByKey(a.Listing, b.Listing, params.SortKey); c != 0 {
				if desc {
					return c > 0
				}
				return c < 0
			}
		}

		if params.SortKey != enums.SortKeyRenovation {
			if a.Listing.RenovationScore != b.Listing.RenovationScore {
				return a.Listing.RenovationScore > b.Listing.RenovationScore
			}
		}
		if params.SortKey != enums.SortKeyDate {
			if !a.Listing.CreatedAt.Equal(b.Listing.CreatedAt) {
				return a.Listing.CreatedAt.After(b.Listing.CreatedAt)
			}
		}
		return false
	})
}

func compareDistance(a, b Item) int {
	switch {
	case a.DistanceKm == nil && b.DistanceKm == nil:
		return 0
	case a.DistanceKm == nil:
		return 1
	case b.DistanceKm == nil:
		return -1
	case *a.DistanceKm < *b.DistanceKm:
		return -1
	case *a.DistanceKm > *b.DistanceKm:
		return 1
	default:
		return 0
	}
}

func compareByKey(a, b models.Listing, key enums.SortKey) int {
	switch key {
	case enums.SortKeySurface:
		return compareFloat(a.Surface, b.Surface)
	case enums.SortKeyRenovation:
		return compareInt(a.RenovationScore, b.RenovationScore)
	case enums.SortKeyDate:
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		default:
			return 0
		}
	default:
		return a.Price.Cmp(b.Price)
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
