package ranking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immofind/immofind-backend/pkg/db/models"
	"github.com/immofind/immofind-backend/pkg/enums"
	"github.com/immofind/immofind-backend/pkg/geo"
	"github.com/immofind/immofind-backend/pkg/types"
)

type stubAgencyLookup struct {
	agencies map[uuid.UUID]models.Agency
	calls    [][]uuid.UUID
}

func (s *stubAgencyLookup) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Agency, error) {
	s.calls = append(s.calls, ids)
	out := make(map[uuid.UUID]models.Agency, len(ids))
	for _, id := range ids {
		if agency, ok := s.agencies[id]; ok {
			out[id] = agency
		}
	}
	return out, nil
}

func newEngine(t *testing.T, lookup *stubAgencyLookup, now time.Time) *Engine {
	t.Helper()

	engine, err := NewEngine(lookup, func() time.Time { return now })
	require.NoError(t, err)
	return engine
}

func agencyOnPack(pack enums.PackTier) models.Agency {
	return models.Agency{ID: uuid.New(), SubscriptionPack: pack}
}

func listingFor(agency *models.Agency, price string, created time.Time) models.Listing {
	listing := models.Listing{
		ID:        uuid.New(),
		Status:    enums.ListingStatusActive,
		Price:     decimal.RequireFromString(price),
		CreatedAt: created,
	}
	if agency != nil {
		listing.AgencyID = &agency.ID
	}
	return listing
}

func sponsored(listing models.Listing, from time.Time, d time.Duration) models.Listing {
	until := from.Add(d)
	listing.IsSponsored = true
	listing.SponsoredAt = &from
	listing.SponsoredUntil = &until
	return listing
}

func TestRankSponsoredAlwaysFirst(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	free := agencyOnPack(enums.PackTierFree)
	platinum := agencyOnPack(enums.PackTierPlatinum)
	lookup := &stubAgencyLookup{agencies: map[uuid.UUID]models.Agency{
		free.ID:     free,
		platinum.ID: platinum,
	}}
	engine := newEngine(t, lookup, now)

	cheapPlatinum := listingFor(&platinum, "100000.00", now.Add(-time.Hour))
	sponsoredFree := sponsored(listingFor(&free, "900000.00", now.Add(-2*time.Hour)), now.Add(-time.Hour), 48*time.Hour)

	page, err := engine.Rank(context.Background(), []models.Listing{cheapPlatinum, sponsoredFree}, Params{
		SortKey: enums.SortKeyPrice,
		Order:   enums.SortOrderAsc,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, sponsoredFree.ID, page.Items[0].Listing.ID)
	assert.Equal(t, 100, page.Items[0].Priority)
	assert.Equal(t, 3, page.Items[1].Priority)
}

func TestRankExpiredSponsorshipIgnored(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	free := agencyOnPack(enums.PackTierFree)
	starter := agencyOnPack(enums.PackTierStarter)
	lookup := &stubAgencyLookup{agencies: map[uuid.UUID]models.Agency{
		free.ID:    free,
		starter.ID: starter,
	}}
	engine := newEngine(t, lookup, now)

	// Window elapsed three days ago; the stale flag must not count.
	expired := sponsored(listingFor(&free, "200000.00", now.Add(-100*time.Hour)), now.Add(-120*time.Hour), 48*time.Hour)
	plain := listingFor(&starter, "300000.00", now.Add(-time.Hour))

	page, err := engine.Rank(context.Background(), []models.Listing{expired, plain}, Params{
		SortKey: enums.SortKeyPrice,
		Order:   enums.SortOrderAsc,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, plain.ID, page.Items[0].Listing.ID)
	assert.Equal(t, 0, page.Items[1].Priority)
}

func TestRankPackPriorityOrdersUnsponsored(t *testing.T) {
	now := time.Now().UTC()
	free := agencyOnPack(enums.PackTierFree)
	premium := agencyOnPack(enums.PackTierPremium)
	lookup := &stubAgencyLookup{agencies: map[uuid.UUID]models.Agency{
		free.ID:    free,
		premium.ID: premium,
	}}
	engine := newEngine(t, lookup, now)

	freeListing := listingFor(&free, "100000.00", now)
	premiumListing := listingFor(&premium, "500000.00", now)
	orphan := listingFor(nil, "50000.00", now)

	page, err := engine.Rank(context.Background(), []models.Listing{freeListing, orphan, premiumListing}, Params{
		SortKey: enums.SortKeyPrice,
		Order:   enums.SortOrderAsc,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, premiumListing.ID, page.Items[0].Listing.ID)
	// Equal priority 0: the requested ascending price ordering decides.
	assert.Equal(t, orphan.ID, page.Items[1].Listing.ID)
	assert.Equal(t, freeListing.ID, page.Items[2].Listing.ID)
}

func TestRankRadiusRestrictsAndOrdersByDistance(t *testing.T) {
	now := time.Now().UTC()
	agency := agencyOnPack(enums.PackTierFree)
	lookup := &stubAgencyLookup{agencies: map[uuid.UUID]models.Agency{agency.ID: agency}}
	engine := newEngine(t, lookup, now)

	near := listingFor(&agency, "100000.00", now)
	near.Location = &types.GeographyPoint{Lat: 48.90, Lng: 2.35}
	far := listingFor(&agency, "100000.00", now)
	far.Location = &types.GeographyPoint{Lat: 48.95, Lng: 2.35}
	center := listingFor(&agency, "100000.00", now)
	center.Location = &types.GeographyPoint{Lat: 48.8566, Lng: 2.3522}
	noCoords := listingFor(&agency, "100000.00", now)

	page, err := engine.Rank(context.Background(), []models.Listing{near, far, center, noCoords}, Params{
		SortKey: enums.SortKeyPrice,
		Order:   enums.SortOrderAsc,
		Radius:  &RadiusQuery{Lat: 48.8566, Lng: 2.3522, RadiusKm: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, center.ID, page.Items[0].Listing.ID)
	assert.Equal(t, near.ID, page.Items[1].Listing.ID)
	for _, item := range page.Items {
		require.NotNil(t, item.DistanceKm)
		assert.LessOrEqual(t, *item.DistanceKm, 10.0)
	}
}

func TestRankRadiusDistanceNeverOverridesPriority(t *testing.T) {
	now := time.Now().UTC()
	agency := agencyOnPack(enums.PackTierFree)
	lookup := &stubAgencyLookup{agencies: map[uuid.UUID]models.Agency{agency.ID: agency}}
	engine := newEngine(t, lookup, now)

	nearPlain := listingFor(&agency, "100000.00", now)
	nearPlain.Location = &types.GeographyPoint{Lat: 48.86, Lng: 2.3522}
	farSponsored := sponsored(listingFor(&agency, "100000.00", now), now.Add(-time.Hour), 48*time.Hour)
	farSponsored.Location = &types.GeographyPoint{Lat: 48.90, Lng: 2.35}

	page, err := engine.Rank(context.Background(), []models.Listing{nearPlain, farSponsored}, Params{
		Radius: &RadiusQuery{Lat: 48.8566, Lng: 2.3522, RadiusKm: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, farSponsored.ID, page.Items[0].Listing.ID)
}

func TestRankRadiusDistanceUsesDisplacedPointForApproximate(t *testing.T) {
	now := time.Now().UTC()
	agency := agencyOnPack(enums.PackTierFree)
	lookup := &stubAgencyLookup{agencies: map[uuid.UUID]models.Agency{agency.ID: agency}}
	engine := newEngine(t, lookup, now)

	approx := listingFor(&agency, "100000.00", now)
	approx.Location = &types.GeographyPoint{Lat: 48.90, Lng: 2.35}
	approx.ApproximateLocation = true

	center := RadiusQuery{Lat: 48.8566, Lng: 2.3522, RadiusKm: 20}
	page, err := engine.Rank(context.Background(), []models.Listing{approx}, Params{Radius: &center})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].DistanceKm)

	// The reported distance must match the displaced point a caller can
	// see, not the stored coordinate, so distances from chosen centers
	// cannot triangulate the true point.
	displaced := geo.ObfuscatePoint(approx.ID, *approx.Location)
	wantDisplaced := geo.HaversineKm(center.Lat, center.Lng, displaced.Lat, displaced.Lng)
	fromTrue := geo.HaversineKm(center.Lat, center.Lng, approx.Location.Lat, approx.Location.Lng)
	assert.InDelta(t, wantDisplaced, *page.Items[0].DistanceKm, 1e-9)
	assert.NotEqual(t, fromTrue, *page.Items[0].DistanceKm)
}

func TestRankTieBreaksDeterministic(t *testing.T) {
	now := time.Now().UTC()
	agency := agencyOnPack(enums.PackTierFree)
	lookup := &stubAgencyLookup{agencies: map[uuid.UUID]models.Agency{agency.ID: agency}}
	engine := newEngine(t, lookup, now)

	older := listingFor(&agency, "250000.00", now.Add(-48*time.Hour))
	older.RenovationScore = 4
	newer := listingFor(&agency, "250000.00", now.Add(-time.Hour))
	newer.RenovationScore = 4
	renovated := listingFor(&agency, "250000.00", now.Add(-72*time.Hour))
	renovated.RenovationScore = 9

	page, err := engine.Rank(context.Background(), []models.Listing{older, newer, renovated}, Params{
		SortKey: enums.SortKeyPrice,
		Order:   enums.SortOrderAsc,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, renovated.ID, page.Items[0].Listing.ID)
	assert.Equal(t, newer.ID, page.Items[1].Listing.ID)
	assert.Equal(t, older.ID, page.Items[2].Listing.ID)
}

func TestRankPaginatesAfterFullOrdering(t *testing.T) {
	now := time.Now().UTC()
	agency := agencyOnPack(enums.PackTierFree)
	lookup := &stubAgencyLookup{agencies: map[uuid.UUID]models.Agency{agency.ID: agency}}
	engine := newEngine(t, lookup, now)

	listings := make([]models.Listing, 0, 5)
	for i := 5; i >= 1; i-- {
		listings = append(listings, listingFor(&agency, decimal.NewFromInt(int64(i*100000)).String(), now))
	}

	page, err := engine.Rank(context.Background(), listings, Params{
		SortKey: enums.SortKeyPrice,
		Order:   enums.SortOrderAsc,
		Page:    2,
		Limit:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].Listing.Price.Equal(decimal.NewFromInt(300000)))
	assert.True(t, page.Items[1].Listing.Price.Equal(decimal.NewFromInt(400000)))
}

func TestRankBatchesAgencyLookup(t *testing.T) {
	now := time.Now().UTC()
	a := agencyOnPack(enums.PackTierStarter)
	b := agencyOnPack(enums.PackTierPremium)
	lookup := &stubAgencyLookup{agencies: map[uuid.UUID]models.Agency{a.ID: a, b.ID: b}}
	engine := newEngine(t, lookup, now)

	candidates := []models.Listing{
		listingFor(&a, "100000.00", now),
		listingFor(&a, "200000.00", now),
		listingFor(&b, "300000.00", now),
		listingFor(nil, "400000.00", now),
	}
	_, err := engine.Rank(context.Background(), candidates, Params{SortKey: enums.SortKeyPrice})
	require.NoError(t, err)
	require.Len(t, lookup.calls, 1)
	assert.Len(t, lookup.calls[0], 2)
}

func TestRankAnnotations(t *testing.T) {
	now := time.Now().UTC()
	premium := agencyOnPack(enums.PackTierPremium)
	lookup := &stubAgencyLookup{agencies: map[uuid.UUID]models.Agency{premium.ID: premium}}
	engine := newEngine(t, lookup, now)

	page, err := engine.Rank(context.Background(), []models.Listing{listingFor(&premium, "100000.00", now)}, Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	item := page.Items[0]
	require.NotNil(t, item.AgencyPack)
	assert.Equal(t, enums.PackTierPremium, *item.AgencyPack)
	assert.True(t, item.AgencyBadge)
	assert.True(t, item.MapHighlight)
}
