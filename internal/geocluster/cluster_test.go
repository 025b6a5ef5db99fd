package geocluster

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immofind/immofind-backend/internal/ranking"
	"github.com/immofind/immofind-backend/pkg/db/models"
	"github.com/immofind/immofind-backend/pkg/types"
)

func itemAt(lat, lng float64, priority int) ranking.Item {
	return ranking.Item{
		Listing: models.Listing{
			ID:       uuid.New(),
			Location: &types.GeographyPoint{Lat: lat, Lng: lng},
		},
		Priority: priority,
	}
}

func parisBBox() BoundingBox {
	return BoundingBox{West: 2.2, South: 48.8, East: 2.5, North: 49.0}
}

func TestBuildRejectsInvertedBBox(t *testing.T) {
	cases := []struct {
		name string
		bbox BoundingBox
	}{
		{name: "west east inverted", bbox: BoundingBox{West: 2.5, South: 48.8, East: 2.2, North: 49.0}},
		{name: "west equals east", bbox: BoundingBox{West: 2.2, South: 48.8, East: 2.2, North: 49.0}},
		{name: "south north inverted", bbox: BoundingBox{West: 2.2, South: 49.0, East: 2.5, North: 48.8}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(nil, tc.bbox, 12)
			require.Error(t, err)
		})
	}
}

func TestBuildFourPointsOneCell(t *testing.T) {
	// Zoom 12 uses 0.05 degree cells; all four points share cell (47, 977).
	items := []ranking.Item{
		itemAt(48.861, 2.351, 0),
		itemAt(48.862, 2.352, 0),
		itemAt(48.863, 2.353, 0),
		itemAt(48.864, 2.354, 0),
	}

	result, err := Build(items, parisBBox(), 12)
	require.NoError(t, err)
	require.Len(t, result.Clusters, 1)
	assert.Empty(t, result.Points)

	cluster := result.Clusters[0]
	assert.Equal(t, 4, cluster.Count)
	assert.InDelta(t, 48.8625, cluster.Center.Lat, 1e-9)
	assert.InDelta(t, 2.3525, cluster.Center.Lng, 1e-9)
	assert.Equal(t, 2.351, cluster.BBox.West)
	assert.Equal(t, 2.354, cluster.BBox.East)
	assert.Equal(t, 48.861, cluster.BBox.South)
	assert.Equal(t, 48.864, cluster.BBox.North)
}

func TestBuildSingletonMarkers(t *testing.T) {
	items := []ranking.Item{
		itemAt(48.861, 2.351, 0),
		itemAt(48.95, 2.47, 0),
	}

	result, err := Build(items, parisBBox(), 12)
	require.NoError(t, err)
	assert.Empty(t, result.Clusters)
	assert.Len(t, result.Points, 2)
}

func TestBuildFineZoomEmitsClusterMembersAsPoints(t *testing.T) {
	items := []ranking.Item{
		itemAt(48.8610, 2.3510, 0),
		itemAt(48.8611, 2.3511, 0),
	}

	result, err := Build(items, parisBBox(), 16)
	require.NoError(t, err)
	require.Len(t, result.Clusters, 1)
	assert.Equal(t, 2, result.Clusters[0].Count)
	assert.Len(t, result.Points, 2)
}

func TestBuildCapKeepsSponsoredFirst(t *testing.T) {
	// Zoom 5 caps the pool at 200; the sponsored item sits at the end of the
	// input and must survive the cut.
	items := make([]ranking.Item, 0, 201)
	for i := 0; i < 200; i++ {
		items = append(items, itemAt(48.5+float64(i)*0.001, 2.3, 0))
	}
	sponsoredItem := itemAt(49.9, 3.9, 100)
	items = append(items, sponsoredItem)

	result, err := Build(items, BoundingBox{West: 2.2, South: 48.4, East: 4.0, North: 50.0}, 5)
	require.NoError(t, err)

	found := false
	for _, point := range result.Points {
		if point.ListingID == sponsoredItem.Listing.ID {
			found = true
			assert.True(t, point.Sponsored)
		}
	}
	assert.True(t, found, "sponsored listing starved by the pool cap")
}

func TestBuildObfuscatesApproximateLocations(t *testing.T) {
	listing := models.Listing{
		ID:                  uuid.New(),
		ApproximateLocation: true,
		Location:            &types.GeographyPoint{Lat: 48.8566, Lng: 2.3522},
		CreatedAt:           time.Now(),
	}
	item := ranking.Item{Listing: listing}

	first, err := Build([]ranking.Item{item}, parisBBox(), 14)
	require.NoError(t, err)
	second, err := Build([]ranking.Item{item}, parisBBox(), 14)
	require.NoError(t, err)

	require.Len(t, first.Points, 1)
	require.Len(t, second.Points, 1)
	assert.NotEqual(t, listing.Location.Lat, first.Points[0].Location.Lat)
	assert.Equal(t, first.Points[0].Location, second.Points[0].Location)
}

func TestBuildSkipsListingsWithoutCoordinates(t *testing.T) {
	item := ranking.Item{Listing: models.Listing{ID: uuid.New()}}

	result, err := Build([]ranking.Item{item}, parisBBox(), 12)
	require.NoError(t, err)
	assert.Empty(t, result.Clusters)
	assert.Empty(t, result.Points)
}

func TestCellSizeAndCapStepWithZoom(t *testing.T) {
	assert.Greater(t, CellSize(5), CellSize(12))
	assert.Greater(t, CellSize(12), CellSize(16))
	assert.Less(t, CandidateCap(5), CandidateCap(12))
	assert.Less(t, CandidateCap(12), CandidateCap(16))
}
