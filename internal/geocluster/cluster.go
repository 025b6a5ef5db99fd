package geocluster

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/immofind/immofind-backend/internal/ranking"
	"github.com/immofind/immofind-backend/pkg/enums"
	pkgerrors "github.com/immofind/immofind-backend/pkg/errors"
	"github.com/immofind/immofind-backend/pkg/geo"
	"github.com/immofind/immofind-backend/pkg/types"
)

// pointsAlongsideZoom is the zoom from which cluster members are also
// emitted as individual points, letting the renderer choose either
// representation.
const pointsAlongsideZoom = 15

// BoundingBox is a west/south/east/north viewport in degrees.
type BoundingBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Validate rejects inverted boxes before any store access.
func (b BoundingBox) Validate() error {
	if b.West >= b.East {
		return pkgerrors.New(pkgerrors.CodeValidation, "bounding box west must be less than east")
	}
	if b.South >= b.North {
		return pkgerrors.New(pkgerrors.CodeValidation, "bounding box south must be less than north")
	}
	return nil
}

// Cluster aggregates the listings that fell into one grid cell.
type Cluster struct {
	Count  int                  `json:"count"`
	Center types.GeographyPoint `json:"center"`
	BBox   BoundingBox          `json:"bbox"`
}

// Point is a single map marker.
type Point struct {
	ListingID    uuid.UUID            `json:"listingId"`
	Location     types.GeographyPoint `json:"location"`
	Sponsored    bool                 `json:"sponsored"`
	MapHighlight bool                 `json:"mapHighlight"`
	AgencyPack   *enums.PackTier      `json:"agencyPack,omitempty"`
}

// Result is the full map-view payload.
type Result struct {
	Clusters []Cluster   `json:"clusters"`
	Points   []Point     `json:"points"`
	BBox     BoundingBox `json:"bbox"`
	Zoom     int         `json:"zoom"`
}

// CandidateCap bounds the candidate pool per request. Coarse zooms need only
// enough points to seed clusters; fine zooms render individual markers.
func CandidateCap(zoom int) int {
	switch {
	case zoom <= 8:
		return 200
	case zoom <= 12:
		return 500
	case zoom <= 14:
		return 1000
	default:
		return 2000
	}
}

// CellSize returns the grid-cell edge length in degrees for a zoom level.
func CellSize(zoom int) float64 {
	switch {
	case zoom <= 8:
		return 0.5
	case zoom <= 10:
		return 0.2
	case zoom <= 12:
		return 0.05
	case zoom <= 14:
		return 0.02
	default:
		return 0.005
	}
}

type cellKey struct {
	col int
	row int
}

// Build bins enriched candidates into a zoom-scaled grid. Candidates are
// pre-sorted by priority so the pool cap never starves sponsored or
// high-tier listings, and approximate locations are displaced before any
// coordinate is binned or returned.
func Build(items []ranking.Item, bbox BoundingBox, zoom int) (*Result, error) {
	if err := bbox.Validate(); err != nil {
		return nil, err
	}

	ranked := make([]ranking.Item, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Priority > ranked[j].Priority
	})
	if poolCap := CandidateCap(zoom); len(ranked) > poolCap {
		ranked = ranked[:poolCap]
	}

	cellSize := CellSize(zoom)
	cells := make(map[cellKey][]markedPoint)
	order := make([]cellKey, 0)
	for _, item := range ranked {
		listing := item.Listing
		if listing.Location == nil {
			continue
		}
		location := *listing.Location
		if listing.ApproximateLocation {
			location = geo.ObfuscatePoint(listing.ID, location)
		}
		key := cellKey{
			col: int(math.Floor(location.Lng / cellSize)),
			row: int(math.Floor(location.Lat / cellSize)),
		}
		if _, seen := cells[key]; !seen {
			order = append(order, key)
		}
		cells[key] = append(cells[key], markedPoint{
			point: Point{
				ListingID:    listing.ID,
				Location:     location,
				Sponsored:    item.Priority >= 100,
				MapHighlight: item.MapHighlight,
				AgencyPack:   item.AgencyPack,
			},
		})
	}

	result := &Result{
		Clusters: make([]Cluster, 0, len(order)),
		Points:   make([]Point, 0),
		BBox:     bbox,
		Zoom:     zoom,
	}
	for _, key := range order {
		members := cells[key]
		if len(members) == 1 {
			result.Points = append(result.Points, members[0].point)
			continue
		}
		result.Clusters = append(result.Clusters, clusterOf(members))
		if zoom >= pointsAlongsideZoom {
			for _, member := range members {
				result.Points = append(result.Points, member.point)
			}
		}
	}
	return result, nil
}

type markedPoint struct {
	point Point
}

func clusterOf(members []markedPoint) Cluster {
	var sumLat, sumLng float64
	box := BoundingBox{
		West:  math.Inf(1),
		South: math.Inf(1),
		East:  math.Inf(-1),
		North: math.Inf(-1),
	}
	for _, member := range members {
		loc := member.point.Location
		sumLat += loc.Lat
		sumLng += loc.Lng
		box.West = math.Min(box.West, loc.Lng)
		box.East = math.Max(box.East, loc.Lng)
		box.South = math.Min(box.South, loc.Lat)
		box.North = math.Max(box.North, loc.Lat)
	}
	n := float64(len(members))
	return Cluster{
		Count: len(members),
		Center: types.GeographyPoint{
			Lat: sumLat / n,
			Lng: sumLng / n,
		},
		BBox: box,
	}
}
