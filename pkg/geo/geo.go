package geo

import (
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/immofind/immofind-backend/pkg/types"
)

const (
	earthRadiusKm = 6371.0

	minOffsetMeters = 50.0
	maxOffsetMeters = 150.0

	metersPerDegreeLat = 111320.0
)

// HaversineKm returns the great-circle distance between two coordinates in
// kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ObfuscatePoint displaces a coordinate by a pseudo-random offset derived
// from the listing id: bearing uniform over the circle, radius uniform in
// [50m, 150m]. The same id always yields the same displaced point, so a
// marker never jumps between requests, while the true coordinate is not
// recoverable without the id-to-offset mapping.
func ObfuscatePoint(id uuid.UUID, point types.GeographyPoint) types.GeographyPoint {
	rng := rand.New(rand.NewSource(seedFromID(id)))

	bearing := rng.Float64() * 2 * math.Pi
	meters := minOffsetMeters + rng.Float64()*(maxOffsetMeters-minOffsetMeters)

	dLat := meters * math.Cos(bearing) / metersPerDegreeLat
	latRad := point.Lat * math.Pi / 180
	dLng := meters * math.Sin(bearing) / (metersPerDegreeLat * math.Cos(latRad))

	return types.GeographyPoint{
		Lat: point.Lat + dLat,
		Lng: point.Lng + dLng,
	}
}

func seedFromID(id uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(id[:])
	return int64(h.Sum64())
}
