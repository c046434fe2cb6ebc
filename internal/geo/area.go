package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/iudanet/mapsync/internal/models"
	"github.com/iudanet/mapsync/internal/validation"
)

// Area display units.
const (
	UnitSquareMeters     = "m²"
	UnitSquareKilometers = "km²"

	squareMetersPerKm2 = 1_000_000.0
)

// AreaResult is a positive area with the unit it should be displayed in.
type AreaResult struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// SizeKm2 normalizes the result to square kilometers regardless of unit.
func (r AreaResult) SizeKm2() float64 {
	if r.Unit == UnitSquareKilometers {
		return r.Value
	}
	return r.Value / squareMetersPerKm2
}

// PolygonArea computes the spherical surface area enclosed by the ring.
// The ring is closed automatically when the last vertex differs from the
// first. Areas below one km² are reported in whole square meters (at least
// 1), larger ones in km² rounded to two decimals.
func PolygonArea(coords models.Coordinates) (AreaResult, error) {
	if err := validation.ValidateRing(coords); err != nil {
		return AreaResult{}, fmt.Errorf("calculate area: %w", err)
	}

	ring := make(orb.Ring, 0, len(coords)+1)
	for _, point := range coords {
		ring = append(ring, orb.Point{point[0], point[1]})
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}

	sqMeters := math.Abs(geo.Area(orb.Polygon{ring}))

	if sqMeters < squareMetersPerKm2 {
		return AreaResult{
			Value: math.Max(1, math.Round(sqMeters)),
			Unit:  UnitSquareMeters,
		}, nil
	}
	return AreaResult{
		Value: math.Round(sqMeters/squareMetersPerKm2*100) / 100,
		Unit:  UnitSquareKilometers,
	}, nil
}

// SizeKm2 computes the polygon area directly in km², falling back to zero
// when the ring is degenerate. Used when persisting polygons whose size was
// not supplied by the client.
func SizeKm2(coords models.Coordinates) float64 {
	result, err := PolygonArea(coords)
	if err != nil {
		return 0
	}
	return result.SizeKm2()
}
