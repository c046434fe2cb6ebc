package validation

import (
	"fmt"

	"github.com/iudanet/mapsync/internal/models"
)

const (
	// MinPolygonPoints is the smallest ring that encloses an area.
	MinPolygonPoints = 3

	MinLongitude = -180.0
	MaxLongitude = 180.0
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
)

// ValidatePoints checks that every element is a [lng, lat] pair of two
// numbers. The first malformed pair is reported with its index.
func ValidatePoints(coords models.Coordinates) error {
	for i, point := range coords {
		if len(point) != 2 {
			return fmt.Errorf("invalid coordinate at index %d", i)
		}
	}
	return nil
}

// ValidateRing checks a polygon ring: at least MinPolygonPoints vertices,
// each a well-formed pair.
func ValidateRing(coords models.Coordinates) error {
	if len(coords) < MinPolygonPoints {
		return fmt.Errorf("a polygon needs at least %d points, got %d", MinPolygonPoints, len(coords))
	}
	return ValidatePoints(coords)
}

// OutOfRangeIndexes returns the indexes of pairs whose longitude or
// latitude falls outside the WGS84 range. Out-of-range points are a soft
// condition: callers log them but do not reject the request.
func OutOfRangeIndexes(coords models.Coordinates) []int {
	var out []int
	for i, point := range coords {
		if len(point) != 2 {
			continue
		}
		lng, lat := point[0], point[1]
		if lng < MinLongitude || lng > MaxLongitude || lat < MinLatitude || lat > MaxLatitude {
			out = append(out, i)
		}
	}
	return out
}
