package geo

import (
	"github.com/theawareai/stealth/pkg/datastructure"
	"github.com/theawareai/stealth/pkg/util"
)

const (
	coordinatePrecision = 6
)

func RoundCoordinate(c datastructure.Coordinate) datastructure.Coordinate {
	return datastructure.NewCoordinate(
		util.RoundFloat(c.Lat, coordinatePrecision),
		util.RoundFloat(c.Lon, coordinatePrecision),
	)
}

// Resample walks the polyline and emits points spaced intervalMeters apart
// along the path. The first input point is always emitted (rounded). The last
// input point is only emitted when it lands exactly on an interval boundary,
// this is fixed-interval sampling, not resampling to N points.
func Resample(path []datastructure.Coordinate, intervalMeters float64) []datastructure.Coordinate {
	resampled := make([]datastructure.Coordinate, 0, len(path))
	if len(path) == 0 {
		return resampled
	}
	resampled = append(resampled, RoundCoordinate(path[0]))

	accumulatedDist := 0.0
	for i := 0; i < len(path)-1; i++ {
		start := path[i]
		end := path[i+1]
		segmentDist := CalculateHaversineDistance(start.Lat, start.Lon, end.Lat, end.Lon)

		// one input segment can span multiple intervals
		for accumulatedDist+segmentDist >= intervalMeters {
			remainingNeeded := intervalMeters - accumulatedDist
			ratio := remainingNeeded / segmentDist

			next := InterpolatePoint(start, end, ratio)
			resampled = append(resampled, RoundCoordinate(next))

			start = next
			segmentDist -= remainingNeeded
			accumulatedDist = 0.0
		}
		accumulatedDist += segmentDist
	}
	return resampled
}
