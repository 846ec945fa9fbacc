package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/theawareai/stealth/pkg/datastructure"
)

const (
	earthRadiusM = 6371000.0
)

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

func degreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

// CalculateHaversineDistance returns the great-circle distance between two
// points in meters.
func CalculateHaversineDistance(latOne, longOne, latTwo, longTwo float64) float64 {
	latOne = degreeToRadians(latOne)
	longOne = degreeToRadians(longOne)
	latTwo = degreeToRadians(latTwo)
	longTwo = degreeToRadians(longTwo)

	a := havFunction(latOne-latTwo) + math.Cos(latOne)*math.Cos(latTwo)*havFunction(longOne-longTwo)
	c := 2.0 * math.Asin(math.Sqrt(a))
	return earthRadiusM * c
}

// PathLengthMeters sums the geodesic length of a polyline using s2 angles.
func PathLengthMeters(path []datastructure.Coordinate) float64 {
	var total float64
	for i := 0; i < len(path)-1; i++ {
		angle := s2.LatLngFromDegrees(path[i].Lat, path[i].Lon).
			Distance(s2.LatLngFromDegrees(path[i+1].Lat, path[i+1].Lon))
		total += angle.Radians() * earthRadiusM
	}
	return total
}

// InterpolatePoint linearly interpolates between start and end in lat/lon
// space. Good enough for segments on the order of the resampling interval.
func InterpolatePoint(start, end datastructure.Coordinate, ratio float64) datastructure.Coordinate {
	return datastructure.NewCoordinate(
		start.Lat+(end.Lat-start.Lat)*ratio,
		start.Lon+(end.Lon-start.Lon)*ratio,
	)
}
