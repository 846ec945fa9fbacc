package datastructure

import "time"

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

func NewCoordinates(lat, lon []float64) []Coordinate {
	coords := make([]Coordinate, len(lat))
	for i := range lat {
		coords[i] = NewCoordinate(lat[i], lon[i])
	}
	return coords
}

// RouteAlternative is one candidate route returned by the directions provider.
// Geometry is the decoded overview polyline, in provider order.
type RouteAlternative struct {
	Geometry        []Coordinate
	DistanceMeters  float64
	DurationSeconds float64
	Summary         string
}

func NewRouteAlternative(geometry []Coordinate, distanceMeters, durationSeconds float64, summary string) RouteAlternative {
	return RouteAlternative{
		Geometry:        geometry,
		DistanceMeters:  distanceMeters,
		DurationSeconds: durationSeconds,
		Summary:         summary,
	}
}

type HistoryRecord struct {
	Email     string
	StartLat  float64
	StartLon  float64
	EndLat    float64
	EndLon    float64
	Geometry  []Coordinate
	CreatedAt time.Time
}

type User struct {
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
}
