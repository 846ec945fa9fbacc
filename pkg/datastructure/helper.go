package datastructure

import (
	"github.com/twpayne/go-polyline"
)

func CreatePolyline(path []Coordinate) string {
	coords := make([][]float64, 0, len(path))
	for _, p := range path {
		coords = append(coords, []float64{p.Lat, p.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}

func DecodePolyline(encoded string) ([]Coordinate, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	path := make([]Coordinate, len(coords))
	for i, c := range coords {
		path[i] = NewCoordinate(c[0], c[1])
	}
	return path, nil
}

func SerializeCoordinates(coords []Coordinate) []byte {
	return []byte(CreatePolyline(coords))
}

func DeserializeCoordinates(data []byte) ([]Coordinate, error) {
	return DecodePolyline(string(data))
}
