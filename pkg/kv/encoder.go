package kv

import (
	"time"

	"github.com/kelindar/binary"
	"github.com/theawareai/stealth/pkg/datastructure"
)

// geometry is stored polyline-encoded, it is an order of magnitude smaller
// than raw float pairs for typical route overviews.
type historyValue struct {
	Email     string
	StartLat  float64
	StartLon  float64
	EndLat    float64
	EndLon    float64
	Polyline  []byte
	CreatedAt int64
}

func encodeHistory(record datastructure.HistoryRecord) ([]byte, error) {
	return binary.Marshal(historyValue{
		Email:     record.Email,
		StartLat:  record.StartLat,
		StartLon:  record.StartLon,
		EndLat:    record.EndLat,
		EndLon:    record.EndLon,
		Polyline:  datastructure.SerializeCoordinates(record.Geometry),
		CreatedAt: record.CreatedAt.UnixNano(),
	})
}

func decodeHistory(val []byte) (datastructure.HistoryRecord, error) {
	var stored historyValue
	if err := binary.Unmarshal(val, &stored); err != nil {
		return datastructure.HistoryRecord{}, err
	}

	geometry, err := datastructure.DeserializeCoordinates(stored.Polyline)
	if err != nil {
		return datastructure.HistoryRecord{}, err
	}

	return datastructure.HistoryRecord{
		Email:     stored.Email,
		StartLat:  stored.StartLat,
		StartLon:  stored.StartLon,
		EndLat:    stored.EndLat,
		EndLon:    stored.EndLon,
		Geometry:  geometry,
		CreatedAt: time.Unix(0, stored.CreatedAt),
	}, nil
}

func encodeUser(user datastructure.User) ([]byte, error) {
	return binary.Marshal(user)
}

func decodeUser(val []byte) (datastructure.User, error) {
	var user datastructure.User
	err := binary.Unmarshal(val, &user)
	return user, err
}
