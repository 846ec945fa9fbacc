package kv_test

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/theawareai/stealth/pkg/datastructure"
	"github.com/theawareai/stealth/pkg/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openKV(t *testing.T) *kv.KVDB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	require.NoError(t, err)
	kvDB := kv.NewKVDB(db)
	t.Cleanup(kvDB.Close)
	return kvDB
}

func record(email string, startLat float64, createdAt time.Time) datastructure.HistoryRecord {
	return datastructure.HistoryRecord{
		Email:    email,
		StartLat: startLat,
		StartLon: -122.0,
		EndLat:   37.1,
		EndLon:   -122.1,
		Geometry: []datastructure.Coordinate{
			{Lat: startLat, Lon: -122.0},
			{Lat: 37.05, Lon: -122.05},
			{Lat: 37.1, Lon: -122.1},
		},
		CreatedAt: createdAt,
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	kvDB := openKV(t)

	saved := record("user@theaware.ai", 37.0, time.Now())
	require.NoError(t, kvDB.SaveHistory(saved))

	got, found, err := kvDB.FindMostRecentHistory("user@theaware.ai")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, saved.Email, got.Email)
	assert.Equal(t, saved.StartLat, got.StartLat)
	assert.Equal(t, saved.EndLon, got.EndLon)
	assert.Equal(t, saved.CreatedAt.UnixNano(), got.CreatedAt.UnixNano())
	require.Len(t, got.Geometry, 3)
	// geometry survives polyline encoding at 1e-5 precision
	assert.InDelta(t, 37.05, got.Geometry[1].Lat, 1e-5)
}

func TestFindMostRecentPicksNewest(t *testing.T) {
	kvDB := openKV(t)

	base := time.Now()
	require.NoError(t, kvDB.SaveHistory(record("user@theaware.ai", 1.0, base.Add(-2*time.Hour))))
	require.NoError(t, kvDB.SaveHistory(record("user@theaware.ai", 2.0, base.Add(-time.Hour))))
	require.NoError(t, kvDB.SaveHistory(record("user@theaware.ai", 3.0, base)))

	got, found, err := kvDB.FindMostRecentHistory("user@theaware.ai")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3.0, got.StartLat)
}

func TestHistoryIsolatedPerRequester(t *testing.T) {
	kvDB := openKV(t)

	require.NoError(t, kvDB.SaveHistory(record("a@theaware.ai", 1.0, time.Now())))

	_, found, err := kvDB.FindMostRecentHistory("b@theaware.ai")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindRecentHistoryLimit(t *testing.T) {
	kvDB := openKV(t)

	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, kvDB.SaveHistory(record("user@theaware.ai", float64(i), base.Add(time.Duration(i)*time.Minute))))
	}

	records, err := kvDB.FindRecentHistory("user@theaware.ai", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 4.0, records[0].StartLat)
	assert.Equal(t, 2.0, records[2].StartLat)
}

func TestUserUpsert(t *testing.T) {
	kvDB := openKV(t)

	_, err := kvDB.FindUserByEmail("user@theaware.ai")
	assert.ErrorIs(t, err, kv.ErrUserNotFound)

	require.NoError(t, kvDB.SaveUser(datastructure.User{
		Email:    "user@theaware.ai",
		FullName: "Route Tester",
	}))
	require.NoError(t, kvDB.SaveUser(datastructure.User{
		Email:     "user@theaware.ai",
		FullName:  "Route Tester",
		AvatarURL: "https://example.com/a.png",
	}))

	user, err := kvDB.FindUserByEmail("user@theaware.ai")
	require.NoError(t, err)
	assert.Equal(t, "Route Tester", user.FullName)
	assert.Equal(t, "https://example.com/a.png", user.AvatarURL)
}
