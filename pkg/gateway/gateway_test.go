package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/theawareai/stealth/pkg/datastructure"
	"github.com/theawareai/stealth/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAlternatives(t *testing.T) {
	geometry := []datastructure.Coordinate{
		{Lat: 37.0, Lon: -122.0},
		{Lat: 37.05, Lon: -122.05},
		{Lat: 37.1, Lon: -122.1},
	}
	encoded := datastructure.CreatePolyline(geometry)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("alternatives"))
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		resp := map[string]interface{}{
			"status": "OK",
			"routes": []map[string]interface{}{
				{
					"summary":           "US-101 N",
					"overview_polyline": map[string]string{"points": encoded},
					"legs": []map[string]interface{}{
						{
							"distance": map[string]float64{"value": 15200},
							"duration": map[string]float64{"value": 840},
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := gateway.NewGoogleClient(srv.URL, "secret", srv.Client())
	alternatives, err := client.FetchAlternatives(context.Background(),
		datastructure.NewCoordinate(37.0, -122.0), datastructure.NewCoordinate(37.1, -122.1))

	require.NoError(t, err)
	require.Len(t, alternatives, 1)
	assert.Equal(t, "US-101 N", alternatives[0].Summary)
	assert.Equal(t, 15200.0, alternatives[0].DistanceMeters)
	assert.Equal(t, 840.0, alternatives[0].DurationSeconds)
	require.Len(t, alternatives[0].Geometry, 3)
	assert.InDelta(t, 37.05, alternatives[0].Geometry[1].Lat, 1e-5)
}

func TestFetchAlternativesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":        "REQUEST_DENIED",
			"error_message": "The provided API key is invalid",
			"routes":        []interface{}{},
		})
	}))
	defer srv.Close()

	client := gateway.NewGoogleClient(srv.URL, "bad", srv.Client())
	_, err := client.FetchAlternatives(context.Background(),
		datastructure.NewCoordinate(0, 0), datastructure.NewCoordinate(1, 1))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestAnalyzeReturnsVerdictVerbatim(t *testing.T) {
	verdict := `{"best_route":"route_0","aqi":{"route_0":41.5}}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gateway.AnalysisRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, [2]float64{37.0, -122.0}, req.StartLoc)
		assert.Equal(t, 2, req.RouteCount)

		w.Write([]byte(verdict))
	}))
	defer srv.Close()

	client := gateway.NewAnalysisClient(srv.URL, srv.Client())
	got, err := client.Analyze(context.Background(), gateway.AnalysisRequest{
		StartLoc:   [2]float64{37.0, -122.0},
		EndLoc:     [2]float64{37.1, -122.1},
		RouteCount: 2,
		Routes: []gateway.AnalysisRoute{
			{DistanceMeters: 2500, DurationSeconds: 300, Geometry: [][]float64{{37.0, -122.0}}},
			{DistanceMeters: 800, DurationSeconds: 120, Geometry: [][]float64{{37.0, -122.0}}},
		},
	})

	require.NoError(t, err)
	assert.JSONEq(t, verdict, string(got))
}

func TestAnalyzeStatusErrors(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		clientError bool
	}{
		{"bad request", http.StatusBadRequest, true},
		{"unprocessable", http.StatusUnprocessableEntity, true},
		{"internal error", http.StatusInternalServerError, false},
		{"bad gateway", http.StatusBadGateway, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
				w.Write([]byte(`{"detail":"something went wrong"}`))
			}))
			defer srv.Close()

			client := gateway.NewAnalysisClient(srv.URL, srv.Client())
			_, err := client.Analyze(context.Background(), gateway.AnalysisRequest{})

			var statusErr *gateway.UpstreamStatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, c.status, statusErr.StatusCode)
			assert.Equal(t, c.clientError, statusErr.IsClientError())
			assert.Contains(t, statusErr.Detail, "something went wrong")
		})
	}
}

func TestPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gateway.PredictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 37.0, req.SLat)
		assert.Equal(t, -122.1, req.DLon)

		w.Write([]byte(`{"aqi_next_hour":57}`))
	}))
	defer srv.Close()

	client := gateway.NewPredictClient(srv.URL, srv.Client())
	got, err := client.Predict(context.Background(), gateway.PredictRequest{
		SLat: 37.0, SLon: -122.0, DLat: 37.1, DLon: -122.1,
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"aqi_next_hour":57}`, string(got))
}
