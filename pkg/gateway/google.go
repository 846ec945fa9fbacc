package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/theawareai/stealth/pkg/datastructure"
)

// GoogleClient fetches alternative route geometries from a Google
// Directions style endpoint.
type GoogleClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewGoogleClient(baseURL, apiKey string, httpClient *http.Client) *GoogleClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &GoogleClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type directionsResponse struct {
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message"`
	Routes       []directionsRoute `json:"routes"`
}

type directionsRoute struct {
	Summary          string `json:"summary"`
	OverviewPolyline struct {
		Points string `json:"points"`
	} `json:"overview_polyline"`
	Legs []directionsLeg `json:"legs"`
}

type directionsLeg struct {
	Distance struct {
		Value float64 `json:"value"`
	} `json:"distance"`
	Duration struct {
		Value float64 `json:"value"`
	} `json:"duration"`
}

// FetchAlternatives requests all alternative routes between origin and
// destination and decodes each overview polyline.
func (c *GoogleClient) FetchAlternatives(ctx context.Context, origin, destination datastructure.Coordinate) ([]datastructure.RouteAlternative, error) {
	q := url.Values{}
	q.Set("origin", fmt.Sprintf("%f,%f", origin.Lat, origin.Lon))
	q.Set("destination", fmt.Sprintf("%f,%f", destination.Lat, destination.Lon))
	q.Set("alternatives", "true")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directions provider returned status %d", resp.StatusCode)
	}

	var body directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode directions response: %w", err)
	}
	if body.Status != "OK" {
		return nil, fmt.Errorf("directions provider status %s: %s", body.Status, body.ErrorMessage)
	}
	if len(body.Routes) == 0 {
		return nil, fmt.Errorf("directions provider returned no routes")
	}

	alternatives := make([]datastructure.RouteAlternative, 0, len(body.Routes))
	for _, route := range body.Routes {
		geometry, err := datastructure.DecodePolyline(route.OverviewPolyline.Points)
		if err != nil {
			return nil, fmt.Errorf("decode overview polyline: %w", err)
		}

		var distance, duration float64
		for _, leg := range route.Legs {
			distance += leg.Distance.Value
			duration += leg.Duration.Value
		}

		alternatives = append(alternatives, datastructure.NewRouteAlternative(geometry, distance, duration, route.Summary))
	}
	return alternatives, nil
}
