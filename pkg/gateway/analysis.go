package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// UpstreamStatusError is a non-2xx reply from an upstream HTTP service,
// kept separate from transport errors so callers can distinguish
// caller-correctable (4xx) from transient (5xx) failures.
type UpstreamStatusError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Detail)
}

func (e *UpstreamStatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

type AnalysisRequest struct {
	StartLoc   [2]float64      `json:"start_loc"`
	EndLoc     [2]float64      `json:"end_loc"`
	RouteCount int             `json:"routeCount"`
	Routes     []AnalysisRoute `json:"routes"`
}

type AnalysisRoute struct {
	DistanceMeters  float64     `json:"distance"`
	DurationSeconds float64     `json:"duration"`
	Geometry        [][]float64 `json:"geometry"`
}

// AnalysisClient forwards resampled route geometries to the AI analysis
// service and returns its verdict verbatim.
type AnalysisClient struct {
	httpClient *http.Client
	url        string
}

func NewAnalysisClient(url string, httpClient *http.Client) *AnalysisClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &AnalysisClient{httpClient: httpClient, url: url}
}

func (c *AnalysisClient) Analyze(ctx context.Context, request AnalysisRequest) (json.RawMessage, error) {
	return postJSON(ctx, c.httpClient, c.url, request)
}

func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamStatusError{
			StatusCode: resp.StatusCode,
			Detail:     string(respBody),
		}
	}
	return json.RawMessage(respBody), nil
}
