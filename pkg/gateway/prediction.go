package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type PredictRequest struct {
	SLat float64 `json:"sLat"`
	SLon float64 `json:"sLon"`
	DLat float64 `json:"dLat"`
	DLon float64 `json:"dLon"`
}

// PredictClient calls the AI prediction endpoint. Responses are opaque JSON
// passed back to pollers verbatim.
type PredictClient struct {
	httpClient *http.Client
	url        string
}

func NewPredictClient(url string, httpClient *http.Client) *PredictClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &PredictClient{httpClient: httpClient, url: url}
}

func (c *PredictClient) Predict(ctx context.Context, request PredictRequest) (json.RawMessage, error) {
	return postJSON(ctx, c.httpClient, c.url, request)
}
