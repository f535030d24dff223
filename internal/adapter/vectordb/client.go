// Package vectordb provides an HTTP client for the Qdrant points query API.
package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Point is one scored hit returned by a similarity query. Ranking order is
// the service order; ties are left as returned.
type Point struct {
	ID      string
	Score   float64
	Payload json.RawMessage
}

// Client is an HTTP client for Qdrant.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Qdrant client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type queryRequest struct {
	Query       []float64 `json:"query"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type queryResponse struct {
	Result struct {
		Points []struct {
			ID      json.RawMessage `json:"id"` // uuid string or integer
			Score   float64         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"points"`
	} `json:"result"`
	Status string `json:"status"`
}

// Query runs a nearest-neighbor search against the given collection.
func (c *Client) Query(ctx context.Context, collection string, vector []float64, limit int) ([]Point, error) {
	body, err := json.Marshal(queryRequest{
		Query:       vector,
		Limit:       limit,
		WithPayload: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/query", c.baseURL, collection)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("qdrant returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode qdrant response: %w", err)
	}

	points := make([]Point, 0, len(out.Result.Points))
	for _, p := range out.Result.Points {
		points = append(points, Point{
			ID:      decodePointID(p.ID),
			Score:   p.Score,
			Payload: p.Payload,
		})
	}
	return points, nil
}

// decodePointID renders a Qdrant point id (string or integer) as a string.
func decodePointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return fmt.Sprintf("%d", n)
	}
	return strings.Trim(string(raw), `"`)
}
