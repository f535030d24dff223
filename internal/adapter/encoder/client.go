// Package encoder provides an HTTP client for the applicant encoder service.
//
// The encoder turns a raw applicant record into a fixed-length similarity
// vector (missing feature columns are treated as zero on the service side)
// and also embeds free text for policy passage search.
package encoder

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

// Client is an HTTP client for the encoder service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new encoder client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type embedApplicantRequest struct {
	Applicant json.RawMessage `json:"applicant"`
}

type embedTextRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Vector []float64 `json:"vector"`
}

// EncodeApplicant encodes a raw applicant record into a similarity vector.
func (c *Client) EncodeApplicant(ctx context.Context, applicant json.RawMessage) ([]float64, error) {
	return c.post(ctx, "/embed/applicant", embedApplicantRequest{Applicant: applicant})
}

// EncodeText embeds free text, used for policy passage queries.
func (c *Client) EncodeText(ctx context.Context, text string) ([]float64, error) {
	return c.post(ctx, "/embed/text", embedTextRequest{Text: text})
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]float64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("encoder request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("encoder returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode encoder response: %w", err)
	}
	if len(out.Vector) == 0 {
		return nil, fmt.Errorf("encoder returned empty vector")
	}
	return out.Vector, nil
}
