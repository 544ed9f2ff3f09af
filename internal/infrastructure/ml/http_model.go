package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bibbank/phishguard/internal/domain/model"
)

// HTTPModel scores URLs with a model served behind a JSON endpoint.
//
// Request:  {"url": "...", "features": {"length": 20, ...}}
// Response: {"probability": 0.42}
type HTTPModel struct {
	client   *http.Client
	name     string
	endpoint string
}

// NewHTTPModel creates an HTTPModel. Deadlines come from the caller's context.
func NewHTTPModel(name, endpoint string, client *http.Client) *HTTPModel {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPModel{client: client, name: name, endpoint: endpoint}
}

type scoreRequest struct {
	Features map[string]float64 `json:"features"`
	URL      string             `json:"url"`
}

type scoreResponse struct {
	Probability *float64 `json:"probability"`
}

// Name returns the registry name.
func (m *HTTPModel) Name() string { return m.name }

// Score posts the URL and its feature vector to the endpoint.
func (m *HTTPModel) Score(ctx context.Context, req model.URLRequest, features model.FeatureSet) (float64, error) {
	payload, err := json.Marshal(scoreRequest{URL: req.URL(), Features: features.Vector()})
	if err != nil {
		return 0, fmt.Errorf("%s: encode request: %w", m.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("%s: build request: %w", m.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", m.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("%s: unexpected status %d", m.name, resp.StatusCode)
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%s: decode response: %w", m.name, err)
	}
	if out.Probability == nil {
		return 0, fmt.Errorf("%s: response has no probability", m.name)
	}
	p := *out.Probability
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("%s: probability %f out of range", m.name, p)
	}
	return p, nil
}
