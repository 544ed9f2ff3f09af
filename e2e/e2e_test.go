//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseURL string

func TestMain(m *testing.M) {
	baseURL = os.Getenv("PHISHGUARD_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// Wait for the service to be ready
	for i := 0; i < 30; i++ {
		resp, err := http.Get(baseURL + "/readyz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		time.Sleep(2 * time.Second)
	}

	os.Exit(m.Run())
}

func postJSON(t *testing.T, path string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(baseURL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func getJSON(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(baseURL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthCheck(t *testing.T) {
	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, "/healthz", &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestScanFlow(t *testing.T) {
	target := fmt.Sprintf("https://e2e-%d.example.com/login", time.Now().UnixNano())

	// Step 1: First scan computes a fresh verdict
	var first map[string]any
	status := postJSON(t, "/api/v1/scan", map[string]any{"url": target, "include_features": true}, &first)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, first["cached"])
	assert.NotNil(t, first["features"])
	assert.Contains(t, []any{"safe", "low", "medium", "high", "critical"}, first["risk_level"])

	// Step 2: Repeat scan is served from the cache
	var second map[string]any
	status = postJSON(t, "/api/v1/scan", map[string]any{"url": target, "include_features": true}, &second)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, second["cached"])
	assert.Equal(t, first["id"], second["id"])

	// Step 3: Feedback that the verdict was wrong drops the cached entry
	var fb map[string]any
	status = postJSON(t, "/api/v1/feedback", map[string]any{
		"url":          target,
		"verdict_id":   first["id"],
		"is_correct":   false,
		"actual_label": 1,
	}, &fb)
	require.Equal(t, http.StatusCreated, status)

	var third map[string]any
	status = postJSON(t, "/api/v1/scan", map[string]any{"url": target, "include_features": true}, &third)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, third["cached"])

	// Step 4: Feedback can be read back
	var stored map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, "/api/v1/feedback/"+fb["id"].(string), &stored))
	assert.Equal(t, target, stored["url"])
}

func TestQuickScan(t *testing.T) {
	var quick map[string]any
	status := getJSON(t, "/api/v1/scan/quick?url="+url.QueryEscape("http://198.51.100.7/secure/verify"), &quick)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "http://198.51.100.7/secure/verify", quick["url"])
	assert.NotEmpty(t, quick["risk_level"])
}

func TestDomainTrust(t *testing.T) {
	var body map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, "/api/v1/domain/trust?domain=google.com", &body))
	assert.Equal(t, true, body["known_safe"])
}

func TestBatchLimit(t *testing.T) {
	urls := make([]string, 101)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site-%d.example.com/", i)
	}
	assert.Equal(t, http.StatusRequestEntityTooLarge, postJSON(t, "/api/v1/scan/batch", map[string]any{"urls": urls}, nil))
}

func TestModelStatus(t *testing.T) {
	var body map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, "/api/v1/models/status", &body))
	assert.InDelta(t, 1.0, body["total_weight"], 1e-6)
}
