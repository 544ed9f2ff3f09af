package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DefaultSafeBrowsingEndpoint is the v4 threatMatches:find endpoint.
const DefaultSafeBrowsingEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"

var safeBrowsingThreatTypes = []string{
	"MALWARE",
	"SOCIAL_ENGINEERING",
	"UNWANTED_SOFTWARE",
	"POTENTIALLY_HARMFUL_APPLICATION",
}

// SafeBrowsingClient queries the Google Safe Browsing lookup API.
type SafeBrowsingClient struct {
	httpClient    *http.Client
	endpoint      string
	apiKey        string
	clientID      string
	clientVersion string
}

// NewSafeBrowsingClient creates a client. An empty endpoint selects the
// public API.
func NewSafeBrowsingClient(httpClient *http.Client, endpoint, apiKey, clientVersion string) *SafeBrowsingClient {
	if endpoint == "" {
		endpoint = DefaultSafeBrowsingEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SafeBrowsingClient{
		httpClient:    httpClient,
		endpoint:      endpoint,
		apiKey:        apiKey,
		clientID:      "phishguard",
		clientVersion: clientVersion,
	}
}

type sbThreatEntry struct {
	URL string `json:"url"`
}

type sbRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string        `json:"threatTypes"`
		PlatformTypes    []string        `json:"platformTypes"`
		ThreatEntryTypes []string        `json:"threatEntryTypes"`
		ThreatEntries    []sbThreatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

type sbResponse struct {
	Matches []struct {
		ThreatType string        `json:"threatType"`
		Threat     sbThreatEntry `json:"threat"`
	} `json:"matches"`
}

// Check looks up urls and returns the distinct threat types matched by any
// of them. An empty result means no match.
func (c *SafeBrowsingClient) Check(ctx context.Context, urls ...string) ([]string, error) {
	var body sbRequest
	body.Client.ClientID = c.clientID
	body.Client.ClientVersion = c.clientVersion
	body.ThreatInfo.ThreatTypes = safeBrowsingThreatTypes
	body.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	body.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	for _, u := range urls {
		body.ThreatInfo.ThreatEntries = append(body.ThreatInfo.ThreatEntries, sbThreatEntry{URL: u})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("safe browsing: encode request: %w", err)
	}

	endpoint := c.endpoint + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("safe browsing: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("safe browsing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("safe browsing: unexpected status %d", resp.StatusCode)
	}

	var out sbResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("safe browsing: decode response: %w", err)
	}

	seen := make(map[string]struct{}, len(out.Matches))
	threats := make([]string, 0, len(out.Matches))
	for _, m := range out.Matches {
		if m.ThreatType == "" {
			continue
		}
		if _, dup := seen[m.ThreatType]; dup {
			continue
		}
		seen[m.ThreatType] = struct{}{}
		threats = append(threats, m.ThreatType)
	}
	return threats, nil
}
