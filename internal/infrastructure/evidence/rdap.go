package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultRDAPBaseURL redirects to the authoritative RDAP server of a TLD.
const DefaultRDAPBaseURL = "https://rdap.org/domain/"

// ErrRegistrationUnknown is returned when the registry publishes no
// registration event for a domain.
var ErrRegistrationUnknown = errors.New("registration date unknown")

// RDAPClient looks up domain registration dates.
type RDAPClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewRDAPClient creates a client. An empty baseURL selects rdap.org.
func NewRDAPClient(httpClient *http.Client, baseURL string) *RDAPClient {
	if baseURL == "" {
		baseURL = DefaultRDAPBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RDAPClient{httpClient: httpClient, baseURL: baseURL}
}

type rdapDomain struct {
	Events []struct {
		Action string `json:"eventAction"`
		Date   string `json:"eventDate"`
	} `json:"events"`
}

// RegistrationDate returns when domain was registered.
func (c *RDAPClient) RegistrationDate(ctx context.Context, domain string) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+domain, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("rdap: build request: %w", err)
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("rdap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return time.Time{}, fmt.Errorf("rdap: unexpected status %d for %s", resp.StatusCode, domain)
	}

	var body rdapDomain
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, fmt.Errorf("rdap: decode response: %w", err)
	}
	for _, ev := range body.Events {
		if ev.Action != "registration" {
			continue
		}
		t, err := time.Parse(time.RFC3339, ev.Date)
		if err != nil {
			return time.Time{}, fmt.Errorf("rdap: parse registration date %q: %w", ev.Date, err)
		}
		return t, nil
	}
	return time.Time{}, ErrRegistrationUnknown
}
