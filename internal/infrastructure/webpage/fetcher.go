// Package webpage downloads HTML pages and extracts the links they contain.
package webpage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMaxBodyBytes caps how much of a page is parsed.
const DefaultMaxBodyBytes = 2 << 20

// Fetcher implements port.PageFetcher over HTTP.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

// NewFetcher creates a Fetcher. Timeouts come from client or the caller's
// context.
func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = "phishguard-linkscan/1.0"
	}
	return &Fetcher{client: client, userAgent: userAgent, maxBodyBytes: DefaultMaxBodyBytes}
}

// FetchLinks returns the absolute http(s) links of pageURL in document
// order, without fragments or duplicates, at most limit of them.
func (f *Fetcher) FetchLinks(ctx context.Context, pageURL string, limit int) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("failed to fetch page: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil && mt != "text/html" && mt != "application/xhtml+xml" {
			return nil, fmt.Errorf("failed to fetch page: not html (%s)", mt)
		}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	base := resp.Request.URL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = u
		}
	}

	return extractLinks(doc, base, limit), nil
}

func extractLinks(doc *goquery.Document, base *url.URL, limit int) []string {
	links := make([]string, 0)
	seen := make(map[string]struct{})
	doc.Find("a[href], area[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if limit > 0 && len(links) >= limit {
			return false
		}
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		u, err := base.Parse(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return true
		}
		u.Fragment = ""
		u.RawFragment = ""
		abs := u.String()
		if _, dup := seen[abs]; dup {
			return true
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
		return true
	})
	return links
}
