package model

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

// DefaultScheme is forced onto URLs submitted without one.
const DefaultScheme = "https"

// RequestOptions carries the per-request flags of a URLRequest.
type RequestOptions struct {
	IncludeFeatures bool
	StrictMode      bool
	UseTrustSystem  bool
}

// URLRequest is an immutable, normalized scan request.
type URLRequest struct {
	url             string
	host            string
	includeFeatures bool
	strictMode      bool
	useTrustSystem  bool
}

// NewURLRequest normalizes raw and binds the request flags.
func NewURLRequest(raw string, opts RequestOptions) (URLRequest, error) {
	normalized, host, err := NormalizeURL(raw)
	if err != nil {
		return URLRequest{}, err
	}
	return URLRequest{
		url:             normalized,
		host:            host,
		includeFeatures: opts.IncludeFeatures,
		strictMode:      opts.StrictMode,
		useTrustSystem:  opts.UseTrustSystem,
	}, nil
}

// NormalizeURL canonicalizes raw and returns it with its ASCII host.
// Scheme and host are lowercased, IDN hosts are converted to punycode,
// default ports and fragments are dropped and an empty path becomes "/".
// Userinfo and query are preserved since both carry phishing signals.
func NormalizeURL(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("%w: empty url", ErrMalformedURL)
	}

	if !strings.Contains(raw, "://") {
		raw = DefaultScheme + "://" + strings.TrimPrefix(raw, "//")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("%w: unsupported scheme %q", ErrMalformedURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", "", fmt.Errorf("%w: missing host", ErrMalformedURL)
	}
	if !strings.Contains(host, ":") {
		// Hosts the lookup profile rejects (STD3, joiners) are still
		// punycoded so homograph labels keep their xn-- form.
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			ascii, err = idna.Punycode.ToASCII(host)
		}
		if err == nil {
			host = ascii
		}
	}

	hostPort := host
	if strings.Contains(host, ":") {
		hostPort = "[" + host + "]"
	}
	if port := u.Port(); port != "" &&
		!(u.Scheme == "http" && port == "80") &&
		!(u.Scheme == "https" && port == "443") {
		hostPort += ":" + port
	}
	u.Host = hostPort

	if u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), host, nil
}

// URL returns the normalized URL.
func (r URLRequest) URL() string { return r.url }

// Host returns the ASCII host without brackets or port.
func (r URLRequest) Host() string { return r.host }

// IncludeFeatures reports whether the verdict should carry the feature set.
func (r URLRequest) IncludeFeatures() bool { return r.includeFeatures }

// StrictMode reports whether strict thresholds apply.
func (r URLRequest) StrictMode() bool { return r.strictMode }

// UseTrustSystem reports whether the domain trust evaluator is consulted.
func (r URLRequest) UseTrustSystem() bool { return r.useTrustSystem }

// Fingerprint returns the cache key for this request.
func (r URLRequest) Fingerprint() valueobject.Fingerprint {
	return valueobject.NewFingerprint(r.url, r.strictMode, r.useTrustSystem)
}

// IsZero returns true if the request was never constructed.
func (r URLRequest) IsZero() bool { return r.url == "" }
