package valueobject

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Fingerprint is the cache key of a verdict: the normalized URL plus every
// request flag that changes how the verdict is computed.
type Fingerprint struct {
	value string
	url   string
}

// NewFingerprint derives the fingerprint for a normalized URL and flags.
func NewFingerprint(normalizedURL string, strictMode, useTrustSystem bool) Fingerprint {
	h := sha256.New()
	h.Write([]byte(normalizedURL))
	h.Write([]byte("|strict="))
	h.Write([]byte(strconv.FormatBool(strictMode)))
	h.Write([]byte("|trust="))
	h.Write([]byte(strconv.FormatBool(useTrustSystem)))
	return Fingerprint{
		value: hex.EncodeToString(h.Sum(nil)),
		url:   normalizedURL,
	}
}

// FingerprintFromString reconstructs a fingerprint read back from storage.
func FingerprintFromString(value, normalizedURL string) Fingerprint {
	return Fingerprint{value: value, url: normalizedURL}
}

// FingerprintsForURL returns every fingerprint a URL can be cached under.
func FingerprintsForURL(normalizedURL string) []Fingerprint {
	out := make([]Fingerprint, 0, 4)
	for _, strict := range []bool{false, true} {
		for _, trust := range []bool{false, true} {
			out = append(out, NewFingerprint(normalizedURL, strict, trust))
		}
	}
	return out
}

// String returns the hex digest.
func (f Fingerprint) String() string {
	return f.value
}

// URL returns the normalized URL the fingerprint was derived from.
func (f Fingerprint) URL() string {
	return f.url
}

// IsZero returns true if the fingerprint has not been set.
func (f Fingerprint) IsZero() bool {
	return f.value == ""
}

// Equal checks equality with another Fingerprint.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.value == other.value
}
