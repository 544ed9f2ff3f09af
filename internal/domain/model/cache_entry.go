package model

import (
	"time"

	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

// CacheEntry binds a complete verdict to its fingerprint for a TTL.
type CacheEntry struct {
	Fingerprint valueobject.Fingerprint
	Verdict     *Verdict
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// NewCacheEntry creates an entry for v that expires after ttl.
func NewCacheEntry(fp valueobject.Fingerprint, v *Verdict, ttl time.Duration) CacheEntry {
	now := time.Now().UTC()
	return CacheEntry{
		Fingerprint: fp,
		Verdict:     v,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

// Expired reports whether the entry is past its expiry at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Valid reports whether the entry holds a verdict and has not expired.
func (e CacheEntry) Valid(now time.Time) bool {
	return e.Verdict != nil && !e.Expired(now)
}
