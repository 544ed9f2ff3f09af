package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/port"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

// Purger is implemented by stores that can drop expired entries in bulk.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// TieredStore serves reads from a memory front and falls back to a
// persistent back store, warming the front on back hits. Writes and
// deletes go to both tiers.
type TieredStore struct {
	front *MemoryStore
	back  port.VerdictStore
}

// NewTieredStore creates a two-tier store.
func NewTieredStore(front *MemoryStore, back port.VerdictStore) *TieredStore {
	return &TieredStore{front: front, back: back}
}

// Get checks the front first. A back tier failure is returned to the
// caller, which treats it as a miss.
func (s *TieredStore) Get(ctx context.Context, fp valueobject.Fingerprint) (*model.CacheEntry, error) {
	if e, _ := s.front.Get(ctx, fp); e != nil {
		return e, nil
	}
	e, err := s.back.Get(ctx, fp)
	if err != nil || e == nil {
		return nil, err
	}
	if e.Valid(time.Now()) {
		_ = s.front.Put(ctx, *e)
	}
	return e, nil
}

// Put writes the front then the back tier.
func (s *TieredStore) Put(ctx context.Context, entry model.CacheEntry) error {
	_ = s.front.Put(ctx, entry)
	return s.back.Put(ctx, entry)
}

// Delete removes fps from both tiers.
func (s *TieredStore) Delete(ctx context.Context, fps ...valueobject.Fingerprint) error {
	_ = s.front.Delete(ctx, fps...)
	return s.back.Delete(ctx, fps...)
}

// PurgeExpired purges both tiers and returns the count from the back tier
// when it supports purging.
func (s *TieredStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	_, _ = s.front.PurgeExpired(ctx, now)
	p, ok := s.back.(Purger)
	if !ok {
		return 0, nil
	}
	n, err := p.PurgeExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// RunJanitor purges expired entries from store every interval until ctx is
// done.
func RunJanitor(ctx context.Context, store Purger, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeExpired(ctx, now)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Warn("failed to purge expired verdicts", "error", err)
				}
				continue
			}
			if n > 0 {
				logger.Debug("purged expired verdicts", "count", n)
			}
		}
	}
}
