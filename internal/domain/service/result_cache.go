package service

import (
	"context"
	"fmt"
	"hash/maphash"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/port"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

const flightShards = 512

// ShardedGroup spreads singleflight keys over independent groups so that
// unrelated fingerprints do not contend on one mutex.
type ShardedGroup struct {
	shards []*singleflight.Group
	seed   maphash.Seed
}

var hasherPool = sync.Pool{
	New: func() any { return new(maphash.Hash) },
}

// NewShardedGroup creates a ShardedGroup.
func NewShardedGroup() *ShardedGroup {
	g := &ShardedGroup{
		shards: make([]*singleflight.Group, flightShards),
		seed:   maphash.MakeSeed(),
	}
	for i := range g.shards {
		g.shards[i] = &singleflight.Group{}
	}
	return g
}

func (g *ShardedGroup) shard(key string) *singleflight.Group {
	h := hasherPool.Get().(*maphash.Hash)
	// Reset before SetSeed; reusing a written hasher panics otherwise.
	h.Reset()
	h.SetSeed(g.seed)
	h.WriteString(key)
	idx := h.Sum64() & (flightShards - 1)
	hasherPool.Put(h)
	return g.shards[idx]
}

// DoChan is singleflight.Group.DoChan on the key's shard.
func (g *ShardedGroup) DoChan(key string, fn func() (any, error)) <-chan singleflight.Result {
	return g.shard(key).DoChan(key, fn)
}

// Forget is singleflight.Group.Forget on the key's shard.
func (g *ShardedGroup) Forget(key string) {
	g.shard(key).Forget(key)
}

// ComputeFunc produces a fresh verdict on a cache miss.
type ComputeFunc func(ctx context.Context) (*model.Verdict, error)

// ResultCache fronts a VerdictStore with per-fingerprint single-flight.
type ResultCache struct {
	store  port.VerdictStore
	group  *ShardedGroup
	logger *slog.Logger
}

// NewResultCache creates a ResultCache over store.
func NewResultCache(store port.VerdictStore, logger *slog.Logger) *ResultCache {
	return &ResultCache{store: store, group: NewShardedGroup(), logger: logger}
}

// GetOrCompute returns the cached verdict for fp, or runs compute at most
// once across concurrent callers and stores the result for ttl. The second
// return value reports a cache hit. Store failures are logged and treated as
// misses; compute errors are returned and nothing is stored.
func (c *ResultCache) GetOrCompute(ctx context.Context, fp valueobject.Fingerprint, ttl time.Duration, compute ComputeFunc) (*model.Verdict, bool, error) {
	if v := c.lookup(ctx, fp); v != nil {
		return v, true, nil
	}

	// The computation outlives a cancelled caller so that other waiters
	// still receive its result.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fp.String(), func() (any, error) {
		if v := c.lookup(flightCtx, fp); v != nil {
			return cachedResult{v}, nil
		}

		v, err := compute(flightCtx)
		if err != nil {
			return nil, err
		}

		if err := c.store.Put(flightCtx, model.NewCacheEntry(fp, v, ttl)); err != nil {
			c.logger.Warn("failed to store verdict", "fingerprint", fp.String(), "error", err)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("failed to await verdict: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		switch v := res.Val.(type) {
		case cachedResult:
			return v.verdict, true, nil
		case *model.Verdict:
			return v, false, nil
		default:
			return nil, false, fmt.Errorf("unexpected flight result %T", res.Val)
		}
	}
}

// Invalidate removes every cached verdict for fps.
func (c *ResultCache) Invalidate(ctx context.Context, fps ...valueobject.Fingerprint) error {
	if len(fps) == 0 {
		return nil
	}
	if err := c.store.Delete(ctx, fps...); err != nil {
		return fmt.Errorf("failed to invalidate verdicts: %w", err)
	}
	return nil
}

type cachedResult struct {
	verdict *model.Verdict
}

func (c *ResultCache) lookup(ctx context.Context, fp valueobject.Fingerprint) *model.Verdict {
	entry, err := c.store.Get(ctx, fp)
	if err != nil {
		c.logger.Warn("verdict store lookup failed", "fingerprint", fp.String(), "error", err)
		return nil
	}
	if entry == nil || !entry.Valid(time.Now()) {
		return nil
	}
	return entry.Verdict.AsCached()
}
