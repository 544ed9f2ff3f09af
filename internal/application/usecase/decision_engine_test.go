package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/phishguard/internal/application/usecase"
	"github.com/bibbank/phishguard/internal/domain/event"
	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/service"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
	"github.com/bibbank/phishguard/pkg/events"
)

type engineFixture struct {
	engine    *usecase.DecisionEngine
	store     *mockVerdictStore
	publisher *mockEventPublisher
	models    []*mockModel
}

func newEngineFixture(t *testing.T, models ...*mockModel) *engineFixture {
	t.Helper()

	cfg := service.DefaultTrustListsConfig()
	cfg.DenyDomains = []string{"phish-bank.com"}
	lists, err := service.NewTrustLists(cfg)
	require.NoError(t, err)

	weighted := make([]service.WeightedModel, 0, len(models))
	for _, m := range models {
		weighted = append(weighted, service.WeightedModel{Model: m, Weight: 1.0 / float64(len(models))})
	}
	ensemble, err := service.NewEnsemble(weighted, testLogger())
	require.NoError(t, err)

	rules, err := service.NewRuleEngine(service.DefaultRulePolicy())
	require.NoError(t, err)

	store := newMockVerdictStore()
	publisher := &mockEventPublisher{}
	engine, err := usecase.NewDecisionEngine(
		service.NewFeatureExtractor(lists),
		ensemble,
		service.NewTrustEvaluator(lists, nil, 100*time.Millisecond, testLogger()),
		rules,
		service.NewResultCache(store, testLogger()),
		publisher,
		usecase.DecisionConfig{DecisionTimeout: 300 * time.Millisecond, CacheTTL: time.Minute},
		testLogger(),
	)
	require.NoError(t, err)

	return &engineFixture{engine: engine, store: store, publisher: publisher, models: models}
}

func uniformModels(p float64) []*mockModel {
	return []*mockModel{fixedModel("xgboost", p), fixedModel("lightgbm", p), fixedModel("catboost", p)}
}

func slowModel(name string, delay time.Duration) *mockModel {
	return &mockModel{name: name, scoreFunc: func(ctx context.Context, _ model.URLRequest, _ model.FeatureSet) (float64, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(delay):
			return 0.2, nil
		}
	}}
}

func newRequest(t *testing.T, raw string, opts model.RequestOptions) model.URLRequest {
	t.Helper()
	req, err := model.NewURLRequest(raw, opts)
	require.NoError(t, err)
	return req
}

var defaultOpts = model.RequestOptions{UseTrustSystem: true}

func TestDecisionEngine_Decide(t *testing.T) {
	t.Run("fresh verdict for a benign url", func(t *testing.T) {
		f := newEngineFixture(t, uniformModels(0.01)...)

		v, err := f.engine.Decide(context.Background(), newRequest(t, "https://example-shop.com/", defaultOpts))

		require.NoError(t, err)
		assert.Equal(t, valueobject.RiskLevelSafe, v.RiskLevel())
		assert.False(t, v.IsPhishing())
		assert.False(t, v.Cached())
		assert.Len(t, v.ModelScores(), 3)
		assert.NotNil(t, v.Trust())
		assert.Equal(t, service.RuleProbabilityThreshold, v.AppliedRules()[0])
		assert.Nil(t, v.Features())
		assert.InDelta(t, 0.01, v.Probability(), 1e-9)
		assert.Equal(t, 1, f.store.len())
	})

	t.Run("repeat request is served from cache", func(t *testing.T) {
		f := newEngineFixture(t, uniformModels(0.2)...)
		req := newRequest(t, "https://example-shop.com/", defaultOpts)

		first, err := f.engine.Decide(context.Background(), req)
		require.NoError(t, err)
		second, err := f.engine.Decide(context.Background(), req)
		require.NoError(t, err)

		assert.True(t, second.Cached())
		assert.Equal(t, first.ID(), second.ID())
		assert.Equal(t, first.RiskLevel(), second.RiskLevel())
		assert.Equal(t, first.Probability(), second.Probability())
		for _, m := range f.models {
			assert.Equal(t, int32(1), m.calls.Load(), m.name)
		}
	})

	t.Run("deny-listed domain is critical at low probability", func(t *testing.T) {
		f := newEngineFixture(t, uniformModels(0.01)...)

		v, err := f.engine.Decide(context.Background(), newRequest(t, "https://secure.phish-bank.com/login", defaultOpts))

		require.NoError(t, err)
		assert.Equal(t, valueobject.RiskLevelCritical, v.RiskLevel())
		assert.True(t, v.IsPhishing())
		assert.Contains(t, v.AppliedRules(), service.RuleDangerousDomain)
		assert.Equal(t, valueobject.TrustTierDangerous, v.Trust().Tier)
	})

	t.Run("allow-listed domain overrides a medium probability", func(t *testing.T) {
		f := newEngineFixture(t, uniformModels(0.3)...)

		v, err := f.engine.Decide(context.Background(), newRequest(t, "https://google.com/search", defaultOpts))

		require.NoError(t, err)
		assert.Equal(t, valueobject.RiskLevelSafe, v.RiskLevel())
		assert.Contains(t, v.AppliedRules(), service.RuleTrustedDomainOverride)
		assert.True(t, v.Trust().KnownSafe)
	})

	t.Run("ip literal host ranks above an equivalent hostname", func(t *testing.T) {
		f := newEngineFixture(t, uniformModels(0.2)...)

		named, err := f.engine.Decide(context.Background(), newRequest(t, "http://unknown-site.com/", defaultOpts))
		require.NoError(t, err)
		ip, err := f.engine.Decide(context.Background(), newRequest(t, "http://93.184.216.34/", defaultOpts))
		require.NoError(t, err)

		assert.Greater(t, ip.RiskLevel().Rank(), named.RiskLevel().Rank())
		assert.Contains(t, ip.AppliedRules(), service.RuleIPLiteralHost)
	})

	t.Run("trust system disabled", func(t *testing.T) {
		f := newEngineFixture(t, uniformModels(0.01)...)

		v, err := f.engine.Decide(context.Background(), newRequest(t, "https://secure.phish-bank.com/login", model.RequestOptions{}))

		require.NoError(t, err)
		assert.Nil(t, v.Trust())
		assert.Equal(t, valueobject.RiskLevelSafe, v.RiskLevel())
		assert.NotContains(t, v.AppliedRules(), service.RuleDangerousDomain)
	})

	t.Run("features are returned only when requested", func(t *testing.T) {
		f := newEngineFixture(t, uniformModels(0.1)...)
		withFeatures := newRequest(t, "https://example-shop.com/", model.RequestOptions{UseTrustSystem: true, IncludeFeatures: true})
		without := newRequest(t, "https://example-shop.com/", defaultOpts)

		v, err := f.engine.Decide(context.Background(), withFeatures)
		require.NoError(t, err)
		require.NotNil(t, v.Features())
		assert.Equal(t, "example-shop.com", v.Features().RegistrableDomain)

		cached, err := f.engine.Decide(context.Background(), without)
		require.NoError(t, err)
		assert.True(t, cached.Cached())
		assert.Nil(t, cached.Features())

		again, err := f.engine.Decide(context.Background(), withFeatures)
		require.NoError(t, err)
		assert.NotNil(t, again.Features())
	})

	t.Run("zero request is rejected", func(t *testing.T) {
		f := newEngineFixture(t, uniformModels(0.1)...)

		_, err := f.engine.Decide(context.Background(), model.URLRequest{})

		assert.ErrorIs(t, err, model.ErrMalformedURL)
	})
}

func TestDecisionEngine_Degradation(t *testing.T) {
	t.Run("one slow model is dropped with a warning", func(t *testing.T) {
		f := newEngineFixture(t,
			fixedModel("xgboost", 0.4),
			slowModel("lightgbm", 5*time.Second),
			fixedModel("catboost", 0.4),
		)

		v, err := f.engine.Decide(context.Background(), newRequest(t, "https://example-shop.com/", defaultOpts))

		require.NoError(t, err)
		assert.InDelta(t, 0.4, v.Probability(), 1e-9)
		assert.Contains(t, v.Warnings(), "model lightgbm unavailable (timeout)")

		var sum float64
		for _, s := range v.ModelScores() {
			sum += s.EffectiveWeight
			if s.Name == "lightgbm" {
				assert.Equal(t, model.ModelStatusTimeout, s.Status)
			}
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	})

	t.Run("all models timing out fails and caches nothing", func(t *testing.T) {
		f := newEngineFixture(t,
			slowModel("xgboost", 5*time.Second),
			slowModel("lightgbm", 5*time.Second),
			slowModel("catboost", 5*time.Second),
		)
		req := newRequest(t, "https://example-shop.com/", defaultOpts)

		start := time.Now()
		_, err := f.engine.Decide(context.Background(), req)

		assert.ErrorIs(t, err, model.ErrEnsembleUnavailable)
		assert.Less(t, time.Since(start), 2*time.Second)
		assert.Zero(t, f.store.len())
		require.NoError(t, f.engine.Wait(context.Background()))
		assert.Empty(t, f.publisher.types())
	})

	t.Run("publish failure does not fail the decision", func(t *testing.T) {
		f := newEngineFixture(t, uniformModels(0.1)...)
		f.publisher.publishFunc = func(context.Context, ...events.DomainEvent) error {
			return errors.New("broker down")
		}

		v, err := f.engine.Decide(context.Background(), newRequest(t, "https://example-shop.com/", defaultOpts))

		require.NoError(t, err)
		assert.NotNil(t, v)
		assert.NoError(t, f.engine.Wait(context.Background()))
	})

	t.Run("blocked publisher does not delay the decision", func(t *testing.T) {
		f := newEngineFixture(t, uniformModels(0.1)...)
		release := make(chan struct{})
		deadlines := make(chan bool, 1)
		f.publisher.publishFunc = func(ctx context.Context, _ ...events.DomainEvent) error {
			_, ok := ctx.Deadline()
			deadlines <- ok
			<-release
			return nil
		}
		t.Cleanup(func() {
			close(release)
			_ = f.engine.Wait(context.Background())
		})

		start := time.Now()
		_, err := f.engine.Decide(context.Background(), newRequest(t, "https://example.com/login", defaultOpts))

		require.NoError(t, err)
		assert.Less(t, time.Since(start), 300*time.Millisecond)
		assert.True(t, <-deadlines, "publish runs under its own deadline")

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, f.engine.Wait(ctx), context.DeadlineExceeded)
	})
}

func TestDecisionEngine_Events(t *testing.T) {
	t.Run("computed once across cache hits", func(t *testing.T) {
		f := newEngineFixture(t, uniformModels(0.1)...)
		req := newRequest(t, "https://example-shop.com/", defaultOpts)

		for i := 0; i < 3; i++ {
			_, err := f.engine.Decide(context.Background(), req)
			require.NoError(t, err)
		}

		require.NoError(t, f.engine.Wait(context.Background()))
		assert.Equal(t, []string{event.EventTypeVerdictComputed}, f.publisher.types())
	})

	t.Run("critical verdict also emits critical event", func(t *testing.T) {
		f := newEngineFixture(t, uniformModels(0.01)...)

		_, err := f.engine.Decide(context.Background(), newRequest(t, "https://phish-bank.com/", defaultOpts))

		require.NoError(t, err)
		require.NoError(t, f.engine.Wait(context.Background()))
		assert.Equal(t, []string{event.EventTypeVerdictComputed, event.EventTypeCriticalURLDetected}, f.publisher.types())
	})
}

func TestDecisionEngine_ConcurrentRequestsShareComputation(t *testing.T) {
	models := []*mockModel{
		slowModel("xgboost", 40*time.Millisecond),
		slowModel("lightgbm", 40*time.Millisecond),
		slowModel("catboost", 40*time.Millisecond),
	}
	f := newEngineFixture(t, models...)
	req := newRequest(t, "https://example-shop.com/", defaultOpts)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Decide(context.Background(), req)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.NoError(t, f.engine.Wait(context.Background()))

	for _, m := range models {
		assert.Equal(t, int32(1), m.calls.Load(), m.name)
	}
	assert.Len(t, f.publisher.types(), 1)
}
