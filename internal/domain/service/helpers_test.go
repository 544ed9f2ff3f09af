package service_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testLists(t *testing.T) *service.TrustLists {
	t.Helper()
	cfg := service.DefaultTrustListsConfig()
	cfg.DenyDomains = []string{"evil.example", "phish-bank.com"}
	cfg.DenyCIDRs = []string{"203.0.113.0/24"}
	lists, err := service.NewTrustLists(cfg)
	require.NoError(t, err)
	return lists
}

// fakeModel is a ScoringModel with a fixed answer and optional delay. When
// ignoreCtx is set the delay is slept through regardless of cancellation.
type fakeModel struct {
	name      string
	p         float64
	err       error
	delay     time.Duration
	ignoreCtx bool
}

func (m *fakeModel) Name() string { return m.name }

func (m *fakeModel) Score(ctx context.Context, _ model.URLRequest, _ model.FeatureSet) (float64, error) {
	if m.delay > 0 {
		if m.ignoreCtx {
			time.Sleep(m.delay)
		} else {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(m.delay):
			}
		}
	}
	return m.p, m.err
}

type fakeEvidence struct {
	lookupFn func(ctx context.Context, domain string, deadline time.Time) model.Evidence
}

func (f *fakeEvidence) Lookup(ctx context.Context, domain string, deadline time.Time) model.Evidence {
	return f.lookupFn(ctx, domain, deadline)
}

func mustRequest(t *testing.T, raw string) model.URLRequest {
	t.Helper()
	req, err := model.NewURLRequest(raw, model.RequestOptions{UseTrustSystem: true})
	require.NoError(t, err)
	return req
}
