package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/phishguard/internal/application/usecase"
	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/service"
)

func TestEvaluateDomain_Execute(t *testing.T) {
	lists, err := service.NewTrustLists(service.DefaultTrustListsConfig())
	require.NoError(t, err)
	uc := usecase.NewEvaluateDomain(service.NewTrustEvaluator(lists, nil, 50*time.Millisecond, testLogger()))

	t.Run("bare domain", func(t *testing.T) {
		resp, err := uc.Execute(context.Background(), "GitHub.com")
		require.NoError(t, err)
		assert.Equal(t, "github.com", resp.Host)
		assert.True(t, resp.KnownSafe)
		assert.Equal(t, "highest", resp.Tier)
	})

	t.Run("full url", func(t *testing.T) {
		resp, err := uc.Execute(context.Background(), "https://www.irs.gov/refunds")
		require.NoError(t, err)
		assert.True(t, resp.IsGovernment)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), "")
		assert.ErrorIs(t, err, model.ErrMalformedURL)
	})
}

func TestExtractFeatures_Execute(t *testing.T) {
	lists, err := service.NewTrustLists(service.DefaultTrustListsConfig())
	require.NoError(t, err)
	uc := usecase.NewExtractFeatures(service.NewFeatureExtractor(lists))

	resp, err := uc.Execute("http://192.168.10.5/login")

	require.NoError(t, err)
	assert.Equal(t, "http://192.168.10.5/login", resp.URL)
	assert.True(t, resp.Features.HasIPHost)
	assert.Equal(t, 1.0, resp.Vector["has_ip_host"])
}

type stubReporter struct {
	reports []service.ModelStatusReport
}

func (s stubReporter) Status() []service.ModelStatusReport { return s.reports }

func TestGetModelStatus_Execute(t *testing.T) {
	t.Run("healthy while any model answers", func(t *testing.T) {
		uc := usecase.NewGetModelStatus(stubReporter{reports: []service.ModelStatusReport{
			{Name: "xgboost", Weight: 0.5, LastStatus: string(model.ModelStatusTimeout)},
			{Name: "lightgbm", Weight: 0.5, LastStatus: string(model.ModelStatusOK)},
		}})

		resp := uc.Execute()

		assert.True(t, resp.Healthy)
		assert.InDelta(t, 1.0, resp.TotalWeight, 1e-9)
		assert.Len(t, resp.Models, 2)
	})

	t.Run("unhealthy when every model failed last", func(t *testing.T) {
		uc := usecase.NewGetModelStatus(stubReporter{reports: []service.ModelStatusReport{
			{Name: "xgboost", Weight: 1, LastStatus: string(model.ModelStatusError)},
		}})

		assert.False(t, uc.Execute().Healthy)
	})

	t.Run("real ensemble before any call", func(t *testing.T) {
		ens, err := service.NewEnsemble([]service.WeightedModel{
			{Model: fixedModel("lexical", 0.1), Weight: 1},
		}, testLogger())
		require.NoError(t, err)

		resp := usecase.NewGetModelStatus(ens).Execute()

		assert.True(t, resp.Healthy)
		assert.Equal(t, "lexical", resp.Models[0].Name)
	})
}

