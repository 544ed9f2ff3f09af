package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/phishguard/internal/domain/model"
)

// AssertErrorContains checks that err contains the expected substring.
func AssertErrorContains(t *testing.T, err error, expected string) {
	t.Helper()
	require.Error(t, err)
	assert.Contains(t, err.Error(), expected)
}

// AssertSameVerdict checks that got carries the persisted fields of want.
func AssertSameVerdict(t *testing.T, want, got *model.Verdict) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID(), got.ID())
	assert.Equal(t, want.URL(), got.URL())
	assert.Equal(t, want.RiskLevel(), got.RiskLevel())
	assert.Equal(t, want.Status(), got.Status())
	assert.InDelta(t, want.Probability(), got.Probability(), 1e-9)
	assert.InDelta(t, want.Confidence(), got.Confidence(), 1e-9)
	assert.Equal(t, want.AppliedRules(), got.AppliedRules())
	assert.Len(t, got.ModelScores(), len(want.ModelScores()))
}
