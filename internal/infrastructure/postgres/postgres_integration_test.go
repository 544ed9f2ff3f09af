//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
	"github.com/bibbank/phishguard/internal/infrastructure/postgres"
	"github.com/bibbank/phishguard/pkg/testutil"
)

func TestVerdictStore_Integration(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	store := postgres.NewVerdictStore(pc.Pool)

	v := testutil.NewVerdict(t, testutil.TestPhishingURL, valueobject.RiskLevelHigh, 0.72)
	fp := valueobject.NewFingerprint(testutil.TestPhishingURL, false, true)

	t.Run("miss", func(t *testing.T) {
		got, err := store.Get(ctx, fp)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, model.NewCacheEntry(fp, v, time.Hour)))

		got, err := store.Get(ctx, fp)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, fp.String(), got.Fingerprint.String())
		assert.Equal(t, testutil.TestPhishingURL, got.Fingerprint.URL())
		assert.True(t, got.Valid(time.Now()))
		testutil.AssertSameVerdict(t, v, got.Verdict)

		var scans int
		require.NoError(t, pc.Pool.QueryRow(ctx, `SELECT count(*) FROM url_scans WHERE verdict_id = $1`, v.ID()).Scan(&scans))
		assert.Equal(t, 1, scans)
	})

	t.Run("put overwrites", func(t *testing.T) {
		newer := testutil.NewVerdict(t, testutil.TestPhishingURL, valueobject.RiskLevelCritical, 0.91)
		require.NoError(t, store.Put(ctx, model.NewCacheEntry(fp, newer, time.Hour)))

		got, err := store.Get(ctx, fp)
		require.NoError(t, err)
		assert.Equal(t, newer.ID(), got.Verdict.ID())
	})

	t.Run("delete every variant", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, valueobject.FingerprintsForURL(testutil.TestPhishingURL)...))

		got, err := store.Get(ctx, fp)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("purge expired", func(t *testing.T) {
		old := valueobject.NewFingerprint(testutil.TestBenignURL, false, true)
		require.NoError(t, store.Put(ctx, model.NewCacheEntry(old, testutil.NewVerdict(t, testutil.TestBenignURL, valueobject.RiskLevelSafe, 0.01), -time.Minute)))

		n, err := store.PurgeExpired(ctx, time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestFeedbackRepository_Integration(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	repo := postgres.NewFeedbackRepository(pc.Pool)

	first, err := model.NewFeedback(testutil.TestPhishingURL, uuid.New(), false, model.LabelPhishing, "missed it")
	require.NoError(t, err)
	second, err := model.NewFeedback(testutil.TestPhishingURL, uuid.Nil, true, model.LabelUnknown, "")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	got, err := repo.FindByID(ctx, first.ID())
	require.NoError(t, err)
	assert.Equal(t, first.VerdictID(), got.VerdictID())
	assert.Equal(t, model.LabelPhishing, got.ActualLabel())
	assert.Equal(t, "missed it", got.Comment())
	assert.False(t, got.IsCorrect())

	list, err := repo.FindByURL(ctx, testutil.TestPhishingURL, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)
}
