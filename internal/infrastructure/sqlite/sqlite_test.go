package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
	"github.com/bibbank/phishguard/internal/infrastructure/sqlite"
	"github.com/bibbank/phishguard/pkg/testutil"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestVerdictStore(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewVerdictStore(openTestDB(t))
	fp := valueobject.NewFingerprint(testutil.TestPhishingURL, true, true)
	v := testutil.NewVerdict(t, testutil.TestPhishingURL, valueobject.RiskLevelHigh, 0.7)

	t.Run("miss returns nil", func(t *testing.T) {
		got, err := store.Get(ctx, fp)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("round trip", func(t *testing.T) {
		entry := model.NewCacheEntry(fp, v, time.Hour)
		require.NoError(t, store.Put(ctx, entry))

		got, err := store.Get(ctx, fp)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, testutil.TestPhishingURL, got.Fingerprint.URL())
		assert.True(t, got.Fingerprint.Equal(fp))
		assert.WithinDuration(t, entry.ExpiresAt, got.ExpiresAt, time.Microsecond)
		testutil.AssertSameVerdict(t, v, got.Verdict)
	})

	t.Run("flag variants are separate entries", func(t *testing.T) {
		other := valueobject.NewFingerprint(testutil.TestPhishingURL, false, true)
		got, err := store.Get(ctx, other)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		newer := testutil.NewVerdict(t, testutil.TestPhishingURL, valueobject.RiskLevelCritical, 0.9)
		require.NoError(t, store.Put(ctx, model.NewCacheEntry(fp, newer, time.Hour)))

		got, err := store.Get(ctx, fp)
		require.NoError(t, err)
		assert.Equal(t, newer.ID(), got.Verdict.ID())
	})

	t.Run("delete all variants", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, valueobject.FingerprintsForURL(testutil.TestPhishingURL)...))
		require.NoError(t, store.Delete(ctx))

		got, err := store.Get(ctx, fp)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("purge expired", func(t *testing.T) {
		live := valueobject.NewFingerprint(testutil.TestBenignURL, false, true)
		dead := valueobject.NewFingerprint(testutil.TestBenignURL, false, false)
		benign := testutil.NewVerdict(t, testutil.TestBenignURL, valueobject.RiskLevelSafe, 0.01)
		require.NoError(t, store.Put(ctx, model.NewCacheEntry(live, benign, time.Hour)))
		require.NoError(t, store.Put(ctx, model.NewCacheEntry(dead, benign, -time.Second)))

		n, err := store.PurgeExpired(ctx, time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := store.Get(ctx, live)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})
}

func TestFeedbackRepository(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewFeedbackRepository(openTestDB(t))

	older, err := model.NewFeedback(testutil.TestBenignURL, uuid.New(), false, model.LabelBenign, "false positive")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, older))
	time.Sleep(2 * time.Millisecond)
	newer, err := model.NewFeedback(testutil.TestBenignURL, uuid.Nil, true, model.LabelUnknown, "")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, newer))

	t.Run("find by id", func(t *testing.T) {
		got, err := repo.FindByID(ctx, older.ID())
		require.NoError(t, err)
		assert.Equal(t, older.URL(), got.URL())
		assert.Equal(t, older.VerdictID(), got.VerdictID())
		assert.False(t, got.IsCorrect())
		assert.Equal(t, model.LabelBenign, got.ActualLabel())
		assert.Equal(t, "false positive", got.Comment())
		assert.True(t, older.CreatedAt().Equal(got.CreatedAt()))
	})

	t.Run("nil verdict id survives", func(t *testing.T) {
		got, err := repo.FindByID(ctx, newer.ID())
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, got.VerdictID())
	})

	t.Run("find by url newest first", func(t *testing.T) {
		list, err := repo.FindByURL(ctx, testutil.TestBenignURL, 10)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID(), list[0].ID())

		limited, err := repo.FindByURL(ctx, testutil.TestBenignURL, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}
