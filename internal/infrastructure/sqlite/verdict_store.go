package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

// VerdictStore implements port.VerdictStore on SQLite. Timestamps are
// stored as Unix nanoseconds.
type VerdictStore struct {
	db *sql.DB
}

// NewVerdictStore creates a verdict store over an opened database.
func NewVerdictStore(db *sql.DB) *VerdictStore {
	return &VerdictStore{db: db}
}

// Get returns the entry for fp, or nil when absent.
func (s *VerdictStore) Get(ctx context.Context, fp valueobject.Fingerprint) (*model.CacheEntry, error) {
	var (
		url                  string
		payload              string
		createdAt, expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT url, verdict, created_at, expires_at FROM url_verdicts WHERE fingerprint = ?`,
		fp.String(),
	).Scan(&url, &payload, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query verdict: %w", err)
	}

	var v model.Verdict
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	return &model.CacheEntry{
		Fingerprint: valueobject.FingerprintFromString(fp.String(), url),
		Verdict:     &v,
		CreatedAt:   time.Unix(0, createdAt).UTC(),
		ExpiresAt:   time.Unix(0, expiresAt).UTC(),
	}, nil
}

// Put inserts or replaces the entry.
func (s *VerdictStore) Put(ctx context.Context, entry model.CacheEntry) error {
	if entry.Verdict == nil {
		return fmt.Errorf("cache entry has no verdict")
	}
	payload, err := json.Marshal(entry.Verdict)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO url_verdicts (fingerprint, url, verdict_id, risk_level, probability, verdict, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			url = excluded.url,
			verdict_id = excluded.verdict_id,
			risk_level = excluded.risk_level,
			probability = excluded.probability,
			verdict = excluded.verdict,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		entry.Fingerprint.String(),
		entry.Verdict.URL(),
		entry.Verdict.ID().String(),
		entry.Verdict.RiskLevel().String(),
		entry.Verdict.Probability(),
		string(payload),
		entry.CreatedAt.UnixNano(),
		entry.ExpiresAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save verdict: %w", err)
	}
	return nil
}

// Delete removes the entries for fps.
func (s *VerdictStore) Delete(ctx context.Context, fps ...valueobject.Fingerprint) error {
	if len(fps) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(fps)), ",")
	args := make([]any, 0, len(fps))
	for _, fp := range fps {
		args = append(args, fp.String())
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM url_verdicts WHERE fingerprint IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete verdicts: %w", err)
	}
	return nil
}

// PurgeExpired deletes entries past their expiry and returns how many went.
func (s *VerdictStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM url_verdicts WHERE expires_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge expired verdicts: %w", err)
	}
	return res.RowsAffected()
}
