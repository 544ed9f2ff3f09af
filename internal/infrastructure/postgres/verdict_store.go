package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
	pgpkg "github.com/bibbank/phishguard/pkg/postgres"
)

// DB is the subset of *pgxpool.Pool used by the repositories.
type DB interface {
	pgpkg.Querier
	pgpkg.TxBeginner
}

// VerdictStore implements port.VerdictStore on the url_verdicts table. Every
// stored verdict is also appended to the url_scans history.
type VerdictStore struct {
	db DB
}

// NewVerdictStore creates a new PostgreSQL-backed verdict store.
func NewVerdictStore(db DB) *VerdictStore {
	return &VerdictStore{db: db}
}

// Get returns the entry for fp, or nil when absent.
func (s *VerdictStore) Get(ctx context.Context, fp valueobject.Fingerprint) (*model.CacheEntry, error) {
	query := `
		SELECT url, verdict, created_at, expires_at
		FROM url_verdicts
		WHERE fingerprint = $1
	`

	var (
		url       string
		payload   []byte
		createdAt time.Time
		expiresAt time.Time
	)
	err := s.db.QueryRow(ctx, query, fp.String()).Scan(&url, &payload, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query verdict: %w", err)
	}

	var v model.Verdict
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("failed to decode verdict: %w", err)
	}

	return &model.CacheEntry{
		Fingerprint: valueobject.FingerprintFromString(fp.String(), url),
		Verdict:     &v,
		CreatedAt:   createdAt,
		ExpiresAt:   expiresAt,
	}, nil
}

// Put upserts the entry and records the scan in the history table.
func (s *VerdictStore) Put(ctx context.Context, entry model.CacheEntry) error {
	if entry.Verdict == nil {
		return fmt.Errorf("cache entry has no verdict")
	}
	v := entry.Verdict

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}
	rules, err := json.Marshal(v.AppliedRules())
	if err != nil {
		return fmt.Errorf("failed to encode applied rules: %w", err)
	}

	var domain, trustLevel *string
	if t := v.Trust(); t != nil {
		d, l := t.Domain, t.Tier.String()
		domain, trustLevel = &d, &l
	}

	return pgpkg.WithTransaction(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO url_verdicts (
				fingerprint, url, verdict_id, risk_level, probability,
				verdict, created_at, expires_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (fingerprint) DO UPDATE SET
				url = EXCLUDED.url,
				verdict_id = EXCLUDED.verdict_id,
				risk_level = EXCLUDED.risk_level,
				probability = EXCLUDED.probability,
				verdict = EXCLUDED.verdict,
				created_at = EXCLUDED.created_at,
				expires_at = EXCLUDED.expires_at
		`,
			entry.Fingerprint.String(),
			v.URL(),
			v.ID(),
			v.RiskLevel().String(),
			v.Probability(),
			payload,
			entry.CreatedAt,
			entry.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save verdict: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO url_scans (
				verdict_id, url, domain, risk_level, status, probability,
				confidence, trust_level, applied_rules, strict_mode, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (verdict_id) DO NOTHING
		`,
			v.ID(),
			v.URL(),
			domain,
			v.RiskLevel().String(),
			v.Status().String(),
			v.Probability(),
			v.Confidence(),
			trustLevel,
			rules,
			v.StrictMode(),
			v.ComputedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed to record scan: %w", err)
		}
		return nil
	})
}

// Delete removes the entries for fps. Missing entries are ignored.
func (s *VerdictStore) Delete(ctx context.Context, fps ...valueobject.Fingerprint) error {
	if len(fps) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fps))
	for _, fp := range fps {
		keys = append(keys, fp.String())
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM url_verdicts WHERE fingerprint = ANY($1)`, keys); err != nil {
		return fmt.Errorf("failed to delete verdicts: %w", err)
	}
	return nil
}

// PurgeExpired deletes entries past their expiry and returns how many went.
func (s *VerdictStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM url_verdicts WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired verdicts: %w", err)
	}
	return tag.RowsAffected(), nil
}
