package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bibbank/phishguard/internal/domain/model"
)

// FeedbackRepository implements port.FeedbackRepository using PostgreSQL.
type FeedbackRepository struct {
	db DB
}

// NewFeedbackRepository creates a new PostgreSQL-backed feedback repository.
func NewFeedbackRepository(db DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Save inserts a feedback record.
func (r *FeedbackRepository) Save(ctx context.Context, fb *model.Feedback) error {
	query := `
		INSERT INTO user_feedback (
			id, url, verdict_id, is_correct, actual_label, comment, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var verdictID *uuid.UUID
	if fb.VerdictID() != uuid.Nil {
		id := fb.VerdictID()
		verdictID = &id
	}

	_, err := r.db.Exec(ctx, query,
		fb.ID(),
		fb.URL(),
		verdictID,
		fb.IsCorrect(),
		fb.ActualLabel(),
		fb.Comment(),
		fb.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// FindByID returns the feedback with id or model.ErrNotFound.
func (r *FeedbackRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Feedback, error) {
	query := `
		SELECT id, url, verdict_id, is_correct, actual_label, comment, created_at
		FROM user_feedback
		WHERE id = $1
	`

	fb, err := scanFeedback(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("feedback %s: %w", id, model.ErrNotFound)
		}
		return nil, err
	}
	return fb, nil
}

// FindByURL returns the newest feedback for a normalized URL.
func (r *FeedbackRepository) FindByURL(ctx context.Context, url string, limit int) ([]*model.Feedback, error) {
	query := `
		SELECT id, url, verdict_id, is_correct, actual_label, comment, created_at
		FROM user_feedback
		WHERE url = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, url, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Feedback, 0)
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback: %w", err)
	}
	return out, nil
}

func scanFeedback(row pgx.Row) (*model.Feedback, error) {
	var (
		id          uuid.UUID
		url         string
		verdictID   *uuid.UUID
		isCorrect   bool
		actualLabel int
		comment     string
		createdAt   time.Time
	)

	if err := row.Scan(&id, &url, &verdictID, &isCorrect, &actualLabel, &comment, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan feedback: %w", err)
	}

	vid := uuid.Nil
	if verdictID != nil {
		vid = *verdictID
	}
	return model.ReconstructFeedback(id, vid, url, isCorrect, actualLabel, comment, createdAt), nil
}
