package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/phishguard/internal/domain/model"
)

// FeedbackRepository implements port.FeedbackRepository on SQLite.
type FeedbackRepository struct {
	db *sql.DB
}

// NewFeedbackRepository creates a feedback repository over an opened database.
func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Save inserts a feedback record.
func (r *FeedbackRepository) Save(ctx context.Context, fb *model.Feedback) error {
	verdictID := ""
	if fb.VerdictID() != uuid.Nil {
		verdictID = fb.VerdictID().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_feedback (id, url, verdict_id, is_correct, actual_label, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fb.ID().String(), fb.URL(), verdictID, fb.IsCorrect(), fb.ActualLabel(), fb.Comment(), fb.CreatedAt().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

// FindByID returns the feedback with id or model.ErrNotFound.
func (r *FeedbackRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Feedback, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, url, verdict_id, is_correct, actual_label, comment, created_at
		FROM user_feedback WHERE id = ?`, id.String())
	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("feedback %s: %w", id, model.ErrNotFound)
	}
	return fb, err
}

// FindByURL returns the newest feedback for a normalized URL.
func (r *FeedbackRepository) FindByURL(ctx context.Context, url string, limit int) ([]*model.Feedback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, url, verdict_id, is_correct, actual_label, comment, created_at
		FROM user_feedback WHERE url = ?
		ORDER BY created_at DESC LIMIT ?`, url, limit)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
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
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedback(row rowScanner) (*model.Feedback, error) {
	var (
		idStr, url, verdictStr, comment string
		isCorrect                       bool
		actualLabel                     int
		createdAt                       int64
	)
	if err := row.Scan(&idStr, &url, &verdictStr, &isCorrect, &actualLabel, &comment, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan feedback: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse feedback id: %w", err)
	}
	verdictID := uuid.Nil
	if verdictStr != "" {
		if verdictID, err = uuid.Parse(verdictStr); err != nil {
			return nil, fmt.Errorf("parse verdict id: %w", err)
		}
	}
	return model.ReconstructFeedback(id, verdictID, url, isCorrect, actualLabel, comment, time.Unix(0, createdAt).UTC()), nil
}
