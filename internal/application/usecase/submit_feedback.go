package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bibbank/phishguard/internal/application/dto"
	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/port"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

// SubmitFeedback is the use case for recording user feedback on a verdict.
type SubmitFeedback struct {
	repo      port.FeedbackRepository
	publisher port.EventPublisher
	cache     CacheInvalidator
	logger    *slog.Logger
}

// NewSubmitFeedback creates a new SubmitFeedback use case. publisher may be nil.
func NewSubmitFeedback(
	repo port.FeedbackRepository,
	publisher port.EventPublisher,
	cache CacheInvalidator,
	logger *slog.Logger,
) *SubmitFeedback {
	return &SubmitFeedback{repo: repo, publisher: publisher, cache: cache, logger: logger}
}

// Execute validates and stores the feedback. A report that the verdict was
// wrong also drops the URL's cached verdicts.
func (uc *SubmitFeedback) Execute(ctx context.Context, req dto.FeedbackRequest) (dto.FeedbackResponse, error) {
	// 1. Normalize the URL so feedback matches verdict fingerprints.
	normalized, _, err := model.NormalizeURL(req.URL)
	if err != nil {
		return dto.FeedbackResponse{}, fmt.Errorf("%w: %v", model.ErrFeedbackInvalid, err)
	}

	label := model.LabelUnknown
	if req.ActualLabel != nil {
		label = *req.ActualLabel
	}

	// 2. Create the feedback aggregate.
	fb, err := model.NewFeedback(normalized, req.VerdictID, req.IsCorrect, label, req.Comment)
	if err != nil {
		return dto.FeedbackResponse{}, err
	}

	// 3. Persist it.
	if err := uc.repo.Save(ctx, fb); err != nil {
		return dto.FeedbackResponse{}, fmt.Errorf("failed to save feedback: %w", err)
	}

	// 4. Invalidate cached verdicts the user disputes.
	if !fb.IsCorrect() && uc.cache != nil {
		if err := uc.cache.Invalidate(ctx, valueobject.FingerprintsForURL(normalized)...); err != nil {
			uc.logger.Warn("failed to invalidate cached verdicts", "url", normalized, "error", err)
		}
	}

	// 5. Publish domain events.
	if evts := fb.DomainEvents(); len(evts) > 0 && uc.publisher != nil {
		if err := uc.publisher.Publish(ctx, evts...); err != nil {
			uc.logger.Warn("failed to publish feedback events", "feedback_id", fb.ID(), "error", err)
		}
	}

	return dto.FromFeedback(fb, "received"), nil
}

// GetFeedback is the use case for reading back a feedback record.
type GetFeedback struct {
	repo port.FeedbackRepository
}

// NewGetFeedback creates a new GetFeedback use case.
func NewGetFeedback(repo port.FeedbackRepository) *GetFeedback {
	return &GetFeedback{repo: repo}
}

// Execute returns the feedback with the given id.
func (uc *GetFeedback) Execute(ctx context.Context, id uuid.UUID) (dto.FeedbackResponse, error) {
	fb, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return dto.FeedbackResponse{}, fmt.Errorf("failed to find feedback: %w", err)
	}
	return dto.FromFeedback(fb, "stored"), nil
}

// InvalidateURL is the use case that drops every cached verdict of a URL.
type InvalidateURL struct {
	cache CacheInvalidator
}

// NewInvalidateURL creates a new InvalidateURL use case.
func NewInvalidateURL(cache CacheInvalidator) *InvalidateURL {
	return &InvalidateURL{cache: cache}
}

// Execute normalizes rawURL and invalidates all of its flag variants.
func (uc *InvalidateURL) Execute(ctx context.Context, rawURL string) error {
	normalized, _, err := model.NormalizeURL(rawURL)
	if err != nil {
		return err
	}
	return uc.cache.Invalidate(ctx, valueobject.FingerprintsForURL(normalized)...)
}
