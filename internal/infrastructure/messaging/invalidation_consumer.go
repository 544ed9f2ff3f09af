package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bibbank/phishguard/internal/domain/event"
	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
	"github.com/bibbank/phishguard/pkg/events"
	"github.com/bibbank/phishguard/pkg/kafka"
)

// Invalidator drops cached verdicts.
type Invalidator interface {
	Invalidate(ctx context.Context, fps ...valueobject.Fingerprint) error
}

// FeedbackInvalidationHandler evicts the cached verdicts of URLs whose
// feedback reports a wrong prediction, so every replica recomputes them.
type FeedbackInvalidationHandler struct {
	cache  Invalidator
	logger *slog.Logger
}

// NewFeedbackInvalidationHandler creates the handler.
func NewFeedbackInvalidationHandler(cache Invalidator, logger *slog.Logger) *FeedbackInvalidationHandler {
	return &FeedbackInvalidationHandler{cache: cache, logger: logger}
}

// Handle processes one message from the events topic. Other event types
// and malformed messages are skipped so they do not block the partition.
func (h *FeedbackInvalidationHandler) Handle(ctx context.Context, msg kafka.Message) error {
	if t, ok := msg.Headers[HeaderEventType]; ok && t != event.EventTypeFeedbackSubmitted {
		return nil
	}

	var env events.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		h.logger.Warn("skipping malformed event", "error", err)
		return nil
	}
	if env.Type != event.EventTypeFeedbackSubmitted {
		return nil
	}

	var fb event.FeedbackSubmitted
	if err := json.Unmarshal(env.Payload, &fb); err != nil {
		h.logger.Warn("skipping malformed feedback event", "event_id", env.ID, "error", err)
		return nil
	}
	if fb.IsCorrect {
		return nil
	}

	normalized, _, err := model.NormalizeURL(fb.URL)
	if err != nil {
		h.logger.Warn("skipping feedback with invalid url", "event_id", env.ID, "url", fb.URL, "error", err)
		return nil
	}

	if err := h.cache.Invalidate(ctx, valueobject.FingerprintsForURL(normalized)...); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", normalized, err)
	}
	h.logger.Info("invalidated cached verdicts", "url", normalized, "feedback_id", fb.FeedbackID)
	return nil
}
