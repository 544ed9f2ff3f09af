package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/phishguard/pkg/events"
	"github.com/bibbank/phishguard/internal/domain/event"
)

// Label values for Feedback.ActualLabel.
const (
	LabelUnknown  = -1
	LabelBenign   = 0
	LabelPhishing = 1
)

// Feedback is a user report on whether a verdict was correct.
type Feedback struct {
	createdAt    time.Time
	url          string
	comment      string
	domainEvents []events.DomainEvent
	actualLabel  int
	isCorrect    bool
	verdictID    uuid.UUID
	id           uuid.UUID
}

// NewFeedback validates and creates a feedback record for a normalized URL.
func NewFeedback(url string, verdictID uuid.UUID, isCorrect bool, actualLabel int, comment string) (*Feedback, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", ErrFeedbackInvalid)
	}
	if actualLabel != LabelUnknown && actualLabel != LabelBenign && actualLabel != LabelPhishing {
		return nil, fmt.Errorf("%w: actual label must be 0 or 1, got %d", ErrFeedbackInvalid, actualLabel)
	}
	if len(comment) > 2000 {
		return nil, fmt.Errorf("%w: comment exceeds 2000 characters", ErrFeedbackInvalid)
	}

	f := &Feedback{
		id:          uuid.New(),
		url:         url,
		verdictID:   verdictID,
		isCorrect:   isCorrect,
		actualLabel: actualLabel,
		comment:     comment,
		createdAt:   time.Now().UTC(),
	}
	f.domainEvents = append(f.domainEvents, event.NewFeedbackSubmitted(
		f.id, f.verdictID, f.url, f.isCorrect, f.actualLabel, f.createdAt,
	))
	return f, nil
}

// ReconstructFeedback rebuilds a Feedback from persisted data (no validation, no events).
func ReconstructFeedback(
	id, verdictID uuid.UUID,
	url string,
	isCorrect bool,
	actualLabel int,
	comment string,
	createdAt time.Time,
) *Feedback {
	return &Feedback{
		id:          id,
		verdictID:   verdictID,
		url:         url,
		isCorrect:   isCorrect,
		actualLabel: actualLabel,
		comment:     comment,
		createdAt:   createdAt,
	}
}

// --- Accessors ---

func (f *Feedback) ID() uuid.UUID        { return f.id }
func (f *Feedback) URL() string          { return f.url }
func (f *Feedback) VerdictID() uuid.UUID { return f.verdictID }
func (f *Feedback) IsCorrect() bool      { return f.isCorrect }
func (f *Feedback) ActualLabel() int     { return f.actualLabel }
func (f *Feedback) Comment() string      { return f.comment }
func (f *Feedback) CreatedAt() time.Time { return f.createdAt }

// DomainEvents returns all accumulated domain events and clears them.
func (f *Feedback) DomainEvents() []events.DomainEvent {
	evts := f.domainEvents
	f.domainEvents = nil
	return evts
}
