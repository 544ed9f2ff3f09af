package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/phishguard/pkg/events"
)

const (
	// EventTypeVerdictComputed is emitted when a verdict is computed (not on cache hits).
	EventTypeVerdictComputed = "phishguard.verdict.computed"

	// EventTypeCriticalURLDetected is emitted when a verdict reaches the critical level.
	EventTypeCriticalURLDetected = "phishguard.url.critical"

	// EventTypeFeedbackSubmitted is emitted when a user reports on a verdict.
	EventTypeFeedbackSubmitted = "phishguard.feedback.submitted"

	AggregateVerdict  = "Verdict"
	AggregateFeedback = "Feedback"
)

// VerdictComputed is published when the Decision Engine produces a fresh verdict.
type VerdictComputed struct {
	VerdictID    uuid.UUID `json:"verdict_id"`
	URL          string    `json:"url"`
	RiskLevel    string    `json:"risk_level"`
	Status       string    `json:"status"`
	Probability  float64   `json:"probability"`
	Confidence   float64   `json:"confidence"`
	AppliedRules []string  `json:"applied_rules"`
	ComputedAt   time.Time `json:"computed_at"`
}

// NewVerdictComputed builds the VerdictComputed domain event.
func NewVerdictComputed(
	verdictID uuid.UUID,
	url, riskLevel, status string,
	probability, confidence float64,
	rules []string,
	computedAt time.Time,
) events.DomainEvent {
	return events.NewJSONEvent(EventTypeVerdictComputed, verdictID, AggregateVerdict, VerdictComputed{
		VerdictID:    verdictID,
		URL:          url,
		RiskLevel:    riskLevel,
		Status:       status,
		Probability:  probability,
		Confidence:   confidence,
		AppliedRules: rules,
		ComputedAt:   computedAt,
	})
}

// CriticalURLDetected is published for critical verdicts so blocklists and
// alerting can react without polling.
type CriticalURLDetected struct {
	VerdictID   uuid.UUID `json:"verdict_id"`
	URL         string    `json:"url"`
	Domain      string    `json:"domain,omitempty"`
	Probability float64   `json:"probability"`
	Warnings    []string  `json:"warnings"`
	DetectedAt  time.Time `json:"detected_at"`
}

// NewCriticalURLDetected builds the CriticalURLDetected domain event.
func NewCriticalURLDetected(
	verdictID uuid.UUID,
	url, domain string,
	probability float64,
	warnings []string,
	detectedAt time.Time,
) events.DomainEvent {
	return events.NewJSONEvent(EventTypeCriticalURLDetected, verdictID, AggregateVerdict, CriticalURLDetected{
		VerdictID:   verdictID,
		URL:         url,
		Domain:      domain,
		Probability: probability,
		Warnings:    warnings,
		DetectedAt:  detectedAt,
	})
}

// FeedbackSubmitted is published when feedback is stored. Consumers use it to
// invalidate cached verdicts for the URL.
type FeedbackSubmitted struct {
	FeedbackID  uuid.UUID `json:"feedback_id"`
	VerdictID   uuid.UUID `json:"verdict_id"`
	URL         string    `json:"url"`
	IsCorrect   bool      `json:"is_correct"`
	ActualLabel int       `json:"actual_label"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewFeedbackSubmitted builds the FeedbackSubmitted domain event.
func NewFeedbackSubmitted(
	feedbackID, verdictID uuid.UUID,
	url string,
	isCorrect bool,
	actualLabel int,
	submittedAt time.Time,
) events.DomainEvent {
	return events.NewJSONEvent(EventTypeFeedbackSubmitted, feedbackID, AggregateFeedback, FeedbackSubmitted{
		FeedbackID:  feedbackID,
		VerdictID:   verdictID,
		URL:         url,
		IsCorrect:   isCorrect,
		ActualLabel: actualLabel,
		SubmittedAt: submittedAt,
	})
}
