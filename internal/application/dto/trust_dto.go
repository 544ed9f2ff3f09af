package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/service"
)

// TrustResponse is the output DTO of a domain trust evaluation.
type TrustResponse struct {
	Evidence           *model.Evidence `json:"evidence,omitempty"`
	Domain             string          `json:"domain"`
	Host               string          `json:"host"`
	Tier               string          `json:"trust_level"`
	Recommendation     string          `json:"recommendation"`
	KeywordMatches     []string        `json:"keyword_matches"`
	SuspiciousPatterns []string        `json:"suspicious_patterns"`
	Reasons            []string        `json:"reasons"`
	Warnings           []string        `json:"warnings"`
	Score              float64         `json:"trust_score"`
	Confidence         float64         `json:"confidence"`
	KnownSafe          bool            `json:"known_safe"`
	IsGovernment       bool            `json:"is_government"`
	IsEducational      bool            `json:"is_educational"`
}

// FromTrust maps a trust assessment to the response DTO.
func FromTrust(t model.TrustAssessment) TrustResponse {
	return TrustResponse{
		Domain:             t.Domain,
		Host:               t.Host,
		Tier:               t.Tier.String(),
		Score:              t.Score,
		Confidence:         t.Confidence,
		KnownSafe:          t.KnownSafe,
		IsGovernment:       t.IsGovernment,
		IsEducational:      t.IsEducational,
		KeywordMatches:     nonNil(t.KeywordMatches),
		SuspiciousPatterns: nonNil(t.SuspiciousPatterns),
		Reasons:            nonNil(t.Reasons),
		Warnings:           nonNil(t.Warnings),
		Recommendation:     t.Recommendation,
		Evidence:           t.Evidence,
	}
}

// FeedbackRequest is the input DTO for submitting feedback. ActualLabel is
// 0 (benign) or 1 (phishing) when set.
type FeedbackRequest struct {
	ActualLabel *int      `json:"actual_label,omitempty"`
	URL         string    `json:"url"`
	Comment     string    `json:"comment,omitempty"`
	VerdictID   uuid.UUID `json:"verdict_id"`
	IsCorrect   bool      `json:"is_correct"`
}

// FeedbackResponse is the output DTO for a stored feedback record.
type FeedbackResponse struct {
	CreatedAt   time.Time `json:"created_at"`
	URL         string    `json:"url"`
	Comment     string    `json:"comment,omitempty"`
	Status      string    `json:"status"`
	ID          uuid.UUID `json:"id"`
	VerdictID   uuid.UUID `json:"verdict_id"`
	ActualLabel int       `json:"actual_label"`
	IsCorrect   bool      `json:"is_correct"`
}

// FromFeedback maps a feedback record to the response DTO.
func FromFeedback(f *model.Feedback, status string) FeedbackResponse {
	return FeedbackResponse{
		ID:          f.ID(),
		URL:         f.URL(),
		VerdictID:   f.VerdictID(),
		IsCorrect:   f.IsCorrect(),
		ActualLabel: f.ActualLabel(),
		Comment:     f.Comment(),
		CreatedAt:   f.CreatedAt(),
		Status:      status,
	}
}

// ModelStatusResponse is the output DTO of the model status report.
type ModelStatusResponse struct {
	Models      []service.ModelStatusReport `json:"models"`
	TotalWeight float64                     `json:"total_weight"`
	Healthy     bool                        `json:"healthy"`
}
