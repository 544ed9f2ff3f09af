package grpc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/phishguard/internal/application/dto"
	"github.com/bibbank/phishguard/internal/application/usecase"
	"github.com/bibbank/phishguard/internal/domain/model"
)

// Compile-time assertion that DecisionServiceHandler implements DecisionServiceServer.
var _ DecisionServiceServer = (*DecisionServiceHandler)(nil)

// DecisionServiceHandler implements the gRPC DecisionServiceServer interface.
type DecisionServiceHandler struct {
	UnimplementedDecisionServiceServer
	scanURL        *usecase.ScanURL
	evaluateDomain *usecase.EvaluateDomain
	submitFeedback *usecase.SubmitFeedback
	logger         *slog.Logger
}

// NewDecisionServiceHandler creates a new gRPC handler.
func NewDecisionServiceHandler(
	scanURL *usecase.ScanURL,
	evaluateDomain *usecase.EvaluateDomain,
	submitFeedback *usecase.SubmitFeedback,
	logger *slog.Logger,
) *DecisionServiceHandler {
	return &DecisionServiceHandler{
		scanURL:        scanURL,
		evaluateDomain: evaluateDomain,
		submitFeedback: submitFeedback,
		logger:         logger,
	}
}

// Proto-aligned request/response message types.

// ScanRequest represents the proto ScanRequest message.
type ScanRequest struct {
	UseTrustSystem  *bool  `json:"use_trust_system,omitempty"`
	URL             string `json:"url"`
	IncludeFeatures bool   `json:"include_features"`
	StrictMode      bool   `json:"strict_mode"`
}

// ModelScoreMsg represents the proto ModelScore message.
type ModelScoreMsg struct {
	Name        string  `json:"name"`
	Status      string  `json:"status"`
	Probability float64 `json:"probability"`
	Weight      float64 `json:"weight"`
}

// VerdictMsg represents the proto Verdict message.
type VerdictMsg struct {
	ID             string          `json:"id"`
	URL            string          `json:"url"`
	Status         string          `json:"status"`
	RiskLevel      string          `json:"risk_level"`
	Recommendation string          `json:"recommendation"`
	TrustLevel     string          `json:"trust_level,omitempty"`
	ModelScores    []ModelScoreMsg `json:"model_scores"`
	Warnings       []string        `json:"warnings"`
	AppliedRules   []string        `json:"applied_rules"`
	Probability    float64         `json:"probability"`
	Confidence     float64         `json:"confidence"`
	IsPhishing     bool            `json:"is_phishing"`
	Cached         bool            `json:"cached"`
}

// ScanResponse represents the proto ScanResponse message.
type ScanResponse struct {
	Verdict *VerdictMsg `json:"verdict"`
}

// EvaluateDomainRequest represents the proto EvaluateDomainRequest message.
type EvaluateDomainRequest struct {
	Domain string `json:"domain"`
}

// EvaluateDomainResponse represents the proto EvaluateDomainResponse message.
type EvaluateDomainResponse struct {
	Domain         string   `json:"domain"`
	TrustLevel     string   `json:"trust_level"`
	Recommendation string   `json:"recommendation"`
	Reasons        []string `json:"reasons"`
	Warnings       []string `json:"warnings"`
	TrustScore     float64  `json:"trust_score"`
	Confidence     float64  `json:"confidence"`
	KnownSafe      bool     `json:"known_safe"`
}

// SubmitFeedbackRequest represents the proto SubmitFeedbackRequest message.
type SubmitFeedbackRequest struct {
	ActualLabel *int   `json:"actual_label,omitempty"`
	URL         string `json:"url"`
	VerdictID   string `json:"verdict_id"`
	Comment     string `json:"comment"`
	IsCorrect   bool   `json:"is_correct"`
}

// SubmitFeedbackResponse represents the proto SubmitFeedbackResponse message.
type SubmitFeedbackResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Scan handles a single URL scan.
func (h *DecisionServiceHandler) Scan(ctx context.Context, req *ScanRequest) (*ScanResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	result, err := h.scanURL.Execute(ctx, dto.ScanRequest{
		URL:             req.URL,
		IncludeFeatures: req.IncludeFeatures,
		StrictMode:      req.StrictMode,
		UseTrustSystem:  req.UseTrustSystem,
	})
	if err != nil {
		return nil, h.statusFromError("scan", err)
	}

	return &ScanResponse{Verdict: toVerdictMsg(result)}, nil
}

// EvaluateDomain handles a domain trust lookup.
func (h *DecisionServiceHandler) EvaluateDomain(ctx context.Context, req *EvaluateDomainRequest) (*EvaluateDomainResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	result, err := h.evaluateDomain.Execute(ctx, req.Domain)
	if err != nil {
		return nil, h.statusFromError("evaluate domain", err)
	}

	return &EvaluateDomainResponse{
		Domain:         result.Domain,
		TrustLevel:     result.Tier,
		TrustScore:     result.Score,
		Confidence:     result.Confidence,
		KnownSafe:      result.KnownSafe,
		Recommendation: result.Recommendation,
		Reasons:        result.Reasons,
		Warnings:       result.Warnings,
	}, nil
}

// SubmitFeedback records feedback on a verdict.
func (h *DecisionServiceHandler) SubmitFeedback(ctx context.Context, req *SubmitFeedbackRequest) (*SubmitFeedbackResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	var verdictID uuid.UUID
	if req.VerdictID != "" {
		id, err := uuid.Parse(req.VerdictID)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid verdict_id: %v", err)
		}
		verdictID = id
	}

	result, err := h.submitFeedback.Execute(ctx, dto.FeedbackRequest{
		URL:         req.URL,
		VerdictID:   verdictID,
		IsCorrect:   req.IsCorrect,
		ActualLabel: req.ActualLabel,
		Comment:     req.Comment,
	})
	if err != nil {
		return nil, h.statusFromError("submit feedback", err)
	}

	return &SubmitFeedbackResponse{ID: result.ID.String(), Status: result.Status}, nil
}

// statusFromError maps domain sentinels to gRPC status codes.
func (h *DecisionServiceHandler) statusFromError(op string, err error) error {
	switch {
	case errors.Is(err, model.ErrMalformedURL), errors.Is(err, model.ErrFeedbackInvalid):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, model.ErrEnsembleUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		h.logger.Error("failed to "+op, slog.String("error", err.Error()))
		return status.Error(codes.Internal, "internal error")
	}
}

func toVerdictMsg(v dto.VerdictResponse) *VerdictMsg {
	msg := &VerdictMsg{
		ID:             v.ID.String(),
		URL:            v.URL,
		IsPhishing:     v.IsPhishing,
		Status:         v.Status,
		RiskLevel:      v.RiskLevel,
		Probability:    v.Probability,
		Confidence:     v.Confidence,
		Recommendation: v.Recommendation,
		Warnings:       v.Warnings,
		AppliedRules:   v.AppliedRules,
		Cached:         v.Cached,
		ModelScores:    make([]ModelScoreMsg, 0, len(v.ModelScores)),
	}
	for _, s := range v.ModelScores {
		msg.ModelScores = append(msg.ModelScores, ModelScoreMsg{
			Name:        s.Name,
			Status:      s.Status,
			Probability: s.Probability,
			Weight:      s.EffectiveWeight,
		})
	}
	if v.Trust != nil {
		msg.TrustLevel = v.Trust.Tier
	}
	return msg
}
