package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/phishguard/internal/application/dto"
	"github.com/bibbank/phishguard/internal/domain/model"
)

// ScanURL is the use case for a full single-URL scan.
type ScanURL struct {
	decider Decider
}

// NewScanURL creates a new ScanURL use case.
func NewScanURL(decider Decider) *ScanURL {
	return &ScanURL{decider: decider}
}

// Execute normalizes the URL and returns its verdict.
func (uc *ScanURL) Execute(ctx context.Context, req dto.ScanRequest) (dto.VerdictResponse, error) {
	r, err := model.NewURLRequest(req.URL, req.Options())
	if err != nil {
		return dto.VerdictResponse{}, err
	}

	v, err := uc.decider.Decide(ctx, r)
	if err != nil {
		return dto.VerdictResponse{}, fmt.Errorf("failed to scan url: %w", err)
	}

	return dto.FromVerdict(v), nil
}

// QuickScan is the use case for a reduced scan with default flags.
type QuickScan struct {
	decider Decider
}

// NewQuickScan creates a new QuickScan use case.
func NewQuickScan(decider Decider) *QuickScan {
	return &QuickScan{decider: decider}
}

// Execute scans rawURL with the trust system on and strict mode off.
func (uc *QuickScan) Execute(ctx context.Context, rawURL string) (dto.QuickScanResponse, error) {
	r, err := model.NewURLRequest(rawURL, model.RequestOptions{UseTrustSystem: true})
	if err != nil {
		return dto.QuickScanResponse{}, err
	}

	v, err := uc.decider.Decide(ctx, r)
	if err != nil {
		return dto.QuickScanResponse{}, fmt.Errorf("failed to scan url: %w", err)
	}

	return dto.QuickScanResponse{
		URL:         v.URL(),
		IsPhishing:  v.IsPhishing(),
		Probability: v.Probability(),
		RiskLevel:   v.RiskLevel().String(),
	}, nil
}
