package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bibbank/phishguard/internal/application/dto"
	"github.com/bibbank/phishguard/internal/domain/model"
)

// DefaultMaxBatch is the largest batch accepted when none is configured.
const DefaultMaxBatch = 100

// ScanBatch is the use case for scanning many URLs in one request.
type ScanBatch struct {
	decider     Decider
	maxBatch    int
	concurrency int
}

// NewScanBatch creates a new ScanBatch use case.
func NewScanBatch(decider Decider, maxBatch, concurrency int) *ScanBatch {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &ScanBatch{decider: decider, maxBatch: maxBatch, concurrency: concurrency}
}

// Execute scans every URL with bounded concurrency. A URL that fails is
// reported in Failed and does not fail the batch.
func (uc *ScanBatch) Execute(ctx context.Context, req dto.BatchScanRequest) (dto.BatchScanResponse, error) {
	if len(req.URLs) == 0 {
		return dto.BatchScanResponse{}, fmt.Errorf("%w: no urls", model.ErrMalformedURL)
	}
	if len(req.URLs) > uc.maxBatch {
		return dto.BatchScanResponse{}, fmt.Errorf("%w: %d urls, limit is %d", model.ErrBatchTooLarge, len(req.URLs), uc.maxBatch)
	}

	start := time.Now()
	opts := dto.ScanRequest{
		UseTrustSystem:  req.UseTrustSystem,
		IncludeFeatures: req.IncludeFeatures,
		StrictMode:      req.StrictMode,
	}.Options()

	results, failed := scanAll(ctx, uc.decider, req.URLs, opts, uc.concurrency)

	resp := dto.BatchScanResponse{
		Results:        results,
		Failed:         failed,
		Total:          len(req.URLs),
		ProcessingTime: float64(time.Since(start)) / float64(time.Millisecond),
	}
	for _, r := range results {
		if r.IsPhishing {
			resp.PhishingCount++
		} else {
			resp.SafeCount++
		}
	}
	return resp, nil
}

// scanAll decides every URL concurrently and returns the verdicts in input
// order alongside the failures.
func scanAll(ctx context.Context, decider Decider, urls []string, opts model.RequestOptions, limit int) ([]dto.VerdictResponse, []dto.ScanFailure) {
	verdicts := make([]*dto.VerdictResponse, len(urls))
	errs := make([]error, len(urls))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, raw := range urls {
		g.Go(func() error {
			r, err := model.NewURLRequest(raw, opts)
			if err != nil {
				errs[i] = err
				return nil
			}
			v, err := decider.Decide(ctx, r)
			if err != nil {
				errs[i] = err
				return nil
			}
			resp := dto.FromVerdict(v)
			verdicts[i] = &resp
			return nil
		})
	}
	_ = g.Wait()

	results := make([]dto.VerdictResponse, 0, len(urls))
	failed := make([]dto.ScanFailure, 0)
	for i, raw := range urls {
		if errs[i] != nil {
			failed = append(failed, dto.ScanFailure{URL: raw, Error: errs[i].Error()})
			continue
		}
		results = append(results, *verdicts[i])
	}
	return results, failed
}
