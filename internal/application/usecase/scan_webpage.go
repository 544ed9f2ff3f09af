package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bibbank/phishguard/internal/application/dto"
	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/port"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

// MaxWebpageLinks caps the number of links scanned from one page.
const MaxWebpageLinks = 50

// ScanWebpage is the use case for scanning a page and the links it contains.
type ScanWebpage struct {
	decider     Decider
	fetcher     port.PageFetcher
	concurrency int
	logger      *slog.Logger
}

// NewScanWebpage creates a new ScanWebpage use case.
func NewScanWebpage(decider Decider, fetcher port.PageFetcher, concurrency int, logger *slog.Logger) *ScanWebpage {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &ScanWebpage{decider: decider, fetcher: fetcher, concurrency: concurrency, logger: logger}
}

// Execute scans the page URL, then up to MaxLinks of its links. A page that
// cannot be fetched still gets its own verdict and the fetch error is
// reported in Failed.
func (uc *ScanWebpage) Execute(ctx context.Context, req dto.WebpageScanRequest) (dto.WebpageScanResponse, error) {
	limit := req.MaxLinks
	if limit <= 0 || limit > MaxWebpageLinks {
		limit = MaxWebpageLinks
	}

	// 1. Scan the page itself.
	pageReq, err := model.NewURLRequest(req.URL, model.RequestOptions{UseTrustSystem: true})
	if err != nil {
		return dto.WebpageScanResponse{}, err
	}
	page, err := uc.decider.Decide(ctx, pageReq)
	if err != nil {
		return dto.WebpageScanResponse{}, fmt.Errorf("failed to scan page: %w", err)
	}

	resp := dto.WebpageScanResponse{
		Page:        dto.FromVerdict(page),
		Links:       []dto.VerdictResponse{},
		Failed:      []dto.ScanFailure{},
		OverallRisk: page.RiskLevel().String(),
	}

	// 2. Collect links.
	links, err := uc.fetcher.FetchLinks(ctx, pageReq.URL(), limit)
	if err != nil {
		uc.logger.Warn("failed to fetch page links", "url", pageReq.URL(), "error", err)
		resp.Failed = append(resp.Failed, dto.ScanFailure{URL: pageReq.URL(), Error: err.Error()})
		return resp, nil
	}
	resp.LinksFound = len(links)

	// 3. Scan links and roll the worst level up.
	resp.Links, resp.Failed = scanAll(ctx, uc.decider, links, model.RequestOptions{UseTrustSystem: true}, uc.concurrency)
	overall := page.RiskLevel()
	for _, l := range resp.Links {
		if l.IsPhishing {
			resp.PhishingLinks++
		}
		if lvl, err := valueobject.RiskLevelFromString(l.RiskLevel); err == nil && lvl.Rank() > overall.Rank() {
			overall = lvl
		}
	}
	resp.OverallRisk = overall.String()

	return resp, nil
}
