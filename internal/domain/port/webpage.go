package port

import "context"

// PageFetcher downloads an HTML page and returns the absolute http(s) links
// it contains, deduplicated, in document order, at most limit of them.
type PageFetcher interface {
	FetchLinks(ctx context.Context, pageURL string, limit int) ([]string, error)
}
