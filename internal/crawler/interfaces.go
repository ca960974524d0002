package crawler

import "context"

// PageFetcher loads and parses a page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string, headers map[string]string) (*Page, error)
}

// Pipeline processes one fetched page. Returning an error marks the target failed.
type Pipeline interface {
	Process(ctx context.Context, page *Page) error
}

// PipelineFunc adapts a function to Pipeline.
type PipelineFunc func(ctx context.Context, page *Page) error

// Process calls f.
func (f PipelineFunc) Process(ctx context.Context, page *Page) error { return f(ctx, page) }
