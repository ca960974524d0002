package app

import (
	"context"

	"github.com/samvad-hq/samvad-article-summarizer/internal/crawler"
	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/publishers"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/webhook"
)

// PageSource loads pages from the network or from disk, and lists sitemaps and feeds.
type PageSource interface {
	Fetch(ctx context.Context, pageURL string, headers map[string]string) (*crawler.Page, error)
	Load(path, pageURL string) (*crawler.Page, error)
	crawler.IndexLister
}

// AIClient is the summarization backend.
type AIClient interface {
	Summarize(ctx context.Context, article domain.Article) (domain.Summary, error)
	Chat(ctx context.Context, req webhook.ChatRequest) (string, error)
	TestConnection(ctx context.Context) error
}

// EventPublisher fans summarized-article events out to downstream systems.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
	Size() int
	Close() error
}
