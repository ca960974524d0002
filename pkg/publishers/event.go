package publishers

import (
	"time"

	"github.com/google/uuid"

	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
)

// EventArticleSummarized is the only event type emitted today.
const EventArticleSummarized = "article.summarized"

// Event represents the payload published downstream.
type Event struct {
	ID           string         `json:"event_id"`
	Type         string         `json:"event_type"`
	Article      domain.Article `json:"article"`
	Summary      domain.Summary `json:"summary"`
	Cached       bool           `json:"cached"`
	SummarizedAt time.Time      `json:"summarized_at"`
}

// NewSummaryEvent constructs an Event for a summarized article.
func NewSummaryEvent(article domain.Article, summary domain.Summary, cached bool) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         EventArticleSummarized,
		Article:      article,
		Summary:      summary,
		Cached:       cached,
		SummarizedAt: time.Now().UTC(),
	}
}

// attributes are the non-empty routing attributes attached by queue/topic publishers.
func (e Event) attributes() map[string]string {
	attrs := make(map[string]string, 3)
	if e.ID != "" {
		attrs["event_id"] = e.ID
	}
	if e.Type != "" {
		attrs["event_type"] = e.Type
	}
	if e.Article.URL != "" {
		attrs["article_url"] = e.Article.URL
	}
	return attrs
}
