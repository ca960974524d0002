package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/samvad-article-summarizer/internal/logger"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/httpclient"
)

type httpPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     logger.Logger
}

// newHTTPPublisher normalizes cfg so configs built in code get the same
// defaults as file entries.
func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	hc := cfg.normalized().HTTP

	return &httpPublisher{
		id:      cfg.ID,
		method:  hc.Method,
		url:     hc.URL,
		headers: hc.Headers,
		client:  httpclient.NewRestyHTTPClient(time.Duration(hc.TimeoutSeconds) * time.Second),
		log:     logger.Ensure(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish sends the event as the JSON body. The event id and type are also
// sent as X-Event-Id and X-Event-Type so receivers can route without parsing.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	req := h.client.R().
		SetContext(ctx).
		SetHeaders(h.headers).
		SetHeader("Content-Type", "application/json").
		SetBody(evt)
	if evt.ID != "" {
		req.SetHeader("X-Event-Id", evt.ID)
	}
	if evt.Type != "" {
		req.SetHeader("X-Event-Type", evt.Type)
	}

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("deliver %s to %s: %w", evt.Type, h.url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("deliver %s to %s: status %d: %s", evt.Type, h.url, resp.StatusCode(), bodySnippet(resp.Body()))
	}
	h.log.DebugObj("summary event delivered", "http_delivery", map[string]any{
		"publisher_id": h.id,
		"event_id":     evt.ID,
		"article_url":  evt.Article.URL,
		"status":       resp.StatusCode(),
	})
	return nil
}

const maxSnippetBytes = 512

func bodySnippet(body []byte) string {
	if len(body) > maxSnippetBytes {
		body = body[:maxSnippetBytes]
	}
	return strings.TrimSpace(string(body))
}
