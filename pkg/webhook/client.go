// Package webhook talks to the summarization and chat webhooks.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
	"github.com/samvad-hq/samvad-article-summarizer/internal/logger"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/httpclient"
)

const (
	DefaultTimeout = 30 * time.Second
	MinTimeout     = 5 * time.Second
	MaxTimeout     = 60 * time.Second

	errorBodyChars  = 200
	connectionProbe = "This is a test message to verify the connection."
)

// Endpoints are the webhook URLs. Chat falls back to Summarize when empty.
type Endpoints struct {
	Summarize string
	Chat      string
}

// Client sends articles and chat turns to the webhooks.
type Client struct {
	http      httpclient.Client
	endpoints Endpoints
	timeout   time.Duration
	log       logger.Logger
}

// New builds a Client. A nil http client gets a resty client with the clamped timeout.
func New(http httpclient.Client, endpoints Endpoints, timeout time.Duration, log logger.Logger) *Client {
	timeout = ClampTimeout(timeout)
	if http == nil {
		http = httpclient.NewRestyClient(timeout)
	}
	endpoints.Summarize = strings.TrimSpace(endpoints.Summarize)
	endpoints.Chat = strings.TrimSpace(endpoints.Chat)
	if endpoints.Chat == "" {
		endpoints.Chat = endpoints.Summarize
	}
	return &Client{http: http, endpoints: endpoints, timeout: timeout, log: logger.Ensure(log)}
}

// ClampTimeout keeps d within [MinTimeout, MaxTimeout]; non-positive values use DefaultTimeout.
func ClampTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultTimeout
	case d < MinTimeout:
		return MinTimeout
	case d > MaxTimeout:
		return MaxTimeout
	}
	return d
}

// Timeout reports the effective per-request timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

type summarizeRequest struct {
	Text     string         `json:"text"`
	Title    string         `json:"title"`
	URL      string         `json:"url"`
	Metadata map[string]any `json:"metadata"`
}

type summarizeResponse struct {
	Summary   string         `json:"summary"`
	KeyPoints []string       `json:"keyPoints"`
	Metadata  map[string]any `json:"metadata"`
}

// Summarize validates the article and asks the webhook for a summary.
func (c *Client) Summarize(ctx context.Context, article domain.Article) (domain.Summary, error) {
	if err := ValidateArticle(article); err != nil {
		return domain.Summary{}, err
	}
	if n := len([]rune(article.Content)); n > LongContentChars {
		c.log.WarnObj("very long content, summarization may take extra time", "webhook_request", map[string]any{
			"url":    article.URL,
			"length": n,
		})
	}

	payload := summarizeRequest{
		Text:     article.Content,
		Title:    article.Title,
		URL:      article.URL,
		Metadata: articleMetadata(article),
	}

	var out summarizeResponse
	if err := c.post(ctx, c.endpoints.Summarize, payload, &out); err != nil {
		return domain.Summary{}, err
	}
	if strings.TrimSpace(out.Summary) == "" {
		return domain.Summary{}, fmt.Errorf("%w: missing summary", ErrInvalidResponse)
	}

	if out.KeyPoints == nil {
		out.KeyPoints = []string{}
	}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	c.log.InfoObj("summary received", "webhook_response", map[string]any{
		"url":            article.URL,
		"summary_length": len(out.Summary),
		"key_points":     len(out.KeyPoints),
	})
	return domain.Summary{
		Text:        out.Summary,
		KeyPoints:   out.KeyPoints,
		Metadata:    out.Metadata,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// ChatRequest is one question about an article.
type ChatRequest struct {
	Message string
	Context string
	Title   string
	History []domain.ChatMessage
}

type chatRequest struct {
	Message             string               `json:"message"`
	Context             string               `json:"context"`
	Title               string               `json:"title"`
	ConversationHistory []domain.ChatMessage `json:"conversation_history"`
	Type                string               `json:"type"`
}

type chatResponse struct {
	Response string `json:"response"`
	Answer   string `json:"answer"`
	Summary  string `json:"summary"`
}

// Chat sends a question with the article as context and returns the answer.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if err := ValidateMessage(req.Message); err != nil {
		return "", err
	}

	history := req.History
	if history == nil {
		history = []domain.ChatMessage{}
	}
	payload := chatRequest{
		Message:             req.Message,
		Context:             req.Context,
		Title:               req.Title,
		ConversationHistory: history,
		Type:                "chat",
	}

	var out chatResponse
	if err := c.post(ctx, c.endpoints.Chat, payload, &out); err != nil {
		return "", err
	}
	for _, v := range []string{out.Response, out.Answer, out.Summary} {
		if strings.TrimSpace(v) != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: missing response", ErrInvalidResponse)
}

// TestConnection posts a probe to the summarize endpoint. Any 2xx response passes.
func (c *Client) TestConnection(ctx context.Context) error {
	payload := map[string]any{"text": connectionProbe, "test": true}
	return c.post(ctx, c.endpoints.Summarize, payload, nil)
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out any) error {
	if endpoint == "" {
		return ErrNoEndpoint
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.PostJSON(ctx, endpoint, nil, payload)
	if err != nil {
		err = classify(err)
		c.log.ErrorObj("webhook request failed", "webhook_error", map[string]any{
			"endpoint":   endpoint,
			"elapsed_ms": time.Since(start).Milliseconds(),
			"error":      err.Error(),
		})
		return err
	}

	if code := resp.StatusCode(); code < 200 || code > 299 {
		body := strings.TrimSpace(string(resp.Body()))
		if r := []rune(body); len(r) > errorBodyChars {
			body = string(r[:errorBodyChars])
		}
		c.log.ErrorObj("webhook returned error status", "webhook_error", map[string]any{
			"endpoint": endpoint,
			"status":   code,
			"body":     body,
		})
		return &StatusError{Code: code, Body: body}
	}

	c.log.DebugObj("webhook response received", "webhook_response", map[string]any{
		"endpoint":   endpoint,
		"status":     resp.StatusCode(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func articleMetadata(a domain.Article) map[string]any {
	md := map[string]any{
		"wordCount":         a.Metadata.WordCount,
		"estimatedReadTime": a.Metadata.EstimatedReadTime,
		"language":          a.Metadata.Language,
		"confidence":        a.Confidence,
	}
	optional := map[string]string{
		"subtitle":    a.Subtitle,
		"author":      a.Author,
		"publishDate": a.PublishDate,
		"description": a.Description,
		"imageUrl":    a.ImageURL,
	}
	for k, v := range optional {
		if v != "" {
			md[k] = v
		}
	}
	if len(a.Headings) > 0 {
		md["headings"] = a.Headings
	}
	return md
}
