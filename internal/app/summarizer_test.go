package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-article-summarizer/internal/crawler"
	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
	"github.com/samvad-hq/samvad-article-summarizer/internal/extractor"
	"github.com/samvad-hq/samvad-article-summarizer/internal/storage"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/heuristics"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/publishers"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/webhook"
)

const (
	articleURL = "https://blog.example.com/concurrency"
	portalURL  = "https://blog.example.com/"
)

const prose = "The quick engineer wrote careful code every single morning before the busy team arrived at work. "

var articleHTML = `<html lang="en"><head><title>Blog</title>` +
	`<meta property="og:description" content="A deep dive into goroutines.">` +
	`</head><body><article>` +
	`<h1>Understanding Concurrency In Go</h1>` +
	`<span class="author">Jane Doe</span>` +
	`<time datetime="2024-05-01T10:00:00Z">May 1</time>` +
	strings.Repeat("<p>"+strings.Repeat(prose, 5)+"</p>", 4) +
	`</article></body></html>`

const portalHTML = `<html><body><nav><ul><li>Home</li><li>World</li><li>Politics</li><li>Sport</li></ul></nav></body></html>`

type fakePages struct {
	mu       sync.Mutex
	pages    map[string]string
	sitemaps map[string][]string
	feeds    map[string][]string
	fetches  int
}

func (f *fakePages) Fetch(_ context.Context, pageURL string, _ map[string]string) (*crawler.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	html, ok := f.pages[pageURL]
	if !ok {
		return nil, fmt.Errorf("status 404 body: not found")
	}
	return crawler.Parse([]byte(html), pageURL)
}

func (f *fakePages) Load(path, pageURL string) (*crawler.Page, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return crawler.Parse(raw, pageURL)
}

func (f *fakePages) Sitemap(_ context.Context, sitemapURL string, _ map[string]string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	urls, ok := f.sitemaps[sitemapURL]
	if !ok {
		return nil, fmt.Errorf("status 404 body: no sitemap")
	}
	return urls, nil
}

func (f *fakePages) Feed(_ context.Context, feedURL string, _ map[string]string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	urls, ok := f.feeds[feedURL]
	if !ok {
		return nil, fmt.Errorf("status 404 body: no feed")
	}
	return urls, nil
}

type fakeAI struct {
	mu            sync.Mutex
	summarized    []domain.Article
	chats         []webhook.ChatRequest
	summarizeErr  error
	connectionErr error
}

func (f *fakeAI) Summarize(_ context.Context, a domain.Article) (domain.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summarizeErr != nil {
		return domain.Summary{}, f.summarizeErr
	}
	f.summarized = append(f.summarized, a)
	return domain.Summary{
		Text:        "Goroutines are cheap.",
		KeyPoints:   []string{"use channels"},
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeAI) Chat(_ context.Context, req webhook.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, req)
	return fmt.Sprintf("answer %d", len(f.chats)), nil
}

func (f *fakeAI) TestConnection(context.Context) error { return f.connectionErr }

func (f *fakeAI) summarizeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.summarized)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishers.Event
	err    error
	closed bool
}

func (r *recordingPublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	r.events = append(r.events, evt)
	return 1, nil
}

func (r *recordingPublisher) Size() int { return 1 }

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

type fixture struct {
	s     *Summarizer
	pages *fakePages
	ai    *fakeAI
	pub   *recordingPublisher
	store storage.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewStore("bbolt", filepath.Join(t.TempDir(), "summarizer.db"), storage.Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	f := &fixture{
		pages: &fakePages{pages: map[string]string{articleURL: articleHTML, portalURL: portalHTML}},
		ai:    &fakeAI{},
		pub:   &recordingPublisher{},
		store: store,
	}
	s, err := New(Dependencies{
		Table:     heuristics.Default(),
		Pages:     f.pages,
		AI:        f.ai,
		Store:     store,
		Publisher: f.pub,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.s = s
	t.Cleanup(func() { _ = s.Close() })
	return f
}

func TestSummarizeFreshThenCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.s.Summarize(ctx, Source{URL: articleURL}, SummarizeOptions{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if res.Outcome != OutcomeSummarized || res.Summary == nil || res.Summary.Text != "Goroutines are cheap." {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Published != 1 || len(f.pub.events) != 1 || f.pub.events[0].Cached {
		t.Fatalf("expected one fresh event, got %+v", f.pub.events)
	}

	sent := f.ai.summarized[0]
	if sent.Title != "Understanding Concurrency In Go" || sent.Author != "Jane Doe" {
		t.Fatalf("detector metadata not merged: %+v", sent)
	}
	if sent.PublishDate != "2024-05-01T10:00:00Z" || sent.Description != "A deep dive into goroutines." {
		t.Fatalf("unexpected date/description: %q %q", sent.PublishDate, sent.Description)
	}
	if sent.Confidence < 50 || sent.Confidence != res.Detection.Confidence {
		t.Fatalf("confidence not carried: %v vs %v", sent.Confidence, res.Detection.Confidence)
	}
	if sent.Metadata.WordCount == 0 || sent.Metadata.Language != "en" {
		t.Fatalf("content metadata missing: %+v", sent.Metadata)
	}

	again, err := f.s.Summarize(ctx, Source{URL: articleURL}, SummarizeOptions{})
	if err != nil {
		t.Fatalf("second Summarize: %v", err)
	}
	if again.Outcome != OutcomeCached || again.Summary.Text != "Goroutines are cheap." {
		t.Fatalf("expected cached summary, got %+v", again)
	}
	if f.ai.summarizeCalls() != 1 || again.Published != 0 {
		t.Fatalf("cache hit should not call webhook or publish")
	}

	stats, err := f.s.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.ArticlesProcessed != 2 || stats.SummariesGenerated != 1 || stats.LastUsed == nil {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if _, err := f.s.Summarize(ctx, Source{URL: articleURL}, SummarizeOptions{Refresh: true}); err != nil {
		t.Fatalf("refresh Summarize: %v", err)
	}
	if f.ai.summarizeCalls() != 2 {
		t.Fatalf("refresh should bypass the cache")
	}
}

func TestSummarizeRepublishesCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.s.Summarize(ctx, Source{URL: articleURL}, SummarizeOptions{}); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	res, err := f.s.Summarize(ctx, Source{URL: articleURL}, SummarizeOptions{Republish: true})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if res.Published != 1 || len(f.pub.events) != 2 || !f.pub.events[1].Cached {
		t.Fatalf("expected cached event republished, got %+v", f.pub.events)
	}
}

func TestSummarizeNotArticleIsNotAnError(t *testing.T) {
	f := newFixture(t)

	res, err := f.s.Summarize(context.Background(), Source{URL: portalURL}, SummarizeOptions{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if res.Outcome != OutcomeNotArticle || res.Detection.IsArticle || res.Article != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if f.ai.summarizeCalls() != 0 || len(f.pub.events) != 0 {
		t.Fatalf("non-article must not reach the webhook or publishers")
	}
}

func TestSummarizeWebhookFailure(t *testing.T) {
	f := newFixture(t)
	f.ai.summarizeErr = &webhook.StatusError{Code: 503, Body: "down"}

	res, err := f.s.Summarize(context.Background(), Source{URL: articleURL}, SummarizeOptions{})
	var statusErr *webhook.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 503 {
		t.Fatalf("expected status error, got %v", err)
	}
	if res.Article == nil || res.Summary != nil {
		t.Fatalf("expected article without summary, got %+v", res)
	}
	if _, ok, _ := f.store.CachedSummary(articleURL); ok {
		t.Fatalf("failed summaries must not be cached")
	}
	if len(f.pub.events) != 0 {
		t.Fatalf("failed summaries must not be published")
	}
}

func TestSummarizeRejectsThinCleanedContent(t *testing.T) {
	// Padding inside the paragraph clears the raw length checks but collapses
	// to a single space when cleaned, leaving about 140 characters.
	const thinURL = "https://blog.example.com/thin"
	thinHTML := `<html><body><article itemscope itemtype="https://schema.org/NewsArticle">` +
		`<h1>Understanding Concurrency In Go</h1><span class="byline">Jane Doe</span><time>May 1</time>` +
		`<p>Engineers shipped a careful fix for the scheduler after weeks of investigation.` +
		strings.Repeat(" ", 600) +
		`Operators can enable it today.</p>` +
		`</article></body></html>`

	f := newFixture(t)
	f.pages.pages[thinURL] = thinHTML

	res, err := f.s.Summarize(context.Background(), Source{URL: thinURL}, SummarizeOptions{})
	if !errors.Is(err, extractor.ErrInsufficientContent) {
		t.Fatalf("expected ErrInsufficientContent, got %v", err)
	}
	if !res.Detection.IsArticle || res.Article != nil {
		t.Fatalf("expected a detected article rejected before building, got %+v", res)
	}
	if f.ai.summarizeCalls() != 0 || len(f.pub.events) != 0 {
		t.Fatalf("thin content must not reach the webhook or publishers")
	}
	stats, err := f.s.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.ArticlesProcessed != 0 {
		t.Fatalf("rejected pages must not count as processed, got %+v", stats)
	}
}

func TestSummarizePublishFailureKeepsSummary(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	res, err := f.s.Summarize(context.Background(), Source{URL: articleURL}, SummarizeOptions{})
	if err != nil {
		t.Fatalf("publish failures should not fail the run: %v", err)
	}
	if res.Outcome != OutcomeSummarized || res.Published != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, ok, _ := f.store.CachedSummary(articleURL); !ok {
		t.Fatalf("summary should be cached")
	}
}

func TestSummarizeFetchError(t *testing.T) {
	f := newFixture(t)
	if _, err := f.s.Summarize(context.Background(), Source{URL: "https://missing.example.com"}, SummarizeOptions{}); err == nil {
		t.Fatalf("expected fetch error")
	}
}

func TestSummarizeFromFile(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte(articleHTML), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	res, err := f.s.Summarize(context.Background(), Source{URL: "https://saved.example.com/a", File: path}, SummarizeOptions{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if res.URL != "https://saved.example.com/a" || res.Outcome != OutcomeSummarized {
		t.Fatalf("unexpected result %+v", res)
	}
	if f.pages.fetches != 0 {
		t.Fatalf("file source should not fetch")
	}
}

func TestExtractReturnsPartialContent(t *testing.T) {
	f := newFixture(t)

	got, err := f.s.Extract(context.Background(), Source{URL: portalURL})
	if !errors.Is(err, extractor.ErrInsufficientContent) {
		t.Fatalf("expected ErrInsufficientContent, got %v", err)
	}
	if got.Content.Content != "" || got.Detection.IsArticle {
		t.Fatalf("unexpected extraction %+v", got)
	}

	got, err = f.s.Extract(context.Background(), Source{URL: articleURL})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Content.Title != "Understanding Concurrency In Go" || !got.Detection.IsArticle {
		t.Fatalf("unexpected extraction %+v", got)
	}
}

func TestChatKeepsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.s.Chat(ctx, Source{URL: articleURL}, "What is a goroutine?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if first.Answer != "answer 1" || len(first.History) != 2 {
		t.Fatalf("unexpected reply %+v", first)
	}
	if first.History[0].Role != domain.RoleUser || first.History[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected roles %+v", first.History)
	}

	second, err := f.s.Chat(ctx, Source{URL: articleURL}, "And channels?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(second.History) != 4 {
		t.Fatalf("expected 4 stored messages, got %d", len(second.History))
	}
	req := f.ai.chats[1]
	if len(req.History) != 2 || req.History[0].Content != "What is a goroutine?" {
		t.Fatalf("previous turns not sent: %+v", req.History)
	}
	if !strings.Contains(req.Context, "careful code") || req.Title != "Understanding Concurrency In Go" {
		t.Fatalf("article context missing from chat request")
	}

	stats, _ := f.s.Statistics()
	if stats.ChatMessagesExchanged != 2 {
		t.Fatalf("expected 2 exchanges, got %+v", stats)
	}

	if err := f.s.ClearChat(articleURL); err != nil {
		t.Fatalf("ClearChat: %v", err)
	}
	if hist, _ := f.s.ChatHistory(articleURL); len(hist) != 0 {
		t.Fatalf("expected empty history, got %d", len(hist))
	}
}

func TestChatValidatesBeforeFetching(t *testing.T) {
	f := newFixture(t)

	if _, err := f.s.Chat(context.Background(), Source{URL: articleURL}, strings.Repeat("x", 501)); !errors.Is(err, webhook.ErrMessageTooLong) {
		t.Fatalf("expected ErrMessageTooLong, got %v", err)
	}
	if _, err := f.s.Chat(context.Background(), Source{URL: articleURL}, "   "); !errors.Is(err, webhook.ErrMessageRequired) {
		t.Fatalf("expected ErrMessageRequired, got %v", err)
	}
	if f.pages.fetches != 0 {
		t.Fatalf("invalid messages should not fetch the page")
	}
}

func TestChatNeedsArticleContent(t *testing.T) {
	f := newFixture(t)
	if _, err := f.s.Chat(context.Background(), Source{URL: portalURL}, "Hello?"); !errors.Is(err, extractor.ErrInsufficientContent) {
		t.Fatalf("expected ErrInsufficientContent, got %v", err)
	}
	if len(f.ai.chats) != 0 {
		t.Fatalf("webhook should not be called")
	}
}

func TestPreferencesAndConnection(t *testing.T) {
	f := newFixture(t)

	prefs, err := f.s.UpdatePreferences(func(p *domain.Preferences) { p.Theme = "dark" })
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	if prefs.Theme != "dark" || prefs.SummaryLength != "medium" {
		t.Fatalf("unexpected prefs %+v", prefs)
	}
	if got, _ := f.s.Preferences(); got.Theme != "dark" {
		t.Fatalf("preferences not persisted: %+v", got)
	}

	f.ai.connectionErr = webhook.ErrTimeout
	if err := f.s.TestConnection(context.Background()); !errors.Is(err, webhook.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestCloseReleasesPublisher(t *testing.T) {
	f := newFixture(t)
	if err := f.s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !f.pub.closed {
		t.Fatalf("publisher not closed")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Dependencies{AI: &fakeAI{}}); err == nil {
		t.Fatalf("expected error without page source")
	}
	if _, err := New(Dependencies{Pages: &fakePages{}}); err == nil {
		t.Fatalf("expected error without ai client")
	}
	s, err := New(Dependencies{Pages: &fakePages{}, AI: &fakeAI{}})
	if err != nil {
		t.Fatalf("New with defaults: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
