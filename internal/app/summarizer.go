package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-article-summarizer/internal/config"
	"github.com/samvad-hq/samvad-article-summarizer/internal/crawler"
	"github.com/samvad-hq/samvad-article-summarizer/internal/detector"
	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
	"github.com/samvad-hq/samvad-article-summarizer/internal/extractor"
	"github.com/samvad-hq/samvad-article-summarizer/internal/logger"
	"github.com/samvad-hq/samvad-article-summarizer/internal/storage"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/dom"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/heuristics"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/httpclient"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/publishers"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/webhook"
)

// Outcome describes how a summarize run ended.
type Outcome string

const (
	OutcomeNotArticle Outcome = "not_article"
	OutcomeSummarized Outcome = "summarized"
	OutcomeCached     Outcome = "cached"
)

const (
	fetchRetryWait = 500 * time.Millisecond
	// minArticleChars applies to the cleaned text, after whitespace collapsing.
	minArticleChars = 200
)

// Source identifies the page to process: a URL to fetch, or a saved HTML file
// together with the URL it came from.
type Source struct {
	URL     string
	File    string
	Headers map[string]string
}

// SummarizeOptions tweak a single summarize run.
type SummarizeOptions struct {
	// Refresh ignores any cached summary.
	Refresh bool
	// Republish publishes cached summaries too; fresh ones are always published.
	Republish bool
}

// Result is the outcome of one pass of the pipeline over a page.
type Result struct {
	URL       string                 `json:"url"`
	Outcome   Outcome                `json:"outcome"`
	Detection domain.DetectionResult `json:"detection"`
	Article   *domain.Article        `json:"article,omitempty"`
	Summary   *domain.Summary        `json:"summary,omitempty"`
	Published int                    `json:"published"`
}

// Extraction pairs a detection pass with the structured content of the same page.
type Extraction struct {
	Detection domain.DetectionResult  `json:"detection"`
	Content   domain.ExtractedContent `json:"content"`
}

// Dependencies are the collaborators of a Summarizer. An empty Table means the
// built-in selectors; a nil Store or Publisher is inert.
type Dependencies struct {
	Table     heuristics.Table
	Pages     PageSource
	AI        AIClient
	Store     storage.Store
	Publisher EventPublisher
	Log       logger.Logger
}

// Summarizer runs detect, gate, extract, summarize, cache and publish for a page.
// It keeps no per-page state; every call re-runs the pipeline from scratch.
type Summarizer struct {
	pages     PageSource
	detector  *detector.Detector
	extractor *extractor.Extractor
	ai        AIClient
	store     storage.Store
	publisher EventPublisher
	log       logger.Logger
	now       func() time.Time
}

// New wires a Summarizer from explicit dependencies.
func New(deps Dependencies) (*Summarizer, error) {
	if deps.Pages == nil {
		return nil, fmt.Errorf("page source must not be nil")
	}
	if deps.AI == nil {
		return nil, fmt.Errorf("ai client must not be nil")
	}
	log := logger.Ensure(deps.Log)
	table := deps.Table
	if len(table.ArticleContainers) == 0 {
		table = heuristics.Default()
	}

	store := deps.Store
	if store == nil {
		noop, err := storage.NewStore("none", "", storage.Options{})
		if err != nil {
			return nil, err
		}
		store = noop
	}
	var pub EventPublisher = publishers.NewFanout(nil)
	if deps.Publisher != nil {
		pub = deps.Publisher
	}

	return &Summarizer{
		pages:     deps.Pages,
		detector:  detector.New(table, log),
		extractor: extractor.New(table, log),
		ai:        deps.AI,
		store:     store,
		publisher: pub,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// NewSummarizer builds the runtime from configuration: selector table,
// publishers, storage, page fetcher and webhook client.
func NewSummarizer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Summarizer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	table, err := heuristics.Load(cfg.SelectorsFile)
	if err != nil {
		return nil, fmt.Errorf("load selectors: %w", err)
	}

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		SummaryTTL:      cfg.SummaryTTL,
		MaxSummaries:    cfg.SummaryCacheMaxEntries,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                      cfg.StorageType,
		"path":                      cfg.BBoltPath,
		"summary_ttl_seconds":       int(cfg.SummaryTTL.Seconds()),
		"summary_cache_max_entries": cfg.SummaryCacheMaxEntries,
		"cleanup_interval_seconds":  int(cfg.StorageCleanupInterval.Seconds()),
	})

	fetcher := httpclient.NewRestyClient(cfg.FetchTimeout, httpclient.WithRetries(cfg.FetchRetries, fetchRetryWait))
	scraper := crawler.NewScraper(fetcher, crawler.ScraperOptions{
		UserAgent:    cfg.UserAgent,
		MaxHTMLBytes: cfg.MaxHTMLBytes,
	}, log)
	ai := webhook.New(nil, webhook.Endpoints{
		Summarize: cfg.SummarizeURL,
		Chat:      cfg.ChatURL,
	}, cfg.WebhookTimeout, log)
	log.InfoObj("webhook configured", "webhook_config", map[string]any{
		"summarize_url":   cfg.SummarizeURL,
		"chat_url":        cfg.ChatURL,
		"timeout_seconds": int(ai.Timeout().Seconds()),
	})

	return New(Dependencies{
		Table:     table,
		Pages:     scraper,
		AI:        ai,
		Store:     store,
		Publisher: fanout,
		Log:       log,
	})
}

// buildFanout loads the publishers file. An empty path means no publishers.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		log.InfoObj("no publishers file configured; summaries stay local", "publishers_file", path)
		return publishers.NewFanout(nil), nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := reg.Enabled()
	clients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, p := range enabled {
		summaries = append(summaries, map[string]string{"id": p.ID, "type": p.Type})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(clients), nil
}

// Close releases the publishers and the store.
func (s *Summarizer) Close() error {
	if s == nil {
		return nil
	}
	return errors.Join(s.publisher.Close(), s.store.Close())
}

// Detect scores the page without extracting or summarizing it.
func (s *Summarizer) Detect(ctx context.Context, src Source) (domain.DetectionResult, error) {
	page, err := s.load(ctx, src)
	if err != nil {
		return domain.DetectionResult{}, err
	}
	return s.detector.Detect(page.Document), nil
}

// Extract runs detection and structured extraction regardless of the gate.
// On insufficient content the partial extraction is returned with the error.
func (s *Summarizer) Extract(ctx context.Context, src Source) (Extraction, error) {
	page, err := s.load(ctx, src)
	if err != nil {
		return Extraction{}, err
	}
	content, err := s.extractor.ExtractStructuredContent(page.Document)
	return Extraction{
		Detection: s.detector.Detect(page.Document),
		Content:   content,
	}, err
}

// Summarize runs the whole pipeline for one page. A page below the confidence
// threshold is reported as OutcomeNotArticle with a nil error.
func (s *Summarizer) Summarize(ctx context.Context, src Source, opts SummarizeOptions) (Result, error) {
	page, err := s.load(ctx, src)
	if err != nil {
		return Result{}, err
	}
	return s.summarizePage(ctx, page, opts)
}

func (s *Summarizer) summarizePage(ctx context.Context, page *crawler.Page, opts SummarizeOptions) (Result, error) {
	detection := s.detector.Detect(page.Document)
	res := Result{URL: page.URL, Outcome: OutcomeNotArticle, Detection: detection}
	if !detection.IsArticle {
		s.log.InfoObj("page is not an article", "detection", map[string]any{
			"url":        page.URL,
			"confidence": detection.Confidence,
		})
		return res, nil
	}

	content, err := s.extractor.ExtractStructuredContent(page.Document)
	if err != nil {
		return res, fmt.Errorf("extract %s: %w", page.URL, err)
	}
	if n := dom.Len(content.Content); n < minArticleChars {
		s.log.WarnObj("cleaned content too short", "extraction", map[string]any{
			"url":    page.URL,
			"length": n,
		})
		return res, fmt.Errorf("extract %s: cleaned content has %d characters: %w", page.URL, n, extractor.ErrInsufficientContent)
	}
	article := buildArticle(page, detection, content)
	res.Article = &article
	if err := webhook.ValidateArticle(article); err != nil {
		return res, fmt.Errorf("validate %s: %w", page.URL, err)
	}
	s.recordStats(storage.StatsDelta{ArticlesProcessed: 1})

	if !opts.Refresh {
		cached, ok, err := s.store.CachedSummary(article.URL)
		if err != nil {
			s.log.WarnObj("summary cache lookup failed", "cache_error", map[string]any{
				"url":   article.URL,
				"error": err.Error(),
			})
		}
		if ok {
			res.Outcome = OutcomeCached
			res.Summary = &cached.Summary
			s.log.InfoObj("summary served from cache", "summary_meta", map[string]any{
				"url":       article.URL,
				"stored_at": cached.StoredAt,
			})
			if opts.Republish {
				res.Published = s.publish(ctx, article, cached.Summary, true)
			}
			return res, nil
		}
	}

	summary, err := s.ai.Summarize(ctx, article)
	if err != nil {
		return res, fmt.Errorf("summarize %s: %w", article.URL, err)
	}
	res.Outcome = OutcomeSummarized
	res.Summary = &summary
	s.recordStats(storage.StatsDelta{SummariesGenerated: 1})

	if err := s.store.CacheSummary(storage.CachedSummary{
		URL:        article.URL,
		Title:      article.Title,
		Summary:    summary,
		Confidence: article.Confidence,
	}); err != nil {
		s.log.WarnObj("summary cache store failed", "cache_error", map[string]any{
			"url":   article.URL,
			"error": err.Error(),
		})
	}

	s.log.InfoObj("article summarized", "summary_meta", map[string]any{
		"url":        article.URL,
		"confidence": article.Confidence,
		"words":      article.Metadata.WordCount,
		"key_points": len(summary.KeyPoints),
	})
	res.Published = s.publish(ctx, article, summary, false)
	return res, nil
}

// publish fans the event out. Delivery failures are logged, not returned:
// the summary has already been produced and cached.
func (s *Summarizer) publish(ctx context.Context, article domain.Article, summary domain.Summary, cached bool) int {
	if s.publisher.Size() == 0 {
		return 0
	}
	n, err := s.publisher.Publish(ctx, publishers.NewSummaryEvent(article, summary, cached))
	if err != nil {
		s.log.ErrorObj("publish summary failed", "publish_error", map[string]any{
			"url":       article.URL,
			"delivered": n,
			"error":     err.Error(),
		})
	}
	return n
}

// TestConnection probes the summarize webhook.
func (s *Summarizer) TestConnection(ctx context.Context) error {
	return s.ai.TestConnection(ctx)
}

// Statistics returns the usage counters.
func (s *Summarizer) Statistics() (domain.Statistics, error) {
	return s.store.Statistics()
}

// Preferences returns the saved preferences merged over the defaults.
func (s *Summarizer) Preferences() (domain.Preferences, error) {
	return s.store.Preferences()
}

// UpdatePreferences applies fn to the stored preferences.
func (s *Summarizer) UpdatePreferences(fn func(*domain.Preferences)) (domain.Preferences, error) {
	return s.store.UpdatePreferences(fn)
}

// ClearCache drops every cached summary.
func (s *Summarizer) ClearCache() error {
	return s.store.ClearSummaries()
}

func (s *Summarizer) recordStats(delta storage.StatsDelta) {
	if _, err := s.store.RecordStats(delta); err != nil {
		s.log.WarnObj("record statistics failed", "error", err)
	}
}

func (s *Summarizer) load(ctx context.Context, src Source) (*crawler.Page, error) {
	if strings.TrimSpace(src.File) != "" {
		page, err := s.pages.Load(src.File, src.URL)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", src.File, err)
		}
		return page, nil
	}
	page, err := s.pages.Fetch(ctx, src.URL, src.Headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.URL, err)
	}
	return page, nil
}

// buildArticle merges the detector's metadata and confidence into the
// extracted content. Detector metadata wins over the extractor's title; page
// meta tags fill what neither found.
func buildArticle(page *crawler.Page, det domain.DetectionResult, content domain.ExtractedContent) domain.Article {
	return domain.Article{
		URL:         page.URL,
		Title:       firstNonEmpty(det.Metadata.Title, content.Title, page.Meta.Title),
		Subtitle:    content.Subtitle,
		Author:      det.Metadata.Author,
		PublishDate: det.Metadata.PublishDate,
		Description: page.Meta.Description,
		ImageURL:    page.Meta.ImageURL,
		Content:     content.Content,
		Headings:    content.Headings,
		Metadata:    content.Metadata,
		Confidence:  det.Confidence,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
