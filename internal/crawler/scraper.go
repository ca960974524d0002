package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-article-summarizer/internal/logger"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/dom"
	"github.com/samvad-hq/samvad-article-summarizer/pkg/httpclient"
)

const (
	defaultMaxHTMLBytes = 2 << 20 // 2 MiB
	errorSnippetBytes   = 1024
	htmlAccept          = "text/html,application/xhtml+xml"
	xmlAccept           = "application/xml,text/xml"
	feedAccept          = "application/rss+xml,application/atom+xml,application/feed+json,application/xml"
)

// ErrEmptyURL is returned when a fetch is requested without a URL.
var ErrEmptyURL = errors.New("page url is empty")

// Page is a parsed HTML page ready for detection and extraction.
type Page struct {
	URL      string
	Document dom.Document
	Meta     PageMeta
}

// PageMeta holds the OpenGraph/HTML metadata the extractor does not cover.
type PageMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

// ScraperOptions tunes page fetching.
type ScraperOptions struct {
	UserAgent    string
	MaxHTMLBytes int
}

// Scraper fetches pages and turns them into DocumentViews.
type Scraper struct {
	client    httpclient.Client
	userAgent string
	maxBytes  int
	log       logger.Logger
}

// NewScraper constructs a scraper with the provided HTTP client.
func NewScraper(client httpclient.Client, opts ScraperOptions, log logger.Logger) *Scraper {
	if opts.MaxHTMLBytes <= 0 {
		opts.MaxHTMLBytes = defaultMaxHTMLBytes
	}
	return &Scraper{
		client:    client,
		userAgent: strings.TrimSpace(opts.UserAgent),
		maxBytes:  opts.MaxHTMLBytes,
		log:       logger.Ensure(log),
	}
}

// Fetch downloads pageURL and parses it. Extra headers override the defaults.
func (s *Scraper) Fetch(ctx context.Context, pageURL string, headers map[string]string) (*Page, error) {
	pageURL = strings.TrimSpace(pageURL)
	body, err := s.get(ctx, pageURL, htmlAccept, headers)
	if err != nil {
		return nil, err
	}
	return Parse(body, pageURL)
}

func (s *Scraper) get(ctx context.Context, rawURL, accept string, headers map[string]string) ([]byte, error) {
	if rawURL == "" {
		return nil, ErrEmptyURL
	}
	if s.client == nil {
		return nil, fmt.Errorf("scraper has no http client")
	}

	resp, err := s.client.Get(ctx, rawURL, s.headers(accept, headers))
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != 200 {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > errorSnippetBytes {
			snippet = snippet[:errorSnippetBytes]
		}
		return nil, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	return s.limit(resp.Body(), rawURL), nil
}

// limit cuts body to the configured maximum and logs when it does.
func (s *Scraper) limit(body []byte, source string) []byte {
	if len(body) <= s.maxBytes {
		return body
	}
	s.log.WarnObj("response body truncated", "page_meta", map[string]any{
		"url":       source,
		"bytes":     len(body),
		"max_bytes": s.maxBytes,
	})
	return body[:s.maxBytes]
}

// Load reads a saved HTML file. pageURL is recorded verbatim and may be empty.
func (s *Scraper) Load(path, pageURL string) (*Page, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read html file: %w", err)
	}
	source := pageURL
	if source == "" {
		source = path
	}
	return Parse(s.limit(body, source), pageURL)
}

func (s *Scraper) headers(accept string, extra map[string]string) map[string]string {
	headers := map[string]string{
		"Accept": accept,
	}
	if s.userAgent != "" {
		headers["User-Agent"] = s.userAgent
	}
	for k, v := range extra {
		if strings.TrimSpace(v) != "" {
			headers[k] = strings.TrimSpace(v)
		}
	}
	return headers
}

// Parse builds a Page from raw HTML.
func Parse(body []byte, pageURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Page{
		URL:      pageURL,
		Document: dom.FromGoquery(doc, pageURL),
		Meta:     parseMeta(doc, pageURL),
	}, nil
}

func parseMeta(doc *goquery.Document, pageURL string) PageMeta {
	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return PageMeta{
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
		ImageURL: resolveURL(firstNonEmpty(
			extract(`meta[property="og:image"]`),
			extract(`meta[name="twitter:image"]`),
		), pageURL),
	}
}

// resolveURL makes ref absolute against base; unparsable input is returned as is.
func resolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil || !b.IsAbs() {
		return ref
	}
	return b.ResolveReference(r).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
