package crawler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakeFetcher returns an empty page per URL, or an error for failURL.
type fakeFetcher struct {
	mu      sync.Mutex
	failURL string
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, pageURL string, _ map[string]string) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, pageURL)
	if pageURL == f.failURL {
		return nil, errors.New("boom")
	}
	return Parse([]byte("<html><body></body></html>"), pageURL)
}

// recordingPipeline records processed URLs and can inject errors.
type recordingPipeline struct {
	mu        sync.Mutex
	processed []string
	errOnURL  string
	cancel    context.CancelFunc
}

func (r *recordingPipeline) Process(_ context.Context, page *Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, page.URL)
	if r.cancel != nil {
		r.cancel()
	}
	if page.URL == r.errOnURL {
		return errors.New("pipeline failed")
	}
	return nil
}

func targets(t *testing.T, urls ...string) []Target {
	t.Helper()
	out, err := TargetsFromURLs(urls)
	if err != nil {
		t.Fatalf("TargetsFromURLs: %v", err)
	}
	for i := range out {
		out[i].RequestDelayMs = 1
	}
	return out
}

func TestServiceRunProcessesAllTargets(t *testing.T) {
	fetcher := &fakeFetcher{}
	pipeline := &recordingPipeline{}
	svc := NewService(fetcher, pipeline, nil)

	if err := svc.Run(context.Background(), targets(t, "https://a.example.com", "https://b.example.com")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(pipeline.processed) != 2 {
		t.Fatalf("expected 2 processed pages, got %v", pipeline.processed)
	}
}

func TestServiceRunAggregatesErrors(t *testing.T) {
	fetcher := &fakeFetcher{failURL: "https://a.example.com"}
	pipeline := &recordingPipeline{errOnURL: "https://b.example.com"}
	svc := NewService(fetcher, pipeline, nil)

	err := svc.Run(context.Background(), targets(t, "https://a.example.com", "https://b.example.com", "https://c.example.com"))
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "fetch target https://a.example.com") || !strings.Contains(msg, "process target https://b.example.com") {
		t.Fatalf("unexpected error %q", msg)
	}
	if len(pipeline.processed) != 2 {
		t.Fatalf("expected remaining targets to be processed, got %v", pipeline.processed)
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{}
	pipeline := &recordingPipeline{cancel: cancel}
	svc := NewService(fetcher, pipeline, nil)

	err := svc.Run(ctx, targets(t, "https://a.example.com", "https://b.example.com"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(fetcher.fetched) != 1 {
		t.Fatalf("expected sweep to stop after first target, fetched %v", fetcher.fetched)
	}
}

func TestServiceRunRequiresTargets(t *testing.T) {
	svc := NewService(&fakeFetcher{}, &recordingPipeline{}, nil)
	if err := svc.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty target list")
	}
	var nilSvc *Service
	if err := nilSvc.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil service")
	}
}

func TestLoadTargetsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.yaml")
	content := `targets:
  - id: blog
    url: https://blog.example.com/post
    request_delay_ms: 250
    headers:
      Accept-Language: en
  - url: https://news.example.com/story
  - id: feed
    url: https://news.example.com/rss
    kind: Feed
    max_pages: 5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := LoadTargets(path)
	if err != nil {
		t.Fatalf("LoadTargets: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(got))
	}
	if got[0].ID != "blog" || got[0].RequestDelay().Milliseconds() != 250 || got[0].Headers["Accept-Language"] != "en" {
		t.Fatalf("unexpected first target %+v", got[0])
	}
	if got[1].ID != "https://news.example.com/story" || got[1].RequestDelay().Milliseconds() != defaultRequestDelayMs || got[1].Kind != KindPage {
		t.Fatalf("unexpected second target %+v", got[1])
	}
	if got[2].Kind != KindFeed || got[2].MaxPages != 5 {
		t.Fatalf("unexpected feed target %+v", got[2])
	}
}

func TestLoadTargetsRejectsInvalidEntries(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"dup.json":    `{"targets":[{"id":"x","url":"https://a.example.com"},{"id":"x","url":"https://b.example.com"}]}`,
		"scheme.yaml": "targets:\n  - url: ftp://example.com/file\n",
		"empty.yaml":  "targets: []\n",
		"kind.yaml":   "targets:\n  - url: https://example.com/\n    kind: podcast\n",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := LoadTargets(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

type stubLister struct {
	urls  map[string][]string
	feeds map[string][]string
}

func (s stubLister) Sitemap(_ context.Context, sitemapURL string, _ map[string]string) ([]string, error) {
	urls, ok := s.urls[sitemapURL]
	if !ok {
		return nil, errors.New("status 404 body: missing")
	}
	return urls, nil
}

func (s stubLister) Feed(_ context.Context, feedURL string, _ map[string]string) ([]string, error) {
	urls, ok := s.feeds[feedURL]
	if !ok {
		return nil, errors.New("status 404 body: missing")
	}
	return urls, nil
}

func TestExpandTargets(t *testing.T) {
	lister := stubLister{urls: map[string][]string{
		"https://news.example.com/sitemap.xml": {
			"https://news.example.com/a",
			"https://blog.example.com/pinned",
			"https://news.example.com/b",
			"https://news.example.com/c",
		},
	}, feeds: map[string][]string{
		"https://blog.example.com/rss": {"https://news.example.com/a", "https://blog.example.com/new"},
	}}
	targets := []Target{
		{ID: "pinned", URL: "https://blog.example.com/pinned", Kind: KindPage},
		{ID: "news", URL: "https://news.example.com/sitemap.xml", Kind: KindSitemap, MaxPages: 2, RequestDelayMs: 7, Headers: map[string]string{"X": "1"}},
		{ID: "gone", URL: "https://gone.example.com/sitemap.xml", Kind: KindSitemap},
		{ID: "blog", URL: "https://blog.example.com/rss", Kind: KindFeed},
	}

	got, err := ExpandTargets(context.Background(), lister, targets)
	if err == nil || !strings.Contains(err.Error(), "sitemap gone") {
		t.Fatalf("expected error for failing sitemap, got %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected pinned + 2 sitemap pages + 1 new feed page, got %+v", got)
	}
	if got[3].URL != "https://blog.example.com/new" {
		t.Fatalf("feed duplicates should be skipped, got %+v", got[3])
	}
	if got[1].URL != "https://news.example.com/a" || got[2].URL != "https://news.example.com/b" {
		t.Fatalf("unexpected expansion order %+v", got)
	}
	if got[1].RequestDelayMs != 7 || got[1].Headers["X"] != "1" || got[1].Kind != KindPage {
		t.Fatalf("page target should inherit settings: %+v", got[1])
	}
}
