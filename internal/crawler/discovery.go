package crawler

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

const defaultIndexPages = 20

// IndexLister lists the page URLs published by a sitemap or a feed.
type IndexLister interface {
	Sitemap(ctx context.Context, sitemapURL string, headers map[string]string) ([]string, error)
	Feed(ctx context.Context, feedURL string, headers map[string]string) ([]string, error)
}

type urlSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// Sitemap fetches a <urlset> sitemap (plain or news) and returns its page URLs in order.
func (s *Scraper) Sitemap(ctx context.Context, sitemapURL string, headers map[string]string) ([]string, error) {
	body, err := s.get(ctx, strings.TrimSpace(sitemapURL), xmlAccept, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	return parseSitemap(body)
}

// Feed fetches an RSS/Atom/JSON feed and returns the item links in order.
func (s *Scraper) Feed(ctx context.Context, feedURL string, headers map[string]string) ([]string, error) {
	body, err := s.get(ctx, strings.TrimSpace(feedURL), feedAccept, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	return parseFeed(body)
}

func parseSitemap(data []byte) ([]string, error) {
	var set urlSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse sitemap: %w", err)
	}
	out := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			out = append(out, loc)
		}
	}
	return out, nil
}

func parseFeed(data []byte) ([]string, error) {
	feed, err := gofeed.NewParser().ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	out := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" && strings.HasPrefix(item.GUID, "http") {
			link = item.GUID
		}
		if link != "" {
			out = append(out, link)
		}
	}
	return out, nil
}

// ExpandTargets replaces every sitemap and feed target with one page target per
// listed URL, up to MaxPages (default 20). Pages inherit the delay and headers
// of the index they came from; a URL already present is kept once. Indexes
// that fail are skipped and reported in the returned error alongside the
// targets that did expand.
func ExpandTargets(ctx context.Context, lister IndexLister, targets []Target) ([]Target, error) {
	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if isPage(t) {
			seen[t.URL] = struct{}{}
		}
	}

	var errs []error
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if isPage(t) {
			out = append(out, t)
			continue
		}

		var (
			urls []string
			err  error
		)
		if t.Kind == KindFeed {
			urls, err = lister.Feed(ctx, t.URL, t.Headers)
		} else {
			urls, err = lister.Sitemap(ctx, t.URL, t.Headers)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", t.Kind, t.ID, err))
			continue
		}

		limit := t.MaxPages
		if limit <= 0 {
			limit = defaultIndexPages
		}
		added := 0
		for _, u := range urls {
			if added == limit {
				break
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, Target{
				ID:             t.ID + ":" + u,
				URL:            u,
				RequestDelayMs: t.RequestDelayMs,
				Headers:        t.Headers,
				Kind:           KindPage,
			})
			added++
		}
	}
	return out, errors.Join(errs...)
}

func isPage(t Target) bool {
	return t.Kind != KindSitemap && t.Kind != KindFeed
}
