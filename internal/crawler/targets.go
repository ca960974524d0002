package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-article-summarizer/pkg/cfgfile"
)

const defaultRequestDelayMs = 500

// Target kinds.
const (
	KindPage    = "page"
	KindSitemap = "sitemap"
	KindFeed    = "feed"
)

// Target is one page the watch loop keeps summarizing.
type Target struct {
	ID             string            `json:"id" yaml:"id"`
	URL            string            `json:"url" yaml:"url"`
	RequestDelayMs int               `json:"request_delay_ms" yaml:"request_delay_ms"`
	Headers        map[string]string `json:"headers" yaml:"headers"`

	// Kind is page (default), sitemap or feed. Sitemaps and feeds are
	// expanded into the pages they list, at most MaxPages of them.
	Kind     string `json:"kind" yaml:"kind"`
	MaxPages int    `json:"max_pages" yaml:"max_pages"`
}

// RequestDelay is the pause observed after visiting the target.
func (t Target) RequestDelay() time.Duration {
	if t.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(t.RequestDelayMs) * time.Millisecond
}

type targetFile struct {
	Targets []Target `json:"targets" yaml:"targets"`
}

// LoadTargets reads a YAML or JSON watch list.
func LoadTargets(path string) ([]Target, error) {
	var tf targetFile
	if err := cfgfile.Read(path, "watch list", &tf); err != nil {
		return nil, err
	}
	return normalizeTargets(tf.Targets)
}

// TargetsFromURLs turns bare URLs into targets with default settings.
func TargetsFromURLs(urls []string) ([]Target, error) {
	targets := make([]Target, 0, len(urls))
	for _, u := range urls {
		targets = append(targets, Target{URL: u})
	}
	return normalizeTargets(targets)
}

func normalizeTargets(in []Target) ([]Target, error) {
	if len(in) == 0 {
		return nil, errors.New("watch list contains no targets")
	}

	seen := make(map[string]struct{}, len(in))
	out := make([]Target, 0, len(in))
	for i, t := range in {
		t.URL = strings.TrimSpace(t.URL)
		t.ID = strings.TrimSpace(t.ID)
		if t.URL == "" {
			return nil, fmt.Errorf("target[%d]: url is required", i)
		}
		u, err := url.Parse(t.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("target[%d]: invalid url %q", i, t.URL)
		}
		if t.ID == "" {
			t.ID = t.URL
		}
		switch t.Kind = strings.ToLower(strings.TrimSpace(t.Kind)); t.Kind {
		case "":
			t.Kind = KindPage
		case KindPage, KindSitemap, KindFeed:
		default:
			return nil, fmt.Errorf("target[%d]: unknown kind %q", i, t.Kind)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("duplicate target id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}
