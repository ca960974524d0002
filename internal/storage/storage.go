// Package storage persists the summary cache, chat history, preferences and
// usage statistics between runs.
package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
)

// CachedSummary is a summary stored for a page URL.
type CachedSummary struct {
	URL        string         `json:"url"`
	Title      string         `json:"title"`
	Summary    domain.Summary `json:"summary"`
	Confidence float64        `json:"confidence"`
	StoredAt   time.Time      `json:"storedAt"`
	ExpiresAt  time.Time      `json:"expiresAt"`
}

// StatsDelta is added to the stored counters.
type StatsDelta struct {
	ArticlesProcessed     int
	SummariesGenerated    int
	ChatMessagesExchanged int
}

// SummaryCache keeps recent summaries keyed by URL.
type SummaryCache interface {
	CachedSummary(url string) (CachedSummary, bool, error)
	CacheSummary(entry CachedSummary) error
	ClearSummaries() error
}

// ChatHistory keeps the conversation per URL, capped at MaxChatMessages.
type ChatHistory interface {
	ChatHistory(url string) ([]domain.ChatMessage, error)
	AppendChat(url string, msgs ...domain.ChatMessage) ([]domain.ChatMessage, error)
	ClearChat(url string) error
}

// Settings holds preferences and usage counters.
type Settings interface {
	Preferences() (domain.Preferences, error)
	UpdatePreferences(fn func(*domain.Preferences)) (domain.Preferences, error)
	Statistics() (domain.Statistics, error)
	RecordStats(delta StatsDelta) (domain.Statistics, error)
}

// Store is the full persistence surface.
type Store interface {
	SummaryCache
	ChatHistory
	Settings
	Close() error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	SummaryTTL      time.Duration
	MaxSummaries    int
	CleanupInterval time.Duration
}

const (
	defaultSummaryTTL      = 24 * time.Hour
	defaultMaxSummaries    = 20
	defaultCleanupInterval = time.Hour

	// EvictBatch is how many of the oldest summaries are dropped when the cache is full.
	EvictBatch = 5
	// MaxChatMessages is the number of chat messages kept per URL.
	MaxChatMessages = 50
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "memory":
		return newMemoryStore(opts), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		store, err := openBolt(path, opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.SummaryTTL <= 0 {
		opts.SummaryTTL = defaultSummaryTTL
	}
	if opts.MaxSummaries <= 0 {
		opts.MaxSummaries = defaultMaxSummaries
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

func trimHistory(msgs []domain.ChatMessage) []domain.ChatMessage {
	if len(msgs) > MaxChatMessages {
		msgs = msgs[len(msgs)-MaxChatMessages:]
	}
	return msgs
}

// noopStore persists nothing; reads return defaults.
type noopStore struct{}

func (noopStore) Close() error { return nil }

func (noopStore) CachedSummary(string) (CachedSummary, bool, error) {
	return CachedSummary{}, false, nil
}
func (noopStore) CacheSummary(CachedSummary) error { return nil }
func (noopStore) ClearSummaries() error            { return nil }

func (noopStore) ChatHistory(string) ([]domain.ChatMessage, error) { return nil, nil }
func (noopStore) AppendChat(_ string, msgs ...domain.ChatMessage) ([]domain.ChatMessage, error) {
	return trimHistory(append([]domain.ChatMessage(nil), msgs...)), nil
}
func (noopStore) ClearChat(string) error { return nil }

func (noopStore) Preferences() (domain.Preferences, error) {
	return domain.DefaultPreferences(), nil
}

func (noopStore) UpdatePreferences(fn func(*domain.Preferences)) (domain.Preferences, error) {
	p := domain.DefaultPreferences()
	if fn != nil {
		fn(&p)
	}
	return p, nil
}

func (noopStore) Statistics() (domain.Statistics, error) { return domain.Statistics{}, nil }
func (noopStore) RecordStats(StatsDelta) (domain.Statistics, error) {
	return domain.Statistics{}, nil
}
