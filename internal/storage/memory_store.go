package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
)

// memoryStore keeps everything in process memory. Summaries live in a
// go-cache with the summary TTL so its janitor drops expired entries; chats
// and settings never expire. Nothing survives a restart.
type memoryStore struct {
	mu           sync.Mutex
	summaries    *gocache.Cache
	state        *gocache.Cache
	summaryTTL   time.Duration
	maxSummaries int
	now          func() time.Time
}

func newMemoryStore(opts Options) *memoryStore {
	return &memoryStore{
		summaries:    gocache.New(opts.SummaryTTL, opts.CleanupInterval),
		state:        gocache.New(gocache.NoExpiration, 0),
		summaryTTL:   opts.SummaryTTL,
		maxSummaries: opts.MaxSummaries,
		now:          time.Now,
	}
}

// Close drops every entry.
func (m *memoryStore) Close() error {
	m.summaries.Flush()
	m.state.Flush()
	return nil
}

func (m *memoryStore) CachedSummary(url string) (CachedSummary, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.summaries.Get(url)
	if !ok {
		return CachedSummary{}, false, nil
	}
	entry := v.(CachedSummary)
	if !entry.ExpiresAt.After(m.now()) {
		m.summaries.Delete(url)
		return CachedSummary{}, false, nil
	}
	return entry, true, nil
}

func (m *memoryStore) CacheSummary(entry CachedSummary) error {
	if entry.URL == "" {
		return fmt.Errorf("cached summary requires a url")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry.StoredAt = now.UTC()
	entry.ExpiresAt = now.Add(m.summaryTTL).UTC()

	if _, exists := m.summaries.Get(entry.URL); !exists && m.summaries.ItemCount() >= m.maxSummaries {
		m.evictOldest(EvictBatch)
	}
	m.summaries.Set(entry.URL, entry, m.summaryTTL)
	return nil
}

func (m *memoryStore) evictOldest(n int) {
	items := m.summaries.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	storedAt := func(k string) time.Time {
		e, _ := items[k].Object.(CachedSummary)
		return e.StoredAt
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return storedAt(keys[i]).Before(storedAt(keys[j]))
	})
	if n > len(keys) {
		n = len(keys)
	}
	for _, k := range keys[:n] {
		m.summaries.Delete(k)
	}
}

func (m *memoryStore) ClearSummaries() error {
	m.summaries.Flush()
	return nil
}

func chatKey(url string) string { return "chat:" + url }

func (m *memoryStore) ChatHistory(url string) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chat(url), nil
}

func (m *memoryStore) chat(url string) []domain.ChatMessage {
	v, ok := m.state.Get(chatKey(url))
	if !ok {
		return nil
	}
	return append([]domain.ChatMessage(nil), v.([]domain.ChatMessage)...)
}

func (m *memoryStore) AppendChat(url string, msgs ...domain.ChatMessage) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := trimHistory(append(m.chat(url), msgs...))
	m.state.SetDefault(chatKey(url), history)
	return append([]domain.ChatMessage(nil), history...), nil
}

func (m *memoryStore) ClearChat(url string) error {
	m.state.Delete(chatKey(url))
	return nil
}

func (m *memoryStore) Preferences() (domain.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preferences(), nil
}

func (m *memoryStore) preferences() domain.Preferences {
	if v, ok := m.state.Get(preferencesKey); ok {
		return v.(domain.Preferences)
	}
	return domain.DefaultPreferences()
}

func (m *memoryStore) UpdatePreferences(fn func(*domain.Preferences)) (domain.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefs := m.preferences()
	if fn != nil {
		fn(&prefs)
	}
	m.state.SetDefault(preferencesKey, prefs)
	return prefs, nil
}

func (m *memoryStore) Statistics() (domain.Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statistics(), nil
}

func (m *memoryStore) statistics() domain.Statistics {
	if v, ok := m.state.Get(statisticsKey); ok {
		return v.(domain.Statistics)
	}
	return domain.Statistics{}
}

func (m *memoryStore) RecordStats(delta StatsDelta) (domain.Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.statistics()
	stats.ArticlesProcessed += delta.ArticlesProcessed
	stats.SummariesGenerated += delta.SummariesGenerated
	stats.ChatMessagesExchanged += delta.ChatMessagesExchanged
	now := m.now().UTC()
	stats.LastUsed = &now
	m.state.SetDefault(statisticsKey, stats)
	return stats, nil
}
