package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
)

const (
	summaryBucket  = "summaries"
	chatBucket     = "chats"
	settingsBucket = "settings"

	preferencesKey = "preferences"
	statisticsKey  = "statistics"
)

var buckets = []string{summaryBucket, chatBucket, settingsBucket}

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	summaryTTL      time.Duration
	maxSummaries    int
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (*boltStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	store := &boltStore{
		db:              db,
		summaryTTL:      opts.SummaryTTL,
		maxSummaries:    opts.MaxSummaries,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// CachedSummary returns the unexpired summary for url. Expired entries are deleted.
func (b *boltStore) CachedSummary(url string) (CachedSummary, bool, error) {
	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return CachedSummary{}, false, err
	}

	var (
		entry CachedSummary
		found bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, summaryBucket)
		if err != nil {
			return err
		}

		key := []byte(url)
		raw := bucket.Get(key)
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil || !entry.ExpiresAt.After(now) {
			entry = CachedSummary{}
			return bucket.Delete(key)
		}
		found = true
		return nil
	})
	return entry, found, err
}

// CacheSummary stores entry under its URL. Adding a new URL to a full cache
// first drops the EvictBatch oldest entries.
func (b *boltStore) CacheSummary(entry CachedSummary) error {
	if entry.URL == "" {
		return fmt.Errorf("cached summary requires a url")
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}
	entry.StoredAt = now.UTC()
	entry.ExpiresAt = now.Add(b.summaryTTL).UTC()

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cached summary: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, summaryBucket)
		if err != nil {
			return err
		}
		key := []byte(entry.URL)
		if bucket.Get(key) == nil && countKeys(bucket) >= b.maxSummaries {
			if err := evictOldest(bucket, EvictBatch); err != nil {
				return err
			}
		}
		return bucket.Put(key, raw)
	})
}

// ClearSummaries drops every cached summary.
func (b *boltStore) ClearSummaries() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, summaryBucket)
		if err != nil {
			return err
		}
		return deleteKeys(bucket, func([]byte) bool { return true })
	})
}

// deleteKeys removes every entry whose value matches. Keys are collected
// first; deleting under a live cursor can skip entries.
func deleteKeys(bucket *bolt.Bucket, match func(value []byte) bool) error {
	var doomed [][]byte
	cursor := bucket.Cursor()
	for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
		if match(v) {
			doomed = append(doomed, append([]byte(nil), k...))
		}
	}
	for _, k := range doomed {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func countKeys(bucket *bolt.Bucket) int {
	n := 0
	cursor := bucket.Cursor()
	for k, _ := cursor.First(); k != nil; k, _ = cursor.Next() {
		n++
	}
	return n
}

func evictOldest(bucket *bolt.Bucket, n int) error {
	type aged struct {
		key      []byte
		storedAt time.Time
	}
	var entries []aged
	if err := bucket.ForEach(func(k, v []byte) error {
		var e CachedSummary
		_ = json.Unmarshal(v, &e) // undecodable entries sort first and go first
		entries = append(entries, aged{key: append([]byte(nil), k...), storedAt: e.StoredAt})
		return nil
	}); err != nil {
		return err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].storedAt.Before(entries[j].storedAt)
	})
	if n > len(entries) {
		n = len(entries)
	}
	for _, e := range entries[:n] {
		if err := bucket.Delete(e.key); err != nil {
			return err
		}
	}
	return nil
}

// ChatHistory returns the stored conversation for url, oldest first.
func (b *boltStore) ChatHistory(url string) ([]domain.ChatMessage, error) {
	var msgs []domain.ChatMessage
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, chatBucket)
		if err != nil {
			return err
		}
		return getJSON(bucket, url, &msgs)
	})
	return msgs, err
}

// AppendChat adds msgs to the conversation for url and keeps the last MaxChatMessages.
func (b *boltStore) AppendChat(url string, msgs ...domain.ChatMessage) ([]domain.ChatMessage, error) {
	var history []domain.ChatMessage
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, chatBucket)
		if err != nil {
			return err
		}
		if err := getJSON(bucket, url, &history); err != nil {
			return err
		}
		history = trimHistory(append(history, msgs...))
		return putJSON(bucket, url, history)
	})
	return history, err
}

// ClearChat removes the conversation for url.
func (b *boltStore) ClearChat(url string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, chatBucket)
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(url))
	})
}

// Preferences returns the saved preferences layered over the defaults.
func (b *boltStore) Preferences() (domain.Preferences, error) {
	prefs := domain.DefaultPreferences()
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, settingsBucket)
		if err != nil {
			return err
		}
		return getJSON(bucket, preferencesKey, &prefs)
	})
	return prefs, err
}

// UpdatePreferences applies fn to the current preferences and saves the result.
func (b *boltStore) UpdatePreferences(fn func(*domain.Preferences)) (domain.Preferences, error) {
	prefs := domain.DefaultPreferences()
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, settingsBucket)
		if err != nil {
			return err
		}
		if err := getJSON(bucket, preferencesKey, &prefs); err != nil {
			return err
		}
		if fn != nil {
			fn(&prefs)
		}
		return putJSON(bucket, preferencesKey, prefs)
	})
	return prefs, err
}

// Statistics returns the usage counters.
func (b *boltStore) Statistics() (domain.Statistics, error) {
	var stats domain.Statistics
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, settingsBucket)
		if err != nil {
			return err
		}
		return getJSON(bucket, statisticsKey, &stats)
	})
	return stats, err
}

// RecordStats adds delta to the counters and stamps the last-used time.
func (b *boltStore) RecordStats(delta StatsDelta) (domain.Statistics, error) {
	var stats domain.Statistics
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, settingsBucket)
		if err != nil {
			return err
		}
		if err := getJSON(bucket, statisticsKey, &stats); err != nil {
			return err
		}
		stats.ArticlesProcessed += delta.ArticlesProcessed
		stats.SummariesGenerated += delta.SummariesGenerated
		stats.ChatMessagesExchanged += delta.ChatMessagesExchanged
		now := b.now().UTC()
		stats.LastUsed = &now
		return putJSON(bucket, statisticsKey, stats)
	})
	return stats, err
}

// maybeCleanupExpired removes expired summaries on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, summaryBucket)
		if err != nil {
			return err
		}

		return deleteKeys(bucket, func(v []byte) bool {
			var e CachedSummary
			return json.Unmarshal(v, &e) != nil || !e.ExpiresAt.After(now)
		})
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

func bucketOf(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	bucket := tx.Bucket([]byte(name))
	if bucket == nil {
		return nil, fmt.Errorf("%s bucket missing", name)
	}
	return bucket, nil
}

// getJSON decodes the value at key into out; a missing key leaves out untouched.
func getJSON(bucket *bolt.Bucket, key string, out any) error {
	raw := bucket.Get([]byte(key))
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func putJSON(bucket *bolt.Bucket, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return bucket.Put([]byte(key), raw)
}
