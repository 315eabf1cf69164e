// Package content pulls the author's contributions from the CodeProb
// contributor config, keeping the raw payload in the cache.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"folio/config"
	"folio/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Types in the order they appear in the contributor config
var Types = []string{"blogs", "articles", "problems", "concepts"}

var ErrUnknownType = errors.New("unknown content type")

// Store is the subset of the cache the fetcher needs
type Store interface {
	Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool, error)
	Put(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

type contributorConfig struct {
	Content map[string][]models.ContentEntry `json:"content"`
}

type Fetcher struct {
	client      *http.Client
	sourceURL   string
	authors     []string
	store       Store
	cacheKey    string
	maxAge      time.Duration
	maxTries    uint64
	initialWait time.Duration
}

type Option func(*Fetcher)

func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithRetry sets how often and how eagerly a failed download is retried
func WithRetry(maxTries uint64, initialWait time.Duration) Option {
	return func(f *Fetcher) {
		f.maxTries = maxTries
		f.initialWait = initialWait
	}
}

// New creates a fetcher. A nil store disables caching.
func New(cfg config.TomlContent, store Store, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{Timeout: 15 * time.Second},
		sourceURL:   cfg.SourceURL,
		authors:     cfg.Authors,
		store:       store,
		cacheKey:    cfg.CacheKey,
		maxAge:      cfg.CacheDuration.Duration,
		maxTries:    3,
		initialWait: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load returns the author's entries, newest first. A fresh cache record is
// used when present, otherwise the config is downloaded and cached.
func (f *Fetcher) Load(ctx context.Context) ([]models.ContentEntry, error) {
	if payload, ok := f.cached(ctx); ok {
		entries, err := f.Process(payload)
		if err == nil {
			log.WithFields(log.Fields{
				"key":     f.cacheKey,
				"entries": len(entries),
			}).Debug("Loaded content from cache")
			return entries, nil
		}
		log.WithFields(log.Fields{
			"key":   f.cacheKey,
			"error": err,
		}).Warn("Discarding unreadable cache entry")
		if err := f.store.Delete(ctx, f.cacheKey); err != nil {
			log.WithFields(log.Fields{"error": err}).Warn("Error deleting cache entry")
		}
	}

	payload, err := f.download(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := f.Process(payload)
	if err != nil {
		return nil, err
	}

	if f.store != nil {
		if err := f.store.Put(ctx, f.cacheKey, payload); err != nil {
			log.WithFields(log.Fields{
				"key":   f.cacheKey,
				"error": err,
			}).Warn("Error writing cache entry")
		}
	}

	log.WithFields(log.Fields{
		"source":  f.sourceURL,
		"entries": len(entries),
	}).Info("Fetched content")

	return entries, nil
}

func (f *Fetcher) cached(ctx context.Context) ([]byte, bool) {
	if f.store == nil {
		return nil, false
	}
	payload, ok, err := f.store.Get(ctx, f.cacheKey, f.maxAge)
	if err != nil {
		// Cache errors fall through to a download
		log.WithFields(log.Fields{
			"key":   f.cacheKey,
			"error": err,
		}).Warn("Error reading cache entry")
		return nil, false
	}
	return payload, ok
}

func (f *Fetcher) download(ctx context.Context) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.initialWait
	b.MaxElapsedTime = 0

	var retries uint64
	if f.maxTries > 1 {
		retries = f.maxTries - 1
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)

	attempt := 0
	payload, err := backoff.RetryWithData(func() ([]byte, error) {
		attempt++
		payload, err := f.get(ctx)
		if err != nil {
			log.WithFields(log.Fields{
				"attempt": attempt,
				"error":   err,
			}).Warn("Error downloading contributor config")
		}
		return payload, err
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("downloading contributor config: %w", err)
	}
	return payload, nil
}

func (f *Fetcher) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("HTTP error! status: %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	return io.ReadAll(resp.Body)
}

// Process extracts the configured author's entries from a raw contributor
// config and sorts them newest first.
func (f *Fetcher) Process(payload []byte) ([]models.ContentEntry, error) {
	var cfg contributorConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, fmt.Errorf("decode error: %w", err)
	}

	var entries []models.ContentEntry
	for _, t := range Types {
		for _, entry := range cfg.Content[t] {
			if !MatchesAuthor(entry.Author, f.authors) {
				continue
			}
			entry.Type = t
			entry.TypeSingular = strings.TrimSuffix(t, "s")
			entries = append(entries, entry)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return parseDate(entries[i].DateAdded).After(parseDate(entries[j].DateAdded))
	})

	return entries, nil
}

// MatchesAuthor reports whether author contains any of names, ignoring case
func MatchesAuthor(author string, names []string) bool {
	author = strings.ToLower(author)
	return lo.SomeBy(names, func(name string) bool {
		return name != "" && strings.Contains(author, strings.ToLower(name))
	})
}

// Filter narrows entries down to one type, "all" keeps everything
func Filter(entries []models.ContentEntry, contentType string) ([]models.ContentEntry, error) {
	if contentType == "" || contentType == "all" {
		return entries, nil
	}
	if !lo.Contains(Types, contentType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, contentType)
	}
	return lo.Filter(entries, func(e models.ContentEntry, _ int) bool {
		return e.Type == contentType
	}), nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "January 2, 2006", "Jan 2, 2006"}

// parseDate returns the zero time for dates it cannot read, so they sort last
func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatDate renders a dateAdded value as "Jan 2, 2006", or returns it as is
func FormatDate(s string) string {
	t := parseDate(s)
	if t.IsZero() {
		return s
	}
	return t.Format("Jan 2, 2006")
}
