// Package summary puts a content-addressed cache in front of the LLM
// summarizer and supplies the excerpt fallback used when AI summaries fail.
package summary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// SummarizeFunc produces a summary or fails; failures are never cached
type SummarizeFunc func(ctx context.Context, content string) (string, error)

// Observer counts cache hits and misses
type Observer interface {
	ObserveSummaryCache(hit bool)
}

type Cache struct {
	store    Store
	ttl      time.Duration
	observer Observer
	logger   *slog.Logger
}

func NewCache(store Store, ttl time.Duration, observer Observer, logger *slog.Logger) *Cache {
	return &Cache{store: store, ttl: ttl, observer: observer, logger: logger}
}

// Key hashes content into the cache key
func Key(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// GetOrSummarize returns the cached summary for content or computes and stores it.
// A store failure degrades to a recompute; a summarizer failure is returned as is.
func (c *Cache) GetOrSummarize(ctx context.Context, content string, fn SummarizeFunc) (string, error) {
	key := Key(content)

	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("summary cache read failed", slog.Any("error", err))
	}
	if ok {
		c.observe(true)
		return cached, nil
	}
	c.observe(false)

	summary, err := fn(ctx, content)
	if err != nil {
		return "", err
	}

	if err := c.store.Set(ctx, key, summary, c.ttl); err != nil {
		c.logger.Warn("summary cache write failed", slog.Any("error", err))
	}
	return summary, nil
}

func (c *Cache) observe(hit bool) {
	if c.observer != nil {
		c.observer.ObserveSummaryCache(hit)
	}
}
