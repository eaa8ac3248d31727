package cache

import (
	"context"
	"crypto/md5"
	"fmt"
	"sync"
	"time"

	"github.com/MateoRommel12/pineapple-cv/server/models"
	"go.uber.org/zap"
)

type MemoryCache struct {
	items   map[string]*cacheItem
	mutex   sync.RWMutex
	maxSize int
	ttl     time.Duration
	logger  *zap.Logger
	cleanup *time.Ticker
	stopCh  chan struct{}

	hits   int64
	misses int64
}

type cacheItem struct {
	outcome   *models.AnalysisOutcome
	expiresAt time.Time
	lastUsed  time.Time
}

func NewMemoryCache(maxSize int, ttl time.Duration, logger *zap.Logger) *MemoryCache {
	c := &MemoryCache{
		items:   make(map[string]*cacheItem),
		maxSize: maxSize,
		ttl:     ttl,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	c.cleanup = time.NewTicker(1 * time.Minute)
	go c.cleanupExpired()

	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*models.AnalysisOutcome, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item, exists := c.items[key]
	if !exists || time.Now().After(item.expiresAt) {
		if exists {
			delete(c.items, key)
		}
		c.misses++
		return nil, ErrCacheMiss
	}

	item.lastUsed = time.Now()
	c.hits++
	return item.outcome, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, outcome *models.AnalysisOutcome) error {
	return c.SetWithTTL(ctx, key, outcome, c.ttl)
}

func (c *MemoryCache) SetWithTTL(ctx context.Context, key string, outcome *models.AnalysisOutcome, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if len(c.items) >= c.maxSize {
		c.evictLRU()
	}

	c.items[key] = &cacheItem{
		outcome:   outcome,
		expiresAt: time.Now().Add(ttl),
		lastUsed:  time.Now(),
	}
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
	return nil
}

func (c *MemoryCache) Stats(ctx context.Context) (*Stats, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return &Stats{
		Items:  len(c.items),
		Hits:   c.hits,
		Misses: c.misses,
	}, nil
}

func (c *MemoryCache) Close() error {
	if c.cleanup != nil {
		c.cleanup.Stop()
	}
	close(c.stopCh)
	return nil
}

func (c *MemoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range c.items {
		if oldestKey == "" || item.lastUsed.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.lastUsed
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

func (c *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-c.cleanup.C:
			c.mutex.Lock()
			now := time.Now()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mutex.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

// ImageKey derives the cache key for an uploaded image.
func ImageKey(imageData []byte) string {
	return fmt.Sprintf("%x", md5.Sum(imageData))
}
