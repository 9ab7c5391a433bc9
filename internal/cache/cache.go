// Package cache keeps recently fetched feed documents so a retried run does
// not hit the same sources again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Store is a byte cache with per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key derives a fixed-length cache key for a feed URL.
func Key(feedURL string) string {
	h := sha256.Sum256([]byte(feedURL))
	return "feed:" + hex.EncodeToString(h[:])
}

type item struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Store. Expired entries are swept periodically
// until Close is called.
type Memory struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

func NewMemory(sweepEvery time.Duration) *Memory {
	c := &Memory{
		items: make(map[string]item),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if sweepEvery > 0 {
		go c.cleanupLoop(sweepEvery)
	}
	return c
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || c.now().After(it.expiresAt) {
		return nil, false, nil
	}
	return it.value, true, nil
}

func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := make([]byte, len(value))
	copy(buf, value)
	c.items[key] = item{value: buf, expiresAt: c.now().Add(ttl)}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Memory) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

func (c *Memory) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *Memory) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, key)
		}
	}
}
