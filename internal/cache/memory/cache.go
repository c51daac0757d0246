package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/efmnb-optimizer/internal/cache"
)

const DefaultCleanupInterval = 5 * time.Minute

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is an in-memory TTL cache. Expired entries are invisible to Get and
// Len right away and are dropped by a background sweep.
type Cache[K comparable, V any] struct {
	mu       sync.RWMutex
	items    map[K]item[V]
	stopChan chan struct{}
	done     chan struct{}
	stopped  bool
}

func New[K comparable, V any]() *Cache[K, V] {
	return NewWithContext[K, V](context.Background(), DefaultCleanupInterval)
}

// NewWithContext запускает фоновую очистку; она завершается по ctx или Stop()
func NewWithContext[K comparable, V any](ctx context.Context, cleanupInterval time.Duration) *Cache[K, V] {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	c := &Cache[K, V]{
		items:    make(map[K]item[V]),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.sweep(ctx, cleanupInterval)
	return c
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || time.Now().After(it.expiresAt) {
		var zero V
		return zero, false
	}
	return it.value, true
}

func (c *Cache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	c.items[key] = item[V]{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len counts live entries only.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	n := 0
	for _, it := range c.items {
		if !now.After(it.expiresAt) {
			n++
		}
	}
	return n
}

// Stop останавливает очистку и ждёт выхода горутины. Повторный вызов безопасен.
func (c *Cache[K, V]) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.stopChan)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Cache[K, V]) sweep(ctx context.Context, interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.dropExpired(time.Now())
		}
	}
}

func (c *Cache[K, V]) dropExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, k)
			dropped++
		}
	}
	return dropped
}

var _ cache.Cache[int64, struct{}] = (*Cache[int64, struct{}])(nil)
