package ratelimit

import (
	"sync"
	"time"
)

// Стоимость операций в вызовах модели
const (
	CostAnalyze = 1
	CostImprove = 12
)

type entry struct {
	at   time.Time
	cost int
}

// Limiter - rate limiter на юзера (sliding window), считает вызовы модели, а не запросы:
// /improve стоит 12 вызовов, пакет из N строк - N.
type Limiter struct {
	mu       sync.Mutex
	requests map[int64][]entry
	limit    int
	window   time.Duration
	stop     chan struct{}
	once     sync.Once
}

type Config struct {
	CallsPerMinute int
	// Window - для тестов; по умолчанию минута
	Window time.Duration
}

func New(cfg Config) *Limiter {
	limit := cfg.CallsPerMinute
	if limit <= 0 {
		limit = 30
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	l := &Limiter{
		requests: make(map[int64][]entry),
		limit:    limit,
		window:   window,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *Limiter) Allow(userID int64) bool {
	return l.AllowN(userID, 1)
}

// AllowN резервирует cost вызовов. Операция дороже всего лимита
// проходит только при пустом окне, иначе её нельзя было бы выполнить никогда.
func (l *Limiter) AllowN(userID int64, cost int) bool {
	if cost <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	fresh, used := l.freshLocked(userID, now)

	if used > 0 && used+cost > l.limit {
		l.requests[userID] = fresh
		return false
	}

	l.requests[userID] = append(fresh, entry{at: now, cost: cost})
	return true
}

func (l *Limiter) RemainingCalls(userID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, used := l.freshLocked(userID, time.Now())
	if rem := l.limit - used; rem > 0 {
		return rem
	}
	return 0
}

// ResetTime - когда освободится самая старая запись (приблизительно)
func (l *Limiter) ResetTime(userID int64) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	es := l.requests[userID]
	if len(es) == 0 {
		return time.Now()
	}

	oldest := es[0].at
	for _, e := range es[1:] {
		if e.at.Before(oldest) {
			oldest = e.at
		}
	}
	return oldest.Add(l.window)
}

func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) freshLocked(userID int64, now time.Time) ([]entry, int) {
	cutoff := now.Add(-l.window)

	old := l.requests[userID]
	fresh := old[:0] // reuse underlying array
	used := 0
	for _, e := range old {
		if e.at.After(cutoff) {
			fresh = append(fresh, e)
			used += e.cost
		}
	}
	return fresh, used
}

func (l *Limiter) cleanup() {
	tick := time.NewTicker(5 * time.Minute)
	defer tick.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-tick.C:
			l.removeStale()
		}
	}
}

func (l *Limiter) removeStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for uid := range l.requests {
		fresh, _ := l.freshLocked(uid, now)
		if len(fresh) == 0 {
			delete(l.requests, uid)
		} else {
			l.requests[uid] = fresh
		}
	}
}
