package cache

import "time"

// Cache - типизированное хранилище с TTL. Сейчас используется под сессии пользователей.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Len() int
}
