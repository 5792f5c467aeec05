package cache

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultSize = 256
	DefaultTTL  = 24 * time.Hour
)

var ErrCacheMiss = errors.New("cache miss")

// Stats is a point-in-time view of a Store.
type Stats struct {
	Entries int
	Hits    uint64
	Misses  uint64
}

// Store is a size-bounded in-memory cache whose entries expire after a TTL.
// It is safe for concurrent use.
type Store[K comparable, V any] struct {
	lru    *expirable.LRU[K, V]
	hits   atomic.Uint64
	misses atomic.Uint64
}

func New[K comparable, V any](size int, ttl time.Duration) *Store[K, V] {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store[K, V]{lru: expirable.NewLRU[K, V](size, nil, ttl)}
}

func (s *Store[K, V]) Get(key K) (V, bool) {
	v, ok := s.lru.Get(key)
	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return v, ok
}

// Lookup is Get with ErrCacheMiss in place of the boolean.
func (s *Store[K, V]) Lookup(key K) (V, error) {
	v, ok := s.Get(key)
	if !ok {
		return v, ErrCacheMiss
	}
	return v, nil
}

func (s *Store[K, V]) Add(key K, value V) {
	s.lru.Add(key, value)
}

func (s *Store[K, V]) Delete(key K) bool {
	return s.lru.Remove(key)
}

func (s *Store[K, V]) Clear() {
	s.lru.Purge()
}

func (s *Store[K, V]) Stats() Stats {
	return Stats{
		Entries: s.lru.Len(),
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
	}
}
