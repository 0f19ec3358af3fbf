// Package shard provides a string-keyed map split across independently locked shards.
package shard

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultShards is used when New is given a non-positive count
const DefaultShards = 32

type bucket[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// Map spreads keys over a fixed set of buckets so unrelated keys rarely share a lock
type Map[V any] struct {
	buckets []*bucket[V]
}

func New[V any](shards int) *Map[V] {
	if shards <= 0 {
		shards = DefaultShards
	}
	m := &Map[V]{buckets: make([]*bucket[V], shards)}
	for i := range m.buckets {
		m.buckets[i] = &bucket[V]{items: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) bucketFor(key string) *bucket[V] {
	return m.buckets[xxhash.Sum64String(key)%uint64(len(m.buckets))]
}

// Do runs fn under the key's shard lock. fn receives the current value and reports
// the next one; returning keep=false deletes the key.
func (m *Map[V]) Do(key string, fn func(cur V, ok bool) (next V, keep bool)) {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.items[key]
	next, keep := fn(cur, ok)
	if keep {
		b.items[key] = next
	} else if ok {
		delete(b.items, key)
	}
}

// View runs fn under the key's shard read lock
func (m *Map[V]) View(key string, fn func(cur V, ok bool)) {
	b := m.bucketFor(key)
	b.mu.RLock()
	defer b.mu.RUnlock()

	cur, ok := b.items[key]
	fn(cur, ok)
}

func (m *Map[V]) Load(key string) (V, bool) {
	b := m.bucketFor(key)
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.items[key]
	return v, ok
}

// Range calls fn for every entry, one shard at a time. fn must not touch the map.
func (m *Map[V]) Range(fn func(key string, v V) bool) {
	for _, b := range m.buckets {
		b.mu.RLock()
		for k, v := range b.items {
			if !fn(k, v) {
				b.mu.RUnlock()
				return
			}
		}
		b.mu.RUnlock()
	}
}

// Len counts entries across shards; the total is not a consistent snapshot
func (m *Map[V]) Len() int {
	n := 0
	for _, b := range m.buckets {
		b.mu.RLock()
		n += len(b.items)
		b.mu.RUnlock()
	}
	return n
}
