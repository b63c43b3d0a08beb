// Package shard provides the striped map backing the detector's per-key
// state. Keys hash onto a fixed number of buckets, each with its own lock, so
// work on unrelated keys does not serialise on a single mutex.
package shard

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

type bucket[V any] struct {
	mu    sync.RWMutex
	items map[string]*V
}

type Map[V any] struct {
	buckets []*bucket[V]
}

func New[V any](shards int) *Map[V] {
	if shards <= 0 {
		shards = 1
	}
	m := &Map[V]{buckets: make([]*bucket[V], shards)}
	for i := range m.buckets {
		m.buckets[i] = &bucket[V]{items: make(map[string]*V)}
	}
	return m
}

func (m *Map[V]) bucketFor(key string) *bucket[V] {
	return m.buckets[xxhash.Sum64String(key)%uint64(len(m.buckets))]
}

func (m *Map[V]) Get(key string) (*V, bool) {
	b := m.bucketFor(key)
	b.mu.RLock()
	v, ok := b.items[key]
	b.mu.RUnlock()
	return v, ok
}

// GetOrCreate returns the value stored under key, inserting create() when
// absent. create runs under the bucket lock and must not call back into m.
func (m *Map[V]) GetOrCreate(key string, create func() *V) *V {
	b := m.bucketFor(key)
	b.mu.RLock()
	v, ok := b.items[key]
	b.mu.RUnlock()
	if ok {
		return v
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok = b.items[key]; ok {
		return v
	}
	v = create()
	b.items[key] = v
	return v
}

func (m *Map[V]) Set(key string, v *V) {
	b := m.bucketFor(key)
	b.mu.Lock()
	b.items[key] = v
	b.mu.Unlock()
}

func (m *Map[V]) Delete(key string) {
	b := m.bucketFor(key)
	b.mu.Lock()
	delete(b.items, key)
	b.mu.Unlock()
}

func (m *Map[V]) Len() int {
	n := 0
	for _, b := range m.buckets {
		b.mu.RLock()
		n += len(b.items)
		b.mu.RUnlock()
	}
	return n
}

func (m *Map[V]) Shards() int {
	return len(m.buckets)
}

// SweepShard removes every entry of shard i for which remove returns true
// and reports how many were removed. The bucket is write-locked for the
// duration, so remove may take per-entry locks but must not touch m.
func (m *Map[V]) SweepShard(i int, remove func(key string, v *V) bool) int {
	b := m.buckets[i%len(m.buckets)]
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for k, v := range b.items {
		if remove(k, v) {
			delete(b.items, k)
			removed++
		}
	}
	return removed
}
