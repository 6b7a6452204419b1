package sharded

import "sync"

type mapShard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// Map is a concurrent-safe string-keyed map, striped across shards so that
// independent keys rarely contend on the same lock.
type Map[V any] []*mapShard[V]

// NewMap creates an empty sharded map.
func NewMap[V any]() Map[V] {
	m := make(Map[V], numShards)
	for i := range m {
		m[i] = &mapShard[V]{items: make(map[string]V)}
	}
	return m
}

func (m Map[V]) shard(key string) *mapShard[V] {
	return m[shardIndex(key)]
}

// Store sets the value for key.
func (m Map[V]) Store(key string, value V) {
	s := m.shard(key)
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
}

// Load retrieves the value for key.
func (m Map[V]) Load(key string) (value V, ok bool) {
	s := m.shard(key)
	s.mu.RLock()
	value, ok = s.items[key]
	s.mu.RUnlock()
	return value, ok
}

// Delete removes key from the map.
func (m Map[V]) Delete(key string) {
	s := m.shard(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// Count returns the total number of elements across all shards.
func (m Map[V]) Count() int {
	count := 0
	for _, s := range m {
		s.mu.RLock()
		count += len(s.items)
		s.mu.RUnlock()
	}
	return count
}

// Range calls f for each key/value pair. If f returns false, Range stops
// early. f must not mutate the map.
func (m Map[V]) Range(f func(key string, value V) bool) {
	for _, s := range m {
		s.mu.RLock()
		for k, v := range s.items {
			if !f(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Items returns a snapshot copy of all key/value pairs.
func (m Map[V]) Items() map[string]V {
	items := make(map[string]V, m.Count())
	m.Range(func(k string, v V) bool {
		items[k] = v
		return true
	})
	return items
}
