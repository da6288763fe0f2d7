package storage

import (
	"hash/fnv"
	"sync"
)

const memoryShards = 32

// MemoryStore keeps fingerprints in process memory, striped across shards so
// that unrelated links do not serialize on a single lock.
type MemoryStore struct {
	shards [memoryShards]memoryShard
}

type memoryShard struct {
	mu     sync.RWMutex
	states map[string]string
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{}
	for i := range m.shards {
		m.shards[i].states = make(map[string]string)
	}
	return m
}

func (m *MemoryStore) shard(link string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(link))
	return &m.shards[h.Sum32()%memoryShards]
}

// Get returns the fingerprint recorded for link.
func (m *MemoryStore) Get(link string) (string, bool, error) {
	s := m.shard(link)
	s.mu.RLock()
	defer s.mu.RUnlock()
	fp, ok := s.states[link]
	return fp, ok, nil
}

// Save replaces the fingerprint for link.
func (m *MemoryStore) Save(link, fingerprint string) (string, bool, error) {
	s := m.shard(link)
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.states[link]
	s.states[link] = fingerprint
	return prev, ok, nil
}

// Delete removes link from the store.
func (m *MemoryStore) Delete(link string) error {
	s := m.shard(link)
	s.mu.Lock()
	delete(s.states, link)
	s.mu.Unlock()
	return nil
}

// Len reports how many links are tracked.
func (m *MemoryStore) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.states)
		s.mu.RUnlock()
	}
	return n
}

func (m *MemoryStore) Close() error { return nil }
