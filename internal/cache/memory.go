package cache

import (
	"context"
	"sync"
)

// Memory is an in-process Store used when no external cache is configured,
// and by tests. It supports tag invalidation.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
	tags   map[string]map[string]struct{} // tag -> set of keys
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string][]byte),
		tags:   make(map[string]map[string]struct{}),
	}
}

// Get returns the cached value for key, if present.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set stores value under key and records its tags.
func (m *Memory) Set(_ context.Context, key string, value []byte, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.values[key] = v

	for _, tag := range tags {
		if m.tags[tag] == nil {
			m.tags[tag] = make(map[string]struct{})
		}
		m.tags[tag][key] = struct{}{}
	}
	return nil
}

// Delete removes a single key. Deleting an absent key is a no-op.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// InvalidateTag removes every key stored under the given tag.
func (m *Memory) InvalidateTag(_ context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.tags[tag] {
		delete(m.values, key)
	}
	delete(m.tags, tag)
	return nil
}
