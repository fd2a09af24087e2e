package authz

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     bool
	expiresAt time.Time
	tags      []string
}

// MemoryStore is an in-process CacheStore. It backs the "memory"
// cache store selection and most tests. Entries expire lazily on read.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	tagIndex map[string]map[string]struct{}
	now      func() time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string]memoryEntry),
		tagIndex: make(map[string]map[string]struct{}),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return false, false, nil
	}
	if s.now().After(entry.expiresAt) {
		s.removeLocked(key)
		return false, false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value bool, ttl time.Duration, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(key)
	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl), tags: tags}
	for _, tag := range tags {
		keys, ok := s.tagIndex[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.tagIndex[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, tags ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tag := range tags {
		for key := range s.tagIndex[tag] {
			s.removeLocked(key)
		}
	}
	return nil
}

func (s *MemoryStore) SupportsTags() bool {
	return true
}

func (s *MemoryStore) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memoryEntry)
	s.tagIndex = make(map[string]map[string]struct{})
	return nil
}

// Len reports the number of live entries. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) removeLocked(key string) {
	entry, ok := s.entries[key]
	if !ok {
		return
	}
	delete(s.entries, key)
	for _, tag := range entry.tags {
		if keys, ok := s.tagIndex[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.tagIndex, tag)
			}
		}
	}
}

var _ CacheStore = (*MemoryStore)(nil)
