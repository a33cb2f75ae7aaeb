package store

import (
	"fmt"
	"sync"
	"time"
)

const cleanupInterval = time.Minute

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func (i memoryItem) expired() bool {
	return !i.expiresAt.IsZero() && time.Now().After(i.expiresAt)
}

// MemoryStore is an in-process Store. A background janitor removes expired
// values so long-running processes do not accumulate dead entries.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	sets  map[string]map[string]struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a memory store and starts its cleanup goroutine.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]memoryItem),
		sets:  make(map[string]map[string]struct{}),
		stop:  make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Close stops the cleanup goroutine. The store remains readable afterwards.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// Set stores a value. A ttl of zero means no expiry.
func (s *MemoryStore) Set(key string, value []byte, ttl time.Duration) error {
	item := memoryItem{value: value}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = item
	s.mu.Unlock()
	return nil
}

// Get returns the value for key, or ErrNotFound when absent or expired.
func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	if !ok || item.expired() {
		return nil, ErrNotFound
	}
	return item.value, nil
}

// Del removes values and sets for the given keys. Missing keys are ignored.
func (s *MemoryStore) Del(keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.items, key)
		delete(s.sets, key)
	}
	s.mu.Unlock()
	return nil
}

// Exists reports whether key holds a live value.
func (s *MemoryStore) Exists(key string) (bool, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	return ok && !item.expired(), nil
}

// SAdd adds string members to the set at key.
func (s *MemoryStore) SAdd(key string, members ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	for _, member := range members {
		str, ok := member.(string)
		if !ok {
			return fmt.Errorf("store: set member must be a string, got %T", member)
		}
		set[str] = struct{}{}
	}
	return nil
}

// SPopN removes and returns up to count members from the set at key. Order is
// unspecified. An empty or missing set yields an empty slice.
func (s *MemoryStore) SPopN(key string, count int64) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[key]
	if !ok {
		return nil, nil
	}

	popped := make([]string, 0, count)
	for member := range set {
		if int64(len(popped)) >= count {
			break
		}
		popped = append(popped, member)
		delete(set, member)
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
	return popped, nil
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, item := range s.items {
		if item.expired() {
			delete(s.items, key)
		}
	}
}
