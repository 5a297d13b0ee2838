package cache

import (
	"context"
	"path"
	"strconv"
	"sync"
	"time"
)

// MemStore is an in-memory Store used in tests and as a stand-in when no
// Redis instance is configured. TTLs are honored lazily on read.
// Thread-safe via sync.Mutex.
type MemStore struct {
	mu      sync.Mutex
	values  map[string]memEntry
	lists   map[string][]string
	failing bool
	now     func() time.Time
}

type memEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		values: make(map[string]memEntry),
		lists:  make(map[string][]string),
		now:    time.Now,
	}
}

// SetFailing switches the store into or out of a state where every operation
// returns ErrMiss-free failures, simulating an unreachable store.
func (s *MemStore) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

// SetClock overrides the store's clock for TTL tests.
func (s *MemStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemStore) get(key string) (string, bool) {
	entry, ok := s.values[key]
	if !ok {
		return "", false
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.values, key)
		return "", false
	}
	return entry.value, true
}

// Get returns the value stored under key, or ErrMiss.
func (s *MemStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return "", errUnreachable
	}
	val, ok := s.get(key)
	if !ok {
		return "", ErrMiss
	}
	return val, nil
}

// Set stores value under key with the given TTL.
func (s *MemStore) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errUnreachable
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	s.values[key] = memEntry{value: value, expiresAt: expiresAt}
	return nil
}

// Delete removes a single key.
func (s *MemStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errUnreachable
	}
	delete(s.values, key)
	delete(s.lists, key)
	return nil
}

// DeletePattern removes every key matching the glob pattern.
func (s *MemStore) DeletePattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errUnreachable
	}
	for key := range s.values {
		if matched, _ := path.Match(pattern, key); matched {
			delete(s.values, key)
		}
	}
	for key := range s.lists {
		if matched, _ := path.Match(pattern, key); matched {
			delete(s.lists, key)
		}
	}
	return nil
}

// Incr atomically increments the counter under key.
func (s *MemStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, errUnreachable
	}
	current := int64(0)
	if raw, ok := s.get(key); ok {
		current, _ = strconv.ParseInt(raw, 10, 64)
	}
	current++
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	s.values[key] = memEntry{value: strconv.FormatInt(current, 10), expiresAt: expiresAt}
	return current, nil
}

// GetInt returns the counter under key, or 0 when absent.
func (s *MemStore) GetInt(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, errUnreachable
	}
	raw, ok := s.get(key)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// PushCapped prepends value and trims to capacity.
func (s *MemStore) PushCapped(_ context.Context, key, value string, capacity int64, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errUnreachable
	}
	list := append([]string{value}, s.lists[key]...)
	if int64(len(list)) > capacity {
		list = list[:capacity]
	}
	s.lists[key] = list
	return nil
}

// ListPush appends value to the tail of the list under key.
func (s *MemStore) ListPush(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errUnreachable
	}
	s.lists[key] = append(s.lists[key], value)
	return nil
}

// ListPopToList atomically moves the head of src to the tail of dst.
func (s *MemStore) ListPopToList(_ context.Context, src, dst string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return "", errUnreachable
	}
	list := s.lists[src]
	if len(list) == 0 {
		return "", ErrMiss
	}
	head := list[0]
	s.lists[src] = list[1:]
	s.lists[dst] = append(s.lists[dst], head)
	return head, nil
}

// ListRemove removes up to count occurrences of value from the list.
func (s *MemStore) ListRemove(_ context.Context, key, value string, count int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, errUnreachable
	}
	var removed int64
	kept := s.lists[key][:0]
	for _, v := range s.lists[key] {
		if v == value && (count == 0 || removed < count) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	s.lists[key] = kept
	return removed, nil
}

// ListRange returns the elements of the list in [start, stop].
func (s *MemStore) ListRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errUnreachable
	}
	list := s.lists[key]
	n := int64(len(list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return []string{}, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

// ListLen returns the length of the list under key.
func (s *MemStore) ListLen(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, errUnreachable
	}
	return int64(len(s.lists[key])), nil
}

// Ping reports the store's simulated reachability.
func (s *MemStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errUnreachable
	}
	return nil
}
