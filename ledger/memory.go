package ledger

import (
	"context"
	"sync"
)

// MemoryStore implements Store with in-process counters. It mirrors the
// Redis semantics exactly (all-or-nothing, window keyed) but only covers a
// single process; use RedisStore when more than one instance shares the
// budget.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[int64]*window
}

type window struct {
	tokens   int64
	requests int64
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[int64]*window)}
}

// Reserve implements Store under a single mutex, which makes the
// read-compare-increment atomic with respect to all callers in this process.
func (s *MemoryStore) Reserve(_ context.Context, bucket int64, tokens, requests, tokenCeiling, requestCeiling int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.windows[bucket]
	if w == nil {
		w = &window{}
		s.windows[bucket] = w
		s.expire(bucket)
	}
	if tokenCeiling > 0 && w.tokens+tokens > tokenCeiling {
		return false, nil
	}
	if requestCeiling > 0 && w.requests+requests > requestCeiling {
		return false, nil
	}
	w.tokens += tokens
	w.requests += requests
	return true, nil
}

// expire drops windows older than the previous minute. Called with the
// mutex held whenever a new window opens, so the map never grows past a
// handful of entries.
func (s *MemoryStore) expire(current int64) {
	for b := range s.windows {
		if b < current-1 {
			delete(s.windows, b)
		}
	}
}
