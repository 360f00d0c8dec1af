package llmcall

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of calls kept when none is configured.
const DefaultCapacity = 500

// Store keeps the most recent calls in memory. When full, the oldest call is
// overwritten. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	buf   []Call
	next  int
	full  bool
	index map[string]int
}

// NewStore creates a store holding up to capacity calls.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		buf:   make([]Call, capacity),
		index: make(map[string]int, capacity),
	}
}

// QueryFilter specifies filters for listing calls. Zero values match everything.
type QueryFilter struct {
	Provider string
	Model    string
	After    *time.Time
	Before   *time.Time
	Success  *bool
	Limit    int
	Offset   int
}

func (f QueryFilter) match(c *Call) bool {
	if f.Provider != "" && c.Provider != f.Provider {
		return false
	}
	if f.Model != "" && c.Model != f.Model {
		return false
	}
	if f.Success != nil && c.Success != *f.Success {
		return false
	}
	if f.After != nil && !c.Timestamp.After(*f.After) {
		return false
	}
	if f.Before != nil && !c.Timestamp.Before(*f.Before) {
		return false
	}
	return true
}

// Add stores a copy of call.
func (s *Store) Add(call *Call) {
	if call == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.full {
		delete(s.index, s.buf[s.next].ID)
	}
	s.buf[s.next] = *call
	s.index[call.ID] = s.next
	s.next++
	if s.next == len(s.buf) {
		s.next = 0
		s.full = true
	}
}

// Get retrieves a call by ID.
func (s *Store) Get(id string) (*Call, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	c := s.buf[i]
	return &c, true
}

// Len returns the number of stored calls.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return len(s.buf)
	}
	return s.next
}

// List returns matching calls, newest first.
func (s *Store) List(filter QueryFilter) []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Call{}
	skipped := 0
	s.each(func(c *Call) bool {
		if !filter.match(c) {
			return true
		}
		if skipped < filter.Offset {
			skipped++
			return true
		}
		out = append(out, *c)
		return filter.Limit <= 0 || len(out) < filter.Limit
	})
	return out
}

// Counts returns call counts grouped by "provider/model".
func (s *Store) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	s.each(func(c *Call) bool {
		counts[c.Provider+"/"+c.Model]++
		return true
	})
	return counts
}

// each visits calls newest first until fn returns false. Caller holds mu.
func (s *Store) each(fn func(*Call) bool) {
	n := s.next
	if s.full {
		n = len(s.buf)
	}
	for k := 0; k < n; k++ {
		i := (s.next - 1 - k + len(s.buf)) % len(s.buf)
		if !fn(&s.buf[i]) {
			return
		}
	}
}
