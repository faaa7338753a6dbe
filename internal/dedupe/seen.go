// ABOUTME: Bounded, expiring set of keys that have already been handled
// ABOUTME: Used by the router to ignore an inbox event it has already routed

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type seenEntry struct {
	key    string
	marked time.Time
}

// Set remembers keys for ttl, holding at most maxSize of them. The order list
// is kept sorted by mark time, so expired keys are always at the front and
// are pruned lazily on every Add.
type Set struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// New creates a set. A non-positive ttl keeps keys until evicted by size; a
// non-positive maxSize means 1.
func New(ttl time.Duration, maxSize int) *Set {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Set{
		index:   make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Add marks key as seen and reports whether it was new. A key seen again
// within ttl is refreshed and reported as a duplicate.
func (s *Set) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)

	if elem, ok := s.index[key]; ok {
		elem.Value.(*seenEntry).marked = now
		s.order.MoveToBack(elem)
		return false
	}

	for len(s.index) >= s.maxSize {
		s.removeLocked(s.order.Front())
	}
	s.index[key] = s.order.PushBack(&seenEntry{key: key, marked: now})
	return true
}

// contains reports whether key is currently remembered.
func (s *Set) contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.index[key]
	if !ok {
		return false
	}
	return !s.expired(elem.Value.(*seenEntry), s.now())
}

// size returns the number of remembered keys, expired or not.
func (s *Set) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

func (s *Set) expired(e *seenEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.marked) >= s.ttl
}

// pruneLocked drops expired keys from the front. Must be called with mu held.
func (s *Set) pruneLocked(now time.Time) {
	for front := s.order.Front(); front != nil; front = s.order.Front() {
		if !s.expired(front.Value.(*seenEntry), now) {
			return
		}
		s.removeLocked(front)
	}
}

func (s *Set) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	s.order.Remove(elem)
	delete(s.index, elem.Value.(*seenEntry).key)
}
