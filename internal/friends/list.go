// ABOUTME: Friend list model with unread and selection flags
// ABOUTME: Receives unread marks from the router and selection from the UI

package friends

import (
	"slices"
	"sync"
)

// Friend is one entry of the friend list.
type Friend struct {
	ID         string
	Username   string
	HasUnread  bool
	IsSelected bool
}

// List holds the friend list. It is safe for concurrent use.
type List struct {
	mu       sync.Mutex
	friends  []Friend
	onChange func([]Friend)
}

// NewList creates a list. onChange, if set, is called with a snapshot after
// every change, outside the list's lock.
func NewList(onChange func([]Friend)) *List {
	return &List{onChange: onChange}
}

// MarkUnread flags id as having unread messages. It reports whether id is in
// the list. A selected friend is not flagged.
func (l *List) MarkUnread(id string) bool {
	l.mu.Lock()
	i := l.indexLocked(id)
	if i < 0 {
		l.mu.Unlock()
		return false
	}
	changed := !l.friends[i].HasUnread && !l.friends[i].IsSelected
	if changed {
		l.friends[i].HasUnread = true
	}
	snap := l.snapshotLocked()
	l.mu.Unlock()

	if changed {
		l.notify(snap)
	}
	return true
}

// Select makes id the only selected friend and clears its unread flag.
func (l *List) Select(id string) bool {
	l.mu.Lock()
	if l.indexLocked(id) < 0 {
		l.mu.Unlock()
		return false
	}
	for i := range l.friends {
		selected := l.friends[i].ID == id
		l.friends[i].IsSelected = selected
		if selected {
			l.friends[i].HasUnread = false
		}
	}
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.notify(snap)
	return true
}

// Replace swaps in a fresh list, carrying over flags for ids that remain.
func (l *List) Replace(next []Friend) {
	l.mu.Lock()
	prev := make(map[string]Friend, len(l.friends))
	for _, f := range l.friends {
		prev[f.ID] = f
	}

	l.friends = make([]Friend, 0, len(next))
	for _, f := range next {
		if old, ok := prev[f.ID]; ok {
			f.HasUnread = old.HasUnread
			f.IsSelected = old.IsSelected
		}
		l.friends = append(l.friends, f)
	}
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.notify(snap)
}

// Get returns the friend with id.
func (l *List) Get(id string) (Friend, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return Friend{}, false
	}
	return l.friends[i], true
}

// Snapshot returns a copy of the list.
func (l *List) Snapshot() []Friend {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *List) indexLocked(id string) int {
	return slices.IndexFunc(l.friends, func(f Friend) bool { return f.ID == id })
}

func (l *List) snapshotLocked() []Friend {
	return slices.Clone(l.friends)
}

func (l *List) notify(snap []Friend) {
	if l.onChange != nil {
		l.onChange(snap)
	}
}
