// Package buffer holds the most recently admitted events.
package buffer

import "github.com/stepamak/pump-tracker/internal/domain"

// Recent is a bounded, most-recent-first list of events.
// It is not safe for concurrent use; the tracker consumer owns it.
type Recent struct {
	items []domain.TokenEvent
	max   int
}

// NewRecent creates a buffer holding at most max events.
// A max below one is raised to one.
func NewRecent(max int) *Recent {
	if max < 1 {
		max = 1
	}
	return &Recent{
		items: make([]domain.TokenEvent, 0, max+1),
		max:   max,
	}
}

// Insert places ev at the head and evicts from the tail beyond max.
// It returns the number of evicted events.
func (r *Recent) Insert(ev domain.TokenEvent) int {
	r.items = append(r.items, domain.TokenEvent{})
	copy(r.items[1:], r.items)
	r.items[0] = ev
	return r.trim()
}

// Resize changes the bound and trims immediately.
func (r *Recent) Resize(max int) int {
	if max < 1 {
		max = 1
	}
	r.max = max
	return r.trim()
}

func (r *Recent) trim() int {
	evicted := 0
	for len(r.items) > r.max {
		r.items[len(r.items)-1] = domain.TokenEvent{}
		r.items = r.items[:len(r.items)-1]
		evicted++
	}
	return evicted
}

// Clear removes every event.
func (r *Recent) Clear() {
	clear(r.items)
	r.items = r.items[:0]
}

// Len returns the number of buffered events.
func (r *Recent) Len() int {
	return len(r.items)
}

// Max returns the current bound.
func (r *Recent) Max() int {
	return r.max
}

// Items returns a copy of the buffered events, newest first.
func (r *Recent) Items() []domain.TokenEvent {
	out := make([]domain.TokenEvent, len(r.items))
	copy(out, r.items)
	return out
}
