package render

import "sync"

// Promotion is one entry of the promotional rotation.
type Promotion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Rotation is the promotion list shared by every display. Each render of
// a promotional screen, on any device, advances a single shared index.
type Rotation struct {
	mu    sync.Mutex
	items []Promotion
	next  int
}

// NewRotation creates a rotation over items.
func NewRotation(items []Promotion) *Rotation {
	r := &Rotation{}
	r.Replace(items)
	return r
}

// Replace swaps in a new promotion list and restarts from the first entry.
func (r *Rotation) Replace(items []Promotion) {
	cp := make([]Promotion, len(items))
	copy(cp, items)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = cp
	r.next = 0
}

// Next returns the promotion to show and advances the index. It returns
// false when the list is empty.
func (r *Rotation) Next() (Promotion, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Promotion{}, false
	}
	p := r.items[r.next]
	r.next = (r.next + 1) % len(r.items)
	return p, true
}

// Peek returns the promotion Next would return, without advancing.
func (r *Rotation) Peek() (Promotion, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Promotion{}, false
	}
	return r.items[r.next], true
}

// Items returns a copy of the current list.
func (r *Rotation) Items() []Promotion {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]Promotion, len(r.items))
	copy(cp, r.items)
	return cp
}
