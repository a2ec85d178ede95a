package server

import (
	"sync"
	"time"

	"choropleth/internal/plotview"
)

type viewEntry struct {
	view     *plotview.View
	created  time.Time
	attached bool
}

// viewRegistry tracks the views mounted by page requests until their
// update stream ends or they expire without ever being attached.
type viewRegistry struct {
	mu    sync.Mutex
	views map[string]*viewEntry
	ttl   time.Duration
	now   func() time.Time
}

func newViewRegistry(ttl time.Duration) *viewRegistry {
	return &viewRegistry{
		views: make(map[string]*viewEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (r *viewRegistry) add(view *plotview.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[view.ID()] = &viewEntry{view: view, created: r.now()}
}

// attach marks a view as owned by an update stream
func (r *viewRegistry) attach(id string) (*plotview.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.views[id]
	if !ok {
		return nil, false
	}
	entry.attached = true
	return entry.view, true
}

func (r *viewRegistry) remove(id string) *plotview.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.views[id]
	if !ok {
		return nil
	}
	delete(r.views, id)
	return entry.view
}

// expired removes and returns views never attached within the TTL
func (r *viewRegistry) expired() []*plotview.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.ttl)
	var out []*plotview.View
	for id, entry := range r.views {
		if !entry.attached && entry.created.Before(cutoff) {
			delete(r.views, id)
			out = append(out, entry.view)
		}
	}
	return out
}

// drain removes and returns every view
func (r *viewRegistry) drain() []*plotview.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*plotview.View, 0, len(r.views))
	for id, entry := range r.views {
		delete(r.views, id)
		out = append(out, entry.view)
	}
	return out
}

func (r *viewRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}
