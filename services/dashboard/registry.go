package dashboard

import (
	"sync"

	"github.com/google/uuid"

	"agentdash/services/dashboard/agentlist"
)

// registry maps stream ids to the views mounted for them.
type registry struct {
	mu    sync.Mutex
	views map[string]*agentlist.View
}

func newRegistry() *registry {
	return &registry{views: map[string]*agentlist.View{}}
}

func (r *registry) add(v *agentlist.View) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.views[id] = v
	r.mu.Unlock()
	return id
}

func (r *registry) get(id string) (*agentlist.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[id]
	return v, ok
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	delete(r.views, id)
	r.mu.Unlock()
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}
