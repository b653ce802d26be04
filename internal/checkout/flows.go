package checkout

import "sync"

// Flows tracks the checkout flow of each session.
type Flows struct {
	mu    sync.Mutex
	flows map[string]*Flow
}

// NewFlows creates an empty registry.
func NewFlows() *Flows {
	return &Flows{flows: make(map[string]*Flow)}
}

// Put makes flow the session's current flow, replacing any previous one.
func (r *Flows) Put(sessionToken string, flow *Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[sessionToken] = flow
}

// Get returns the session's current flow.
func (r *Flows) Get(sessionToken string) (*Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[sessionToken]
	return f, ok
}

// Delete forgets the session's flow.
func (r *Flows) Delete(sessionToken string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flows, sessionToken)
}

// Len returns the number of tracked flows.
func (r *Flows) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}
