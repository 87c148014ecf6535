package coordinator

import (
	"context"
	"slices"
	"sync"
)

// Registry keeps one Coordinator per signed-in account.
type Registry struct {
	build func() *Coordinator

	mu       sync.RWMutex
	sessions map[string]*Coordinator
}

// NewRegistry returns a registry that creates coordinators with build.
func NewRegistry(build func() *Coordinator) *Registry {
	return &Registry{build: build, sessions: make(map[string]*Coordinator)}
}

// Login signs in with a fresh coordinator and registers it under the
// account id, replacing (and closing) any previous session for that account.
func (r *Registry) Login(ctx context.Context, creds Credentials) (*Coordinator, State, error) {
	c := r.build()
	state, err := c.Login(ctx, creds)
	if err != nil {
		c.Close()
		return nil, State{}, err
	}

	r.mu.Lock()
	old := r.sessions[state.Account.ID]
	r.sessions[state.Account.ID] = c
	r.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return c, state, nil
}

// Get returns the coordinator for accountID.
func (r *Registry) Get(accountID string) (*Coordinator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[accountID]
	return c, ok
}

// Logout signs the account out and drops its coordinator. It reports
// whether a session existed.
func (r *Registry) Logout(ctx context.Context, accountID string) bool {
	r.mu.Lock()
	c, ok := r.sessions[accountID]
	delete(r.sessions, accountID)
	r.mu.Unlock()

	if !ok {
		return false
	}
	c.Logout(ctx)
	c.Close()
	return true
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes every coordinator, for shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Coordinator)
	r.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
}

// Sessions returns the live coordinators ordered by account id.
func (r *Registry) Sessions() []*Coordinator {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*Coordinator, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.sessions[id])
	}
	r.mu.RUnlock()
	return out
}
