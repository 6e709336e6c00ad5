package session

import (
	"fmt"
	"sync"
)

// Registry is the controller-owned mapping from peer name to its live
// session. Single-writer discipline: only the controller that added a
// session removes it, and removal is identity-checked so a replacement
// session can never be torn down by its predecessor's cleanup.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session under its peer name. Fails if one is already live
// for that name; sessions are single-shot, so replacing requires removing
// the old one first.
func (r *Registry) Add(name string, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[name]; ok {
		return fmt.Errorf("session for peer %q already exists", name)
	}
	r.sessions[name] = s
	return nil
}

// Get returns the session for a peer name, if any.
func (r *Registry) Get(name string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[name]
	return s, ok
}

// Remove drops the mapping if it still points at s. Used on both explicit
// stop and transport-closure cleanup.
func (r *Registry) Remove(name string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[name]; ok && cur == s {
		delete(r.sessions, name)
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// StopAll stops every registered session and clears the registry.
func (r *Registry) StopAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}
