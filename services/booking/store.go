package booking

import (
	"context"
	"sync"
)

// FlowStore holds the live flow per user session. Exactly one flow is
// live per session: starting a new one replaces, and abandons, the
// previous one.
type FlowStore struct {
	mu    sync.Mutex
	flows map[string]*Flow
}

func NewFlowStore() *FlowStore {
	return &FlowStore{flows: make(map[string]*Flow)}
}

// Put installs the flow for the session, cancelling any previous flow.
func (s *FlowStore) Put(ctx context.Context, sessionID string, flow *Flow) {
	s.mu.Lock()
	prev := s.flows[sessionID]
	s.flows[sessionID] = flow
	s.mu.Unlock()

	if prev != nil {
		// Best effort; a previous flow stuck in processing stays live
		// until it reaches a terminal outcome.
		_ = prev.Cancel(ctx)
	}
}

// Get returns the live flow for the session, if any.
func (s *FlowStore) Get(sessionID string) (*Flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, ok := s.flows[sessionID]
	return flow, ok
}

// Remove drops the session's flow without cancelling it.
func (s *FlowStore) Remove(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, sessionID)
}
