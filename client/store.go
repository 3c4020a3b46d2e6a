package client

import (
	"context"
	"sync"
)

// State is the snapshot gating code renders from.
type State struct {
	Identity *Identity
	IsPro    bool
	Loading  bool
}

// API is the surface of Client the store depends on.
type API interface {
	WhoAmI(ctx context.Context) (*Identity, error)
	Entitlement(ctx context.Context) (bool, error)
}

// EntitlementStore caches the identity and Pro entitlement for one UI
// session. It is the single source of truth for gating decisions: consumers
// read State, they never query entitlement themselves.
//
// Concurrent refreshes may be in flight together. Each refresh takes a
// monotonically increasing sequence number and only a refresh issued later
// than the one behind the visible state may overwrite it, so stale responses
// are discarded rather than interleaved.
type EntitlementStore struct {
	api API

	mu       sync.Mutex
	seq      uint64 // last issued refresh
	applied  uint64 // refresh behind the visible state
	state    State
	disposed bool
}

// NewEntitlementStore constructs a store in the loading state.
func NewEntitlementStore(api API) *EntitlementStore {
	return &EntitlementStore{
		api:   api,
		state: State{Loading: true},
	}
}

// Init loads the initial snapshot. Call once when the consuming view mounts.
func (s *EntitlementStore) Init(ctx context.Context) State {
	return s.Refresh(ctx)
}

// Refresh re-resolves identity and entitlement and returns the visible state
// after this refresh settled (which may belong to a newer refresh). Errors
// never propagate: failures degrade the state instead.
func (s *EntitlementStore) Refresh(ctx context.Context) State {
	s.mu.Lock()
	if s.disposed {
		st := s.state
		s.mu.Unlock()
		return st
	}
	s.seq++
	seq := s.seq
	s.state.Loading = true
	s.mu.Unlock()

	next := s.resolve(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.disposed && seq > s.applied {
		s.applied = seq
		s.state = next
	}
	if s.applied == s.seq {
		s.state.Loading = false
	}
	return s.state
}

// Invalidate forces re-resolution, e.g. after returning from checkout.
func (s *EntitlementStore) Invalidate(ctx context.Context) State {
	return s.Refresh(ctx)
}

// State returns the current visible snapshot.
func (s *EntitlementStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispose detaches the store from its view; refreshes still in flight are
// discarded when they settle.
func (s *EntitlementStore) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
}

func (s *EntitlementStore) resolve(ctx context.Context) State {
	ident, err := s.api.WhoAmI(ctx)
	if err != nil {
		// Anonymous or unreachable: the safe default is the locked view.
		return State{Identity: nil, IsPro: false}
	}
	isPro, err := s.api.Entitlement(ctx)
	if err != nil {
		// Entitlement unknown (billing outage). Keep the previous known
		// value rather than revoking access mid-session.
		prev := s.State()
		return State{Identity: ident, IsPro: prev.IsPro}
	}
	return State{Identity: ident, IsPro: isPro}
}

// Compile-time check that Client satisfies the store's dependency.
var _ API = (*Client)(nil)
