package identity

import (
	"context"
	"sync"
	"time"

	"quotedesk.org/internal/ids"
)

var _ Store = (*Memory)(nil)

// Memory implements Store with in-process concurrency safety. Used for demo
// runs and tests; production deployments use PG.
type Memory struct {
	mu      sync.RWMutex
	byEmail map[string]*Identity
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byEmail: make(map[string]*Identity),
		now:     time.Now,
	}
}

func (s *Memory) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	email = NormalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ident
	return &cp, nil
}

func (s *Memory) Create(ctx context.Context, ident *Identity) error {
	email := NormalizeEmail(ident.Email)
	if email == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return ErrAlreadyExists
	}
	s.insertLocked(email, ident)
	return nil
}

func (s *Memory) FindOrCreate(ctx context.Context, ident *Identity) (*Identity, error) {
	email := NormalizeEmail(ident.Email)
	if email == "" {
		return nil, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byEmail[email]; ok {
		cp := *existing
		return &cp, nil
	}
	s.insertLocked(email, ident)
	cp := *ident
	return &cp, nil
}

func (s *Memory) UpdateSubscription(ctx context.Context, email string, status SubscriptionStatus, expires *time.Time) error {
	email = NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	ident, ok := s.byEmail[email]
	if !ok {
		return ErrNotFound
	}
	ident.SubscriptionStatus = status
	ident.SubscriptionExpires = expires
	ident.UpdatedAt = s.now().UTC()
	return nil
}

// insertLocked fills generated fields and stores a copy. Caller holds mu.
func (s *Memory) insertLocked(email string, ident *Identity) {
	if ident.ID == "" {
		ident.ID = ids.New()
	}
	ident.Email = email
	if ident.SubscriptionStatus == "" {
		ident.SubscriptionStatus = SubscriptionNone
	}
	now := s.now().UTC()
	ident.CreatedAt = now
	ident.UpdatedAt = now
	cp := *ident
	s.byEmail[email] = &cp
}
