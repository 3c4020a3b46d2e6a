package identity

import (
	"context"
	"time"
)

// Store describes persistence operations for identities.
type Store interface {
	// FindByEmail returns the identity for a normalized email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	// Create inserts a new identity. ErrAlreadyExists on duplicate email.
	Create(ctx context.Context, ident *Identity) error
	// FindOrCreate returns the existing identity for the email or inserts a
	// new one. The check-and-insert is atomic: concurrent callers for the
	// same unseen email converge on a single record.
	FindOrCreate(ctx context.Context, ident *Identity) (*Identity, error)
	// UpdateSubscription refreshes the informational subscription cache.
	UpdateSubscription(ctx context.Context, email string, status SubscriptionStatus, expires *time.Time) error
}
