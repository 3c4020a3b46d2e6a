package identity

import (
	"strings"
	"time"
)

// SubscriptionStatus mirrors the billing provider's subscription state. It is
// an informational cache; entitlement enforcement always re-resolves against
// the provider at check time.
type SubscriptionStatus string

const (
	SubscriptionNone     SubscriptionStatus = "none"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
)

// Identity is the durable user record, keyed by email.
type Identity struct {
	ID                  string
	Email               string
	Name                string
	PasswordHash        string
	SubscriptionStatus  SubscriptionStatus
	SubscriptionExpires *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Projection is the client-visible view of an Identity. The password hash
// never leaves the service.
type Projection struct {
	ID                  string             `json:"id"`
	Email               string             `json:"email"`
	Name                string             `json:"name"`
	SubscriptionStatus  SubscriptionStatus `json:"subscriptionStatus"`
	SubscriptionExpires *time.Time         `json:"subscriptionExpires"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

// Projection returns the sanitized view of the identity.
func (i *Identity) Projection() Projection {
	return Projection{
		ID:                  i.ID,
		Email:               i.Email,
		Name:                i.Name,
		SubscriptionStatus:  i.SubscriptionStatus,
		SubscriptionExpires: i.SubscriptionExpires,
		CreatedAt:           i.CreatedAt,
		UpdatedAt:           i.UpdatedAt,
	}
}

// NormalizeEmail lower-cases and trims an email for use as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
