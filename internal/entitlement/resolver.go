package entitlement

import (
	"context"
	"strings"

	"quotedesk.org/internal/billing"
)

// BillingDirectory is the subset of the billing provider used for
// entitlement checks.
type BillingDirectory interface {
	FindCustomerByEmail(ctx context.Context, email string) (*billing.Customer, error)
	ListActiveSubscriptions(ctx context.Context, customerID string) ([]billing.Subscription, error)
}

// Resolver derives Pro entitlement from the billing provider. Pure query:
// no caching, no mutation.
type Resolver struct {
	directory BillingDirectory
}

func NewResolver(directory BillingDirectory) *Resolver {
	return &Resolver{directory: directory}
}

// ResolveIsPro reports whether the email has at least one active
// subscription with the billing provider. Provider failures are returned as
// errors, never coerced to false: a billing outage must stay distinguishable
// from churn.
func (r *Resolver) ResolveIsPro(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}
	customer, err := r.directory.FindCustomerByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if customer == nil {
		return false, nil
	}
	subs, err := r.directory.ListActiveSubscriptions(ctx, customer.ID)
	if err != nil {
		return false, err
	}
	return len(subs) > 0, nil
}
