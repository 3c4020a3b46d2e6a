package client

// Variant selects which rendition of a gated region to show.
type Variant string

const (
	VariantLoading  Variant = "loading"
	VariantLocked   Variant = "locked"
	VariantUnlocked Variant = "unlocked"
)

// Decision carries what a gated region needs to render.
type Decision struct {
	Variant Variant
	// CheckoutPath is the navigation target offered by the locked variant.
	CheckoutPath string
}

// Gate decides render variants from store state alone. It performs no
// entitlement queries of its own: the EntitlementStore is the single source
// of truth.
type Gate struct {
	store        *EntitlementStore
	checkoutPath string
}

// NewGate binds a gate to a store. checkoutPath defaults to /pricing.
func NewGate(store *EntitlementStore, checkoutPath string) *Gate {
	if checkoutPath == "" {
		checkoutPath = "/pricing"
	}
	return &Gate{store: store, checkoutPath: checkoutPath}
}

// Decide returns the variant for the current store state.
func (g *Gate) Decide() Decision {
	st := g.store.State()
	switch {
	case st.Loading:
		return Decision{Variant: VariantLoading}
	case st.IsPro:
		return Decision{Variant: VariantUnlocked}
	default:
		return Decision{Variant: VariantLocked, CheckoutPath: g.checkoutPath}
	}
}
