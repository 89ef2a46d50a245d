// Package instrument defines the priceable instrument contract and a set
// of concrete instruments.
package instrument

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultProvider is the provider name used when an instrument does not
// name one explicitly.
const DefaultProvider = "paper"

// Priceable is anything a risk measure can be computed on. Identity
// matters: two structurally identical instruments carry distinct identity
// tokens and are distinct cache entries.
type Priceable interface {
	// ProviderName names the remote calculation provider responsible for
	// this instrument.
	ProviderName() string

	// IdentityToken returns the instrument's unique identity, minted at
	// construction. It keys cache entries for the instrument's lifetime.
	IdentityToken() string

	// Quantity returns the position size priced in outbound batches.
	Quantity() decimal.Decimal

	// InstrumentType returns the wire type discriminator.
	InstrumentType() string

	// Projection returns the JSON-serializable wire view of the
	// instrument.
	Projection() map[string]interface{}
}

var (
	closeHooksMu sync.Mutex
	closeHooks   []func(token string)
)

// RegisterCloseHook registers a function invoked with the identity token
// of every instrument that is closed. The pricing cache registers itself
// here so entries vanish when their owning instrument is disposed.
func RegisterCloseHook(fn func(token string)) {
	closeHooksMu.Lock()
	defer closeHooksMu.Unlock()
	closeHooks = append(closeHooks, fn)
}

func runCloseHooks(token string) {
	closeHooksMu.Lock()
	hooks := make([]func(string), len(closeHooks))
	copy(hooks, closeHooks)
	closeHooksMu.Unlock()
	for _, fn := range hooks {
		fn(token)
	}
}

// base carries the identity and provider plumbing shared by all concrete
// instruments.
type base struct {
	token    string
	provider string
	qty      decimal.Decimal
}

func newBase(provider string, qty decimal.Decimal) base {
	if provider == "" {
		provider = DefaultProvider
	}
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}
	return base{token: uuid.NewString(), provider: provider, qty: qty}
}

func (b *base) ProviderName() string      { return b.provider }
func (b *base) IdentityToken() string     { return b.token }
func (b *base) Quantity() decimal.Decimal { return b.qty }

// SetProvider points the instrument at a different provider.
func (b *base) SetProvider(name string) { b.provider = name }

// SetQuantity sets the position size.
func (b *base) SetQuantity(qty decimal.Decimal) { b.qty = qty }

// Close disposes the instrument, evicting any cached results keyed by its
// identity token.
func (b *base) Close() {
	runCloseHooks(b.token)
}
