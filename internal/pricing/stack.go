package pricing

import (
	"goquant/internal/errors"
	"goquant/internal/scope"
)

// contexter is satisfied by PricingContext and the wrappers embedding it.
type contexter interface {
	Base() *PricingContext
}

// RegisterDefault registers a lazily-constructed default pricing context
// on the stack, built from cfg the first time Current finds no entered
// context.
func RegisterDefault(st *scope.Stack, cfg ContextConfig) {
	st.RegisterDefault(ScopeKind, func() scope.Scoped {
		cfg := cfg
		cfg.Stack = st
		return NewContext(cfg)
	})
}

// Current resolves the innermost entered pricing context on the stack,
// falling back to the registered default.
func Current(st *scope.Stack) (*PricingContext, error) {
	sc, err := st.Current(ScopeKind)
	if err != nil {
		return nil, err
	}
	c, ok := sc.(contexter)
	if !ok {
		return nil, errors.Wrapf(errors.ErrNoCurrentContext, "unexpected scope type %T", sc)
	}
	return c.Base(), nil
}

// NewStack creates a scope stack with a default pricing context built
// from cfg registered on it.
func NewStack(cfg ContextConfig) *scope.Stack {
	st := scope.NewStack()
	RegisterDefault(st, cfg)
	return st
}
