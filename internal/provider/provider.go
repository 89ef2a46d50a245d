package provider

import (
	"context"
	"sync"

	"goquant/internal/errors"
)

// Provider is a remote calculation service implementing the
// calc-multi/get-results contract.
type Provider interface {
	// Name returns the provider's registry name.
	Name() string

	// CalcMulti submits a set of batch requests. For requests with
	// WaitForResults set, the returned results carry points; otherwise
	// results may come back Pending and must be collected via GetResults.
	CalcMulti(ctx context.Context, reqs []BatchRequest) ([]BatchResult, error)

	// GetResults polls for the results of previously submitted pending
	// requests, keyed by request ID. Only requests that have completed
	// appear in the returned map.
	GetResults(ctx context.Context, pending map[string]BatchRequest) (map[string]BatchResult, error)
}

// Registry maps provider names to implementations. Registered providers
// are wrapped in a circuit breaker guarding the dispatch path.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its own name, wrapped in a circuit
// breaker with default settings.
func (r *Registry) Register(p Provider) {
	r.RegisterWithBreaker(p, DefaultCircuitBreakerConfig())
}

// RegisterWithBreaker adds a provider wrapped in a circuit breaker with
// the given settings.
func (r *Registry) RegisterWithBreaker(p Provider, cfg CircuitBreakerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = newBreakerProvider(p, cfg)
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrProviderNotFound, "%q", name)
	}
	return p, nil
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the process-wide registry, pre-populated with
// the paper provider.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		defaultRegistry.Register(NewPaperProvider(PaperConfig{}))
	})
	return defaultRegistry
}
