// Package pricing implements the request batching and context engine:
// risk measure requests are accumulated per scope, deduplicated, grouped
// into homogeneous batches, dispatched to calculation providers, cached,
// and resolved back to callers as futures or synchronous values.
package pricing

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"goquant/internal/errors"
	"goquant/internal/instrument"
	"goquant/internal/logging"
	"goquant/internal/markets"
	"goquant/internal/provider"
	"goquant/internal/risk"
	"goquant/internal/scope"
	"goquant/internal/store"
	"goquant/pkg/utils"
)

// ScopeKind is the scope kind pricing contexts stack under.
const ScopeKind scope.Kind = "pricing"

// ContextConfig holds configuration for a PricingContext. Zero fields
// take defaults: today's date, a close market for the previous business
// day, the process-wide cache and the default provider registry.
type ContextConfig struct {
	PricingDate time.Time
	Market      markets.Market
	Location    string
	Parameters  *risk.Parameters
	Scenario    *risk.Scenario

	// Async dispatches without blocking the caller on flush.
	Async bool
	// Batch submits requests for deferred results and polls for them.
	Batch bool
	// CacheResults consults and populates the pricing cache.
	CacheResults bool
	// Visible marks outbound requests as visible on the provider side.
	Visible bool

	// PollInterval and Timeout bound batch-mode polling. A zero Timeout
	// polls indefinitely.
	PollInterval time.Duration
	Timeout      time.Duration

	Stack    *scope.Stack
	Registry *provider.Registry
	Cache    *Cache
	Journal  store.Journal
	Logger   zerolog.Logger
}

// DefaultLocation is the pricing location assumed when none is given.
const DefaultLocation = "LDN"

type pendingKey struct {
	keyFP string
	token string
}

type pendingEntry struct {
	key       risk.Key
	priceable instrument.Priceable
	future    *risk.PricingFuture
}

// PricingContext accumulates pending (RiskKey, Priceable) entries while
// entered as a scope and dispatches them in grouped batches on exit. A
// context created but never entered dispatches each request immediately.
type PricingContext struct {
	pricingDate  time.Time
	market       markets.Market
	location     string
	parameters   *risk.Parameters
	scenario     *risk.Scenario
	async        bool
	batch        bool
	cacheResults bool
	visible      bool
	pollInterval time.Duration
	timeout      time.Duration

	stack    *scope.Stack
	registry *provider.Registry
	cache    *Cache
	journal  store.Journal
	log      zerolog.Logger

	// self is the Scoped identity used on the stack: the context itself,
	// or the historical wrapper embedding it.
	self scope.Scoped

	mu      sync.Mutex
	pending map[pendingKey]*pendingEntry
}

// NewContext creates a pricing context, resolving defaults for any zero
// configuration fields.
func NewContext(cfg ContextConfig) *PricingContext {
	pricingDate := cfg.PricingDate
	if pricingDate.IsZero() {
		pricingDate = utils.DateOf(time.Now())
	} else {
		pricingDate = utils.DateOf(pricingDate)
	}

	location := cfg.Location
	if location == "" {
		if cfg.Market != nil && cfg.Market.Location() != "" {
			location = cfg.Market.Location()
		} else {
			location = DefaultLocation
		}
	}

	market := cfg.Market
	if market == nil {
		// Today's close is not available yet, so a context priced for
		// today sources the previous business day's snapshot.
		marketDate := pricingDate
		if marketDate.Equal(utils.DateOf(time.Now())) {
			marketDate = utils.PrevBusinessDay(marketDate)
		}
		market = markets.CloseMarket{Date: marketDate, PricingLocation: location}
	}

	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = 2 * time.Second
	}

	stack := cfg.Stack
	if stack == nil {
		stack = scope.NewStack()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = provider.DefaultRegistry()
	}
	cache := cfg.Cache
	if cache == nil {
		cache = DefaultCache()
	}

	pc := &PricingContext{
		pricingDate:  pricingDate,
		market:       market,
		location:     location,
		parameters:   cfg.Parameters,
		scenario:     cfg.Scenario,
		async:        cfg.Async,
		batch:        cfg.Batch,
		cacheResults: cfg.CacheResults,
		visible:      cfg.Visible,
		pollInterval: pollInterval,
		timeout:      cfg.Timeout,
		stack:        stack,
		registry:     registry,
		cache:        cache,
		journal:      cfg.Journal,
		log:          cfg.Logger,
		pending:      make(map[pendingKey]*pendingEntry),
	}
	pc.self = pc
	return pc
}

// PricingDate returns the context's pricing date.
func (pc *PricingContext) PricingDate() time.Time { return pc.pricingDate }

// Market returns the context's resolved market.
func (pc *PricingContext) Market() markets.Market { return pc.market }

// Location returns the context's pricing location.
func (pc *PricingContext) Location() string { return pc.location }

// Stack returns the scope stack the context belongs to.
func (pc *PricingContext) Stack() *scope.Stack { return pc.stack }

// Base returns the underlying pricing context. Wrappers embedding
// PricingContext inherit it, so stack lookups always reach the base.
func (pc *PricingContext) Base() *PricingContext { return pc }

// ScopeKind implements scope.Scoped.
func (pc *PricingContext) ScopeKind() scope.Kind { return ScopeKind }

// OnEnter implements scope.Scoped.
func (pc *PricingContext) OnEnter() {
	pc.log.Debug().
		Str("pricing_date", pc.pricingDate.Format("2006-01-02")).
		Str("market", pc.market.Fingerprint()).
		Msg("Pricing scope entered")
}

// OnExit implements scope.Scoped. Invoked while the context is still
// current; triggers one dispatch pass over the pending map.
func (pc *PricingContext) OnExit() error {
	pc.flush()
	return nil
}

// Use enters the context, runs fn, and exits, flushing accumulated
// requests. Exit runs even when fn errors.
func (pc *PricingContext) Use(fn func() error) (err error) {
	pc.stack.Enter(pc.self)
	defer func() {
		if exitErr := pc.stack.Exit(pc.self); exitErr != nil && err == nil {
			err = exitErr
		}
	}()
	return fn()
}

func (pc *PricingContext) isActive() bool {
	return pc.stack.IsEntered(pc.self)
}

func (pc *PricingContext) hasPending(pk pendingKey) bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	_, ok := pc.pending[pk]
	return ok
}

// Calc requests a risk measure on a priceable against the context's
// date, market, parameters and scenario. Inside an entered scope the
// returned future resolves when the scope exits; repeated requests for
// the identical (key, priceable) pair return the identical future.
// Outside any scope the request dispatches immediately, synchronously
// unless the context is async.
func (pc *PricingContext) Calc(p instrument.Priceable, measure risk.Measure) *risk.PricingFuture {
	f := pc.calcOne(p, measure, pc.pricingDate, pc.market, pc.scenario)
	pc.maybeDispatch()
	return f
}

// CalcMany requests several measures at once, returning a composite
// future with one sub-future per measure.
func (pc *PricingContext) CalcMany(p instrument.Priceable, measures ...risk.Measure) *risk.MultiFuture {
	futures := make(map[string]*risk.PricingFuture, len(measures))
	for _, m := range measures {
		futures[m.Name] = pc.calcOne(p, m, pc.pricingDate, pc.market, pc.scenario)
	}
	pc.maybeDispatch()
	return risk.NewMultiFuture(measures, futures)
}

// Price computes a single measure synchronously and returns the plain
// value. Calling Price inside an entered scope fails fast, since the
// value cannot materialize until the scope exits.
func (pc *PricingContext) Price(p instrument.Priceable, measure risk.Measure) (risk.Result, error) {
	return pc.Calc(p, measure).Result()
}

// calcOne registers one pending entry without triggering dispatch, so
// date-fanning contexts can accumulate a whole series first.
func (pc *PricingContext) calcOne(p instrument.Priceable, measure risk.Measure, date time.Time, market markets.Market, scenario *risk.Scenario) *risk.PricingFuture {
	key := risk.Key{
		Provider:    p.ProviderName(),
		PricingDate: date,
		Market:      market,
		Parameters:  pc.parameters,
		Scenario:    scenario,
		Measure:     measure,
	}

	if pc.cacheResults {
		if r, ok := pc.cache.Get(p.IdentityToken(), key); ok {
			logging.LogCacheHit(pc.log, p.InstrumentType(), measure.Name)
			return risk.ResolvedFuture(r)
		}
	}

	pk := pendingKey{keyFP: key.Fingerprint(), token: p.IdentityToken()}

	pc.mu.Lock()
	if e, ok := pc.pending[pk]; ok {
		pc.mu.Unlock()
		return e.future
	}
	f := risk.NewFuture()
	f.Bind(func() error {
		if pc.isActive() && pc.hasPending(pk) {
			return errors.ErrResultPendingInScope
		}
		return nil
	})
	pc.pending[pk] = &pendingEntry{key: key, priceable: p, future: f}
	pc.mu.Unlock()

	return f
}

// maybeDispatch flushes immediately when the context is not entered on
// its stack; entered contexts flush on scope exit instead.
func (pc *PricingContext) maybeDispatch() {
	if pc.isActive() {
		return
	}
	if pc.async {
		go pc.flush()
		return
	}
	pc.flush()
}

// PendingCount returns the number of accumulated, not yet dispatched
// entries.
func (pc *PricingContext) PendingCount() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.pending)
}
