package pricing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goquant/internal/errors"
	"goquant/internal/instrument"
	"goquant/internal/markets"
	"goquant/internal/provider"
	"goquant/internal/risk"
)

var pricingDate = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

// scriptedProvider computes every point with a caller-supplied function,
// optionally holding batch-mode requests pending forever.
type scriptedProvider struct {
	name          string
	compute       func(provider.BatchRequest, provider.ResultCoord) risk.Result
	pendForever   bool
	mu            sync.Mutex
	requests      []provider.BatchRequest
	getResultsErr error
}

func (s *scriptedProvider) Name() string { return s.name }

func (s *scriptedProvider) Requests() []provider.BatchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provider.BatchRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *scriptedProvider) CalcMulti(ctx context.Context, reqs []provider.BatchRequest) ([]provider.BatchResult, error) {
	s.mu.Lock()
	s.requests = append(s.requests, reqs...)
	s.mu.Unlock()

	results := make([]provider.BatchResult, 0, len(reqs))
	for _, req := range reqs {
		if !req.WaitForResults {
			results = append(results, provider.BatchResult{RequestID: req.ID, Pending: true})
			continue
		}
		results = append(results, s.materialize(req))
	}
	return results, nil
}

func (s *scriptedProvider) GetResults(ctx context.Context, pending map[string]provider.BatchRequest) (map[string]provider.BatchResult, error) {
	if s.getResultsErr != nil {
		return nil, s.getResultsErr
	}
	out := make(map[string]provider.BatchResult)
	if s.pendForever {
		return out, nil
	}
	for id, req := range pending {
		out[id] = s.materialize(req)
	}
	return out, nil
}

func (s *scriptedProvider) materialize(req provider.BatchRequest) provider.BatchResult {
	res := provider.BatchResult{RequestID: req.ID, Points: make(map[provider.ResultCoord]risk.Result)}
	for pi := range req.Positions {
		for mi := range req.Measures {
			for di := range req.PricingAndMarketDataAsOf {
				coord := provider.ResultCoord{Position: pi, Measure: mi, DateMarket: di}
				res.Points[coord] = s.compute(req, coord)
			}
		}
	}
	return res
}

func newTestRig(t *testing.T) (*provider.Registry, *provider.PaperProvider, ContextConfig) {
	t.Helper()
	paper := provider.NewPaperProvider(provider.PaperConfig{})
	registry := provider.NewRegistry()
	registry.Register(paper)
	cfg := ContextConfig{
		PricingDate: pricingDate,
		Registry:    registry,
		Cache:       NewCache(),
	}
	return registry, paper, cfg
}

func testOption(underlier string) *instrument.EqOption {
	return instrument.NewEqOption("paper", underlier, 4500,
		time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), "Call")
}

func TestCalcDedupInScope(t *testing.T) {
	_, paper, cfg := newTestRig(t)
	pc := NewContext(cfg)
	opt := testOption("SPX")

	var f1, f2 *risk.PricingFuture
	require.NoError(t, pc.Use(func() error {
		f1 = pc.Calc(opt, risk.Delta)
		f2 = pc.Calc(opt, risk.Delta)
		return nil
	}))

	assert.Same(t, f1, f2, "identical (key, priceable) pairs share one future")

	reqs := paper.Requests()
	require.Len(t, reqs, 1, "the provider is invoked once for the pair")
	assert.Len(t, reqs[0].Positions, 1)
	assert.Len(t, reqs[0].Measures, 1)

	r1, err := f1.Result()
	require.NoError(t, err)
	assert.False(t, r1.IsError())
}

func TestCalcAccumulatesMeasuresIntoOneBatch(t *testing.T) {
	_, paper, cfg := newTestRig(t)
	pc := NewContext(cfg)
	opt := testOption("SPX")

	var fDelta1, fDelta2, fVega *risk.PricingFuture
	require.NoError(t, pc.Use(func() error {
		fDelta1 = pc.Calc(opt, risk.Delta)
		fDelta2 = pc.Calc(opt, risk.Delta)
		fVega = pc.Calc(opt, risk.Vega)
		return nil
	}))

	assert.Same(t, fDelta1, fDelta2)

	reqs := paper.Requests()
	require.Len(t, reqs, 1, "one homogeneous batch for both measures")
	require.Len(t, reqs[0].Positions, 1, "the instrument appears once")
	require.Len(t, reqs[0].PricingAndMarketDataAsOf, 1)

	names := make([]string, 0, len(reqs[0].Measures))
	for _, m := range reqs[0].Measures {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{"Delta", "Vega"}, names)

	for _, f := range []*risk.PricingFuture{fDelta1, fVega} {
		r, err := f.Result()
		require.NoError(t, err)
		assert.False(t, r.IsError())
	}
}

func TestGroupingAcrossPriceables(t *testing.T) {
	_, paper, cfg := newTestRig(t)
	pc := NewContext(cfg)

	instruments := []*instrument.EqOption{
		testOption("SPX"), testOption("NDX"), testOption("RTY"),
	}

	futures := make([]*risk.PricingFuture, 0, len(instruments))
	require.NoError(t, pc.Use(func() error {
		for _, opt := range instruments {
			futures = append(futures, pc.Calc(opt, risk.Price))
		}
		return nil
	}))

	reqs := paper.Requests()
	require.Len(t, reqs, 1, "same measure, date, market and provider share one batch")
	assert.Len(t, reqs[0].Positions, 3)

	for _, f := range futures {
		r, err := f.Result()
		require.NoError(t, err)
		assert.False(t, r.IsError())
	}
}

func TestUnscopedCalcDispatchesImmediately(t *testing.T) {
	_, paper, cfg := newTestRig(t)
	pc := NewContext(cfg)
	opt := testOption("SPX")

	f := pc.Calc(opt, risk.Price)
	assert.True(t, f.Resolved(), "unscoped synchronous calc returns a resolved future")
	require.Len(t, paper.Requests(), 1)

	r, err := pc.Price(opt, risk.Price)
	require.NoError(t, err)
	assert.False(t, r.IsError())
}

func TestAsyncUnscopedCalc(t *testing.T) {
	_, _, cfg := newTestRig(t)
	cfg.Async = true
	pc := NewContext(cfg)
	opt := testOption("SPX")

	f := pc.Calc(opt, risk.Price)
	r, err := f.ResultWithin(5 * time.Second)
	require.NoError(t, err)
	assert.False(t, r.IsError())
}

func TestCacheHitSkipsProvider(t *testing.T) {
	_, paper, cfg := newTestRig(t)
	cfg.CacheResults = true
	pc := NewContext(cfg)
	opt := testOption("SPX")

	first, err := pc.Price(opt, risk.Price)
	require.NoError(t, err)
	require.Len(t, paper.Requests(), 1)

	second, err := pc.Price(opt, risk.Price)
	require.NoError(t, err)
	assert.Len(t, paper.Requests(), 1, "cached result does not invoke the provider")
	assert.Equal(t, first, second)
}

func TestCacheIsPerInstrumentIdentity(t *testing.T) {
	_, paper, cfg := newTestRig(t)
	cfg.CacheResults = true
	pc := NewContext(cfg)

	// Structurally identical instruments are distinct cache entries.
	a, b := testOption("SPX"), testOption("SPX")
	_, err := pc.Price(a, risk.Price)
	require.NoError(t, err)
	_, err = pc.Price(b, risk.Price)
	require.NoError(t, err)

	assert.Len(t, paper.Requests(), 2)
}

func TestLiveMarketResultsNeverCached(t *testing.T) {
	_, paper, cfg := newTestRig(t)
	cfg.CacheResults = true
	cfg.Market = markets.LiveMarket{PricingLocation: "LDN"}
	pc := NewContext(cfg)
	opt := testOption("SPX")

	_, err := pc.Price(opt, risk.Price)
	require.NoError(t, err)
	_, err = pc.Price(opt, risk.Price)
	require.NoError(t, err)

	assert.Len(t, paper.Requests(), 2, "live-market results are recomputed")
	assert.Equal(t, 0, cfg.Cache.Len())
}

func TestErrorResultsNeverCached(t *testing.T) {
	failing := &scriptedProvider{
		name: "scripted",
		compute: func(provider.BatchRequest, provider.ResultCoord) risk.Result {
			return risk.ErrorResult{Message: "missing market data"}
		},
	}
	registry := provider.NewRegistry()
	registry.Register(failing)

	cfg := ContextConfig{
		PricingDate:  pricingDate,
		Registry:     registry,
		Cache:        NewCache(),
		CacheResults: true,
	}
	pc := NewContext(cfg)
	opt := instrument.NewEqOption("scripted", "SPX", 4500,
		time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), "Call")

	r, err := pc.Price(opt, risk.Price)
	require.NoError(t, err, "per-result failures are data, not dispatch errors")
	assert.True(t, r.IsError())
	assert.Equal(t, 0, cfg.Cache.Len())

	_, err = pc.Price(opt, risk.Price)
	require.NoError(t, err)
	assert.Len(t, failing.Requests(), 2, "error results are recomputed, never served from cache")
}

func TestBatchFailureIsolation(t *testing.T) {
	healthy := provider.NewPaperProvider(provider.PaperConfig{Name: "healthy"})
	broken := provider.FailPaperProvider("broken", "connection reset")
	registry := provider.NewRegistry()
	registry.Register(healthy)
	registry.Register(broken)

	cfg := ContextConfig{
		PricingDate: pricingDate,
		Registry:    registry,
		Cache:       NewCache(),
	}
	pc := NewContext(cfg)

	okOpt := instrument.NewEqOption("healthy", "SPX", 4500,
		time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), "Call")
	badOpt := instrument.NewEqOption("broken", "NDX", 16000,
		time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), "Call")

	var okFut, badFut *risk.PricingFuture
	require.NoError(t, pc.Use(func() error {
		okFut = pc.Calc(okOpt, risk.Price)
		badFut = pc.Calc(badOpt, risk.Price)
		return nil
	}))

	r, err := okFut.Result()
	require.NoError(t, err, "the healthy provider's futures resolve normally")
	assert.False(t, r.IsError())

	_, err = badFut.Result()
	require.Error(t, err)
	var dispatchErr *errors.DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, "broken", dispatchErr.Provider)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestReentrancyGuardFailsFast(t *testing.T) {
	_, _, cfg := newTestRig(t)
	pc := NewContext(cfg)
	opt := testOption("SPX")

	require.NoError(t, pc.Use(func() error {
		f := pc.Calc(opt, risk.Price)
		_, err := f.Result()
		assert.ErrorIs(t, err, errors.ErrResultPendingInScope,
			"requesting a result inside its own open scope fails fast")
		return nil
	}))
}

func TestBatchModePolling(t *testing.T) {
	paper := provider.NewPaperProvider(provider.PaperConfig{PendingPolls: 2})
	registry := provider.NewRegistry()
	registry.Register(paper)

	cfg := ContextConfig{
		PricingDate:  pricingDate,
		Registry:     registry,
		Cache:        NewCache(),
		Batch:        true,
		PollInterval: 10 * time.Millisecond,
		Timeout:      5 * time.Second,
	}
	pc := NewContext(cfg)
	opt := testOption("SPX")

	r, err := pc.Price(opt, risk.Price)
	require.NoError(t, err)
	assert.False(t, r.IsError())

	reqs := paper.Requests()
	require.Len(t, reqs, 1)
	assert.False(t, reqs[0].WaitForResults, "batch mode defers results to polling")
}

func TestBatchModePollTimeout(t *testing.T) {
	stuck := &scriptedProvider{
		name:        "stuck",
		pendForever: true,
		compute: func(provider.BatchRequest, provider.ResultCoord) risk.Result {
			return risk.ScalarResult(0)
		},
	}
	registry := provider.NewRegistry()
	registry.Register(stuck)

	cfg := ContextConfig{
		PricingDate:  pricingDate,
		Registry:     registry,
		Cache:        NewCache(),
		Batch:        true,
		PollInterval: 5 * time.Millisecond,
		Timeout:      50 * time.Millisecond,
	}
	pc := NewContext(cfg)
	opt := instrument.NewEqOption("stuck", "SPX", 4500,
		time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), "Call")

	_, err := pc.Price(opt, risk.Price)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPollTimeout)
}

func TestCurrentResolvesDefaultOnce(t *testing.T) {
	_, _, cfg := newTestRig(t)
	st := NewStack(cfg)

	first, err := Current(st)
	require.NoError(t, err)
	second, err := Current(st)
	require.NoError(t, err)
	assert.Same(t, first, second, "the default context is constructed once")

	explicit := NewContext(ContextConfig{
		PricingDate: pricingDate,
		Registry:    cfg.Registry,
		Cache:       cfg.Cache,
		Stack:       st,
	})
	require.NoError(t, explicit.Use(func() error {
		cur, err := Current(st)
		require.NoError(t, err)
		assert.Same(t, explicit, cur, "an entered context shadows the default")
		return nil
	}))
}
