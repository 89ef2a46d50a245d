package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"

	"goquant/internal/risk"
)

// PaperConfig holds configuration for the paper provider.
type PaperConfig struct {
	// Name overrides the registry name; defaults to "paper".
	Name string
	// FailWith, when set, makes every dispatch fail with this error.
	// Used to simulate transport failures.
	FailWith error
	// PendingPolls is the number of GetResults calls a batch-mode request
	// stays pending before materializing. Zero completes on the first poll.
	PendingPolls int
}

// PaperProvider is an in-process provider producing deterministic
// pseudo-values. It serves offline pricing and tests the same way the
// engine would use a remote provider.
type PaperProvider struct {
	cfg PaperConfig

	mu       sync.Mutex
	requests []BatchRequest
	pending  map[string]int // request ID -> polls remaining
}

// NewPaperProvider creates a paper provider.
func NewPaperProvider(cfg PaperConfig) *PaperProvider {
	if cfg.Name == "" {
		cfg.Name = "paper"
	}
	return &PaperProvider{
		cfg:     cfg,
		pending: make(map[string]int),
	}
}

func (p *PaperProvider) Name() string { return p.cfg.Name }

// Requests returns every batch request received so far.
func (p *PaperProvider) Requests() []BatchRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]BatchRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// Reset clears recorded requests and pending state.
func (p *PaperProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = nil
	p.pending = make(map[string]int)
}

// CalcMulti records the requests and computes results. Requests with
// WaitForResults unset go pending and complete via GetResults.
func (p *PaperProvider) CalcMulti(ctx context.Context, reqs []BatchRequest) ([]BatchResult, error) {
	if p.cfg.FailWith != nil {
		return nil, p.cfg.FailWith
	}

	p.mu.Lock()
	p.requests = append(p.requests, reqs...)
	p.mu.Unlock()

	results := make([]BatchResult, 0, len(reqs))
	for _, req := range reqs {
		if !req.WaitForResults {
			p.mu.Lock()
			p.pending[req.ID] = p.cfg.PendingPolls
			p.mu.Unlock()
			results = append(results, BatchResult{RequestID: req.ID, Pending: true})
			continue
		}
		results = append(results, p.compute(req))
	}
	return results, nil
}

// GetResults completes pending batch-mode requests once their simulated
// poll count is exhausted.
func (p *PaperProvider) GetResults(ctx context.Context, pending map[string]BatchRequest) (map[string]BatchResult, error) {
	if p.cfg.FailWith != nil {
		return nil, p.cfg.FailWith
	}

	out := make(map[string]BatchResult)
	for id, req := range pending {
		p.mu.Lock()
		remaining, ok := p.pending[id]
		if ok && remaining > 0 {
			p.pending[id] = remaining - 1
			p.mu.Unlock()
			continue
		}
		delete(p.pending, id)
		p.mu.Unlock()
		out[id] = p.compute(req)
	}
	return out, nil
}

func (p *PaperProvider) compute(req BatchRequest) BatchResult {
	points := make(map[ResultCoord]risk.Result)
	for pi, pos := range req.Positions {
		for mi, measure := range req.Measures {
			for di, dm := range req.PricingAndMarketDataAsOf {
				points[ResultCoord{Position: pi, Measure: mi, DateMarket: di}] =
					pseudoValue(pos, measure, dm, req.Scenario)
			}
		}
	}
	return BatchResult{RequestID: req.ID, Points: points}
}

// pseudoValue derives a stable value from the request coordinates so
// repeated runs price identically.
func pseudoValue(pos Position, measure risk.Measure, dm DateMarketPair, scenario map[string]interface{}) risk.Result {
	h := fnv.New64a()
	inst, _ := json.Marshal(pos.Instrument)
	h.Write(inst)
	h.Write([]byte(measure.Name))
	h.Write([]byte(dm.PricingDate.Format("2006-01-02")))
	mkt, _ := json.Marshal(dm.Market)
	h.Write(mkt)
	if scenario != nil {
		scen, _ := json.Marshal(scenario)
		h.Write(scen)
	}
	unit := float64(h.Sum64()%1_000_000) / 1_000_000

	qty, _ := pos.Quantity.Float64()
	if qty == 0 {
		qty = 1
	}
	return risk.ScalarResult(qty * (unit*200 - 100))
}

// FailPaperProvider returns a paper provider named name whose every
// dispatch fails with the given error message. Useful for exercising
// batch failure isolation.
func FailPaperProvider(name, message string) *PaperProvider {
	return NewPaperProvider(PaperConfig{
		Name:     name,
		FailWith: fmt.Errorf("%s", message),
	})
}
