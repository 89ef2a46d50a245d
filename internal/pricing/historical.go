package pricing

import (
	"time"

	"goquant/internal/instrument"
	"goquant/internal/markets"
	"goquant/internal/risk"
	"goquant/pkg/utils"
)

// HistoricalPricingContext fans one logical calculation out across an
// ordered sequence of dates, pricing every date against that date's
// closing snapshot. Results keep the input date order regardless of
// dispatch concurrency.
type HistoricalPricingContext struct {
	*PricingContext
	dates []time.Time
}

// NewHistoricalContext creates a historical context over an explicit
// date list. Dates are normalized to calendar days, order preserved.
func NewHistoricalContext(cfg ContextConfig, dates []time.Time) *HistoricalPricingContext {
	pc := NewContext(cfg)
	h := &HistoricalPricingContext{
		PricingContext: pc,
		dates:          normalizeDates(dates),
	}
	pc.self = h
	return h
}

// NewHistoricalContextRange creates a historical context over every
// business day from 'from' to 'to' inclusive.
func NewHistoricalContextRange(cfg ContextConfig, from, to time.Time) *HistoricalPricingContext {
	return NewHistoricalContext(cfg, utils.BusinessDayRange(from, to))
}

// Dates returns the context's date sequence in order.
func (h *HistoricalPricingContext) Dates() []time.Time { return h.dates }

// Calc requests one measure per date, each against that date's close
// market, and returns a date-ordered series future. The aggregate
// completes only once every per-date future completes.
func (h *HistoricalPricingContext) Calc(p instrument.Priceable, measure risk.Measure) *risk.SeriesFuture {
	futures := make([]*risk.PricingFuture, 0, len(h.dates))
	for _, d := range h.dates {
		market := markets.CloseMarket{Date: d, PricingLocation: h.location}
		futures = append(futures, h.calcOne(p, measure, d, market, h.scenario))
	}
	h.maybeDispatch()
	return risk.NewSeriesFuture(h.dates, futures)
}

// BackToTheFuturePricingContext fans a calculation across dates that may
// straddle the context's pricing date: dates at or before it price
// against that date's close market; dates after it price against the
// context's base market under a forward-roll scenario, realizing either
// the forward curve or spot.
type BackToTheFuturePricingContext struct {
	*PricingContext
	dates      []time.Time
	rollToFwds bool
}

// NewBackToTheFutureContext creates a context over the given dates.
// rollToFwds selects realize-forward (true) or realize-spot (false) for
// dates beyond the pricing date.
func NewBackToTheFutureContext(cfg ContextConfig, dates []time.Time, rollToFwds bool) *BackToTheFuturePricingContext {
	pc := NewContext(cfg)
	b := &BackToTheFuturePricingContext{
		PricingContext: pc,
		dates:          normalizeDates(dates),
		rollToFwds:     rollToFwds,
	}
	pc.self = b
	return b
}

// Dates returns the context's date sequence in order.
func (b *BackToTheFuturePricingContext) Dates() []time.Time { return b.dates }

// Calc requests one measure per date, selecting realized or
// forward-rolled markets around the pricing date, and returns a
// date-ordered series future.
func (b *BackToTheFuturePricingContext) Calc(p instrument.Priceable, measure risk.Measure) *risk.SeriesFuture {
	futures := make([]*risk.PricingFuture, 0, len(b.dates))
	for _, d := range b.dates {
		if d.After(b.pricingDate) {
			scenario := risk.RollForward(d, b.rollToFwds)
			futures = append(futures, b.calcOne(p, measure, d, b.market, scenario))
			continue
		}
		market := markets.CloseMarket{Date: d, PricingLocation: b.location}
		futures = append(futures, b.calcOne(p, measure, d, market, b.scenario))
	}
	b.maybeDispatch()
	return risk.NewSeriesFuture(b.dates, futures)
}

func normalizeDates(dates []time.Time) []time.Time {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		out = append(out, utils.DateOf(d))
	}
	return out
}
