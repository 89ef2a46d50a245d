package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goquant/internal/provider"
	"goquant/internal/risk"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestHistoricalCalcKeepsInputDateOrder(t *testing.T) {
	_, _, cfg := newTestRig(t)
	// Deliberately unsorted; the series must come back in this order.
	dates := []time.Time{day(17), day(15), day(16)}
	h := NewHistoricalContext(cfg, dates)
	opt := testOption("SPX")

	var sf *risk.SeriesFuture
	require.NoError(t, h.Use(func() error {
		sf = h.Calc(opt, risk.Price)
		return nil
	}))

	results, err := sf.Result()
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, dates[i], r.Date)
		assert.False(t, r.Value.IsError())
	}
}

func TestHistoricalCalcBatchesAllDatesTogether(t *testing.T) {
	_, paper, cfg := newTestRig(t)
	h := NewHistoricalContext(cfg, []time.Time{day(15), day(16), day(17)})
	opt := testOption("SPX")

	require.NoError(t, h.Use(func() error {
		h.Calc(opt, risk.Price)
		return nil
	}))

	reqs := paper.Requests()
	require.Len(t, reqs, 1, "same-shape dates travel in one request")
	assert.Len(t, reqs[0].Positions, 1)
	require.Len(t, reqs[0].PricingAndMarketDataAsOf, 3)

	seen := make(map[string]bool)
	for _, dm := range reqs[0].PricingAndMarketDataAsOf {
		seen[dm.PricingDate.Format("2006-01-02")] = true
		assert.Equal(t, "CloseMarket", dm.Market["marketType"])
	}
	assert.Len(t, seen, 3)
}

func TestHistoricalContextRangeUsesBusinessDays(t *testing.T) {
	_, _, cfg := newTestRig(t)
	// Friday 2024-01-12 through Tuesday 2024-01-16 spans a weekend.
	h := NewHistoricalContextRange(cfg, day(12), day(16))
	assert.Equal(t, []time.Time{day(12), day(15), day(16)}, h.Dates())
}

func TestBackToTheFutureSplitsAroundPricingDate(t *testing.T) {
	_, paper, cfg := newTestRig(t)
	cfg.PricingDate = day(16)
	b := NewBackToTheFutureContext(cfg, []time.Time{day(15), day(16), day(17)}, true)
	opt := testOption("SPX")

	var sf *risk.SeriesFuture
	require.NoError(t, b.Use(func() error {
		sf = b.Calc(opt, risk.Price)
		return nil
	}))

	reqs := paper.Requests()
	require.Len(t, reqs, 2, "realized and forward-rolled dates form separate batches")

	var realized, rolled *provider.BatchRequest
	for i := range reqs {
		if reqs[i].Scenario == nil {
			realized = &reqs[i]
		} else {
			rolled = &reqs[i]
		}
	}
	require.NotNil(t, realized)
	require.NotNil(t, rolled)

	// Dates at or before the pricing date price against their own close.
	require.Len(t, realized.PricingAndMarketDataAsOf, 2)
	for _, dm := range realized.PricingAndMarketDataAsOf {
		assert.Equal(t, "CloseMarket", dm.Market["marketType"])
	}

	// The future date keeps the base market under a forward-roll scenario.
	require.Len(t, rolled.PricingAndMarketDataAsOf, 1)
	assert.Equal(t, day(17), rolled.PricingAndMarketDataAsOf[0].PricingDate)
	assert.Equal(t, "CurveScenario.RollForward", rolled.Scenario["name"])

	results, err := sf.Result()
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, d := range []time.Time{day(15), day(16), day(17)} {
		assert.Equal(t, d, results[i].Date)
	}
}
