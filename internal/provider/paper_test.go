package provider

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goquant/internal/risk"
)

func paperRequest(waitForResults bool) BatchRequest {
	return BatchRequest{
		ID: "req-1",
		Positions: []Position{
			{
				Instrument: map[string]interface{}{"instrumentType": "EqOption", "underlier": "SPX"},
				Quantity:   decimal.NewFromInt(10),
			},
		},
		Measures: []risk.Measure{risk.Price, risk.Delta},
		PricingAndMarketDataAsOf: []DateMarketPair{
			{
				PricingDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Market:      map[string]interface{}{"marketType": "CloseMarket"},
			},
		},
		WaitForResults: waitForResults,
	}
}

func TestPaperProviderIsDeterministic(t *testing.T) {
	p := NewPaperProvider(PaperConfig{})

	first, err := p.CalcMulti(context.Background(), []BatchRequest{paperRequest(true)})
	require.NoError(t, err)
	second, err := p.CalcMulti(context.Background(), []BatchRequest{paperRequest(true)})
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.Len(t, first[0].Points, 2, "one point per position, measure and date")
	assert.Equal(t, first[0].Points, second[0].Points, "identical requests price identically")

	// Different measures produce different values.
	price := first[0].Points[ResultCoord{Position: 0, Measure: 0, DateMarket: 0}]
	delta := first[0].Points[ResultCoord{Position: 0, Measure: 1, DateMarket: 0}]
	assert.NotEqual(t, price, delta)
}

func TestPaperProviderPendingPolls(t *testing.T) {
	p := NewPaperProvider(PaperConfig{PendingPolls: 2})
	req := paperRequest(false)

	results, err := p.CalcMulti(context.Background(), []BatchRequest{req})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Pending)
	assert.Empty(t, results[0].Points)

	pending := map[string]BatchRequest{req.ID: req}
	for i := 0; i < 2; i++ {
		out, err := p.GetResults(context.Background(), pending)
		require.NoError(t, err)
		assert.Empty(t, out, "poll %d stays pending", i+1)
	}

	out, err := p.GetResults(context.Background(), pending)
	require.NoError(t, err)
	require.Contains(t, out, req.ID)
	assert.Len(t, out[req.ID].Points, 2)
}

func TestPaperProviderScalesByQuantity(t *testing.T) {
	p := NewPaperProvider(PaperConfig{})

	unit := paperRequest(true)
	unit.Positions[0].Quantity = decimal.NewFromInt(1)
	scaled := paperRequest(true)
	scaled.Positions[0].Quantity = decimal.NewFromInt(10)

	results, err := p.CalcMulti(context.Background(), []BatchRequest{unit, scaled})
	require.NoError(t, err)
	require.Len(t, results, 2)

	coord := ResultCoord{Position: 0, Measure: 0, DateMarket: 0}
	unitVal, ok := results[0].Points[coord].(risk.ScalarResult)
	require.True(t, ok)
	scaledVal, ok := results[1].Points[coord].(risk.ScalarResult)
	require.True(t, ok)
	assert.InDelta(t, float64(unitVal)*10, float64(scaledVal), 1e-9)
}
