package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"goquant/internal/markets"
	"goquant/internal/risk"
)

func cacheKey(m markets.Market) risk.Key {
	return risk.Key{
		Provider:    "paper",
		PricingDate: pricingDate,
		Market:      m,
		Measure:     risk.Price,
	}
}

func TestCachePutGetEvict(t *testing.T) {
	c := NewCache()
	key := cacheKey(markets.CloseMarket{Date: pricingDate, PricingLocation: "LDN"})

	_, ok := c.Get("tok", key)
	assert.False(t, ok)

	c.Put("tok", key, risk.ScalarResult(1.5))
	r, ok := c.Get("tok", key)
	assert.True(t, ok)
	assert.Equal(t, risk.ScalarResult(1.5), r)
	assert.Equal(t, 1, c.Len())

	// A different pricing date is a different entry.
	other := cacheKey(markets.CloseMarket{Date: pricingDate, PricingLocation: "LDN"})
	other.PricingDate = pricingDate.AddDate(0, 0, 1)
	_, ok = c.Get("tok", other)
	assert.False(t, ok)

	c.Evict("tok")
	_, ok = c.Get("tok", key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheDropsErrorAndLiveResults(t *testing.T) {
	c := NewCache()
	closeKey := cacheKey(markets.CloseMarket{Date: pricingDate, PricingLocation: "LDN"})
	liveKey := cacheKey(markets.LiveMarket{PricingLocation: "LDN"})

	c.Put("tok", closeKey, risk.ErrorResult{Message: "missing data"})
	c.Put("tok", liveKey, risk.ScalarResult(2))
	c.Put("tok", closeKey, nil)

	assert.Equal(t, 0, c.Len())
}
