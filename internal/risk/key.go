package risk

import (
	"fmt"
	"time"

	"goquant/internal/markets"
)

// Key is the immutable value identity of one risk computation. Two keys
// are equal iff every field is structurally equal; Fingerprint provides
// the canonical comparable form.
type Key struct {
	Provider    string
	PricingDate time.Time
	Market      markets.Market
	Parameters  *Parameters
	Scenario    *Scenario
	Measure     Measure
}

// Fingerprint returns a canonical string identity for the key, suitable
// for use as a map key. Structurally equal keys share a fingerprint.
func (k Key) Fingerprint() string {
	market := ""
	if k.Market != nil {
		market = k.Market.Fingerprint()
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		k.Provider,
		k.PricingDate.Format("2006-01-02"),
		market,
		k.Parameters.Fingerprint(),
		k.Scenario.Fingerprint(),
		k.Measure.Name,
	)
}

// Equal reports structural equality of two keys.
func (k Key) Equal(other Key) bool {
	return k.Fingerprint() == other.Fingerprint()
}

// IsLiveMarket reports whether the key prices against a live market.
// Live results are point-in-time and are excluded from caching.
func (k Key) IsLiveMarket() bool {
	return k.Market != nil && k.Market.MarketType() == markets.TypeLive
}
