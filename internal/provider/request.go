// Package provider defines the remote calculation provider contract, the
// batch wire shapes the engine populates, and provider implementations.
package provider

import (
	"time"

	"github.com/shopspring/decimal"

	"goquant/internal/risk"
)

// Position is one priceable instrument with its resolved quantity.
type Position struct {
	Instrument map[string]interface{} `json:"instrument"`
	Quantity   decimal.Decimal        `json:"quantity"`
}

// DateMarketPair is one (pricing date, market data as-of) pair of a batch.
type DateMarketPair struct {
	PricingDate time.Time              `json:"pricingDate"`
	Market      map[string]interface{} `json:"marketDataAsOf"`
}

// BatchRequest is one outbound request bundling every position, measure
// and date/market pair sharing identical provider-facing parameters.
type BatchRequest struct {
	ID                       string                 `json:"id"`
	Positions                []Position             `json:"positions"`
	Measures                 []risk.Measure         `json:"measures"`
	Parameters               *risk.Parameters       `json:"parameters,omitempty"`
	Scenario                 map[string]interface{} `json:"scenario,omitempty"`
	PricingLocation          string                 `json:"pricingLocation,omitempty"`
	PricingAndMarketDataAsOf []DateMarketPair       `json:"pricingAndMarketDataAsOf"`
	WaitForResults           bool                   `json:"waitForResults"`
	Visible                  bool                   `json:"visible"`
}

// ResultCoord addresses one result point within a batch: indexes into the
// request's Positions, Measures and PricingAndMarketDataAsOf slices.
type ResultCoord struct {
	Position   int
	Measure    int
	DateMarket int
}

// BatchResult holds the results for one BatchRequest. A result with
// Pending set carries no points yet; the engine polls GetResults for it.
type BatchResult struct {
	RequestID string
	Pending   bool
	Points    map[ResultCoord]risk.Result
}
