// Package markets defines the closed set of market specifications a risk
// computation can be priced against, along with their wire projections.
package markets

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"goquant/internal/errors"
)

// Market type discriminators, carried in every wire projection.
const (
	TypeClose       = "CloseMarket"
	TypeLive        = "LiveMarket"
	TypeTimestamped = "TimestampedMarket"
	TypeOverlay     = "OverlayMarket"
	TypeRelative    = "RelativeMarket"
	TypeRef         = "RefMarket"
)

// Market is the specification of where and when market data is sourced for
// a risk computation. The set of implementations is closed: CloseMarket,
// LiveMarket, TimestampedMarket, OverlayMarket, RelativeMarket and RefMarket.
type Market interface {
	// Location returns the pricing location of the market, or "" when the
	// market has no single well-defined location.
	Location() string

	// MarketType returns the type discriminator used for batching and
	// serialization.
	MarketType() string

	// Projection returns a provider-agnostic, JSON-serializable view of
	// the market consumed by the transport layer.
	Projection() map[string]interface{}

	// Fingerprint returns a canonical string identity for the market,
	// usable as a map key. Structurally equal markets share a fingerprint.
	Fingerprint() string
}

// CloseMarket sources data from the end-of-day snapshot for a date.
type CloseMarket struct {
	Date            time.Time
	PricingLocation string
}

func (m CloseMarket) Location() string   { return m.PricingLocation }
func (m CloseMarket) MarketType() string { return TypeClose }

func (m CloseMarket) Projection() map[string]interface{} {
	return map[string]interface{}{
		"marketType": TypeClose,
		"date":       m.Date.Format("2006-01-02"),
		"location":   m.PricingLocation,
	}
}

func (m CloseMarket) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%s", TypeClose, m.Date.Format("2006-01-02"), m.PricingLocation)
}

// LiveMarket sources data from the current live snapshot. Results computed
// against a live market are point-in-time and must never be cached.
type LiveMarket struct {
	PricingLocation string
}

func (m LiveMarket) Location() string   { return m.PricingLocation }
func (m LiveMarket) MarketType() string { return TypeLive }

func (m LiveMarket) Projection() map[string]interface{} {
	return map[string]interface{}{
		"marketType": TypeLive,
		"location":   m.PricingLocation,
	}
}

func (m LiveMarket) Fingerprint() string {
	return fmt.Sprintf("%s|%s", TypeLive, m.PricingLocation)
}

// TimestampedMarket sources data as of an exact timestamp.
type TimestampedMarket struct {
	Timestamp       time.Time
	PricingLocation string
}

func (m TimestampedMarket) Location() string   { return m.PricingLocation }
func (m TimestampedMarket) MarketType() string { return TypeTimestamped }

func (m TimestampedMarket) Projection() map[string]interface{} {
	return map[string]interface{}{
		"marketType": TypeTimestamped,
		"timestamp":  m.Timestamp.UTC().Format(time.RFC3339),
		"location":   m.PricingLocation,
	}
}

func (m TimestampedMarket) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%s", TypeTimestamped, m.Timestamp.UTC().Format(time.RFC3339), m.PricingLocation)
}

// RefMarket refers to a named market owned by the provider.
type RefMarket struct {
	Name string
}

// Location is empty: a named reference market does not pin a location.
func (m RefMarket) Location() string   { return "" }
func (m RefMarket) MarketType() string { return TypeRef }

func (m RefMarket) Projection() map[string]interface{} {
	return map[string]interface{}{
		"marketType": TypeRef,
		"name":       m.Name,
	}
}

func (m RefMarket) Fingerprint() string {
	return fmt.Sprintf("%s|%s", TypeRef, m.Name)
}

// RelativeMarket prices the difference between two markets.
type RelativeMarket struct {
	From Market
	To   Market
}

// Location returns the shared location of both legs, or "" when the legs
// disagree.
func (m RelativeMarket) Location() string {
	if m.From.Location() == m.To.Location() {
		return m.From.Location()
	}
	return ""
}

func (m RelativeMarket) MarketType() string { return TypeRelative }

func (m RelativeMarket) Projection() map[string]interface{} {
	return map[string]interface{}{
		"marketType": TypeRelative,
		"fromMarket": m.From.Projection(),
		"toMarket":   m.To.Projection(),
	}
}

func (m RelativeMarket) Fingerprint() string {
	return fmt.Sprintf("%s|(%s)|(%s)", TypeRelative, m.From.Fingerprint(), m.To.Fingerprint())
}

// Coordinate identifies a single market data point within a market.
type Coordinate struct {
	Type  string
	Asset string
	Class string
	Point string
	Field string
}

func (c Coordinate) String() string {
	return strings.Join([]string{c.Type, c.Asset, c.Class, c.Point, c.Field}, "_")
}

// OverlayMarket layers explicit coordinate values over a base market.
// Redacted coordinates reject any further overrides.
type OverlayMarket struct {
	Base      Market
	Overrides map[Coordinate]float64
	Redacted  []Coordinate
}

// NewOverlayMarket creates an overlay over base. If base is itself an
// overlay, overrides targeting a redacted coordinate are rejected.
func NewOverlayMarket(base Market, overrides map[Coordinate]float64, redacted []Coordinate) (OverlayMarket, error) {
	if prior, ok := base.(OverlayMarket); ok {
		for _, r := range prior.Redacted {
			if _, hit := overrides[r]; hit {
				return OverlayMarket{}, errors.Wrapf(errors.ErrRedactedCoordinate, "override %s", r)
			}
		}
	}
	return OverlayMarket{Base: base, Overrides: overrides, Redacted: redacted}, nil
}

func (m OverlayMarket) Location() string   { return m.Base.Location() }
func (m OverlayMarket) MarketType() string { return TypeOverlay }

func (m OverlayMarket) Projection() map[string]interface{} {
	overrides := make(map[string]float64, len(m.Overrides))
	for c, v := range m.Overrides {
		overrides[c.String()] = v
	}
	redacted := make([]string, 0, len(m.Redacted))
	for _, c := range m.Redacted {
		redacted = append(redacted, c.String())
	}
	sort.Strings(redacted)
	return map[string]interface{}{
		"marketType": TypeOverlay,
		"baseMarket": m.Base.Projection(),
		"overrides":  overrides,
		"redacted":   redacted,
	}
}

func (m OverlayMarket) Fingerprint() string {
	keys := make([]string, 0, len(m.Overrides))
	for c := range m.Overrides {
		keys = append(keys, fmt.Sprintf("%s=%g", c, m.Overrides[c]))
	}
	sort.Strings(keys)
	redacted := make([]string, 0, len(m.Redacted))
	for _, c := range m.Redacted {
		redacted = append(redacted, c.String())
	}
	sort.Strings(redacted)
	return fmt.Sprintf("%s|(%s)|%s|%s", TypeOverlay, m.Base.Fingerprint(),
		strings.Join(keys, ","), strings.Join(redacted, ","))
}
