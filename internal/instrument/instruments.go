package instrument

import (
	"time"

	"github.com/shopspring/decimal"
)

// IRSwap is a fixed-for-floating interest rate swap.
type IRSwap struct {
	base
	Notional        decimal.Decimal
	Currency        string
	EffectiveDate   time.Time
	TerminationDate time.Time
	FixedRate       float64
	PayFixed        bool
}

// NewIRSwap creates an interest rate swap priced by the given provider
// ("" selects the default provider).
func NewIRSwap(provider, currency string, notional decimal.Decimal, effective, termination time.Time, fixedRate float64, payFixed bool) *IRSwap {
	return &IRSwap{
		base:            newBase(provider, decimal.NewFromInt(1)),
		Notional:        notional,
		Currency:        currency,
		EffectiveDate:   effective,
		TerminationDate: termination,
		FixedRate:       fixedRate,
		PayFixed:        payFixed,
	}
}

func (s *IRSwap) InstrumentType() string { return "IRSwap" }

func (s *IRSwap) Projection() map[string]interface{} {
	return map[string]interface{}{
		"instrumentType":  "IRSwap",
		"notional":        s.Notional.String(),
		"currency":        s.Currency,
		"effectiveDate":   s.EffectiveDate.Format("2006-01-02"),
		"terminationDate": s.TerminationDate.Format("2006-01-02"),
		"fixedRate":       s.FixedRate,
		"payFixed":        s.PayFixed,
	}
}

// EqOption is a vanilla equity option.
type EqOption struct {
	base
	Underlier  string
	Strike     float64
	Expiry     time.Time
	OptionType string // "Call" or "Put"
}

// NewEqOption creates an equity option priced by the given provider
// ("" selects the default provider).
func NewEqOption(provider, underlier string, strike float64, expiry time.Time, optionType string) *EqOption {
	return &EqOption{
		base:       newBase(provider, decimal.NewFromInt(1)),
		Underlier:  underlier,
		Strike:     strike,
		Expiry:     expiry,
		OptionType: optionType,
	}
}

func (o *EqOption) InstrumentType() string { return "EqOption" }

func (o *EqOption) Projection() map[string]interface{} {
	return map[string]interface{}{
		"instrumentType": "EqOption",
		"underlier":      o.Underlier,
		"strike":         o.Strike,
		"expiry":         o.Expiry.Format("2006-01-02"),
		"optionType":     o.OptionType,
	}
}

// FXForward is a foreign exchange forward.
type FXForward struct {
	base
	Pair           string
	Notional       decimal.Decimal
	ForwardRate    float64
	SettlementDate time.Time
}

// NewFXForward creates an FX forward priced by the given provider
// ("" selects the default provider).
func NewFXForward(provider, pair string, notional decimal.Decimal, forwardRate float64, settlement time.Time) *FXForward {
	return &FXForward{
		base:           newBase(provider, decimal.NewFromInt(1)),
		Pair:           pair,
		Notional:       notional,
		ForwardRate:    forwardRate,
		SettlementDate: settlement,
	}
}

func (f *FXForward) InstrumentType() string { return "FXForward" }

func (f *FXForward) Projection() map[string]interface{} {
	return map[string]interface{}{
		"instrumentType": "FXForward",
		"pair":           f.Pair,
		"notional":       f.Notional.String(),
		"forwardRate":    f.ForwardRate,
		"settlementDate": f.SettlementDate.Format("2006-01-02"),
	}
}
