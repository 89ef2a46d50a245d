package risk

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Parameters are provider-facing pricing parameters shared by every entry
// in a batch. Treated as immutable once attached to a Key.
type Parameters struct {
	CSATerm         string `json:"csaTerm,omitempty"`
	MarketBehaviour string `json:"marketBehaviour,omitempty"`
}

// Fingerprint returns a canonical identity string for the parameters.
// A nil *Parameters fingerprints the same as the zero value.
func (p *Parameters) Fingerprint() string {
	if p == nil {
		return "params||"
	}
	return fmt.Sprintf("params|%s|%s", p.CSATerm, p.MarketBehaviour)
}

// Scenario is a market-data perturbation applied during a risk computation.
// RollDate is set only for forward-roll scenarios.
type Scenario struct {
	Name           string             `json:"name"`
	Shifts         map[string]float64 `json:"shifts,omitempty"`
	RollDate       time.Time          `json:"rollDate,omitempty"`
	RealiseForward bool               `json:"realiseForward,omitempty"`
}

// RollForward builds the scenario that rolls the market out to a future
// date, realizing either the forward curve or spot depending on the flag.
func RollForward(date time.Time, realiseForward bool) *Scenario {
	return &Scenario{
		Name:           "CurveScenario.RollForward",
		RollDate:       date,
		RealiseForward: realiseForward,
	}
}

// Fingerprint returns a canonical identity string for the scenario.
// A nil *Scenario fingerprints as the absence of a scenario.
func (s *Scenario) Fingerprint() string {
	if s == nil {
		return "scenario|none"
	}
	shifts := make([]string, 0, len(s.Shifts))
	for k, v := range s.Shifts {
		shifts = append(shifts, fmt.Sprintf("%s=%g", k, v))
	}
	sort.Strings(shifts)
	roll := ""
	if !s.RollDate.IsZero() {
		roll = s.RollDate.Format("2006-01-02")
	}
	return fmt.Sprintf("scenario|%s|%s|%s|%t", s.Name, strings.Join(shifts, ","), roll, s.RealiseForward)
}

// Projection returns the JSON-serializable wire view of the scenario.
func (s *Scenario) Projection() map[string]interface{} {
	if s == nil {
		return nil
	}
	proj := map[string]interface{}{"name": s.Name}
	if len(s.Shifts) > 0 {
		proj["shifts"] = s.Shifts
	}
	if !s.RollDate.IsZero() {
		proj["rollDate"] = s.RollDate.Format("2006-01-02")
		proj["realiseForward"] = s.RealiseForward
	}
	return proj
}
