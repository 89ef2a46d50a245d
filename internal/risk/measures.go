// Package risk defines risk measures, the value identity of a risk
// computation, result values, and the futures used to deliver them.
package risk

// Measure is a named quantity to compute on a priceable instrument.
type Measure struct {
	Name       string `json:"name"`
	AssetClass string `json:"assetClass,omitempty"`
	Unit       string `json:"unit,omitempty"`
}

// Built-in measure catalog.
var (
	Price       = Measure{Name: "Price"}
	DollarPrice = Measure{Name: "DollarPrice", Unit: "USD"}
	Delta       = Measure{Name: "Delta"}
	Gamma       = Measure{Name: "Gamma"}
	Vega        = Measure{Name: "Vega"}
	Theta       = Measure{Name: "Theta"}
	IRDelta     = Measure{Name: "IRDelta", AssetClass: "Rates"}
	IRVega      = Measure{Name: "IRVega", AssetClass: "Rates"}
	FXDelta     = Measure{Name: "FXDelta", AssetClass: "FX"}
)

// Catalog returns all built-in measures.
func Catalog() []Measure {
	return []Measure{Price, DollarPrice, Delta, Gamma, Vega, Theta, IRDelta, IRVega, FXDelta}
}

// MeasureByName looks up a built-in measure by name.
func MeasureByName(name string) (Measure, bool) {
	for _, m := range Catalog() {
		if m.Name == name {
			return m, true
		}
	}
	return Measure{}, false
}
