package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"goquant/internal/errors"
	"goquant/internal/instrument"
	"goquant/internal/pricing"
	"goquant/internal/risk"
	"goquant/pkg/utils"
)

type priceFlags struct {
	instrumentType string
	providerName   string
	measures       []string
	date           string
	from           string
	to             string

	// swap
	notional float64
	currency string
	years    int
	rate     float64

	// option
	underlier  string
	strike     float64
	expiry     string
	optionType string

	// forward
	pair    string
	fwdRate float64
}

func newPriceCmd(app *App) *cobra.Command {
	var flags priceFlags

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price an instrument and compute risk measures",
		Example: `  goquant price --instrument swap --currency USD --notional 10000000 --years 5 --rate 0.03 --measures Price,IRDelta
  goquant price --instrument option --underlier SPX --strike 4500 --expiry 2025-06-20 --measures Price,Delta,Vega
  goquant price --instrument swap --currency EUR --notional 5000000 --from 2024-01-01 --to 2024-01-31 --measures Price`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrice(app, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.instrumentType, "instrument", "i", "swap", "Instrument type: swap, option, forward")
	cmd.Flags().StringVarP(&flags.providerName, "provider", "p", "", "Provider name (defaults to configuration)")
	cmd.Flags().StringSliceVarP(&flags.measures, "measures", "m", []string{"Price"}, "Risk measures to compute")
	cmd.Flags().StringVar(&flags.date, "date", "", "Pricing date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&flags.from, "from", "", "Historical range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.to, "to", "", "Historical range end (YYYY-MM-DD)")

	cmd.Flags().Float64Var(&flags.notional, "notional", 1_000_000, "Swap/forward notional")
	cmd.Flags().StringVar(&flags.currency, "currency", "USD", "Swap currency")
	cmd.Flags().IntVar(&flags.years, "years", 5, "Swap tenor in years")
	cmd.Flags().Float64Var(&flags.rate, "rate", 0.03, "Swap fixed rate")

	cmd.Flags().StringVar(&flags.underlier, "underlier", "SPX", "Option underlier")
	cmd.Flags().Float64Var(&flags.strike, "strike", 100, "Option strike")
	cmd.Flags().StringVar(&flags.expiry, "expiry", "", "Option expiry (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.optionType, "option-type", "Call", "Option type: Call or Put")

	cmd.Flags().StringVar(&flags.pair, "pair", "EURUSD", "FX forward currency pair")
	cmd.Flags().Float64Var(&flags.fwdRate, "forward-rate", 1.10, "FX forward rate")

	return cmd
}

func runPrice(app *App, flags priceFlags) error {
	providerName := flags.providerName
	if providerName == "" {
		providerName = app.Config.Pricing.DefaultProvider
	}
	if _, err := app.Registry.Get(providerName); err != nil {
		return err
	}

	priceable, err := buildInstrument(flags, providerName)
	if err != nil {
		return err
	}

	measures, err := resolveMeasures(flags.measures)
	if err != nil {
		return err
	}

	cfg := pricing.ContextConfig{
		Location:     app.Config.Pricing.Location,
		CacheResults: app.Config.Pricing.CacheResults,
		Batch:        app.Config.Pricing.Batch,
		Visible:      app.Config.Pricing.Visible,
		PollInterval: app.Config.Pricing.PollInterval,
		Timeout:      app.Config.Pricing.Timeout,
		Registry:     app.Registry,
		Journal:      app.Journal,
		Logger:       app.Logger,
	}
	if flags.date != "" {
		d, err := time.Parse("2006-01-02", flags.date)
		if err != nil {
			return errors.NewValidationError("date", flags.date, "expected YYYY-MM-DD")
		}
		cfg.PricingDate = d
	}

	if flags.from != "" || flags.to != "" {
		return runHistoricalPrice(flags, cfg, priceable, measures)
	}

	pc := pricing.NewContext(cfg)
	var mf *risk.MultiFuture
	if err := pc.Use(func() error {
		mf = pc.CalcMany(priceable, measures...)
		return nil
	}); err != nil {
		return err
	}

	values, err := mf.Result()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "MEASURE\tVALUE\n")
	for _, m := range measures {
		fmt.Fprintf(w, "%s\t%s\n", m.Name, values[m.Name])
	}
	return w.Flush()
}

func runHistoricalPrice(flags priceFlags, cfg pricing.ContextConfig, priceable instrument.Priceable, measures []risk.Measure) error {
	if flags.from == "" || flags.to == "" {
		return errors.NewValidationError("from/to", "", "both --from and --to are required for a historical range")
	}
	from, err := time.Parse("2006-01-02", flags.from)
	if err != nil {
		return errors.NewValidationError("from", flags.from, "expected YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", flags.to)
	if err != nil {
		return errors.NewValidationError("to", flags.to, "expected YYYY-MM-DD")
	}

	hp := pricing.NewHistoricalContextRange(cfg, from, to)
	series := make(map[string]*risk.SeriesFuture, len(measures))
	if err := hp.Use(func() error {
		for _, m := range measures {
			series[m.Name] = hp.Calc(priceable, m)
		}
		return nil
	}); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "DATE")
	for _, m := range measures {
		fmt.Fprintf(w, "\t%s", m.Name)
	}
	fmt.Fprintln(w)

	results := make(map[string][]risk.DatedResult, len(measures))
	for _, m := range measures {
		r, err := series[m.Name].Result()
		if err != nil {
			return err
		}
		results[m.Name] = r
	}
	for i, d := range hp.Dates() {
		fmt.Fprintf(w, "%s", d.Format("2006-01-02"))
		for _, m := range measures {
			fmt.Fprintf(w, "\t%s", results[m.Name][i].Value)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func buildInstrument(flags priceFlags, providerName string) (instrument.Priceable, error) {
	today := utils.DateOf(time.Now())
	switch flags.instrumentType {
	case "swap":
		return instrument.NewIRSwap(
			providerName,
			flags.currency,
			decimal.NewFromFloat(flags.notional),
			today,
			today.AddDate(flags.years, 0, 0),
			flags.rate,
			true,
		), nil
	case "option":
		expiry := today.AddDate(0, 3, 0)
		if flags.expiry != "" {
			d, err := time.Parse("2006-01-02", flags.expiry)
			if err != nil {
				return nil, errors.NewValidationError("expiry", flags.expiry, "expected YYYY-MM-DD")
			}
			expiry = d
		}
		return instrument.NewEqOption(providerName, flags.underlier, flags.strike, expiry, flags.optionType), nil
	case "forward":
		return instrument.NewFXForward(
			providerName,
			flags.pair,
			decimal.NewFromFloat(flags.notional),
			flags.fwdRate,
			today.AddDate(0, 6, 0),
		), nil
	default:
		return nil, errors.NewValidationError("instrument", flags.instrumentType, "expected swap, option or forward")
	}
}

func resolveMeasures(names []string) ([]risk.Measure, error) {
	measures := make([]risk.Measure, 0, len(names))
	for _, name := range names {
		m, ok := risk.MeasureByName(name)
		if !ok {
			return nil, errors.NewValidationError("measures", name, "unknown risk measure")
		}
		measures = append(measures, m)
	}
	return measures, nil
}
