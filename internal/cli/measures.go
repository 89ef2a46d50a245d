package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"goquant/internal/risk"
)

func newMeasuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "measures",
		Short: "List the available risk measures",
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "NAME\tASSET CLASS\tUNIT\n")
			for _, m := range risk.Catalog() {
				assetClass := m.AssetClass
				if assetClass == "" {
					assetClass = "-"
				}
				unit := m.Unit
				if unit == "" {
					unit = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, assetClass, unit)
			}
			w.Flush()
		},
	}
}
