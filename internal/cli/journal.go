package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"goquant/internal/errors"
	"goquant/internal/store"
)

func newJournalCmd(app *App) *cobra.Command {
	var (
		limit   int
		measure string
	)

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recently computed risk results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Journal == nil {
				return errors.ErrJournalDisabled
			}

			records, err := app.Journal.Query(cmd.Context(), store.RecordFilter{
				Measure: measure,
				Limit:   limit,
			})
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No journaled results.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "COMPUTED\tINSTRUMENT\tPROVIDER\tMEASURE\tDATE\tVALUE\n")
			for _, r := range records {
				value := fmt.Sprintf("%g", r.Value)
				if r.IsError {
					value = "error: " + r.ErrorMessage
				} else if r.ValueText != "" {
					value = r.ValueText
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ComputedAt.Format("2006-01-02 15:04:05"),
					r.InstrumentType,
					r.Provider,
					r.Measure,
					r.PricingDate.Format("2006-01-02"),
					value,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records to show")
	cmd.Flags().StringVarP(&measure, "measure", "m", "", "Filter by risk measure")

	return cmd
}
