// Package cli provides the command-line interface for the pricing
// application.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"goquant/internal/config"
	"goquant/internal/provider"
	"goquant/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Registry *provider.Registry
	Journal  store.Journal
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.Registry = provider.NewRegistry()
	app.Registry.Register(provider.NewPaperProvider(provider.PaperConfig{}))
	for name, pcfg := range cfg.Providers {
		app.Registry.Register(provider.NewHTTPProvider(provider.HTTPConfig{
			Name:     name,
			Endpoint: pcfg.Endpoint,
			APIKey:   pcfg.APIKey,
			Timeout:  pcfg.Timeout,
		}))
		logger.Debug().Str("provider", name).Msg("HTTP provider registered")
	}

	if cfg.Journal.Enabled {
		journal, err := store.NewSQLiteJournal(cfg.Journal.Path)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to open result journal, journaling disabled")
		} else {
			app.Journal = journal
		}
	}

	rootCmd := &cobra.Command{
		Use:   "goquant",
		Short: "Batch pricing and risk for financial instruments",
		Long: `goquant accumulates risk measure requests, deduplicates and groups
them into batches, and dispatches them to a calculation provider.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newPriceCmd(app),
		newMeasuresCmd(),
		newJournalCmd(app),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("goquant %s\n", Version)
		},
	}
}
