package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"Poligraph/internal/app"
	"Poligraph/internal/config"
	"Poligraph/internal/logging"
	"Poligraph/pkg/logger"
)

var (
	configPath string
	console    = logger.New(nil, nil)
)

var rootCmd = &cobra.Command{
	Use:   "poligraph",
	Short: "Discover and reconcile judicial affairs of French politicians",
	Long: `Poligraph collects judicial affairs from Wikidata, Wikipedia and Judilibre,
refuses candidates that duplicate an existing affair, and helps reviewers
merge or dismiss the duplicates that still slip through.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (defaults to $POLIGRAPH_CONFIG)")
	if err := rootCmd.Execute(); err != nil {
		console.Error("%v", err)
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// openApp builds the application for one command. Callers must Close it.
func openApp(ctx context.Context) (*app.Application, *slog.Logger, error) {
	cfg := loadConfig()
	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("start application: %w", err)
	}
	return application, log, nil
}
