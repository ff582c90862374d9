// Package main is the entry point for the NSE quote collector
package main

import (
	"fmt"

	"github.com/nsvirk/nsequotes/internal/calendar"
	"github.com/nsvirk/nsequotes/internal/config"
	"github.com/nsvirk/nsequotes/internal/service"
	"github.com/nsvirk/nsequotes/internal/storage"
	"github.com/nsvirk/nsequotes/internal/transport"
	"github.com/spf13/cobra"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:          "collector",
	Short:        "Collect NSE option-chain quotes into per-contract CSV files",
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Use the debug symbol list and data directory, stop at the first market close")

	rootCmd.AddCommand(serveCmd, fetchCmd, marketCmd)
	cobra.CheckErr(rootCmd.Execute())
}

// loadConfig loads the configuration and applies command line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Get()
	if err != nil {
		return nil, err
	}
	if debugFlag {
		cfg.Debug = true
	}
	return cfg, nil
}

// pipeline holds the collaborators shared by the commands
type pipeline struct {
	symbols   []string
	calendar  *calendar.Calendar
	writer    *storage.Writer
	client    *transport.NSEClient
	collector *service.CollectorService
}

// newPipeline reads the symbol and holiday files and wires the collector.
// Any input error is fatal at startup.
func newPipeline(cfg *config.Config) (*pipeline, error) {
	symbols, err := config.LoadSymbols(cfg.ActiveSymbolFile())
	if err != nil {
		return nil, err
	}

	holidays, err := calendar.LoadHolidays(cfg.HolidayFile)
	if err != nil {
		return nil, err
	}
	cal := calendar.New(cfg.Location(), holidays)

	writer := storage.NewWriter(storage.Config{
		DataDir:  cfg.ActiveDataDir(),
		Location: cfg.Location(),
	})
	client := transport.NewNSEClient(cfg.NSEBaseURL, cfg.RequestTimeout)

	collector := service.NewCollectorService(service.CollectorConfig{
		Symbols:       symbols,
		Workers:       cfg.Workers,
		CycleInterval: cfg.CycleInterval,
		IdleInterval:  cfg.IdleInterval,
		TestMode:      cfg.Debug,
	}, cal, client, writer)

	return &pipeline{
		symbols:   symbols,
		calendar:  cal,
		writer:    writer,
		client:    client,
		collector: collector,
	}, nil
}

func printConfig(cfg *config.Config) {
	fmt.Println(cfg.String())
}
