package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nsvirk/nsequotes/pkg/utils/zaplogger"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [SYMBOL...]",
	Short: "Run a single collection cycle and print its summary",
	Long:  "Run a single collection cycle for the given symbols, or for the configured symbol list when none are given. The market calendar is not consulted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer zaplogger.Sync()
		zaplogger.SetLogLevel(cfg.ServerLogLevel)

		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}

		symbols := p.symbols
		if len(args) > 0 {
			symbols = normalizeSymbols(args)
		}

		summary := p.collector.RunCycle(context.Background(), symbols)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
		if len(summary.FailedSymbols) > 0 {
			return fmt.Errorf("%d of %d symbols failed", len(summary.FailedSymbols), summary.Symbols)
		}
		return nil
	},
}

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Print whether the market is open now",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}

		now := time.Now().In(cfg.Location())
		state := "closed"
		if p.calendar.IsOpen(now) {
			state = "open"
		}
		fmt.Printf("%s: market %s (holiday: %t)\n", now.Format(time.DateTime), state, p.calendar.IsHoliday(now))
		return nil
	},
}

// normalizeSymbols upper-cases and de-duplicates command line symbols
func normalizeSymbols(args []string) []string {
	seen := make(map[string]struct{}, len(args))
	symbols := make([]string, 0, len(args))
	for _, arg := range args {
		s := strings.ToUpper(strings.TrimSpace(arg))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		symbols = append(symbols, s)
	}
	return symbols
}
