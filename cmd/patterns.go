package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hmori/go-hall-metrics/internal/pattern"
	"github.com/hmori/go-hall-metrics/internal/perform"
	"github.com/hmori/go-hall-metrics/internal/report"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns <venue> <unit>",
	Short: "Show a unit's cyclical good/bad structure",
	Args:  cobra.ExactArgs(2),
	RunE:  runPatterns,
}

func runPatterns(cmd *cobra.Command, args []string) error {
	venue, unitID := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	h, err := db.Load(venue, unitID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if h.Empty() {
		fmt.Fprintf(os.Stdout, "No history for %s/%s yet.\n", venue, unitID)
		return nil
	}

	classes := perform.Classify(h, cfg.Profile(h.ModelKey))
	report.PrintCycleTable(os.Stdout, unitID, pattern.DetectCycle(classes), pattern.DetectRotation(classes))
	return nil
}
