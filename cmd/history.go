package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hmori/go-hall-metrics/internal/perform"
	"github.com/hmori/go-hall-metrics/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history <venue> <unit>",
	Short: "Show a unit's stored daily history and rolling stats",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
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
		fmt.Fprintf(os.Stdout, "No history for %s/%s yet. Run 'hallmetrics ingest <snapshot.json>' first.\n", venue, unitID)
		return nil
	}

	report.PrintHistoryTable(os.Stdout, h)
	report.PrintSummary(os.Stdout, unitID, perform.Summarize(h, cfg.Profile(h.ModelKey)))
	return nil
}
