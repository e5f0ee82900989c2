package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hmori/go-hall-metrics/internal/report"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the history store",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ov, err := db.GetOverview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.Days == 0 {
		fmt.Fprintln(os.Stdout, "No history stored yet. Run 'hallmetrics ingest <snapshot.json>' to add some.")
		return nil
	}

	report.PrintOverview(os.Stdout, ov)
	return nil
}
