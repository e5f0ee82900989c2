package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hmori/go-hall-metrics/internal/report"
)

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List all stored units",
	Args:  cobra.NoArgs,
	RunE:  runUnits,
}

func runUnits(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	units, err := db.ListUnits()
	if err != nil {
		return fmt.Errorf("list units: %w", err)
	}
	if len(units) == 0 {
		fmt.Fprintln(os.Stdout, "No units stored yet. Run 'hallmetrics ingest <snapshot.json>' to add some.")
		return nil
	}

	report.PrintUnitsTable(os.Stdout, units)
	return nil
}
