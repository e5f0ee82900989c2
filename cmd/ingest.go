package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hmori/go-hall-metrics/internal/ingest"
	"github.com/hmori/go-hall-metrics/internal/storage"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <snapshot.json>...",
	Short: "Merge daily snapshot files into the history store",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	totalAdded, totalMerged, totalRejected := 0, 0, 0
	for _, path := range args {
		snap, err := ingest.ParseFile(path, cfg)
		if err != nil {
			return err
		}
		prof := cfg.Profile(snap.ModelKey)

		added, merged, rejected := 0, 0, 0
		for _, obs := range snap.Observations {
			created, err := db.Merge(obs, prof.ChainThreshold)
			switch {
			case errors.Is(err, storage.ErrZeroObservation):
				rejected++
			case err != nil:
				return fmt.Errorf("merge %s/%s %s: %w", obs.Venue, obs.UnitID, obs.Date, err)
			case created:
				added++
			default:
				merged++
			}
		}
		log.WithFields(logrus.Fields{
			"file":     path,
			"venue":    snap.Venue,
			"date":     snap.Date,
			"added":    added,
			"merged":   merged,
			"rejected": rejected,
		}).Info("snapshot ingested")
		totalAdded += added
		totalMerged += merged
		totalRejected += rejected
	}

	fmt.Fprintf(os.Stdout, "Ingested %d file(s): %d new day(s), %d merged, %d rejected as empty.\n",
		len(args), totalAdded, totalMerged, totalRejected)
	return nil
}
