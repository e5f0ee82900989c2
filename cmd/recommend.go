package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmori/go-hall-metrics/internal/config"
	"github.com/hmori/go-hall-metrics/internal/ingest"
	"github.com/hmori/go-hall-metrics/internal/model"
	"github.com/hmori/go-hall-metrics/internal/perform"
	"github.com/hmori/go-hall-metrics/internal/report"
	"github.com/hmori/go-hall-metrics/internal/scoring"
	"github.com/hmori/go-hall-metrics/internal/storage"
)

var (
	recommendDate    string
	recommendToday   string
	recommendFocus   string
	recommendExplain bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <venue>",
	Short: "Score and rank a venue's units for a date",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecommend,
}

func init() {
	recommendCmd.Flags().StringVar(&recommendDate, "date", "", "scoring date (default today)")
	recommendCmd.Flags().StringVar(&recommendToday, "today", "", "same-day snapshot file for live bonuses")
	recommendCmd.Flags().StringVar(&recommendFocus, "unit", "", "highlight unit")
	recommendCmd.Flags().BoolVar(&recommendExplain, "explain", false, "print every justification per unit")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	venueKey := args[0]
	log := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	venue := cfg.Venue(venueKey)
	if venue == nil {
		// A venue that exists only in the store still gets scored, under
		// the default model profile.
		venue = &config.Venue{Key: venueKey, Name: venueKey}
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	date := recommendDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	unitIDs, err := cohortUnits(venue, db)
	if err != nil {
		return err
	}
	if len(unitIDs) == 0 {
		fmt.Fprintf(os.Stdout, "No units known for venue %q. Configure them or ingest a snapshot first.\n", venueKey)
		return nil
	}

	sameDay := map[string]model.Observation{}
	if recommendToday != "" {
		snap, err := ingest.ParseFile(recommendToday, cfg)
		if err != nil {
			return err
		}
		for _, obs := range snap.Observations {
			if obs.Date == date {
				sameDay[obs.UnitID] = obs
			}
		}
	}

	cache := perform.NewCache(db)
	db.OnChange(cache.Invalidate)

	eng := scoring.NewEngine(cache, cfg, log)
	recs := eng.ScoreVenue(venue, unitIDs, date, sameDay)

	fmt.Fprintf(os.Stdout, "\nVenue: %s  |  Date: %s  |  Units: %d\n\n", venue.Key, date, len(recs))
	report.PrintRecommendationTable(os.Stdout, recs, recommendFocus)

	if recommendExplain {
		for _, r := range recs {
			report.PrintReasons(os.Stdout, r)
		}
	}
	return nil
}

// cohortUnits is the union of configured and stored units for a venue.
func cohortUnits(venue *config.Venue, db *storage.DB) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, id := range venue.Units {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	stored, err := db.UnitsForVenue(venue.Key)
	if err != nil {
		return nil, fmt.Errorf("list venue units: %w", err)
	}
	for _, id := range stored {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}
