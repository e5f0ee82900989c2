package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hmori/go-hall-metrics/internal/interval"
	"github.com/hmori/go-hall-metrics/internal/model"
)

// ErrZeroObservation marks the transport-failure sentinel: a day reporting
// neither games nor qualifying events is a failed fetch and is never stored.
var ErrZeroObservation = errors.New("all-zero observation rejected")

const timeFormat = time.RFC3339

// Merge folds one daily observation into the unit's stored history.
// Inserting the same observation twice yields one row per date. An existing
// row is only ever backfilled: when its event history is empty and the
// observation carries one, the events are stored and the derived max-run
// fields recomputed from them; populated counters are never overwritten.
// Returns true when a new day row was created.
func (db *DB) Merge(obs model.Observation, chainThreshold int) (bool, error) {
	if obs.Zero() {
		return false, ErrZeroObservation
	}

	mu := db.unitLock(obs.Venue, obs.UnitID)
	mu.Lock()
	defer mu.Unlock()

	var storedEvents string
	var storedRunLen, storedRunPayout int
	err := db.conn.QueryRow(`
		SELECT events, max_run_length, max_run_payout
		FROM unit_days WHERE venue = ? AND unit_id = ? AND date = ?`,
		obs.Venue, obs.UnitID, obs.Date).
		Scan(&storedEvents, &storedRunLen, &storedRunPayout)

	created := false
	switch {
	case err == sql.ErrNoRows:
		runLen, runPayout := 0, obs.MaxPayout
		evJSON := "[]"
		if len(obs.Events) > 0 {
			runLen, runPayout = interval.MaxRun(obs.Events, chainThreshold)
			if obs.MaxPayout > runPayout {
				runPayout = obs.MaxPayout
			}
			b, merr := json.Marshal(obs.Events)
			if merr != nil {
				return false, fmt.Errorf("encode events for %s/%s %s: %w", obs.Venue, obs.UnitID, obs.Date, merr)
			}
			evJSON = string(b)
		}
		_, err = db.conn.Exec(`
			INSERT INTO unit_days(venue, unit_id, date, qualifying_count, total_games, net_diff, max_run_length, max_run_payout, events)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			obs.Venue, obs.UnitID, obs.Date,
			obs.QualifyingCount, obs.TotalGames, obs.NetDiff,
			runLen, runPayout, evJSON)
		if err != nil {
			return false, fmt.Errorf("insert day %s/%s %s: %w", obs.Venue, obs.UnitID, obs.Date, err)
		}
		created = true

	case err != nil:
		return false, fmt.Errorf("lookup day %s/%s %s: %w", obs.Venue, obs.UnitID, obs.Date, err)

	default:
		if hasStoredEvents(storedEvents) || len(obs.Events) == 0 {
			break // nothing to backfill; re-merge is a no-op
		}
		runLen, runPayout := interval.MaxRun(obs.Events, chainThreshold)
		// Additive-only: never shrink a derived field that was already set
		// from a reported value.
		if storedRunLen > runLen {
			runLen = storedRunLen
		}
		if storedRunPayout > runPayout {
			runPayout = storedRunPayout
		}
		b, merr := json.Marshal(obs.Events)
		if merr != nil {
			return false, fmt.Errorf("encode events for %s/%s %s: %w", obs.Venue, obs.UnitID, obs.Date, merr)
		}
		_, err = db.conn.Exec(`
			UPDATE unit_days SET events = ?, max_run_length = ?, max_run_payout = ?
			WHERE venue = ? AND unit_id = ? AND date = ?`,
			string(b), runLen, runPayout,
			obs.Venue, obs.UnitID, obs.Date)
		if err != nil {
			return false, fmt.Errorf("backfill day %s/%s %s: %w", obs.Venue, obs.UnitID, obs.Date, err)
		}
	}

	if err := db.touchUnit(obs.Venue, obs.UnitID, obs.ModelKey); err != nil {
		return created, err
	}
	db.notify(obs.Venue, obs.UnitID)
	return created, nil
}

func (db *DB) touchUnit(venue, unitID, modelKey string) error {
	_, err := db.conn.Exec(`
		INSERT INTO units(venue, unit_id, model_key, last_modified)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(venue, unit_id) DO UPDATE SET
			last_modified = excluded.last_modified,
			model_key = CASE WHEN excluded.model_key = '' THEN units.model_key ELSE excluded.model_key END`,
		venue, unitID, modelKey, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("touch unit %s/%s: %w", venue, unitID, err)
	}
	return nil
}

func hasStoredEvents(raw string) bool {
	return raw != "" && raw != "[]" && raw != "null"
}

// Load returns the full history for one unit, ascending by date. An unknown
// unit yields an empty history, not an error.
func (db *DB) Load(venue, unitID string) (model.UnitHistory, error) {
	h := model.UnitHistory{Venue: venue, UnitID: unitID}

	var modelKey, modified string
	err := db.conn.QueryRow(`
		SELECT model_key, last_modified FROM units WHERE venue = ? AND unit_id = ?`,
		venue, unitID).Scan(&modelKey, &modified)
	if err == sql.ErrNoRows {
		return h, nil
	}
	if err != nil {
		return h, fmt.Errorf("lookup unit %s/%s: %w", venue, unitID, err)
	}
	h.ModelKey = modelKey
	if t, perr := time.Parse(timeFormat, modified); perr == nil {
		h.LastModified = t
	}

	rows, err := db.conn.Query(`
		SELECT date, qualifying_count, total_games, net_diff, max_run_length, max_run_payout, events
		FROM unit_days WHERE venue = ? AND unit_id = ?
		ORDER BY date ASC`, venue, unitID)
	if err != nil {
		return h, fmt.Errorf("load days %s/%s: %w", venue, unitID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var d model.DailyRecord
		var evJSON string
		if err := rows.Scan(&d.Date, &d.QualifyingCount, &d.TotalGames,
			&d.NetDiff, &d.MaxRunLength, &d.MaxRunPayout, &evJSON); err != nil {
			return h, err
		}
		if hasStoredEvents(evJSON) {
			if err := json.Unmarshal([]byte(evJSON), &d.Events); err != nil {
				return h, fmt.Errorf("decode events %s/%s %s: %w", venue, unitID, d.Date, err)
			}
		}
		h.Days = append(h.Days, d)
	}
	return h, rows.Err()
}

// UnitsForVenue returns the stored unit IDs of one venue, sorted.
func (db *DB) UnitsForVenue(venue string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT unit_id FROM units WHERE venue = ? ORDER BY unit_id`, venue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListUnits returns a summary row per stored unit, ordered by venue then unit.
func (db *DB) ListUnits() ([]model.UnitSummary, error) {
	rows, err := db.conn.Query(`
		SELECT u.venue, u.unit_id, u.model_key, u.last_modified,
		       COUNT(d.date), COALESCE(MIN(d.date), ''), COALESCE(MAX(d.date), '')
		FROM units u
		LEFT JOIN unit_days d ON d.venue = u.venue AND d.unit_id = u.unit_id
		GROUP BY u.venue, u.unit_id
		ORDER BY u.venue, u.unit_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UnitSummary
	for rows.Next() {
		var s model.UnitSummary
		var modified string
		if err := rows.Scan(&s.Venue, &s.UnitID, &s.ModelKey, &modified,
			&s.Days, &s.FirstDate, &s.LastDate); err != nil {
			return nil, err
		}
		if t, perr := time.Parse(timeFormat, modified); perr == nil {
			s.LastModified = t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Overview holds the store-wide stats for the summary command.
type Overview struct {
	Units     int
	Days      int
	FirstDate string
	LastDate  string
	Venues    []VenueCount
}

// VenueCount is one venue's share of the store.
type VenueCount struct {
	Venue string
	Units int
	Days  int
}

// GetOverview returns store-wide counts and the covered date range.
func (db *DB) GetOverview() (Overview, error) {
	var o Overview
	err := db.conn.QueryRow(`
		SELECT COUNT(DISTINCT venue || '/' || unit_id), COUNT(1),
		       COALESCE(MIN(date), ''), COALESCE(MAX(date), '')
		FROM unit_days`).
		Scan(&o.Units, &o.Days, &o.FirstDate, &o.LastDate)
	if err != nil {
		return o, fmt.Errorf("overview totals: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT venue, COUNT(DISTINCT unit_id), COUNT(1)
		FROM unit_days GROUP BY venue ORDER BY venue`)
	if err != nil {
		return o, fmt.Errorf("overview venues: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var vc VenueCount
		if err := rows.Scan(&vc.Venue, &vc.Units, &vc.Days); err != nil {
			return o, err
		}
		o.Venues = append(o.Venues, vc)
	}
	return o, rows.Err()
}
