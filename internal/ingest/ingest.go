// Package ingest decodes already-fetched daily snapshot files into
// observations. Feeds spell the same fields many ways (total_start vs
// games, sashi vs diff); every raw key is resolved through the config
// alias table exactly once, here, so downstream code only ever sees
// canonical names.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/hmori/go-hall-metrics/internal/config"
	"github.com/hmori/go-hall-metrics/internal/model"
)

// Snapshot is one decoded collection file: every unit of one venue on one date.
type Snapshot struct {
	Venue        string
	ModelKey     string
	Date         string
	Observations []model.Observation
}

type rawSnapshot struct {
	Venue string           `json:"venue"`
	Model string           `json:"model"`
	Date  string           `json:"date"`
	Units []map[string]any `json:"units"`
}

// ParseFile reads and decodes one snapshot file.
func ParseFile(path string, cfg *config.Config) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	s, err := Parse(f, cfg)
	if err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a snapshot stream. Individual malformed fields default to
// zero rather than failing the whole file; only broken JSON is an error.
func Parse(r io.Reader, cfg *config.Config) (Snapshot, error) {
	var raw rawSnapshot
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	s := Snapshot{Venue: raw.Venue, ModelKey: raw.Model, Date: raw.Date}
	for _, u := range raw.Units {
		m := canonicalize(u, cfg)
		o := model.Observation{
			Venue:           raw.Venue,
			UnitID:          strField(m, "unit_id"),
			ModelKey:        raw.Model,
			Date:            raw.Date,
			QualifyingCount: intField(m, "qualifying"),
			TotalGames:      intField(m, "games"),
			NetDiff:         intField(m, "net_diff"),
			MaxPayout:       intField(m, "max_payout"),
			Events:          parseEvents(m["history"], cfg),
		}
		if d := strField(m, "date"); d != "" {
			o.Date = d
		}
		if o.UnitID == "" {
			continue
		}
		s.Observations = append(s.Observations, o)
	}
	sort.SliceStable(s.Observations, func(i, j int) bool {
		return s.Observations[i].UnitID < s.Observations[j].UnitID
	})
	return s, nil
}

// canonicalize rewrites every key of one raw unit record through the alias
// table. On collision the canonical spelling wins.
func canonicalize(m map[string]any, cfg *config.Config) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		canon := cfg.Canonical(k)
		if _, taken := out[canon]; taken && canon != k {
			continue
		}
		out[canon] = v
	}
	return out
}

func parseEvents(v any, cfg *config.Config) []model.HitEvent {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []model.HitEvent
	for i, item := range list {
		raw, ok := item.(map[string]any)
		if !ok {
			continue
		}
		m := canonicalize(raw, cfg)
		e := model.HitEvent{
			Seq:        intField(m, "seq"),
			Time:       strField(m, "time"),
			GamesSince: intField(m, "games"),
			Payout:     intField(m, "payout"),
			Type:       model.ParseEventType(strField(m, "type")),
		}
		if e.Seq == 0 {
			e.Seq = i + 1
		}
		out = append(out, e)
	}
	return out
}

func strField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
