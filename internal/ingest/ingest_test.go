package ingest

import (
	"strings"
	"testing"

	"github.com/hmori/go-hall-metrics/internal/config"
	"github.com/hmori/go-hall-metrics/internal/model"
)

func defaultCfg(t *testing.T) *config.Config {
	t.Helper()
	c, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	return c
}

func TestParseResolvesAliases(t *testing.T) {
	// Legacy spellings: total_start for games, art for qualifying count,
	// sashi for the credit differential, start for per-event games.
	data := `{
		"venue": "island",
		"model": "sbj",
		"date": "2026-08-20",
		"units": [
			{
				"unit_id": "1015",
				"total_start": 3100,
				"art": 22,
				"sashi": 1250,
				"history": [
					{"time": "10:12", "type": "BIG", "start": 230, "payout": 400},
					{"time": "11:03", "type": "RB", "start": 180, "payout": 60}
				]
			},
			{"unit_id": "1016", "games": 0, "qualifying": 0}
		]
	}`

	s, err := Parse(strings.NewReader(data), defaultCfg(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Venue != "island" || s.Date != "2026-08-20" {
		t.Fatalf("snapshot header: %+v", s)
	}
	if len(s.Observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(s.Observations))
	}

	o := s.Observations[0]
	if o.UnitID != "1015" {
		t.Fatalf("unit id: %s", o.UnitID)
	}
	if o.TotalGames != 3100 || o.QualifyingCount != 22 || o.NetDiff != 1250 {
		t.Errorf("aliased counters: games=%d qualifying=%d diff=%d", o.TotalGames, o.QualifyingCount, o.NetDiff)
	}
	if len(o.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(o.Events))
	}
	if o.Events[0].GamesSince != 230 || o.Events[0].Type != model.EventBig {
		t.Errorf("first event: %+v", o.Events[0])
	}
	// RB is the legacy spelling of a REG.
	if o.Events[1].Type != model.EventReg {
		t.Errorf("second event type: %s", o.Events[1].Type)
	}
	// Seq defaults to position when the feed omits it.
	if o.Events[0].Seq != 1 || o.Events[1].Seq != 2 {
		t.Errorf("event seq: %d, %d", o.Events[0].Seq, o.Events[1].Seq)
	}

	// The zero unit still decodes; rejection is the store's call.
	if !s.Observations[1].Zero() {
		t.Errorf("expected unit 1016 to be a zero observation")
	}
}

func TestParseMalformedFieldsDefaultToZero(t *testing.T) {
	data := `{
		"venue": "island",
		"model": "sbj",
		"date": "2026-08-20",
		"units": [
			{"unit_id": 1015, "games": "3100", "qualifying": "not-a-number",
			 "history": [{"type": "BIG"}, "garbage"]}
		]
	}`

	s, err := Parse(strings.NewReader(data), defaultCfg(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	o := s.Observations[0]
	if o.UnitID != "1015" {
		t.Errorf("numeric unit id should coerce to string, got %q", o.UnitID)
	}
	if o.TotalGames != 3100 {
		t.Errorf("string-typed games should coerce, got %d", o.TotalGames)
	}
	if o.QualifyingCount != 0 {
		t.Errorf("unparseable qualifying should default to 0, got %d", o.QualifyingCount)
	}
	// One well-formed event survives, the garbage entry is skipped.
	if len(o.Events) != 1 || o.Events[0].GamesSince != 0 {
		t.Errorf("events: %+v", o.Events)
	}
}

func TestParseBrokenJSON(t *testing.T) {
	if _, err := Parse(strings.NewReader("{nope"), defaultCfg(t)); err == nil {
		t.Fatal("expected an error for broken JSON")
	}
}
