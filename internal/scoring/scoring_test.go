package scoring

import (
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/hmori/go-hall-metrics/internal/config"
	"github.com/hmori/go-hall-metrics/internal/model"
	"github.com/hmori/go-hall-metrics/internal/perform"
)

type fakeStore struct {
	histories map[string]model.UnitHistory
}

func (f *fakeStore) Load(venue, unitID string) (model.UnitHistory, error) {
	h, ok := f.histories[venue+"/"+unitID]
	if !ok {
		return model.UnitHistory{Venue: venue, UnitID: unitID}, nil
	}
	return h, nil
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testEngine(t *testing.T, store *fakeStore) *Engine {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return NewEngine(perform.NewCache(store), cfg, quietLog())
}

// goodBadHistory builds a history from a G/B symbol string against the sbj
// profile: good days run 25 qualifying over 3100 games (1/124), bad days
// 21 over 4000 (1/190). Dates run daily from August 10th.
func goodBadHistory(venue, unit, symbols string) model.UnitHistory {
	h := model.UnitHistory{Venue: venue, UnitID: unit, ModelKey: "sbj"}
	for i, ch := range symbols {
		date := fmt.Sprintf("2026-08-%02d", 10+i)
		if ch == 'G' {
			h.Days = append(h.Days, model.DailyRecord{Date: date, QualifyingCount: 25, TotalGames: 3100})
		} else {
			h.Days = append(h.Days, model.DailyRecord{Date: date, QualifyingCount: 21, TotalGames: 4000})
		}
	}
	return h
}

func sbjVenue(units ...string) *config.Venue {
	return &config.Venue{Key: "island", Name: "Island", Model: "sbj", Units: units}
}

func TestScoreVenueInsufficientData(t *testing.T) {
	store := &fakeStore{histories: map[string]model.UnitHistory{
		"island/1015": goodBadHistory("island", "1015", "GGGBGGB"),
		"island/1016": goodBadHistory("island", "1016", "GBGBGBB"),
		"island/1023": goodBadHistory("island", "1023", "BBGGGBG"),
	}}
	eng := testEngine(t, store)

	recs := eng.ScoreVenue(sbjVenue(), []string{"1015", "1016", "1023", "9999"}, "2026-08-22", nil)
	if len(recs) != 4 {
		t.Fatalf("expected 4 recommendations, got %d", len(recs))
	}

	var empty *model.Recommendation
	for i := range recs {
		if recs[i].UnitID == "9999" {
			empty = &recs[i]
		}
	}
	if empty == nil {
		t.Fatal("historyless unit missing from output")
	}
	if !empty.Insufficient {
		t.Error("historyless unit must be flagged insufficient")
	}
	if empty.Rank != 4 {
		t.Errorf("historyless unit rank = %d, want last", empty.Rank)
	}
	found := false
	for _, r := range empty.Reasons {
		if r == "insufficient data" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing insufficient-data note: %v", empty.Reasons)
	}
}

func TestAdjustmentStaysInClampBand(t *testing.T) {
	histories := map[string]model.UnitHistory{
		"island/1": goodBadHistory("island", "1", "GBBBGBBBGBBB"),
		"island/2": goodBadHistory("island", "2", "GGGGGGGGGG"),
		"island/3": goodBadHistory("island", "3", "BBBBBBBBBB"),
		"island/4": goodBadHistory("island", "4", "GBGBGBGBGB"),
		"island/5": goodBadHistory("island", "5", "GGGBBGGGBB"),
	}
	eng := testEngine(t, &fakeStore{histories: histories})

	recs := eng.ScoreVenue(sbjVenue(), []string{"1", "2", "3", "4", "5"}, "2026-08-25", nil)
	for _, r := range recs {
		if r.Breakdown.Adjustment < -adjustClamp || r.Breakdown.Adjustment > adjustClamp {
			t.Errorf("unit %s adjustment %.1f outside [%d, %d]",
				r.UnitID, r.Breakdown.Adjustment, -adjustClamp, adjustClamp)
		}
		if r.Composite < 0 || r.Composite > 100 {
			t.Errorf("unit %s composite %.1f outside [0, 100]", r.UnitID, r.Composite)
		}
	}
}

func TestSameDayBonusOnlyForScoringDate(t *testing.T) {
	store := &fakeStore{histories: map[string]model.UnitHistory{
		"island/1015": goodBadHistory("island", "1015", "GGGBG"),
		"island/1016": goodBadHistory("island", "1016", "GBGBG"),
		"island/1023": goodBadHistory("island", "1023", "BGBGB"),
	}}
	eng := testEngine(t, store)

	units := []string{"1015", "1016", "1023"}
	today := map[string]model.Observation{
		"1015": {UnitID: "1015", Date: "2026-08-22", QualifyingCount: 10, TotalGames: 1050},
		"1016": {UnitID: "1016", Date: "2026-08-21", QualifyingCount: 10, TotalGames: 1050}, // stale
	}
	recs := eng.ScoreVenue(sbjVenue(), units, "2026-08-22", today)

	byUnit := map[string]model.Recommendation{}
	for _, r := range recs {
		byUnit[r.UnitID] = r
	}
	// 1050/10 = 1/105, well under 0.85 * 130: the exceptional band.
	if got := byUnit["1015"].Breakdown.SameDay; got != 20 {
		t.Errorf("confirmed same-day bonus = %v, want 20", got)
	}
	if got := byUnit["1016"].Breakdown.SameDay; got != 0 {
		t.Errorf("stale observation must carry no same-day bonus, got %v", got)
	}
}

func TestTopTierQuota(t *testing.T) {
	// The documented scenario: 10 units at a 70% historical good rate give
	// a quota strictly between 1 and 10.
	if q := topTierQuota(0.7, 10); q <= 1 || q >= 10 {
		t.Fatalf("quota = %d, want strictly between 1 and 10", q)
	}
	if q := topTierQuota(0.0, 10); q != 1 {
		t.Errorf("all-bad cohort quota = %d, want floor of 1", q)
	}
	if q := topTierQuota(1.0, 10); q != 6 {
		t.Errorf("all-good cohort quota = %d, want cap of 6", q)
	}
	if q := topTierQuota(0.5, 2); q != 1 {
		t.Errorf("tiny cohort quota = %d, want 1", q)
	}
}

func TestCohortQuotaEnforced(t *testing.T) {
	// Ten strong units, all on a configured base of 80: without the quota
	// every one would land in the top tiers.
	histories := map[string]model.UnitHistory{}
	units := make([]string, 0, 10)
	baseScores := map[string]config.BaseEntry{}
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("u%02d", i)
		units = append(units, id)
		// 7 of 10 days good across the cohort.
		histories["island/"+id] = goodBadHistory("island", id, "GGGBGGBGGB")
		baseScores[id] = config.BaseEntry{Score: 80}
	}
	eng := testEngine(t, &fakeStore{histories: histories})

	venue := sbjVenue(units...)
	venue.BaseScores = baseScores
	recs := eng.ScoreVenue(venue, units, "2026-08-25", nil)

	top := 0
	for _, r := range recs {
		if r.FinalTier.Top() {
			top++
		}
	}
	quota := topTierQuota(0.7, 10)
	if top > quota {
		t.Fatalf("%d top-tier ranks exceed the quota of %d", top, quota)
	}
	if top < 1 {
		t.Fatal("quota enforcement demoted every unit")
	}
}

func TestCohortPassSkippedBelowThreeUnits(t *testing.T) {
	store := &fakeStore{histories: map[string]model.UnitHistory{
		"island/1015": goodBadHistory("island", "1015", "GGGGG"),
		"island/1016": goodBadHistory("island", "1016", "BBBBB"),
	}}
	eng := testEngine(t, store)

	recs := eng.ScoreVenue(sbjVenue(), []string{"1015", "1016"}, "2026-08-22", nil)
	for _, r := range recs {
		if r.FinalTier != r.BaseTier {
			t.Errorf("unit %s tier adjusted (%s -> %s) in a 2-unit cohort",
				r.UnitID, r.BaseTier, r.FinalTier)
		}
		for _, c := range r.Breakdown.Contributions {
			if c.Kind == model.ContribCohort {
				t.Errorf("unit %s carries a cohort contribution in a skipped pass", r.UnitID)
			}
		}
	}
}

func TestTiesKeepStableOrder(t *testing.T) {
	// Identical histories score identically; ranking must preserve the
	// input order for equal composites.
	same := "GGBGGBG"
	store := &fakeStore{histories: map[string]model.UnitHistory{
		"island/a": goodBadHistory("island", "a", same),
		"island/b": goodBadHistory("island", "b", same),
		"island/c": goodBadHistory("island", "c", same),
	}}
	eng := testEngine(t, store)

	recs := eng.ScoreVenue(sbjVenue(), []string{"a", "b", "c"}, "2026-08-22", nil)
	if recs[0].UnitID != "a" || recs[1].UnitID != "b" || recs[2].UnitID != "c" {
		t.Errorf("tie order broken: %s, %s, %s", recs[0].UnitID, recs[1].UnitID, recs[2].UnitID)
	}
	if recs[0].Composite != recs[1].Composite || recs[1].Composite != recs[2].Composite {
		t.Errorf("identical histories scored differently: %v %v %v",
			recs[0].Composite, recs[1].Composite, recs[2].Composite)
	}
}

func TestStaticBaseScorePreferred(t *testing.T) {
	store := &fakeStore{histories: map[string]model.UnitHistory{
		"island/1023": goodBadHistory("island", "1023", "GGBGG"),
		"island/1024": goodBadHistory("island", "1024", "GGBGG"),
		"island/1025": goodBadHistory("island", "1025", "GGBGG"),
	}}
	eng := testEngine(t, store)

	venue := sbjVenue("1023", "1024", "1025")
	venue.BaseScores = map[string]config.BaseEntry{
		"1023": {Score: 80.5, Note: "house favorite"},
	}
	recs := eng.ScoreVenue(venue, []string{"1023", "1024", "1025"}, "2026-08-22", nil)
	for _, r := range recs {
		if r.UnitID == "1023" {
			if r.BaseScore != 80.5 {
				t.Errorf("configured base ignored: %v", r.BaseScore)
			}
		} else if r.BaseScore == 80.5 {
			t.Errorf("unit %s picked up another unit's base score", r.UnitID)
		}
	}
}
