// Package scoring combines base scores, trend and performance bonuses,
// pattern signals and same-day observations into a bounded composite score
// per unit, then ranks a venue's units with a cohort-relative pass.
package scoring

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hmori/go-hall-metrics/internal/config"
	"github.com/hmori/go-hall-metrics/internal/model"
	"github.com/hmori/go-hall-metrics/internal/pattern"
	"github.com/hmori/go-hall-metrics/internal/perform"
)

const (
	// adjustClamp bounds the summed non-base adjustments. The same-day
	// bonus sits outside the band: a live confirmed reading outranks
	// history.
	adjustClamp = 20

	// insufficientBase is the floor score for units with no usable history.
	insufficientBase = 30

	// promoteBar is the minimum composite for a top-percentile promotion.
	promoteBar = 70
)

// Engine scores a venue's units against the current store contents.
// Stateless between runs.
type Engine struct {
	cache *perform.Cache
	cfg   *config.Config
	log   *logrus.Logger
}

func NewEngine(cache *perform.Cache, cfg *config.Config, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{cache: cache, cfg: cfg, log: log}
}

// unitState is everything a unit contributes to the run before scoring.
type unitState struct {
	id      string
	history model.UnitHistory
	summary perform.Summary
	classes []perform.DayClass
	cycle   pattern.CycleStats
	rot     pattern.Rotation
	err     error
}

// ScoreVenue scores every unit of one cohort for a target date. sameDay
// carries observations confirmed to be from that date, keyed by unit ID.
// A unit that cannot be loaded or scored is ranked lowest with a note; it
// never fails the run.
func (e *Engine) ScoreVenue(venue *config.Venue, unitIDs []string, date string, sameDay map[string]model.Observation) []model.Recommendation {
	prof := e.cfg.Profile(venue.Model)

	e.log.WithFields(logrus.Fields{
		"venue": venue.Key,
		"units": len(unitIDs),
		"date":  date,
	}).Info("scoring cohort")

	// Per-unit aggregation is independent and side-effect-free; run it in
	// parallel and meet at the cohort barrier below.
	states := make([]unitState, len(unitIDs))
	var wg sync.WaitGroup
	for i, id := range unitIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			st := unitState{id: id}
			st.history, st.err = e.cache.History(venue.Key, id)
			if st.err == nil {
				st.summary = perform.Summarize(st.history, prof)
				st.classes = perform.Classify(st.history, prof)
				st.cycle = pattern.DetectCycle(st.classes)
				st.rot = pattern.DetectRotation(st.classes)
			}
			states[i] = st
		}(i, id)
	}
	wg.Wait()

	cohortProbs := cohortProbabilities(states)

	recs := make([]model.Recommendation, 0, len(states))
	for i := range states {
		recs = append(recs, e.scoreUnit(venue, prof, &states[i], date, sameDay, cohortProbs))
	}

	applyCohortPass(recs, states, e.log)

	// Final order: composite descending, stable so equal scores keep their
	// pre-pass ordering.
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Composite > recs[j].Composite })
	for i := range recs {
		recs[i].Rank = i + 1
	}
	return recs
}

func cohortProbabilities(states []unitState) []float64 {
	var out []float64
	for i := range states {
		if states[i].err == nil && states[i].summary.ClassifiedDays > 0 {
			out = append(out, states[i].summary.RecentAvgProb)
		}
	}
	return out
}

func (e *Engine) scoreUnit(venue *config.Venue, prof config.ModelProfile, st *unitState, date string, sameDay map[string]model.Observation, cohortProbs []float64) model.Recommendation {
	rec := model.Recommendation{
		Venue:  venue.Key,
		UnitID: st.id,
		Date:   date,
	}
	bd := &rec.Breakdown
	bd.Venue, bd.UnitID, bd.Date = venue.Key, st.id, date

	if st.err != nil || st.summary.ClassifiedDays == 0 {
		if st.err != nil {
			e.log.WithFields(logrus.Fields{"unit": st.id, "venue": venue.Key}).
				WithError(st.err).Warn("unit skipped, scoring at floor")
		}
		rec.Insufficient = true
		bd.Base = insufficientBase
		bd.Add(model.ContribBase, insufficientBase, "insufficient data")
		bd.Composite = insufficientBase
		rec.BaseScore = insufficientBase
		rec.Composite = bd.Composite
		rec.BaseTier = model.TierForScore(bd.Composite)
		rec.FinalTier = rec.BaseTier
		rec.Reasons = reasonsOf(bd)
		return rec
	}

	// 1. Base score: static table first, cohort percentile fallback.
	if entry, ok := venue.BaseScore(st.id); ok {
		bd.Base = entry.Score
		note := entry.Note
		if note == "" {
			note = "configured base score"
		}
		bd.Add(model.ContribBase, entry.Score, note)
	} else {
		base := dynamicBase(st.summary.RecentAvgProb, cohortProbs)
		bd.Base = base
		bd.Add(model.ContribBase, base, fmt.Sprintf("recent avg 1/%.0f vs cohort", st.summary.RecentAvgProb))
	}

	// 2. Bounded adjustments.
	adj := trendBonus(bd, st)
	adj += performanceBonus(bd, st, date)
	adj += patternBonus(bd, st)
	adj += activityBonus(bd, st, prof)
	adj += payoutBalancePenalty(bd, st, prof)
	adj = clamp(adj, -adjustClamp, adjustClamp)
	bd.Adjustment = adj

	// 3. Same-day bonus, outside the clamp, only for the scoring date.
	if obs, ok := sameDay[st.id]; ok && obs.Date == date {
		bd.SameDay = sameDayBonus(bd, obs, prof)
	}

	bd.Composite = clamp(bd.Base+bd.Adjustment+bd.SameDay, 0, 100)
	rec.BaseScore = bd.Base
	rec.Composite = bd.Composite
	rec.BaseTier = model.TierForScore(bd.Composite)
	rec.FinalTier = rec.BaseTier
	rec.Reasons = reasonsOf(bd)
	return rec
}

// dynamicBase maps a unit's trailing probability onto [40, 75] by cohort
// percentile. Lower probability is better, so the percentile counts cohort
// members the unit beats.
func dynamicBase(prob float64, cohort []float64) float64 {
	if len(cohort) < 2 {
		return 50
	}
	beaten := 0
	for _, p := range cohort {
		if prob < p {
			beaten++
		}
	}
	pct := float64(beaten) / float64(len(cohort)-1)
	if pct > 1 {
		pct = 1
	}
	return 40 + 35*pct
}

func trendBonus(bd *model.ScoreBreakdown, st *unitState) float64 {
	pts := 0.0
	switch {
	case st.summary.CurrentBadStreak >= 3:
		pts += 10
		bd.Add(model.ContribTrend, 10, fmt.Sprintf("due after %d bad days", st.summary.CurrentBadStreak))
	case st.summary.CurrentBadStreak == 2:
		pts += 5
		bd.Add(model.ContribTrend, 5, "two bad days running")
	}
	if g := trailingGood(st.classes); g >= 2 && st.summary.ContinuationSamples >= 2 {
		if st.summary.ContinuationRate >= 0.6 {
			pts += 4
			bd.Add(model.ContribTrend, 4, fmt.Sprintf("good runs tend to continue (%.0f%%)", st.summary.ContinuationRate*100))
		} else if st.summary.ContinuationRate <= 0.25 {
			pts -= 4
			bd.Add(model.ContribTrend, -4, "good days rarely repeat here")
		}
	}
	return pts
}

func performanceBonus(bd *model.ScoreBreakdown, st *unitState, date string) float64 {
	pts := st.summary.RatioPoints()
	if pts != 0 {
		bd.Add(model.ContribPerformance, pts, fmt.Sprintf("good-day ratio %.0f%% over %d days", st.summary.GoodRatio*100, st.summary.ClassifiedDays))
	}
	if t, err := time.Parse("2006-01-02", date); err == nil {
		if wd, ok := st.summary.Weekday[t.Weekday()]; ok {
			if wd.Ratio >= 0.6 {
				pts += 4
				bd.Add(model.ContribPerformance, 4, fmt.Sprintf("strong on %ss (%d/%d)", t.Weekday(), wd.Good, wd.Samples))
			} else if wd.Ratio <= 0.2 {
				pts -= 3
				bd.Add(model.ContribPerformance, -3, fmt.Sprintf("weak on %ss (%d/%d)", t.Weekday(), wd.Good, wd.Samples))
			}
		}
	}
	return pts
}

func patternBonus(bd *model.ScoreBreakdown, st *unitState) float64 {
	pts := 0.0
	if n := st.summary.CurrentBadStreak; n > 0 {
		if b, ok := st.cycle.BadToGood[n]; ok && b.Rate >= 0.6 {
			p := 4 + 4*b.Rate // 6.4..8 over the qualifying range
			pts += p
			bd.Add(model.ContribPattern, p, fmt.Sprintf("%d-bad runs recover %.0f%% of the time", n, b.Rate*100))
		}
	}
	if g := trailingGood(st.classes); g > 0 {
		if b, ok := st.cycle.GoodToGood[g]; ok && b.Rate <= 0.3 {
			pts -= 4
			bd.Add(model.ContribPattern, -4, fmt.Sprintf("%d-good runs rarely extend (%.0f%%)", g, b.Rate*100))
		}
	}
	if st.cycle.Alternation >= 0.7 && st.cycle.Transitions >= 4 && lastIsBad(st.classes) {
		pts += 4
		bd.Add(model.ContribPattern, 4, fmt.Sprintf("alternating pattern (%.0f%% flips), yesterday bad", st.cycle.Alternation*100))
	}
	if st.rot.Found {
		if st.rot.ExpectGood {
			pts += 3
			bd.Add(model.ContribPattern, 3, fmt.Sprintf("rotation %s points to a good day", st.rot.Motif))
		} else {
			pts -= 3
			bd.Add(model.ContribPattern, -3, fmt.Sprintf("rotation %s points to a bad day", st.rot.Motif))
		}
	}
	return pts
}

// activityBonus reads how the unit's latest observed day was actually
// played: abandoned in bursts, or held to close.
func activityBonus(bd *model.ScoreBreakdown, st *unitState, prof config.ModelProfile) float64 {
	latest := st.history.Latest()
	if latest == nil || !latest.HasEvents() {
		return 0
	}
	if gaps := longGaps(latest.Events); gaps >= 3 {
		bd.Add(model.ContribActivity, -3, fmt.Sprintf("abandoned %d times through the day", gaps))
		return -3
	}
	if prof.TypicalDailyGames > 0 && latest.TotalGames >= prof.TypicalDailyGames*8/10 {
		if last := lastEventTime(latest.Events); !last.IsZero() && last.Hour() >= 21 {
			bd.Add(model.ContribActivity, 3, "played through to closing")
			return 3
		}
	}
	return 0
}

// payoutBalancePenalty flags a qualifying rate that never converted into
// payout: plenty of hits, no run worth anything.
func payoutBalancePenalty(bd *model.ScoreBreakdown, st *unitState, prof config.ModelProfile) float64 {
	latest := st.history.Latest()
	if latest == nil || prof.MinRunPayout <= 0 {
		return 0
	}
	if latest.QualifyingCount >= prof.MinQualifying && latest.MaxRunPayout > 0 && latest.MaxRunPayout < prof.MinRunPayout {
		bd.Add(model.ContribPayoutBalance, -6, fmt.Sprintf("%d hits but best run paid only %d", latest.QualifyingCount, latest.MaxRunPayout))
		return -6
	}
	return 0
}

// sameDayBonus grades a live reading from the scoring date itself.
func sameDayBonus(bd *model.ScoreBreakdown, obs model.Observation, prof config.ModelProfile) float64 {
	if obs.TotalGames == 0 {
		bd.Add(model.ContribSameDay, 5, "untouched so far today")
		return 5
	}
	if obs.QualifyingCount == 0 {
		bd.Add(model.ContribSameDay, 0, "no hits yet today")
		return 0
	}
	prob := float64(obs.TotalGames) / float64(obs.QualifyingCount)
	mid := (prof.GoodProb + prof.BadProb) / 2
	var pts float64
	var why string
	switch {
	case prob <= prof.GoodProb*0.85:
		pts, why = 20, "today's rate is exceptional"
	case prob <= prof.GoodProb:
		pts, why = 15, "today's rate clears the good threshold"
	case prob <= mid:
		pts, why = 10, "today's rate is above average"
	case prob <= prof.BadProb:
		pts, why = 0, "today's rate is middling"
	default:
		pts, why = -10, "today's rate is poor"
	}
	bd.Add(model.ContribSameDay, pts, fmt.Sprintf("%s (1/%.0f)", why, prob))
	return pts
}

func reasonsOf(bd *model.ScoreBreakdown) []string {
	var out []string
	for _, c := range bd.Contributions {
		out = append(out, c.Reason)
	}
	return out
}

func trailingGood(classes []perform.DayClass) int {
	n := 0
	for i := len(classes) - 1; i >= 0 && classes[i].Good; i-- {
		n++
	}
	return n
}

func lastIsBad(classes []perform.DayClass) bool {
	return len(classes) > 0 && !classes[len(classes)-1].Good
}

// longGaps counts pauses over 30 minutes between consecutive timed events.
func longGaps(events []model.HitEvent) int {
	gaps := 0
	var prev time.Time
	for _, e := range events {
		t, err := time.Parse("15:04", e.Time)
		if err != nil {
			continue
		}
		if !prev.IsZero() && t.Sub(prev) > 30*time.Minute {
			gaps++
		}
		prev = t
	}
	return gaps
}

func lastEventTime(events []model.HitEvent) time.Time {
	var last time.Time
	for _, e := range events {
		if t, err := time.Parse("15:04", e.Time); err == nil {
			last = t
		}
	}
	return last
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
