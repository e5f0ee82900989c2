// Package perform derives rolling per-unit statistics from accumulated
// history: day classification, good-day ratio, streaks, continuation rate
// and weekday bias.
package perform

import (
	"time"

	"github.com/hmori/go-hall-metrics/internal/config"
	"github.com/hmori/go-hall-metrics/internal/interval"
	"github.com/hmori/go-hall-metrics/internal/model"
)

// recentWindow bounds the trailing-probability average used by the dynamic
// base score.
const recentWindow = 7

// minWeekdaySamples gates the per-weekday breakdown; fewer observations
// than this and the weekday is omitted rather than overfit.
const minWeekdaySamples = 3

// DayClass is one classified day of a unit's history.
type DayClass struct {
	Date string
	Good bool
	Prob float64
}

// Classify labels each day with nonzero games and qualifying count.
// A day is good only when its probability clears the model threshold AND
// the quality gate holds: enough qualifying events, not too many deep runs,
// and a best single-run payout that is not suspiciously thin. Days without
// both counters are skipped entirely.
func Classify(h model.UnitHistory, prof config.ModelProfile) []DayClass {
	var out []DayClass
	for i := range h.Days {
		d := &h.Days[i]
		if d.QualifyingCount == 0 || d.TotalGames == 0 {
			continue
		}
		out = append(out, DayClass{
			Date: d.Date,
			Good: goodDay(d, prof),
			Prob: d.Probability(),
		})
	}
	return out
}

func goodDay(d *model.DailyRecord, prof config.ModelProfile) bool {
	if prof.GoodProb > 0 && d.Probability() > prof.GoodProb {
		return false
	}
	if d.QualifyingCount < prof.MinQualifying {
		return false
	}
	// Quality gate: a good-looking rate with an ugly payout shape is not a
	// good day.
	if d.HasEvents() && prof.MaxDeepRuns > 0 {
		if interval.DeepRuns(d.Events, prof.DeepRunGames) > prof.MaxDeepRuns {
			return false
		}
	}
	if d.MaxRunPayout > 0 && prof.MinRunPayout > 0 && d.MaxRunPayout < prof.MinRunPayout {
		return false
	}
	return true
}

// WeekdayStat is the good-day breakdown for one weekday.
type WeekdayStat struct {
	Samples int
	Good    int
	Ratio   float64
}

// Summary holds the rolling statistics for one unit.
type Summary struct {
	Days           int // stored days
	ClassifiedDays int
	GoodDays       int
	GoodRatio      float64

	CurrentBadStreak int // consecutive bad days trailing the latest observation
	BestGoodStreak   int

	ContinuationRate    float64 // of good days, fraction whose next calendar day was also good
	ContinuationSamples int

	Weekday map[time.Weekday]WeekdayStat // only weekdays with >= 3 samples

	RecentAvgProb float64 // mean probability of the trailing classified days
}

// Summarize computes the full rolling summary for one unit's history.
func Summarize(h model.UnitHistory, prof config.ModelProfile) Summary {
	classes := Classify(h, prof)
	s := Summary{Days: len(h.Days), ClassifiedDays: len(classes)}
	if len(classes) == 0 {
		return s
	}

	byDate := make(map[string]bool, len(classes))
	for _, c := range classes {
		byDate[c.Date] = c.Good
		if c.Good {
			s.GoodDays++
		}
	}
	s.GoodRatio = float64(s.GoodDays) / float64(len(classes))

	// Streaks over the classified sequence.
	run := 0
	for _, c := range classes {
		if c.Good {
			run++
			if run > s.BestGoodStreak {
				s.BestGoodStreak = run
			}
		} else {
			run = 0
		}
	}
	for i := len(classes) - 1; i >= 0 && !classes[i].Good; i-- {
		s.CurrentBadStreak++
	}

	// Continuation by calendar adjacency: array neighbors lie when the
	// venue skipped a day.
	for _, c := range classes {
		if !c.Good {
			continue
		}
		next, ok := nextDate(c.Date)
		if !ok {
			continue
		}
		good, observed := byDate[next]
		if !observed {
			continue
		}
		s.ContinuationSamples++
		if good {
			s.ContinuationRate++
		}
	}
	if s.ContinuationSamples > 0 {
		s.ContinuationRate /= float64(s.ContinuationSamples)
	}

	// Per-weekday breakdown, sparse weekdays omitted.
	type wacc struct{ samples, good int }
	wk := make(map[time.Weekday]*wacc)
	for i := range h.Days {
		d := &h.Days[i]
		if d.QualifyingCount == 0 || d.TotalGames == 0 {
			continue
		}
		day, ok := d.Weekday()
		if !ok {
			continue
		}
		a := wk[day]
		if a == nil {
			a = &wacc{}
			wk[day] = a
		}
		a.samples++
		if byDate[d.Date] {
			a.good++
		}
	}
	s.Weekday = make(map[time.Weekday]WeekdayStat)
	for day, a := range wk {
		if a.samples < minWeekdaySamples {
			continue
		}
		s.Weekday[day] = WeekdayStat{
			Samples: a.samples,
			Good:    a.good,
			Ratio:   float64(a.good) / float64(a.samples),
		}
	}

	// Trailing average probability for the dynamic base score.
	start := len(classes) - recentWindow
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, c := range classes[start:] {
		sum += c.Prob
	}
	s.RecentAvgProb = sum / float64(len(classes)-start)

	return s
}

// RatioPoints maps the good-day ratio onto a bounded score contribution.
// Monotonic step function; silent below three classified days.
func (s Summary) RatioPoints() float64 {
	if s.ClassifiedDays < 3 {
		return 0
	}
	switch {
	case s.GoodRatio >= 0.8:
		return 10
	case s.GoodRatio >= 0.6:
		return 6
	case s.GoodRatio >= 0.45:
		return 3
	case s.GoodRatio >= 0.3:
		return 0
	default:
		return -8
	}
}

func nextDate(date string) (string, bool) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", false
	}
	return t.AddDate(0, 0, 1).Format("2006-01-02"), true
}
