package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/hmori/go-hall-metrics/internal/model"
	"github.com/hmori/go-hall-metrics/internal/pattern"
	"github.com/hmori/go-hall-metrics/internal/perform"
	"github.com/hmori/go-hall-metrics/internal/storage"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintRecommendationTable renders a cohort's scored ranking. If focusUnit
// is non-empty, that unit's row is marked with ">".
// Columns: RANK | UNIT | TIER | SCORE | BASE | ADJ | TODAY | WHY
func PrintRecommendationTable(w io.Writer, recs []model.Recommendation, focusUnit string) {
	table := newTable(w)
	table.Header(" ", "RANK", "UNIT", "TIER", "SCORE", "BASE", "ADJ", "TODAY", "WHY")

	for _, r := range recs {
		marker := " "
		if focusUnit != "" && r.UnitID == focusUnit {
			marker = ">"
		}
		why := "—"
		if len(r.Reasons) > 0 {
			why = r.Reasons[0]
		}
		today := "—"
		if r.Breakdown.SameDay != 0 {
			today = fmt.Sprintf("%+.0f", r.Breakdown.SameDay)
		}
		table.Append(
			marker,
			strconv.Itoa(r.Rank),
			r.UnitID,
			string(r.FinalTier),
			fmt.Sprintf("%.1f", r.Composite),
			fmt.Sprintf("%.1f", r.BaseScore),
			fmt.Sprintf("%+.1f", r.Breakdown.Adjustment),
			today,
			why,
		)
	}
	table.Render()
}

// PrintReasons writes every justification line of one recommendation.
func PrintReasons(w io.Writer, r model.Recommendation) {
	fmt.Fprintf(w, "\nUnit %s — %.1f (%s)\n", r.UnitID, r.Composite, r.FinalTier)
	for _, reason := range r.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
}

// PrintHistoryTable renders one unit's stored days, newest last.
// Columns: DATE | DAY | QUAL | GAMES | PROB | DIFF | RUN | RUN_PAY | EVENTS
func PrintHistoryTable(w io.Writer, h model.UnitHistory) {
	fmt.Fprintf(w, "\nUnit: %s/%s  |  Model: %s  |  Days: %d\n\n",
		h.Venue, h.UnitID, h.ModelKey, len(h.Days))

	table := newTable(w)
	table.Header("DATE", "DAY", "QUAL", "GAMES", "PROB", "DIFF", "RUN", "RUN_PAY", "EVENTS")

	for i := range h.Days {
		d := &h.Days[i]
		prob := "—"
		if d.QualifyingCount > 0 {
			prob = fmt.Sprintf("1/%.0f", d.Probability())
		}
		wd := "?"
		if day, ok := d.Weekday(); ok {
			wd = day.String()[:3]
		}
		events := "—"
		if d.HasEvents() {
			events = strconv.Itoa(len(d.Events))
		}
		table.Append(
			d.Date, wd,
			strconv.Itoa(d.QualifyingCount),
			strconv.Itoa(d.TotalGames),
			prob,
			strconv.Itoa(d.NetDiff),
			strconv.Itoa(d.MaxRunLength),
			strconv.Itoa(d.MaxRunPayout),
			events,
		)
	}
	table.Render()
}

// PrintSummary renders one unit's rolling statistics.
func PrintSummary(w io.Writer, unitID string, s perform.Summary) {
	fmt.Fprintf(w, "\nUnit %s: %d days stored, %d classified\n", unitID, s.Days, s.ClassifiedDays)
	fmt.Fprintf(w, "  good ratio:    %.0f%% (%d/%d)\n", s.GoodRatio*100, s.GoodDays, s.ClassifiedDays)
	fmt.Fprintf(w, "  streaks:       %d bad running, best good run %d\n", s.CurrentBadStreak, s.BestGoodStreak)
	if s.ContinuationSamples > 0 {
		fmt.Fprintf(w, "  continuation:  %.0f%% over %d samples\n", s.ContinuationRate*100, s.ContinuationSamples)
	}
	if len(s.Weekday) > 0 {
		days := make([]time.Weekday, 0, len(s.Weekday))
		for d := range s.Weekday {
			days = append(days, d)
		}
		sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
		for _, d := range days {
			wd := s.Weekday[d]
			fmt.Fprintf(w, "  %-14s %.0f%% (%d/%d)\n", d.String()+":", wd.Ratio*100, wd.Good, wd.Samples)
		}
	}
}

// PrintCycleTable renders the pattern detector's output for one unit.
func PrintCycleTable(w io.Writer, unitID string, st pattern.CycleStats, rot pattern.Rotation) {
	fmt.Fprintf(w, "\nUnit %s: %d classified days, %d good\n", unitID, st.ClassifiedDays, st.GoodDays)
	if st.Transitions > 0 {
		fmt.Fprintf(w, "  alternation: %.0f%% of transitions flip\n", st.Alternation*100)
	}
	if st.AvgCycle > 0 {
		fmt.Fprintf(w, "  avg cycle:   good day every %.1f days\n", st.AvgCycle)
	}
	if rot.Found {
		next := "bad"
		if rot.ExpectGood {
			next = "good"
		}
		fmt.Fprintf(w, "  rotation:    %s repeating, next expected %s\n", rot.Motif, next)
	}

	if len(st.BadToGood) == 0 && len(st.GoodToGood) == 0 {
		fmt.Fprintln(w, "  no streak buckets with enough samples")
		return
	}

	table := newTable(w)
	table.Header("STREAK", "BAD→GOOD", "SAMPLES", "GOOD→GOOD", "SAMPLES")
	for n := 1; n <= 7; n++ {
		bg, hasBG := st.BadToGood[n]
		gg, hasGG := st.GoodToGood[n]
		if !hasBG && !hasGG {
			continue
		}
		bgRate, bgSamples := "—", "—"
		if hasBG {
			bgRate = fmt.Sprintf("%.0f%%", bg.Rate*100)
			bgSamples = strconv.Itoa(bg.Samples)
		}
		ggRate, ggSamples := "—", "—"
		if hasGG {
			ggRate = fmt.Sprintf("%.0f%%", gg.Rate*100)
			ggSamples = strconv.Itoa(gg.Samples)
		}
		table.Append(strconv.Itoa(n), bgRate, bgSamples, ggRate, ggSamples)
	}
	table.Render()
}

// PrintUnitsTable lists every stored unit.
// Columns: VENUE | UNIT | MODEL | DAYS | FIRST | LAST | UPDATED
func PrintUnitsTable(w io.Writer, units []model.UnitSummary) {
	table := newTable(w)
	table.Header("VENUE", "UNIT", "MODEL", "DAYS", "FIRST", "LAST", "UPDATED")
	for _, u := range units {
		updated := "—"
		if !u.LastModified.IsZero() {
			updated = u.LastModified.Format("2006-01-02 15:04")
		}
		table.Append(u.Venue, u.UnitID, u.ModelKey, strconv.Itoa(u.Days), u.FirstDate, u.LastDate, updated)
	}
	table.Render()
}

// PrintOverview renders the store-wide summary.
func PrintOverview(w io.Writer, o storage.Overview) {
	fmt.Fprintf(w, "\nUnits: %d  |  Days: %d  |  Range: %s .. %s\n\n",
		o.Units, o.Days, o.FirstDate, o.LastDate)
	if len(o.Venues) == 0 {
		return
	}
	table := newTable(w)
	table.Header("VENUE", "UNITS", "DAYS")
	for _, v := range o.Venues {
		table.Append(v.Venue, strconv.Itoa(v.Units), strconv.Itoa(v.Days))
	}
	table.Render()
}
