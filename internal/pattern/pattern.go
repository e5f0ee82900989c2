// Package pattern finds cyclical structure in a unit's good/bad sequence:
// recovery and continuation rates conditioned on streak length, an
// alternation score, and a literal short-motif rotation check. Deliberately
// simple symbol matching, not a time-series model; every signal must stay
// explainable on a report.
package pattern

import (
	"strings"

	"github.com/hmori/go-hall-metrics/internal/perform"
)

const (
	// streakCap bounds the conditioned streak length; beyond this the
	// buckets are too thin to mean anything.
	streakCap = 7

	// minBucketSamples gates each streak bucket: fewer samples and the
	// bucket is omitted rather than reported as a misleading 0% or 100%.
	minBucketSamples = 2

	// minClassifiedDays is the floor for any cycle analysis at all.
	minClassifiedDays = 3

	// rotationWindow is how many trailing classified days the motif check
	// inspects.
	rotationWindow = 7
)

// Bucket is the empirical outcome of one streak length.
type Bucket struct {
	Samples int
	Hits    int
	Rate    float64
}

// CycleStats is the detected cyclical structure of one unit.
type CycleStats struct {
	ClassifiedDays int
	GoodDays       int

	// BadToGood[n]: of runs of exactly n consecutive bad days bracketed by
	// good days, how often the run resolved to a good day (always, by
	// construction of the bracket: samples count completed runs whose
	// following day was observed; hits count good followers).
	BadToGood map[int]Bucket

	// GoodToGood[n]: after n consecutive good days, how often the next
	// observed day stayed good.
	GoodToGood map[int]Bucket

	// Alternation is the fraction of day-to-day transitions that flip
	// classification. Near 1 means the unit see-saws daily.
	Alternation float64
	Transitions int

	// AvgCycle is the mean distance in classified days between good days.
	AvgCycle float64
}

// DetectCycle computes streak-conditioned transition rates over a
// classified sequence. Below three classified days it reports only the
// counts; every bucket needs two samples to appear.
func DetectCycle(classes []perform.DayClass) CycleStats {
	st := CycleStats{
		ClassifiedDays: len(classes),
		BadToGood:      map[int]Bucket{},
		GoodToGood:     map[int]Bucket{},
	}
	for _, c := range classes {
		if c.Good {
			st.GoodDays++
		}
	}
	if len(classes) < minClassifiedDays {
		return st
	}

	type acc struct{ samples, hits int }
	badAcc := map[int]*acc{}
	goodAcc := map[int]*acc{}
	bump := func(m map[int]*acc, n int, hit bool) {
		if n < 1 || n > streakCap {
			return
		}
		a := m[n]
		if a == nil {
			a = &acc{}
			m[n] = a
		}
		a.samples++
		if hit {
			a.hits++
		}
	}

	// Walk runs of equal classification; each completed run conditions the
	// next day's outcome.
	i := 0
	for i < len(classes) {
		j := i
		for j < len(classes) && classes[j].Good == classes[i].Good {
			j++
		}
		runLen := j - i
		if j < len(classes) { // the run has an observed follower
			follower := classes[j].Good
			if classes[i].Good {
				bump(goodAcc, runLen, follower)
			} else {
				bump(badAcc, runLen, follower)
			}
		}
		i = j
	}

	for n, a := range badAcc {
		if a.samples < minBucketSamples {
			continue
		}
		st.BadToGood[n] = Bucket{Samples: a.samples, Hits: a.hits, Rate: float64(a.hits) / float64(a.samples)}
	}
	for n, a := range goodAcc {
		if a.samples < minBucketSamples {
			continue
		}
		st.GoodToGood[n] = Bucket{Samples: a.samples, Hits: a.hits, Rate: float64(a.hits) / float64(a.samples)}
	}

	flips := 0
	for k := 1; k < len(classes); k++ {
		st.Transitions++
		if classes[k].Good != classes[k-1].Good {
			flips++
		}
	}
	if st.Transitions > 0 {
		st.Alternation = float64(flips) / float64(st.Transitions)
	}

	// Mean gap between good days, in classified-day steps.
	last := -1
	gaps := 0
	sum := 0
	for k, c := range classes {
		if !c.Good {
			continue
		}
		if last >= 0 {
			sum += k - last
			gaps++
		}
		last = k
	}
	if gaps > 0 {
		st.AvgCycle = float64(sum) / float64(gaps)
	}
	return st
}

// Rotation is the outcome of the short-motif check.
type Rotation struct {
	Found      bool
	Motif      string // e.g. "BBG": two bad days then a good day
	ExpectGood bool   // whether the motif predicts a good next day
}

// DetectRotation scans the trailing window of the classified sequence for
// a repeating short motif and projects the next symbol. Only motifs of
// length 2 and 3 are considered; anything longer is indistinguishable from
// noise at this window size.
func DetectRotation(classes []perform.DayClass) Rotation {
	n := len(classes)
	if n < 4 {
		return Rotation{}
	}
	start := n - rotationWindow
	if start < 0 {
		start = 0
	}
	var b strings.Builder
	for _, c := range classes[start:] {
		if c.Good {
			b.WriteByte('G')
		} else {
			b.WriteByte('B')
		}
	}
	seq := b.String()

	for _, width := range []int{2, 3} {
		if len(seq) < 2*width {
			continue
		}
		motif := seq[len(seq)-width:]
		if motif == strings.Repeat(string(motif[0]), width) {
			continue // a flat run is a streak, not a rotation
		}
		// The window must be the motif repeating, allowing a leading
		// partial occurrence.
		if !repeats(seq, motif) {
			continue
		}
		// The window ends on a complete motif, so the rotation restarts.
		return Rotation{Found: true, Motif: motif, ExpectGood: motif[0] == 'G'}
	}
	return Rotation{}
}

// repeats reports whether seq is a suffix of the infinite repetition of
// motif, i.e. the window is phase-aligned to end on a full motif.
func repeats(seq, motif string) bool {
	w := len(motif)
	for i := 0; i < len(seq); i++ {
		// Position counted from the end; the last w chars are the motif.
		fromEnd := len(seq) - 1 - i
		if seq[i] != motif[(w-1-fromEnd%w)%w] {
			return false
		}
	}
	return true
}
