package scoring

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/hmori/go-hall-metrics/internal/model"
)

// applyCohortPass nudges tiers by cohort position once every unit is
// scored: top-band units clearing the bar rise a tier, bottom-band units
// drop one, and the number of top-tier (S/A) slots is capped by a quota
// from the cohort's observed good-day rate. Fewer than three scored units
// and the pass is skipped entirely.
func applyCohortPass(recs []model.Recommendation, states []unitState, log *logrus.Logger) {
	scored := 0
	for i := range recs {
		if !recs[i].Insufficient {
			scored++
		}
	}
	if scored < 3 {
		log.WithField("scored", scored).Debug("cohort pass skipped, too few scored units")
		return
	}

	n := len(recs)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return recs[idx[a]].Composite > recs[idx[b]].Composite })

	band := n / 5
	if band < 1 {
		band = 1
	}

	for _, i := range idx[:band] {
		r := &recs[i]
		if r.Insufficient || r.Composite < promoteBar {
			continue
		}
		if next := r.FinalTier.Promote(); next != r.FinalTier {
			r.FinalTier = next
			r.Breakdown.Add(model.ContribCohort, 0, "top of cohort, promoted one tier")
			r.Reasons = append(r.Reasons, "top of cohort, promoted one tier")
		}
	}
	for _, i := range idx[n-band:] {
		r := &recs[i]
		if next := r.FinalTier.Demote(); next != r.FinalTier {
			r.FinalTier = next
			r.Breakdown.Add(model.ContribCohort, 0, "bottom of cohort, demoted one tier")
			r.Reasons = append(r.Reasons, "bottom of cohort, demoted one tier")
		}
	}

	quota := topTierQuota(cohortGoodRate(states), n)
	for {
		var top []int
		for i := range recs {
			if recs[i].FinalTier.Top() {
				top = append(top, i)
			}
		}
		if len(top) <= quota {
			break
		}
		// Weakest first: the lowest-composite top-tier unit drops a tier.
		sort.SliceStable(top, func(a, b int) bool { return recs[top[a]].Composite < recs[top[b]].Composite })
		r := &recs[top[0]]
		r.FinalTier = r.FinalTier.Demote()
		if !r.FinalTier.Top() {
			r.Breakdown.Add(model.ContribCohort, 0, "top-tier quota reached, demoted")
			r.Reasons = append(r.Reasons, "top-tier quota reached, demoted")
		}
	}

	log.WithFields(logrus.Fields{"scored": scored, "quota": quota}).Debug("cohort pass applied")
}

// cohortGoodRate pools every unit's classified days. Units with no history
// contribute nothing.
func cohortGoodRate(states []unitState) float64 {
	good, classified := 0, 0
	for i := range states {
		if states[i].err != nil {
			continue
		}
		good += states[i].summary.GoodDays
		classified += states[i].summary.ClassifiedDays
	}
	if classified == 0 {
		return 0
	}
	return float64(good) / float64(classified)
}

// topTierQuota scales the S/A slot count with the cohort's observed
// good-day rate, capped at three fifths of the cohort and never below one.
func topTierQuota(goodRate float64, n int) int {
	q := int(math.Round(goodRate * float64(n)))
	limit := n * 3 / 5
	if limit < 1 {
		limit = 1
	}
	if q > limit {
		q = limit
	}
	if q < 1 {
		q = 1
	}
	return q
}
