// Package interval reconstructs true inter-hit intervals from a day's raw
// event sequence. The counter on the floor resets only on a qualifying hit:
// a REG pays out without resetting, so its games carry into the next
// qualifying interval. Forgetting that rule understates how deep a unit
// actually ran.
package interval

import "github.com/hmori/go-hall-metrics/internal/model"

// Reconstruct converts a chronological event sequence into the list of
// games consumed to reach each qualifying event. Non-qualifying events
// accumulate into the following interval. Malformed game counts contribute
// zero; the result is always best-effort, never an error.
func Reconstruct(events []model.HitEvent) []int {
	var out []int
	acc := 0
	for _, e := range events {
		acc += gamesOf(e)
		if e.Type.Qualifying() {
			out = append(out, acc)
			acc = 0
		}
	}
	return out
}

// CurrentRun returns the open interval: games accumulated since the last
// qualifying event, plus a trailing partial observed after the final
// recorded event. With no events it is the trailing partial alone.
func CurrentRun(events []model.HitEvent, trailing int) int {
	acc := 0
	for _, e := range events {
		acc += gamesOf(e)
		if e.Type.Qualifying() {
			acc = 0
		}
	}
	if trailing > 0 {
		acc += trailing
	}
	return acc
}

// DeepRuns counts completed intervals at or beyond the model's deep-run
// threshold. threshold <= 0 disables the check.
func DeepRuns(events []model.HitEvent, threshold int) int {
	if threshold <= 0 {
		return 0
	}
	n := 0
	for _, iv := range Reconstruct(events) {
		if iv >= threshold {
			n++
		}
	}
	return n
}

// MaxRun derives the day's chain statistics: the longest run of qualifying
// events each reached within chainThreshold games of the previous one, and
// the largest payout accumulated inside a single run.
func MaxRun(events []model.HitEvent, chainThreshold int) (length, payout int) {
	acc := 0
	chain := 0
	medals := 0
	for _, e := range events {
		acc += gamesOf(e)
		if !e.Type.Qualifying() {
			continue
		}
		if chain > 0 && acc <= chainThreshold {
			chain++
			medals += payoutOf(e)
		} else {
			chain = 1
			medals = payoutOf(e)
		}
		if chain > length {
			length = chain
		}
		if medals > payout {
			payout = medals
		}
		acc = 0
	}
	return length, payout
}

func gamesOf(e model.HitEvent) int {
	if e.GamesSince < 0 {
		return 0
	}
	return e.GamesSince
}

func payoutOf(e model.HitEvent) int {
	if e.Payout < 0 {
		return 0
	}
	return e.Payout
}
