package model

import "time"

// EventType classifies a recorded hit on a unit.
type EventType string

const (
	EventBig EventType = "BIG"
	EventAT  EventType = "AT"
	EventART EventType = "ART"
	EventReg EventType = "REG"
)

// Qualifying reports whether this event type closes the running interval.
// REG bonuses pay out without resetting the game counter, so their games
// roll into the next qualifying interval.
func (t EventType) Qualifying() bool {
	switch t {
	case EventBig, EventAT, EventART:
		return true
	default:
		return false
	}
}

// ParseEventType maps raw feed spellings onto the closed event set.
func ParseEventType(s string) EventType {
	switch s {
	case "BIG", "big", "BB":
		return EventBig
	case "AT", "at":
		return EventAT
	case "ART", "art":
		return EventART
	case "REG", "reg", "RB":
		return EventReg
	default:
		return EventType(s)
	}
}

// ---- Raw per-day records ----

// HitEvent is one recorded hit during one business day. Immutable once stored.
type HitEvent struct {
	Seq        int       `json:"seq"`
	Time       string    `json:"time,omitempty"` // "15:04" venue-local; empty on older records
	GamesSince int       `json:"games"`          // games played since the previous recorded event
	Payout     int       `json:"payout"`
	Type       EventType `json:"type"`
}

// DailyRecord is one unit's result for one calendar date.
type DailyRecord struct {
	Date            string // "2006-01-02"
	QualifyingCount int
	TotalGames      int
	NetDiff         int // credit differential for the day; 0 when unreported

	// Derived from Events when an event history is available.
	MaxRunLength int // longest consecutive-qualifying run (chain)
	MaxRunPayout int // largest payout accumulated within a single run

	Events []HitEvent // empty when only counters were observed
}

// Probability is the day's games-per-qualifying rate. Lower is better.
// Zero when the day has no qualifying events.
func (d *DailyRecord) Probability() float64 {
	if d.QualifyingCount == 0 {
		return 0
	}
	return float64(d.TotalGames) / float64(d.QualifyingCount)
}

// HasEvents reports whether the per-hit history was observed for this day.
func (d *DailyRecord) HasEvents() bool {
	return len(d.Events) > 0
}

// Weekday parses the record date. ok is false for malformed dates.
func (d *DailyRecord) Weekday() (time.Weekday, bool) {
	t, err := time.Parse("2006-01-02", d.Date)
	if err != nil {
		return time.Sunday, false
	}
	return t.Weekday(), true
}

// Observation is the raw input shape delivered by the collection layer
// for one unit on one date.
type Observation struct {
	Venue           string
	UnitID          string
	ModelKey        string
	Date            string
	QualifyingCount int
	TotalGames      int
	NetDiff         int
	MaxPayout       int // reported max single-run payout, when the feed carries it
	Events          []HitEvent
}

// Zero reports the transport-failure sentinel: a day with no games and no
// qualifying events is a failed fetch, not a real observation.
func (o *Observation) Zero() bool {
	return o.TotalGames == 0 && o.QualifyingCount == 0
}

// ---- Accumulated history ----

// UnitHistory is the full stored log for one (venue, unit) pair,
// ascending by date and unique per date.
type UnitHistory struct {
	Venue        string
	UnitID       string
	ModelKey     string
	Days         []DailyRecord
	LastModified time.Time
}

func (h *UnitHistory) Empty() bool {
	return len(h.Days) == 0
}

// Latest returns the most recent day, or nil for an empty history.
func (h *UnitHistory) Latest() *DailyRecord {
	if len(h.Days) == 0 {
		return nil
	}
	return &h.Days[len(h.Days)-1]
}

// Day returns the record for an exact date, or nil.
func (h *UnitHistory) Day(date string) *DailyRecord {
	for i := range h.Days {
		if h.Days[i].Date == date {
			return &h.Days[i]
		}
	}
	return nil
}

// UnitSummary is a lightweight record for list commands.
type UnitSummary struct {
	Venue        string
	UnitID       string
	ModelKey     string
	Days         int
	FirstDate    string
	LastDate     string
	LastModified time.Time
}

// ---- Scoring output ----

// Tier is the rank band assigned to a scored unit.
type Tier string

const (
	TierS Tier = "S"
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
)

// TierForScore maps a composite score onto a tier.
func TierForScore(score float64) Tier {
	switch {
	case score >= 75:
		return TierS
	case score >= 65:
		return TierA
	case score >= 55:
		return TierB
	case score >= 45:
		return TierC
	default:
		return TierD
	}
}

// Demote returns the next tier down. D stays D.
func (t Tier) Demote() Tier {
	switch t {
	case TierS:
		return TierA
	case TierA:
		return TierB
	case TierB:
		return TierC
	default:
		return TierD
	}
}

// Promote returns the next tier up. S stays S.
func (t Tier) Promote() Tier {
	switch t {
	case TierD:
		return TierC
	case TierC:
		return TierB
	case TierB:
		return TierA
	default:
		return TierS
	}
}

// Top reports whether t is one of the two best bands.
func (t Tier) Top() bool {
	return t == TierS || t == TierA
}

// ContributionKind tags one additive term of a score breakdown.
type ContributionKind string

const (
	ContribBase          ContributionKind = "base"
	ContribTrend         ContributionKind = "trend"
	ContribPerformance   ContributionKind = "performance"
	ContribPattern       ContributionKind = "pattern"
	ContribActivity      ContributionKind = "activity"
	ContribPayoutBalance ContributionKind = "payout_balance"
	ContribSameDay       ContributionKind = "same_day"
	ContribCohort        ContributionKind = "cohort"
)

// Contribution is one named, bounded term in a unit's score.
type Contribution struct {
	Kind   ContributionKind
	Points float64
	Reason string
}

// ScoreBreakdown records every contribution behind one (unit, date) score.
// Ephemeral: produced fresh each scoring run, never persisted.
type ScoreBreakdown struct {
	Venue  string
	UnitID string
	Date   string

	Contributions []Contribution

	Base       float64
	Adjustment float64 // sum of non-base, non-same-day terms after clamping
	SameDay    float64 // same-day bonus, outside the clamp band
	Composite  float64
}

// Add appends a contribution. Zero-point terms are kept when they carry a
// reason, so "no bonus" stays explainable.
func (b *ScoreBreakdown) Add(kind ContributionKind, points float64, reason string) {
	if points == 0 && reason == "" {
		return
	}
	b.Contributions = append(b.Contributions, Contribution{Kind: kind, Points: points, Reason: reason})
}

// Recommendation is the final per-unit output of a scoring run.
type Recommendation struct {
	Venue  string
	UnitID string
	Date   string

	BaseTier  Tier
	FinalTier Tier
	Rank      int // 1-based position within the cohort after the cohort pass

	BaseScore float64
	Composite float64

	Breakdown    ScoreBreakdown
	Reasons      []string
	Insufficient bool // true when the unit had no usable history
}
