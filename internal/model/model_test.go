package model

import "testing"

func TestEventTypeQualifying(t *testing.T) {
	for _, q := range []EventType{EventBig, EventAT, EventART} {
		if !q.Qualifying() {
			t.Errorf("%s should qualify", q)
		}
	}
	if EventReg.Qualifying() {
		t.Error("REG must not reset the interval")
	}
	if ParseEventType("RB") != EventReg || ParseEventType("BB") != EventBig {
		t.Error("legacy spellings RB/BB should map onto REG/BIG")
	}
}

func TestProbability(t *testing.T) {
	d := DailyRecord{QualifyingCount: 20, TotalGames: 3000}
	if got := d.Probability(); got != 150 {
		t.Errorf("probability = %v, want 150", got)
	}
	empty := DailyRecord{TotalGames: 3000}
	if got := empty.Probability(); got != 0 {
		t.Errorf("zero qualifying count must not divide: %v", got)
	}
}

func TestTierForScore(t *testing.T) {
	cases := []struct {
		score float64
		want  Tier
	}{
		{80, TierS}, {75, TierS}, {74.9, TierA}, {65, TierA},
		{60, TierB}, {50, TierC}, {44.9, TierD}, {0, TierD},
	}
	for _, tc := range cases {
		if got := TierForScore(tc.score); got != tc.want {
			t.Errorf("TierForScore(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestTierMoves(t *testing.T) {
	if TierS.Promote() != TierS || TierD.Demote() != TierD {
		t.Error("tier moves must saturate at the ends")
	}
	if TierB.Promote() != TierA || TierA.Demote() != TierB {
		t.Error("adjacent tier moves broken")
	}
	if !TierS.Top() || !TierA.Top() || TierB.Top() {
		t.Error("top band is S and A only")
	}
}

func TestHistoryDayLookup(t *testing.T) {
	h := UnitHistory{Days: []DailyRecord{
		{Date: "2026-08-20"}, {Date: "2026-08-21"},
	}}
	if h.Day("2026-08-21") == nil || h.Day("2026-08-22") != nil {
		t.Error("Day lookup by exact date broken")
	}
	if h.Latest().Date != "2026-08-21" {
		t.Errorf("Latest = %s", h.Latest().Date)
	}
}
