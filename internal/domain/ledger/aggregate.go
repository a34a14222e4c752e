package ledger

import (
	"time"
)

// PSetAggregate is the clubs/hearts summary over a user's accepted
// eligible problem sets. Difficulty splits are kept separately so the
// additive unit bonuses can be applied on top of the raw sum.
type PSetAggregate struct {
	// ClubsAny is the raw club sum over all counting psets.
	ClubsAny int
	// ClubsD is the club sum over counting psets of D units.
	ClubsD int
	// ClubsZ is the club sum over counting psets of Z units.
	ClubsZ int
	// Hearts is the hour sum over all counting psets.
	Hearts float64
	// Count is the number of counting psets.
	Count int
}

// TotalClubs returns clubs with the D/Z unit bonuses applied.
// The multipliers live in the rpg package; they are passed in so this
// package stays free of upward dependencies.
func (a PSetAggregate) TotalClubs(bonusD, bonusZ float64) float64 {
	return float64(a.ClubsAny) + bonusD*float64(a.ClubsD) + bonusZ*float64(a.ClubsZ)
}

// AggregatePSets computes the clubs/hearts summary from raw records.
// Only accepted eligible psets count; nil clubs and hours count as zero.
func AggregatePSets(psets []PSet) PSetAggregate {
	var agg PSetAggregate
	for _, p := range psets {
		if !p.CountsTowardMeters() {
			continue
		}
		agg.Count++
		agg.ClubsAny += p.ClubsOrZero()
		agg.Hearts += p.HoursOrZero()
		switch DifficultyPrefix(p.UnitCode) {
		case "D":
			agg.ClubsD += p.ClubsOrZero()
		case "Z":
			agg.ClubsZ += p.ClubsOrZero()
		}
	}
	return agg
}

// SpadeAggregate is the per-source breakdown of a user's spades.
type SpadeAggregate struct {
	// ExamScore is the raw quiz score sum (doubled in the total).
	ExamScore int
	// QuestSpades is the quest reward sum.
	QuestSpades float64
	// MockCount is the number of completed mock olympiads (tripled).
	MockCount int
	// MarketScore is the guess score sum over closed markets.
	MarketScore float64
	// SuggestionUnits is the number of distinct units with a resolved
	// eligible suggestion.
	SuggestionUnits int
	// JobBounties is the bounty sum over verified jobs.
	JobBounties int
	// HanabiScore is the replay score sum over processed contests.
	HanabiScore float64
}

// Total returns the combined spade count.
func (a SpadeAggregate) Total() float64 {
	return 2*float64(a.ExamScore) +
		a.QuestSpades +
		3*float64(a.MockCount) +
		a.MarketScore +
		float64(a.SuggestionUnits) +
		float64(a.JobBounties) +
		a.HanabiScore
}

// SpadeSources bundles the raw records feeding the spade meter.
type SpadeSources struct {
	ExamAttempts []ExamAttempt
	Quests       []QuestComplete
	Mocks        []MockCompleted
	Guesses      []MarketGuess
	Suggestions  []ProblemSuggestion
	Jobs         []JobTask
	Replays      []HanabiReplay
}

// AggregateSpades computes the spade breakdown from raw records.
// Market guesses only count when their market closed before now.
func AggregateSpades(src SpadeSources, now time.Time) SpadeAggregate {
	var agg SpadeAggregate
	for _, a := range src.ExamAttempts {
		agg.ExamScore += a.Score
	}
	for _, q := range src.Quests {
		agg.QuestSpades += q.Spades
	}
	agg.MockCount = len(src.Mocks)
	for _, g := range src.Guesses {
		if g.ClosedBy(now) {
			agg.MarketScore += g.Score
		}
	}
	seen := make(map[int64]struct{})
	for _, s := range src.Suggestions {
		if s.Status.Resolved() && s.Eligible {
			seen[s.UnitID] = struct{}{}
		}
	}
	agg.SuggestionUnits = len(seen)
	for _, j := range src.Jobs {
		if j.Progress == JobVerified {
			agg.JobBounties += j.SpadesBounty
		}
	}
	for _, r := range src.Replays {
		if r.ContestProcessed {
			agg.HanabiScore += r.SpadesScore
		}
	}
	return agg
}

// DifficultyCounts is a histogram of psets by unit difficulty prefix.
type DifficultyCounts struct {
	B int
	D int
	Z int
}

// CountDifficulties builds a difficulty histogram over psets.
// When eligibleOnly is set, ineligible psets are skipped; the status is
// never consulted in either mode.
func CountDifficulties(psets []PSet, eligibleOnly bool) DifficultyCounts {
	var c DifficultyCounts
	for _, p := range psets {
		if eligibleOnly && !p.Eligible {
			continue
		}
		switch DifficultyPrefix(p.UnitCode) {
		case "B":
			c.B++
		case "D":
			c.D++
		case "Z":
			c.Z++
		}
	}
	return c
}

// DifficultyPrefix returns the difficulty letter of a unit code, or ""
// for codes outside the B/D/Z scheme.
func DifficultyPrefix(code string) string {
	if code == "" {
		return ""
	}
	switch code[:1] {
	case "B", "D", "Z":
		return code[:1]
	default:
		return ""
	}
}
