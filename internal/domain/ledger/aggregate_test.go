package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

func TestAggregatePSets(t *testing.T) {
	psets := []PSet{
		{UnitCode: "BGW", Status: PSetAccepted, Eligible: true, Clubs: intp(120), Hours: floatp(37)},
		{UnitCode: "DMX", Status: PSetAccepted, Eligible: true, Clubs: intp(100), Hours: floatp(20)},
		{UnitCode: "ZCY", Status: PSetAccepted, Eligible: true, Clubs: intp(180), Hours: floatp(27)},
		// Pending and ineligible submissions never count.
		{UnitCode: "ZMR", Status: PSetPending, Eligible: true, Clubs: intp(200), Hours: floatp(87)},
		{UnitCode: "DAB", Status: PSetAccepted, Eligible: false, Clubs: intp(50), Hours: floatp(10)},
	}

	agg := AggregatePSets(psets)
	assert.Equal(t, 3, agg.Count)
	assert.Equal(t, 400, agg.ClubsAny)
	assert.Equal(t, 100, agg.ClubsD)
	assert.Equal(t, 180, agg.ClubsZ)
	assert.InDelta(t, 84.0, agg.Hearts, 1e-9)

	// 400 + 0.3*100 + 0.5*180 = 520
	assert.InDelta(t, 520.0, agg.TotalClubs(0.3, 0.5), 1e-9)
}

func TestAggregatePSetsNullValues(t *testing.T) {
	psets := []PSet{
		{UnitCode: "BGW", Status: PSetAccepted, Eligible: true, Clubs: nil, Hours: nil},
		{UnitCode: "DMX", Status: PSetAccepted, Eligible: true, Clubs: intp(96), Hours: floatp(4)},
	}

	agg := AggregatePSets(psets)
	assert.Equal(t, 2, agg.Count)
	assert.Equal(t, 96, agg.ClubsAny)
	assert.Equal(t, 96, agg.ClubsD)
	assert.InDelta(t, 4.0, agg.Hearts, 1e-9)
}

func TestAggregateSpades(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	src := SpadeSources{
		ExamAttempts: []ExamAttempt{{Score: 3}, {Score: 4}},
		Quests:       []QuestComplete{{Spades: 5}},
		Mocks:        []MockCompleted{{}, {}},
		Guesses: []MarketGuess{
			{Score: 7.5, MarketEndsAt: now.Add(-time.Hour)},
			{Score: 100, MarketEndsAt: now.Add(time.Hour)}, // still open
		},
		Suggestions: []ProblemSuggestion{
			{UnitID: 1, Status: SuggestionAcceptedOK, Eligible: true},
			{UnitID: 1, Status: SuggestionAcceptedWeak, Eligible: true}, // same unit
			{UnitID: 2, Status: SuggestionAcceptedOK, Eligible: true},
			{UnitID: 3, Status: SuggestionRejected, Eligible: true},
			{UnitID: 4, Status: SuggestionAcceptedOK, Eligible: false},
		},
		Jobs: []JobTask{
			{SpadesBounty: 2, Progress: JobVerified},
			{SpadesBounty: 5, Progress: JobVerified},
			{SpadesBounty: 9, Progress: JobSubmitted},
		},
		Replays: []HanabiReplay{
			{SpadesScore: 1.5, ContestProcessed: true},
			{SpadesScore: 9, ContestProcessed: false},
		},
	}

	agg := AggregateSpades(src, now)
	assert.Equal(t, 7, agg.ExamScore)
	assert.InDelta(t, 5.0, agg.QuestSpades, 1e-9)
	assert.Equal(t, 2, agg.MockCount)
	assert.InDelta(t, 7.5, agg.MarketScore, 1e-9)
	assert.Equal(t, 2, agg.SuggestionUnits)
	assert.Equal(t, 7, agg.JobBounties)
	assert.InDelta(t, 1.5, agg.HanabiScore, 1e-9)

	// 14 + 5 + 6 + 7.5 + 2 + 7 + 1.5
	assert.InDelta(t, 43.0, agg.Total(), 1e-9)
}

func TestAggregateSpadesEmpty(t *testing.T) {
	agg := AggregateSpades(SpadeSources{}, time.Now())
	assert.InDelta(t, 0.0, agg.Total(), 1e-9)
}

func TestCountDifficulties(t *testing.T) {
	psets := []PSet{
		{UnitCode: "BGW", Status: PSetAccepted, Eligible: true},
		{UnitCode: "DMX", Status: PSetPending, Eligible: true},
		{UnitCode: "ZCY", Status: PSetRejected, Eligible: false},
		{UnitCode: "ZMR", Status: PSetAccepted, Eligible: true},
	}

	all := CountDifficulties(psets, false)
	assert.Equal(t, DifficultyCounts{B: 1, D: 1, Z: 2}, all)

	// Eligible-only mode still ignores status.
	eligible := CountDifficulties(psets, true)
	assert.Equal(t, DifficultyCounts{B: 1, D: 1, Z: 1}, eligible)
}

func TestDifficultyPrefix(t *testing.T) {
	assert.Equal(t, "B", DifficultyPrefix("BGW"))
	assert.Equal(t, "D", DifficultyPrefix("DMX"))
	assert.Equal(t, "Z", DifficultyPrefix("ZCY"))
	assert.Equal(t, "", DifficultyPrefix(""))
	assert.Equal(t, "", DifficultyPrefix("X99"))
}
