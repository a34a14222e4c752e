package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otis-hub/otis-rpg/internal/application/query"
	"github.com/otis-hub/otis-rpg/internal/domain/ledger"
	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
	"github.com/otis-hub/otis-rpg/internal/domain/student"
	"github.com/otis-hub/otis-rpg/internal/infrastructure/persistence/memory"
)

// recordingBus captures published events for assertions.
type recordingBus struct {
	events []shared.Event
}

func (b *recordingBus) Publish(event shared.Event) error {
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) ofType(t shared.EventType) []shared.Event {
	var out []shared.Event
	for _, e := range b.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

func secretGroup() rpg.UnitGroup {
	return rpg.UnitGroup{
		ID:   7,
		Name: "Secret Topic",
		Units: []rpg.Unit{
			{ID: 71, Code: "BSA", GroupID: 7},
			{ID: 72, Code: "DSA", GroupID: 7},
			{ID: 73, Code: "ZSA", GroupID: 7},
		},
	}
}

// newFixture seeds a store with one student who is due a level-up.
func newFixture(t *testing.T) (*memory.Store, *CheckLevelUpHandler, *recordingBus) {
	t.Helper()
	store := memory.NewStore()

	semester := student.Semester{ID: 1, Name: "Year 7", Active: true}
	st, err := student.NewStudent(2, 202, "Bob", "Beta", semester)
	require.NoError(t, err)
	store.AddStudent(st)

	// One accepted eligible D pset drives the meters; two ineligible Z
	// psets skew the all-pset histogram toward Z.
	store.AddPSet(ledger.PSet{
		ID: 1, StudentID: 2, UserID: 202, UnitID: 72, UnitCode: "DSA",
		Status: ledger.PSetAccepted, Eligible: true,
		Clubs: intp(100), Hours: floatp(25),
	})
	store.AddPSet(ledger.PSet{
		ID: 2, StudentID: 2, UserID: 202, UnitID: 73, UnitCode: "ZSA",
		Status: ledger.PSetAccepted, Eligible: false, Clubs: intp(50),
	})
	store.AddPSet(ledger.PSet{
		ID: 3, StudentID: 2, UserID: 202, UnitID: 73, UnitCode: "ZSB",
		Status: ledger.PSetPending, Eligible: false,
	})

	store.SetLevels([]rpg.Level{
		{Threshold: 7, Name: "Level 7"},
		{Threshold: 28, Name: "Level 28"},
	})
	store.AddBonusLevel(rpg.BonusLevel{ID: 5, Level: 3, Group: secretGroup()})

	levelInfo := query.NewGetLevelInfoHandler(store, store, store, store, store, store)
	bus := &recordingBus{}
	handler := NewCheckLevelUpHandler(store, store, store, levelInfo, store, store, bus)
	return store, handler, bus
}

func TestCheckLevelUpGrantsBonusByInsanity(t *testing.T) {
	store, handler, bus := newFixture(t)

	result, err := handler.Handle(context.Background(), CheckLevelUpCommand{StudentID: 2})
	require.NoError(t, err)

	assert.True(t, result.LeveledUp)
	assert.Equal(t, 0, result.OldLevel)
	// clubs 100 + 0.3*100 = 130 -> 11, hearts 25 -> 5.
	assert.Equal(t, 16, result.NewLevel)
	assert.Equal(t, "Level 7", result.LevelName)

	// All three psets count, even pending and ineligible ones:
	// b=0, d=1, z=2 -> r = 2/3 -> Z unit.
	assert.InDelta(t, 2.0/3.0, result.Insanity, 1e-9)
	require.Len(t, result.UnlockedUnits, 1)
	assert.Equal(t, int64(73), result.UnlockedUnits[0].UnitID)
	assert.Equal(t, "ZSA", result.UnlockedUnits[0].UnitCode)

	st, err := store.FindByID(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, st.HasUnit(73))
	assert.Equal(t, 16, st.LastLevelSeen)

	assert.Len(t, bus.ofType(shared.EventLevelUp), 1)
	assert.Len(t, bus.ofType(shared.EventBonusUnlocked), 1)
}

func TestCheckLevelUpIsIdempotent(t *testing.T) {
	_, handler, bus := newFixture(t)

	first, err := handler.Handle(context.Background(), CheckLevelUpCommand{StudentID: 2})
	require.NoError(t, err)
	assert.True(t, first.LeveledUp)

	second, err := handler.Handle(context.Background(), CheckLevelUpCommand{StudentID: 2})
	require.NoError(t, err)
	assert.False(t, second.LeveledUp)
	assert.Empty(t, second.UnlockedUnits)
	assert.Equal(t, 16, second.OldLevel)

	assert.Len(t, bus.ofType(shared.EventLevelUp), 1)
}

func TestCheckLevelUpNeverRegrantsRemovedUnit(t *testing.T) {
	store, handler, _ := newFixture(t)
	ctx := context.Background()

	_, err := handler.Handle(ctx, CheckLevelUpCommand{StudentID: 2})
	require.NoError(t, err)

	// Staff pull the unit back out of the curriculum. The unlock record
	// survives, so a later level-up must not grant the unit again.
	require.NoError(t, store.RemoveUnitFromCurriculum(ctx, 2, 73))
	store.AddPSet(ledger.PSet{
		ID: 4, StudentID: 2, UserID: 202, UnitID: 72, UnitCode: "DSB",
		Status: ledger.PSetAccepted, Eligible: true,
		Clubs: intp(200), Hours: floatp(50),
	})

	result, err := handler.Handle(ctx, CheckLevelUpCommand{StudentID: 2})
	require.NoError(t, err)
	assert.True(t, result.LeveledUp)
	assert.Empty(t, result.UnlockedUnits)

	st, err := store.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.False(t, st.HasUnit(73))
}

// failingCurriculum fails a number of curriculum writes before
// recovering, simulating a storage outage mid-grant.
type failingCurriculum struct {
	*memory.Store
	failures int
}

func (f *failingCurriculum) AddUnitToCurriculum(ctx context.Context, studentID, unitID int64) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("storage unavailable")
	}
	return f.Store.AddUnitToCurriculum(ctx, studentID, unitID)
}

func TestCheckLevelUpCurriculumFailureLeavesBonusClaimable(t *testing.T) {
	store, _, _ := newFixture(t)
	flaky := &failingCurriculum{Store: store, failures: 1}

	levelInfo := query.NewGetLevelInfoHandler(store, store, store, store, store, store)
	handler := NewCheckLevelUpHandler(flaky, store, store, levelInfo, store, store, nil)
	ctx := context.Background()

	_, err := handler.Handle(ctx, CheckLevelUpCommand{StudentID: 2})
	require.Error(t, err)

	// The failed write must not leave an unlock row behind; the retry
	// grants the unit end to end.
	result, err := handler.Handle(ctx, CheckLevelUpCommand{StudentID: 2})
	require.NoError(t, err)
	assert.True(t, result.LeveledUp)
	require.Len(t, result.UnlockedUnits, 1)
	assert.Equal(t, int64(73), result.UnlockedUnits[0].UnitID)

	st, err := store.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.True(t, st.HasUnit(73))
	assert.Equal(t, 16, st.LastLevelSeen)
}

func TestCheckLevelUpSkipsGroupWithoutMatchingDifficulty(t *testing.T) {
	store := memory.NewStore()

	semester := student.Semester{ID: 1, Name: "Year 7", Active: true}
	st, err := student.NewStudent(3, 303, "Carol", "Gamma", semester)
	require.NoError(t, err)
	store.AddStudent(st)

	// Only Z psets: the bonus unit must be a Z unit, but the group has none.
	store.AddPSet(ledger.PSet{
		ID: 1, StudentID: 3, UserID: 303, UnitID: 73, UnitCode: "ZSA",
		Status: ledger.PSetAccepted, Eligible: true,
		Clubs: intp(64), Hours: floatp(16),
	})
	store.SetLevels([]rpg.Level{{Threshold: 7, Name: "Level 7"}})
	store.AddBonusLevel(rpg.BonusLevel{
		ID:    6,
		Level: 1,
		Group: rpg.UnitGroup{ID: 8, Name: "Basics Only", Units: []rpg.Unit{{ID: 81, Code: "BMW", GroupID: 8}}},
	})

	levelInfo := query.NewGetLevelInfoHandler(store, store, store, store, store, store)
	handler := NewCheckLevelUpHandler(store, store, store, levelInfo, store, store, nil)

	result, err := handler.Handle(context.Background(), CheckLevelUpCommand{StudentID: 3})
	require.NoError(t, err)

	assert.True(t, result.LeveledUp)
	assert.Empty(t, result.UnlockedUnits)

	// The watermark still advances, or the skipped group would trigger
	// the congratulation forever.
	fresh, err := store.FindByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Greater(t, fresh.LastLevelSeen, 0)

	again, err := handler.Handle(context.Background(), CheckLevelUpCommand{StudentID: 3})
	require.NoError(t, err)
	assert.False(t, again.LeveledUp)
}

func TestCheckLevelUpInactiveSemester(t *testing.T) {
	store, _, _ := newFixture(t)

	semester := student.Semester{ID: 2, Name: "Year 6", Active: false}
	st, err := student.NewStudent(9, 909, "Dora", "Delta", semester)
	require.NoError(t, err)
	store.AddStudent(st)
	store.AddPSet(ledger.PSet{
		ID: 10, StudentID: 9, UserID: 909, UnitID: 72, UnitCode: "DSA",
		Status: ledger.PSetAccepted, Eligible: true,
		Clubs: intp(100), Hours: floatp(25),
	})

	levelInfo := query.NewGetLevelInfoHandler(store, store, store, store, store, store)
	handler := NewCheckLevelUpHandler(store, store, store, levelInfo, store, store, nil)

	result, err := handler.Handle(context.Background(), CheckLevelUpCommand{StudentID: 9})
	require.NoError(t, err)
	assert.False(t, result.LeveledUp)
	assert.Empty(t, result.UnlockedUnits)

	fresh, err := store.FindByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.LastLevelSeen)
}

func TestCheckLevelUpValidation(t *testing.T) {
	_, handler, _ := newFixture(t)

	_, err := handler.Handle(context.Background(), CheckLevelUpCommand{})
	assert.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestCheckLevelUpUnknownStudent(t *testing.T) {
	_, handler, _ := newFixture(t)

	_, err := handler.Handle(context.Background(), CheckLevelUpCommand{StudentID: 999})
	assert.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestCheckLevelUpInsanityCountsEveryPSet(t *testing.T) {
	// The level-up path counts every pset of the enrollment, so the two
	// ineligible Z psets push the rating to 2/3. The batch leaderboard
	// path counts eligible psets only and lands at 0 for the same data;
	// see the leaderboard query tests.
	_, handler, _ := newFixture(t)

	result, err := handler.Handle(context.Background(), CheckLevelUpCommand{StudentID: 2})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, result.Insanity, 1e-9)
	require.Len(t, result.UnlockedUnits, 1)
	assert.Equal(t, "Z", string(rpg.DifficultyOfUnitCode(result.UnlockedUnits[0].UnitCode)))
}
