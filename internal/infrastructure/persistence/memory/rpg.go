package memory

import (
	"context"
	"sort"

	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
)

// Compile-time interface checks.
var (
	_ rpg.LevelRepository             = (*Store)(nil)
	_ rpg.BonusLevelRepository        = (*Store)(nil)
	_ rpg.BonusUnlockRepository       = (*Store)(nil)
	_ rpg.AchievementRepository       = (*Store)(nil)
	_ rpg.AchievementUnlockRepository = achievementUnlockPort{}
	_ rpg.PalaceRepository            = (*Store)(nil)
)

// GetTable implements rpg.LevelRepository.
func (s *Store) GetTable(ctx context.Context) (*rpg.LevelTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rpg.NewLevelTable(s.levels), nil
}

// ListUpTo implements rpg.BonusLevelRepository.
func (s *Store) ListUpTo(ctx context.Context, level int) ([]rpg.BonusLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []rpg.BonusLevel
	for _, b := range s.bonusLevels {
		if b.Level <= level {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

// ListUnclaimedUpTo implements rpg.BonusLevelRepository. A bonus is
// claimed once any of the user's enrollments holds an unlock for it.
func (s *Store) ListUnclaimedUpTo(ctx context.Context, userID int64, level int) ([]rpg.BonusLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var studentIDs []int64
	for _, st := range s.students {
		if int64(st.UserID) == userID {
			studentIDs = append(studentIDs, st.ID)
		}
	}

	var out []rpg.BonusLevel
	for _, b := range s.bonusLevels {
		if b.Level > level {
			continue
		}
		claimed := false
		for _, sid := range studentIDs {
			if _, ok := s.bonusUnlocks[unlockKey{studentID: sid, bonusID: b.ID}]; ok {
				claimed = true
				break
			}
		}
		if !claimed {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

// GetOrCreate implements rpg.BonusUnlockRepository.
func (s *Store) GetOrCreate(ctx context.Context, unlock rpg.BonusLevelUnlock) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := unlockKey{studentID: unlock.StudentID, bonusID: unlock.BonusID}
	if _, ok := s.bonusUnlocks[key]; ok {
		return false, nil
	}
	s.bonusUnlocks[key] = unlock
	return true, nil
}

// FindByCode implements rpg.AchievementRepository.
func (s *Store) FindByCode(ctx context.Context, code rpg.AchievementCode) (*rpg.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.achievements {
		if s.achievements[i].Code != "" && s.achievements[i].Code == code {
			a := s.achievements[i]
			return &a, nil
		}
	}
	return nil, rpg.ErrAchievementNotFound
}

// DiamondTotal implements rpg.AchievementRepository.
func (s *Store) DiamondTotal(ctx context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.diamondTotal(userID), nil
}

// ListUnlocked implements rpg.AchievementRepository.
func (s *Store) ListUnlocked(ctx context.Context, userID int64) ([]rpg.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []rpg.Achievement
	for _, a := range s.achievements {
		if _, ok := s.achievementUnlocks[achievementKey{userID: userID, achievementID: a.ID}]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// AchievementUnlocks returns the store's achievement-unlock port.
// It is a separate view because both unlock repositories name their
// method GetOrCreate.
func (s *Store) AchievementUnlocks() rpg.AchievementUnlockRepository {
	return achievementUnlockPort{s: s}
}

type achievementUnlockPort struct {
	s *Store
}

// GetOrCreate implements rpg.AchievementUnlockRepository.
func (p achievementUnlockPort) GetOrCreate(ctx context.Context, unlock rpg.AchievementUnlock) (bool, error) {
	return p.s.getOrCreateAchievementUnlock(unlock)
}

// getOrCreateAchievementUnlock records an achievement unlock once.
func (s *Store) getOrCreateAchievementUnlock(unlock rpg.AchievementUnlock) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := achievementKey{userID: unlock.UserID, achievementID: unlock.AchievementID}
	if _, ok := s.achievementUnlocks[key]; ok {
		return false, nil
	}
	s.achievementUnlocks[key] = unlock
	return true, nil
}

// ListVisible implements rpg.PalaceRepository.
func (s *Store) ListVisible(ctx context.Context) ([]rpg.PalaceCarving, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []rpg.PalaceCarving
	for _, c := range s.carvings {
		if c.Visible {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Upsert implements rpg.PalaceRepository.
func (s *Store) Upsert(ctx context.Context, carving rpg.PalaceCarving) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carvings[carving.UserID] = carving
	return nil
}

// diamondTotal sums diamonds over unlocked achievements. Callers hold the lock.
func (s *Store) diamondTotal(userID int64) int {
	total := 0
	for _, a := range s.achievements {
		if _, ok := s.achievementUnlocks[achievementKey{userID: userID, achievementID: a.ID}]; ok {
			total += a.Diamonds
		}
	}
	return total
}
