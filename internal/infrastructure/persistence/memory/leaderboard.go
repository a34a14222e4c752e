package memory

import (
	"context"
	"time"

	"github.com/otis-hub/otis-rpg/internal/domain/leaderboard"
	"github.com/otis-hub/otis-rpg/internal/domain/ledger"
)

// Compile-time interface checks.
var (
	_ leaderboard.RowSource          = (*Store)(nil)
	_ leaderboard.SnapshotRepository = (*Store)(nil)
	_ leaderboard.RowCache           = (*Store)(nil)
)

// RawScores implements leaderboard.RowSource. It reproduces the batch
// query of the SQL adapter: per-user meter sums, plus an eligible-only
// pset histogram per enrollment. The eligible-only filter here is the
// historic difference from the per-student level-up path, which counts
// every pset.
func (s *Store) RawScores(ctx context.Context, semesterID int64) ([]leaderboard.RawScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	var out []leaderboard.RawScore
	for _, st := range s.students {
		if semesterID != 0 && st.Semester.ID != semesterID {
			continue
		}
		userID := int64(st.UserID)

		psetAgg := ledger.AggregatePSets(s.psetsOfUser(userID))
		spadeAgg := ledger.AggregateSpades(s.spadeSourcesOfUser(userID), now)

		var own []ledger.PSet
		for _, p := range s.psets {
			if p.StudentID == st.ID {
				own = append(own, p)
			}
		}
		counts := ledger.CountDifficulties(own, true)

		out = append(out, leaderboard.RawScore{
			StudentID:       st.ID,
			UserID:          userID,
			FirstName:       st.FirstName,
			LastName:        st.LastName,
			SemesterID:      st.Semester.ID,
			Legit:           st.Legit,
			ClubsAny:        psetAgg.ClubsAny,
			ClubsD:          psetAgg.ClubsD,
			ClubsZ:          psetAgg.ClubsZ,
			Hearts:          psetAgg.Hearts,
			Diamonds:        s.diamondTotal(userID),
			ExamScore:       spadeAgg.ExamScore,
			QuestSpades:     spadeAgg.QuestSpades,
			MockCount:       spadeAgg.MockCount,
			MarketScore:     spadeAgg.MarketScore,
			SuggestionUnits: spadeAgg.SuggestionUnits,
			JobBounties:     spadeAgg.JobBounties,
			HanabiScore:     spadeAgg.HanabiScore,
			PSetB:           counts.B,
			PSetD:           counts.D,
			PSetZ:           counts.Z,
			LastSeen:        s.lastSeen[userID],
		})
	}
	return out, nil
}

// SaveSnapshot implements leaderboard.SnapshotRepository.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot *leaderboard.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.SemesterID] = append(s.snapshots[snapshot.SemesterID], snapshot)
	return nil
}

// GetLatestSnapshot implements leaderboard.SnapshotRepository.
func (s *Store) GetLatestSnapshot(ctx context.Context, semesterID int64) (*leaderboard.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snaps := s.snapshots[semesterID]
	if len(snaps) == 0 {
		return nil, leaderboard.ErrSnapshotNotFound
	}
	return snaps[len(snaps)-1], nil
}

// DeleteOldSnapshots implements leaderboard.SnapshotRepository.
func (s *Store) DeleteOldSnapshots(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for semesterID, snaps := range s.snapshots {
		kept := snaps[:0]
		for _, snap := range snaps {
			if snap.GeneratedAt.Before(olderThan) {
				deleted++
				continue
			}
			kept = append(kept, snap)
		}
		s.snapshots[semesterID] = kept
	}
	return deleted, nil
}

// GetRows implements leaderboard.RowCache.
func (s *Store) GetRows(ctx context.Context, semesterID int64) ([]leaderboard.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.rowCache[semesterID]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	out := make([]leaderboard.Row, len(entry.rows))
	copy(out, entry.rows)
	return out, nil
}

// SetRows implements leaderboard.RowCache.
func (s *Store) SetRows(ctx context.Context, semesterID int64, rows []leaderboard.Row, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]leaderboard.Row, len(rows))
	copy(stored, rows)
	s.rowCache[semesterID] = cachedRows{rows: stored, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Invalidate implements leaderboard.RowCache.
func (s *Store) Invalidate(ctx context.Context, semesterID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rowCache, semesterID)
	return nil
}
