package memory

import (
	"context"
	"time"

	"github.com/otis-hub/otis-rpg/internal/domain/ledger"
)

var _ ledger.Reader = (*Store)(nil)

// PSetAggregateForUser implements ledger.Reader.
func (s *Store) PSetAggregateForUser(ctx context.Context, userID int64) (ledger.PSetAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.AggregatePSets(s.psetsOfUser(userID)), nil
}

// SpadeAggregateForUser implements ledger.Reader.
func (s *Store) SpadeAggregateForUser(ctx context.Context, userID int64, now time.Time) (ledger.SpadeAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.AggregateSpades(s.spadeSourcesOfUser(userID), now), nil
}

// DifficultyCountsForStudent implements ledger.Reader. It counts every
// pset of the enrollment, whatever its status or eligibility.
func (s *Store) DifficultyCountsForStudent(ctx context.Context, studentID int64) (ledger.DifficultyCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var psets []ledger.PSet
	for _, p := range s.psets {
		if p.StudentID == studentID {
			psets = append(psets, p)
		}
	}
	return ledger.CountDifficulties(psets, false), nil
}

// ListPSetsForUser implements ledger.Reader.
func (s *Store) ListPSetsForUser(ctx context.Context, userID int64) ([]ledger.PSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.PSet
	for _, p := range s.psetsOfUser(userID) {
		if p.CountsTowardMeters() {
			out = append(out, p)
		}
	}
	return out, nil
}

// psetsOfUser returns the user's psets. Callers hold the lock.
func (s *Store) psetsOfUser(userID int64) []ledger.PSet {
	var out []ledger.PSet
	for _, p := range s.psets {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

// spadeSourcesOfUser collects the user's spade records. Callers hold the lock.
func (s *Store) spadeSourcesOfUser(userID int64) ledger.SpadeSources {
	var src ledger.SpadeSources
	for _, a := range s.examAttempts {
		if a.UserID == userID {
			src.ExamAttempts = append(src.ExamAttempts, a)
		}
	}
	for _, q := range s.quests {
		if q.UserID == userID {
			src.Quests = append(src.Quests, q)
		}
	}
	for _, m := range s.mocks {
		if m.UserID == userID {
			src.Mocks = append(src.Mocks, m)
		}
	}
	for _, g := range s.guesses {
		if g.UserID == userID {
			src.Guesses = append(src.Guesses, g)
		}
	}
	for _, sg := range s.suggestions {
		if sg.UserID == userID {
			src.Suggestions = append(src.Suggestions, sg)
		}
	}
	for _, j := range s.jobs {
		if j.UserID == userID {
			src.Jobs = append(src.Jobs, j)
		}
	}
	for _, r := range s.replays {
		if r.UserID == userID {
			src.Replays = append(src.Replays, r)
		}
	}
	return src
}
