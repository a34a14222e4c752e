// Package jobs contains implementations of scheduled jobs for the OTIS
// scoring engine.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/otis-hub/otis-rpg/internal/domain/leaderboard"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// RowComputer recomputes leaderboard rows from the ledger, bypassing
// the cache. Implemented by the leaderboard query handler.
type RowComputer interface {
	ComputeRows(ctx context.Context, semesterID int64) ([]leaderboard.Row, error)
}

// RebuildLeaderboardJob periodically recomputes leaderboard rows,
// persists them as a snapshot and refreshes the row cache. Rank
// movements against the previous snapshot are published as events.
type RebuildLeaderboardJob struct {
	rows      RowComputer
	snapshots leaderboard.SnapshotRepository
	rowCache  leaderboard.RowCache
	publisher shared.EventPublisher
	logger    *slog.Logger
	config    RebuildLeaderboardConfig

	lastStats atomic.Value // *RebuildStats
}

// RebuildLeaderboardConfig contains configuration for the rebuild job.
type RebuildLeaderboardConfig struct {
	// SemesterIDs are the semesters to snapshot in addition to the
	// global board (semester 0). Empty means global only.
	SemesterIDs []int64

	// CacheTTL is the TTL for refreshed row cache entries.
	CacheTTL time.Duration

	// Timeout is the maximum duration for one rebuild run.
	Timeout time.Duration

	// EmitRankEvents decides per student whether a rank change event
	// is published. nil disables rank events entirely.
	EmitRankEvents func(studentID int64) bool
}

// DefaultRebuildLeaderboardConfig returns sensible defaults.
func DefaultRebuildLeaderboardConfig() RebuildLeaderboardConfig {
	return RebuildLeaderboardConfig{
		SemesterIDs: nil,
		CacheTTL:    5 * time.Minute,
		Timeout:     5 * time.Minute,
	}
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt        time.Time
	CompletedAt      time.Time
	Duration         time.Duration
	SnapshotsCreated int
	RowsWritten      int
	RankChangesFound int
	EventsPublished  int
	Errors           []error
}

// NewRebuildLeaderboardJob creates a new rebuild leaderboard job.
// rowCache and publisher may be nil.
func NewRebuildLeaderboardJob(
	rows RowComputer,
	snapshots leaderboard.SnapshotRepository,
	rowCache leaderboard.RowCache,
	publisher shared.EventPublisher,
	logger *slog.Logger,
	config RebuildLeaderboardConfig,
) *RebuildLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &RebuildLeaderboardJob{
		rows:      rows,
		snapshots: snapshots,
		rowCache:  rowCache,
		publisher: publisher,
		logger:    logger,
		config:    config,
	}
}

// Name returns the job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Recomputes leaderboard rows, snapshots them and publishes rank changes"
}

// Run executes the rebuild job.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &RebuildStats{
		StartedAt: startedAt,
		Errors:    make([]error, 0),
	}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	for _, semesterID := range j.semesters() {
		if err := j.rebuildSemester(ctx, semesterID, stats); err != nil {
			stats.Errors = append(stats.Errors, err)
			j.logger.Error("failed to rebuild leaderboard",
				"semester_id", semesterID,
				"error", err,
			)
		}
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastStats.Store(stats)

	j.logger.Info("rebuild_leaderboard job completed",
		"duration", stats.Duration.String(),
		"snapshots_created", stats.SnapshotsCreated,
		"rows_written", stats.RowsWritten,
		"rank_changes", stats.RankChangesFound,
		"events_published", stats.EventsPublished,
	)

	if len(stats.Errors) > 0 {
		return fmt.Errorf("rebuild completed with %d errors", len(stats.Errors))
	}

	return nil
}

// semesters returns the set of boards to rebuild: the global board
// plus every configured semester.
func (j *RebuildLeaderboardJob) semesters() []int64 {
	out := []int64{0}
	for _, id := range j.config.SemesterIDs {
		if id != 0 {
			out = append(out, id)
		}
	}
	return out
}

// rebuildSemester recomputes one board and snapshots it.
func (j *RebuildLeaderboardJob) rebuildSemester(ctx context.Context, semesterID int64, stats *RebuildStats) error {
	rows, err := j.rows.ComputeRows(ctx, semesterID)
	if err != nil {
		return fmt.Errorf("failed to compute rows: %w", err)
	}

	// The previous snapshot is only needed for the diff; a missing one
	// means this is the first rebuild.
	prev, err := j.snapshots.GetLatestSnapshot(ctx, semesterID)
	if err != nil && !shared.IsNotFound(err) {
		j.logger.Warn("failed to load previous snapshot",
			"semester_id", semesterID,
			"error", err,
		)
		prev = nil
	}

	snapshot := leaderboard.NewSnapshot(uuid.New().String(), semesterID, rows)
	if err := j.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	stats.SnapshotsCreated++
	stats.RowsWritten += snapshot.Count()

	j.publishEvents(snapshot, prev, stats)

	// Refresh the cache with snapshot rows so the next page load does
	// not recompute what this run just produced.
	if j.rowCache != nil {
		if err := j.rowCache.SetRows(ctx, semesterID, snapshot.Rows, j.config.CacheTTL); err != nil {
			j.logger.Warn("failed to refresh row cache",
				"semester_id", semesterID,
				"error", err,
			)
		}
	}

	j.logger.Debug("leaderboard rebuilt",
		"semester_id", semesterID,
		"rows", snapshot.Count(),
	)

	return nil
}

// publishEvents emits the rebuilt event and gated rank change events.
func (j *RebuildLeaderboardJob) publishEvents(snapshot, prev *leaderboard.Snapshot, stats *RebuildStats) {
	if j.publisher == nil {
		return
	}

	event := shared.NewLeaderboardRebuiltEvent(snapshot.ID, snapshot.SemesterID, snapshot.Count())
	if err := j.publisher.Publish(event); err != nil {
		j.logger.Warn("failed to publish rebuilt event", "error", err)
	} else {
		stats.EventsPublished++
	}

	if j.config.EmitRankEvents == nil {
		return
	}

	changes := leaderboard.Diff(prev, snapshot)
	for studentID, change := range changes {
		if change == 0 {
			continue
		}
		stats.RankChangesFound++

		if !j.config.EmitRankEvents(studentID) {
			continue
		}

		row := snapshot.GetByStudent(studentID)
		if row == nil {
			continue
		}
		oldRank := int(row.Rank) + int(change)

		rankEvent := shared.NewRankChangedEvent(snapshot.ID, studentID, oldRank, int(row.Rank))
		if err := j.publisher.Publish(rankEvent); err != nil {
			j.logger.Warn("failed to publish rank change",
				"student_id", studentID,
				"error", err,
			)
			continue
		}
		stats.EventsPublished++
	}
}

// LastStats returns statistics from the last rebuild.
func (j *RebuildLeaderboardJob) LastStats() *RebuildStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RebuildStats)
}
