package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/otis-hub/otis-rpg/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLEANUP SNAPSHOTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// CleanupSnapshotsJob deletes leaderboard snapshots older than the
// retention window. The latest snapshot per semester is younger than
// any sane retention setting, so rank lookups are unaffected.
type CleanupSnapshotsJob struct {
	snapshots leaderboard.SnapshotRepository
	retention time.Duration
	logger    *slog.Logger
}

// NewCleanupSnapshotsJob creates a new cleanup job.
func NewCleanupSnapshotsJob(snapshots leaderboard.SnapshotRepository, retention time.Duration, logger *slog.Logger) *CleanupSnapshotsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	return &CleanupSnapshotsJob{
		snapshots: snapshots,
		retention: retention,
		logger:    logger,
	}
}

// Name returns the job name.
func (j *CleanupSnapshotsJob) Name() string {
	return "cleanup_snapshots"
}

// Description returns a human-readable description.
func (j *CleanupSnapshotsJob) Description() string {
	return "Deletes leaderboard snapshots past the retention window"
}

// Run executes the cleanup.
func (j *CleanupSnapshotsJob) Run(ctx context.Context) error {
	threshold := time.Now().Add(-j.retention)

	deleted, err := j.snapshots.DeleteOldSnapshots(ctx, threshold)
	if err != nil {
		return fmt.Errorf("failed to delete old snapshots: %w", err)
	}

	if deleted > 0 {
		j.logger.Info("deleted old snapshots",
			"count", deleted,
			"older_than", threshold.Format(time.RFC3339),
		)
	}

	return nil
}
