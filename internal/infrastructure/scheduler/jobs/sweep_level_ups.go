package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/otis-hub/otis-rpg/internal/application/command"
	"github.com/otis-hub/otis-rpg/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// SWEEP LEVEL UPS JOB
// ══════════════════════════════════════════════════════════════════════════════

// LevelChecker runs the level-up check for one student. Implemented by
// the check level up command handler.
type LevelChecker interface {
	Handle(ctx context.Context, cmd command.CheckLevelUpCommand) (*command.CheckLevelUpResult, error)
}

// SweepLevelUpsJob runs the level-up check over every student of a
// semester. The check itself is pull-based, so the sweep is what turns
// ledger activity into unlocked bonus units without waiting for the
// student to open their profile.
type SweepLevelUpsJob struct {
	students student.Repository
	checker  LevelChecker
	logger   *slog.Logger
	config   SweepLevelUpsConfig

	lastStats atomic.Value // *SweepStats
}

// SweepLevelUpsConfig contains configuration for the sweep job.
type SweepLevelUpsConfig struct {
	// SemesterID limits the sweep to one semester (0 = all).
	SemesterID int64

	// Concurrency is the number of parallel checks.
	Concurrency int

	// Timeout is the maximum duration for one sweep run.
	Timeout time.Duration
}

// DefaultSweepLevelUpsConfig returns sensible defaults.
func DefaultSweepLevelUpsConfig() SweepLevelUpsConfig {
	return SweepLevelUpsConfig{
		SemesterID:  0,
		Concurrency: 4,
		Timeout:     10 * time.Minute,
	}
}

// SweepStats contains statistics from a sweep run.
type SweepStats struct {
	StartedAt     time.Time
	CompletedAt   time.Time
	Duration      time.Duration
	StudentsSwept int
	LevelUps      int
	UnitsUnlocked int
	Failures      int
}

// NewSweepLevelUpsJob creates a new sweep job.
func NewSweepLevelUpsJob(
	students student.Repository,
	checker LevelChecker,
	logger *slog.Logger,
	config SweepLevelUpsConfig,
) *SweepLevelUpsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}

	return &SweepLevelUpsJob{
		students: students,
		checker:  checker,
		logger:   logger,
		config:   config,
	}
}

// Name returns the job name.
func (j *SweepLevelUpsJob) Name() string {
	return "sweep_level_ups"
}

// Description returns a human-readable description.
func (j *SweepLevelUpsJob) Description() string {
	return "Runs the level-up check for every student of the semester"
}

// Run executes the sweep.
func (j *SweepLevelUpsJob) Run(ctx context.Context) error {
	startedAt := time.Now()

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	students, err := j.students.ListBySemester(ctx, j.config.SemesterID)
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}

	var (
		mu    sync.Mutex
		stats = SweepStats{StartedAt: startedAt}
		wg    sync.WaitGroup
		sem   = make(chan struct{}, j.config.Concurrency)
	)

	for _, st := range students {
		// The check skips inactive semesters on its own; filtering here
		// just avoids queueing work that would be a no-op.
		if !st.Semester.Active {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(studentID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := j.checker.Handle(ctx, command.CheckLevelUpCommand{StudentID: studentID})

			mu.Lock()
			defer mu.Unlock()
			stats.StudentsSwept++
			if err != nil {
				stats.Failures++
				j.logger.Warn("level-up check failed",
					"student_id", studentID,
					"error", err,
				)
				return
			}
			if result.LeveledUp {
				stats.LevelUps++
				stats.UnitsUnlocked += len(result.UnlockedUnits)
			}
		}(st.ID)
	}

	wg.Wait()

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastStats.Store(&stats)

	j.logger.Info("sweep_level_ups job completed",
		"duration", stats.Duration.String(),
		"students_swept", stats.StudentsSwept,
		"level_ups", stats.LevelUps,
		"units_unlocked", stats.UnitsUnlocked,
		"failures", stats.Failures,
	)

	if stats.Failures > 0 {
		return fmt.Errorf("sweep completed with %d failures", stats.Failures)
	}

	return nil
}

// LastStats returns statistics from the last sweep.
func (j *SweepLevelUpsJob) LastStats() *SweepStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*SweepStats)
}
