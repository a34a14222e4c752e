// Package scheduler implements background job scheduling for the OTIS
// scoring engine. It provides cron-like scheduling for periodic tasks
// such as leaderboard rebuilds, level-up sweeps and snapshot cleanup.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrNilJob is returned when registering a nil job.
	ErrNilJob = errors.New("job cannot be nil")

	// ErrNilSchedule is returned when registering a job without a schedule.
	ErrNilSchedule = errors.New("schedule cannot be nil")

	// ErrJobAlreadyExists is returned when a job name is taken.
	ErrJobAlreadyExists = errors.New("job already exists")

	// ErrJobNotFound is returned when a job name is unknown.
	ErrJobNotFound = errors.New("job not found")

	// ErrSchedulerAlreadyRunning is returned by Start on a running scheduler.
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")

	// ErrSchedulerNotRunning is returned by Stop on a stopped scheduler.
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
)

// Job is a unit of scheduled work.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job. The context is cancelled when the
	// scheduler is stopping.
	Run(ctx context.Context) error

	// Description returns a human-readable description of the job.
	Description() string
}

// Schedule decides when a job fires.
type Schedule interface {
	// Next returns the first firing time strictly after t.
	Next(t time.Time) time.Time

	// String returns a human-readable representation of the schedule.
	String() string
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERVAL SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// IntervalSchedule fires at a fixed interval, measured from the previous
// firing rather than from job completion.
type IntervalSchedule struct {
	interval time.Duration
}

// NewIntervalSchedule creates a fixed-interval schedule.
func NewIntervalSchedule(interval time.Duration) IntervalSchedule {
	return IntervalSchedule{interval: interval}
}

// Next implements Schedule.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.interval)
}

// String implements Schedule.
func (s IntervalSchedule) String() string {
	return "@every " + s.interval.String()
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// SchedulerConfig contains configuration for the Scheduler.
type SchedulerConfig struct {
	// Logger for structured logging.
	Logger *slog.Logger

	// Timezone for schedule calculations (default UTC). Cron schedules
	// evaluate wall-clock fields in this zone.
	Timezone *time.Location

	// TickInterval is how often due jobs are checked (default 1s).
	TickInterval time.Duration
}

// Scheduler runs registered jobs on their schedules. A job never
// overlaps itself: if a run is still in flight when the next firing
// comes due, that firing is skipped.
type Scheduler struct {
	mu        sync.Mutex
	logger    *slog.Logger
	timezone  *time.Location
	tick      time.Duration
	entries   map[string]*entry
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time
}

// entry is one registered job with its run state.
type entry struct {
	job      Job
	schedule Schedule
	nextRun  time.Time
	lastRun  time.Time
	lastErr  error
	runs     int64
	failures int64
	inFlight bool
}

// JobStatus describes a registered job.
type JobStatus struct {
	Name        string
	Description string
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
	Runs        int64
	Failures    int64
	LastError   string
}

// NewScheduler creates a scheduler with the given configuration.
func NewScheduler(config SchedulerConfig) *Scheduler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timezone == nil {
		config.Timezone = time.UTC
	}
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}

	return &Scheduler{
		logger:   config.Logger,
		timezone: config.Timezone,
		tick:     config.TickInterval,
		entries:  make(map[string]*entry),
	}
}

// Register adds a job with its schedule. Registration is allowed while
// the scheduler runs; the job first fires at schedule.Next(now).
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	e := &entry{
		job:      job,
		schedule: schedule,
		nextRun:  schedule.Next(time.Now().In(s.timezone)),
	}
	s.entries[name] = e

	s.logger.Info("job registered",
		"job", name,
		"schedule", schedule.String(),
		"next_run", e.nextRun.Format(time.RFC3339),
	)

	return nil
}

// Start begins the scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerAlreadyRunning
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.startedAt = time.Now()

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("scheduler started", "jobs", len(s.entries))
	return nil
}

// Stop halts the loop and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	startedAt := s.startedAt
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped", "uptime", time.Since(startedAt).String())
	return nil
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow executes a job immediately, outside its schedule. The regular
// firing times are not shifted.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, exists := s.entries[name]
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.logger.Info("manual job run", "job", name)
	err := e.job.Run(ctx)

	s.mu.Lock()
	s.record(e, time.Now(), err)
	s.mu.Unlock()

	return err
}

// ListJobs returns the status of every registered job.
func (s *Scheduler) ListJobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.entries))
	for name, e := range s.entries {
		status := JobStatus{
			Name:        name,
			Description: e.job.Description(),
			Schedule:    e.schedule.String(),
			LastRun:     e.lastRun,
			NextRun:     e.nextRun,
			Runs:        e.runs,
			Failures:    e.failures,
		}
		if e.lastErr != nil {
			status.LastError = e.lastErr.Error()
		}
		out = append(out, status)
	}
	return out
}

// loop fires due jobs until the context is cancelled.
func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fireDue(ctx)
		}
	}
}

// fireDue starts every due job that is not already in flight.
func (s *Scheduler) fireDue(ctx context.Context) {
	now := time.Now().In(s.timezone)

	s.mu.Lock()
	var due []*entry
	for _, e := range s.entries {
		if e.nextRun.IsZero() || now.Before(e.nextRun) {
			continue
		}
		// Advance the firing time even when the run is skipped, so a
		// long-running job does not fire immediately on completion.
		e.nextRun = e.schedule.Next(now)
		if e.inFlight {
			s.logger.Warn("job still running, skipping firing", "job", e.job.Name())
			continue
		}
		e.inFlight = true
		due = append(due, e)
	}
	s.mu.Unlock()

	for _, e := range due {
		s.wg.Add(1)
		go s.run(ctx, e)
	}
}

// run executes one firing of a job.
func (s *Scheduler) run(ctx context.Context, e *entry) {
	defer s.wg.Done()

	name := e.job.Name()
	startedAt := time.Now()
	s.logger.Info("job started", "job", name)

	err := e.job.Run(ctx)
	duration := time.Since(startedAt)

	s.mu.Lock()
	e.inFlight = false
	s.record(e, startedAt, err)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed", "job", name, "duration", duration.String(), "error", err)
		return
	}
	s.logger.Info("job completed", "job", name, "duration", duration.String())
}

// record updates an entry's counters. Callers hold the lock.
func (s *Scheduler) record(e *entry, startedAt time.Time, err error) {
	e.lastRun = startedAt
	e.lastErr = err
	e.runs++
	if err != nil {
		e.failures++
	}
}
