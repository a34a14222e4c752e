package config

import (
	"errors"
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Feature flag names.
const (
	// FeatureLeaderboardRankChange shows rank deltas between snapshots.
	FeatureLeaderboardRankChange = "leaderboard.rank_change"

	// FeatureLeaderboardCache serves leaderboard rows from Redis.
	FeatureLeaderboardCache = "leaderboard.cache"

	// FeatureProgressionBonuses grants secret units on level-up.
	FeatureProgressionBonuses = "progression.bonuses"

	// FeatureProgressionPalace opens ruby palace carvings to maxed students.
	FeatureProgressionPalace = "progression.palace"

	// FeatureExperimentalRankEvents publishes rank_changed events after
	// rebuilds. Off by default.
	FeatureExperimentalRankEvents = "experimental.rank_events"
)

var (
	ErrFeatureNotFound       = errors.New("feature not found")
	ErrInvalidRolloutPercent = errors.New("rollout percent must be 0-100")
)

// Feature is one toggle with a gradual-rollout percentage.
type Feature struct {
	Name           string
	Description    string
	Enabled        bool
	RolloutPercent int
}

// FeatureContext carries who is asking, for rollout bucketing and
// per-user overrides.
type FeatureContext struct {
	UserID  int64
	IsStaff bool
}

// FeatureFlags evaluates toggles. Rollout buckets come from consistent
// hashing, so a user keeps their bucket across restarts.
type FeatureFlags struct {
	mu        sync.RWMutex
	features  map[string]*Feature
	overrides map[int64]map[string]bool
}

// LoadFeatureFlags builds the catalog with defaults, then applies
// environment overrides of the form FEATURE_<NAME>=true|false|<percent>
// (dots become underscores: FEATURE_EXPERIMENTAL_RANK_EVENTS=50).
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:  make(map[string]*Feature),
		overrides: make(map[int64]map[string]bool),
	}

	ff.declare(FeatureLeaderboardRankChange, "show rank changes between snapshots", 100)
	ff.declare(FeatureLeaderboardCache, "cache leaderboard rows in redis", 100)
	ff.declare(FeatureProgressionBonuses, "grant secret units on level-up", 100)
	ff.declare(FeatureProgressionPalace, "ruby palace carvings for maxed students", 100)
	ff.declare(FeatureExperimentalRankEvents, "emit rank_changed events after rebuilds", 0)

	for name, feature := range ff.features {
		envKey := "FEATURE_" + strings.ReplaceAll(strings.ToUpper(name), ".", "_")
		raw := os.Getenv(envKey)
		if raw == "" {
			continue
		}
		if b, err := strconv.ParseBool(raw); err == nil {
			feature.Enabled = b
			feature.RolloutPercent = 0
			if b {
				feature.RolloutPercent = 100
			}
			continue
		}
		if p, err := strconv.Atoi(raw); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}

	return ff
}

func (ff *FeatureFlags) declare(name, description string, rollout int) {
	ff.features[name] = &Feature{
		Name:           name,
		Description:    description,
		Enabled:        rollout > 0,
		RolloutPercent: rollout,
	}
}

// IsEnabled evaluates a flag for the given context. Order of
// precedence: per-user override, staff, flag state, rollout bucket.
func (ff *FeatureFlags) IsEnabled(name string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if ctx != nil && ctx.UserID != 0 {
		if enabled, ok := ff.overrides[ctx.UserID][name]; ok {
			return enabled
		}
	}

	feature, ok := ff.features[name]
	if !ok {
		return false
	}
	if ctx != nil && ctx.IsStaff {
		return true
	}
	if !feature.Enabled {
		return false
	}
	if feature.RolloutPercent >= 100 {
		return true
	}
	if ctx == nil || ctx.UserID == 0 {
		return false
	}
	return rolloutBucket(name, ctx.UserID) < feature.RolloutPercent
}

// rolloutBucket maps a (feature, user) pair to a stable bucket 0-99.
func rolloutBucket(name string, userID int64) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	h.Write([]byte(strconv.FormatInt(userID, 10)))
	return int(h.Sum32() % 100)
}

// SetUserOverride pins a flag for one user, bypassing rollout.
func (ff *FeatureFlags) SetUserOverride(userID int64, name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.overrides[userID] == nil {
		ff.overrides[userID] = make(map[string]bool)
	}
	ff.overrides[userID][name] = enabled
}

// SetRolloutPercent moves a flag's rollout at runtime.
func (ff *FeatureFlags) SetRolloutPercent(name string, percent int) error {
	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[name]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.RolloutPercent = percent
	feature.Enabled = percent > 0
	return nil
}
