package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create semesters, students and user profiles
-- Version: 001

CREATE TABLE IF NOT EXISTS semesters (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    active BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_semesters_active ON semesters(active) WHERE active;

-- One student record per (user, semester) enrollment.
CREATE TABLE IF NOT EXISTS students (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    first_name VARCHAR(100) NOT NULL DEFAULT '',
    last_name VARCHAR(100) NOT NULL DEFAULT '',
    semester_id BIGINT NOT NULL REFERENCES semesters(id),
    track VARCHAR(1) NOT NULL DEFAULT 'A',
    legit BOOLEAN NOT NULL DEFAULT TRUE,
    last_level_seen INTEGER NOT NULL DEFAULT 0,
    enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(user_id, semester_id),
    CONSTRAINT valid_track CHECK (track IN ('A', 'B', 'C')),
    CONSTRAINT valid_watermark CHECK (last_level_seen >= 0)
);

CREATE INDEX IF NOT EXISTS idx_students_user_id ON students(user_id);
CREATE INDEX IF NOT EXISTS idx_students_semester ON students(semester_id);

-- Units added to a student's curriculum (bonus grants land here).
CREATE TABLE IF NOT EXISTS student_curriculum (
    id BIGSERIAL PRIMARY KEY,
    student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    unit_id BIGINT NOT NULL,
    added_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(student_id, unit_id)
);

CREATE INDEX IF NOT EXISTS idx_student_curriculum_student ON student_curriculum(student_id);

-- Per-user display settings, keyed by user rather than enrollment.
CREATE TABLE IF NOT EXISTS user_profiles (
    user_id BIGINT PRIMARY KEY,
    dynamic_progress BOOLEAN NOT NULL DEFAULT FALSE,
    last_seen_at TIMESTAMP WITH TIME ZONE
);
`

const migration001Down = `
DROP TABLE IF EXISTS user_profiles;
DROP TABLE IF EXISTS student_curriculum;
DROP TABLE IF EXISTS students;
DROP TABLE IF EXISTS semesters;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE LEDGER
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create activity ledger tables
-- Version: 002
-- Purpose: Raw records the scoring engine aggregates; written elsewhere,
-- read-only here.

CREATE TABLE IF NOT EXISTS psets (
    id BIGSERIAL PRIMARY KEY,
    student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    user_id BIGINT NOT NULL,
    unit_id BIGINT NOT NULL,
    unit_code VARCHAR(10) NOT NULL DEFAULT '',
    status VARCHAR(1) NOT NULL DEFAULT 'P',
    eligible BOOLEAN NOT NULL DEFAULT TRUE,
    clubs INTEGER,
    hours DOUBLE PRECISION,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_pset_status CHECK (status IN ('A', 'P', 'R'))
);

CREATE INDEX IF NOT EXISTS idx_psets_student ON psets(student_id);
CREATE INDEX IF NOT EXISTS idx_psets_user ON psets(user_id);
CREATE INDEX IF NOT EXISTS idx_psets_counting ON psets(user_id) WHERE status = 'A' AND eligible;

CREATE TABLE IF NOT EXISTS exam_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    score INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_exam_attempts_user ON exam_attempts(user_id);

CREATE TABLE IF NOT EXISTS quest_completes (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    title VARCHAR(255) NOT NULL DEFAULT '',
    spades DOUBLE PRECISION NOT NULL DEFAULT 0,
    category VARCHAR(2) NOT NULL DEFAULT 'MS',
    completed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_quest_category CHECK (category IN ('PR', 'BR', 'VD', 'WK', 'US', 'UG', 'MS'))
);

CREATE INDEX IF NOT EXISTS idx_quest_completes_user ON quest_completes(user_id);

CREATE TABLE IF NOT EXISTS mock_completeds (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mock_completeds_user ON mock_completeds(user_id);

CREATE TABLE IF NOT EXISTS market_guesses (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    score DOUBLE PRECISION NOT NULL DEFAULT 0,
    market_ends_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_market_guesses_user ON market_guesses(user_id);

CREATE TABLE IF NOT EXISTS problem_suggestions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    unit_id BIGINT NOT NULL,
    status VARCHAR(10) NOT NULL DEFAULT 'SUGG_NEW',
    eligible BOOLEAN NOT NULL DEFAULT TRUE,

    CONSTRAINT valid_suggestion_status CHECK (status IN ('SUGG_NEW', 'SUGG_OK', 'SUGG_NOK', 'SUGG_REJ'))
);

CREATE INDEX IF NOT EXISTS idx_problem_suggestions_user ON problem_suggestions(user_id);

CREATE TABLE IF NOT EXISTS job_tasks (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    spades_bounty INTEGER NOT NULL DEFAULT 0,
    progress VARCHAR(10) NOT NULL DEFAULT 'JOB_NEW',

    CONSTRAINT valid_job_progress CHECK (progress IN ('JOB_NEW', 'JOB_WIP', 'JOB_SUB', 'JOB_VFD'))
);

CREATE INDEX IF NOT EXISTS idx_job_tasks_user ON job_tasks(user_id);

CREATE TABLE IF NOT EXISTS hanabi_replays (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    spades_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    contest_processed BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_hanabi_replays_user ON hanabi_replays(user_id);
`

const migration002Down = `
DROP TABLE IF EXISTS hanabi_replays;
DROP TABLE IF EXISTS job_tasks;
DROP TABLE IF EXISTS problem_suggestions;
DROP TABLE IF EXISTS market_guesses;
DROP TABLE IF EXISTS mock_completeds;
DROP TABLE IF EXISTS quest_completes;
DROP TABLE IF EXISTS exam_attempts;
DROP TABLE IF EXISTS psets;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE PROGRESSION
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create progression tables
-- Version: 003
-- Purpose: Level names, secret bonus units, achievements and the palace.

-- Sparse table of named level thresholds.
CREATE TABLE IF NOT EXISTS levels (
    threshold INTEGER PRIMARY KEY,
    name VARCHAR(100) NOT NULL,

    CONSTRAINT valid_threshold CHECK (threshold >= 0)
);

CREATE TABLE IF NOT EXISTS unit_groups (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL
);

CREATE TABLE IF NOT EXISTS units (
    id BIGSERIAL PRIMARY KEY,
    code VARCHAR(10) NOT NULL,
    group_id BIGINT NOT NULL REFERENCES unit_groups(id),
    position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_units_group ON units(group_id, position);

-- Secret unit groups that unlock at a given total level.
CREATE TABLE IF NOT EXISTS bonus_levels (
    id BIGSERIAL PRIMARY KEY,
    level INTEGER NOT NULL,
    group_id BIGINT NOT NULL UNIQUE REFERENCES unit_groups(id),

    CONSTRAINT valid_bonus_level CHECK (level >= 0)
);

CREATE INDEX IF NOT EXISTS idx_bonus_levels_level ON bonus_levels(level);

-- At most one unlock per (student, bonus); the unique constraint is what
-- makes concurrent grant attempts collapse into a single row.
CREATE TABLE IF NOT EXISTS bonus_level_unlocks (
    id UUID PRIMARY KEY,
    bonus_id BIGINT NOT NULL REFERENCES bonus_levels(id) ON DELETE CASCADE,
    student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    unlocked_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(student_id, bonus_id)
);

CREATE INDEX IF NOT EXISTS idx_bonus_level_unlocks_student ON bonus_level_unlocks(student_id);

CREATE TABLE IF NOT EXISTS achievements (
    id BIGSERIAL PRIMARY KEY,
    code VARCHAR(26) NOT NULL DEFAULT '',
    name VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    diamonds INTEGER NOT NULL DEFAULT 0,
    creator_user_id BIGINT NOT NULL DEFAULT 0,
    always_show_image BOOLEAN NOT NULL DEFAULT FALSE
);

-- Empty codes mean staff-granted achievements; only real codes are unique.
CREATE UNIQUE INDEX IF NOT EXISTS idx_achievements_code ON achievements(code) WHERE code != '';

CREATE TABLE IF NOT EXISTS achievement_unlocks (
    user_id BIGINT NOT NULL,
    achievement_id BIGINT NOT NULL REFERENCES achievements(id) ON DELETE CASCADE,
    unlocked_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY(user_id, achievement_id)
);

CREATE INDEX IF NOT EXISTS idx_achievement_unlocks_user ON achievement_unlocks(user_id);

-- Ruby palace carvings, one per user.
CREATE TABLE IF NOT EXISTS palace_carvings (
    user_id BIGINT PRIMARY KEY,
    display_name VARCHAR(100) NOT NULL,
    message VARCHAR(1024) NOT NULL DEFAULT '',
    hyperlink VARCHAR(255) NOT NULL DEFAULT '',
    visible BOOLEAN NOT NULL DEFAULT TRUE
);
`

const migration003Down = `
DROP TABLE IF EXISTS palace_carvings;
DROP TABLE IF EXISTS achievement_unlocks;
DROP TABLE IF EXISTS achievements;
DROP TABLE IF EXISTS bonus_level_unlocks;
DROP TABLE IF EXISTS bonus_levels;
DROP TABLE IF EXISTS units;
DROP TABLE IF EXISTS unit_groups;
DROP TABLE IF EXISTS levels;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE LEADERBOARD SNAPSHOTS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create leaderboard snapshots
-- Version: 004
-- Purpose: Periodic materialized rankings for fast reads and rank diffs.

-- Rows are stored as a JSONB document: snapshots are read and written
-- whole, never queried row by row.
CREATE TABLE IF NOT EXISTS leaderboard_snapshots (
    id UUID PRIMARY KEY,
    semester_id BIGINT NOT NULL DEFAULT 0,
    generated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    rows JSONB NOT NULL DEFAULT '[]'::jsonb
);

CREATE INDEX IF NOT EXISTS idx_leaderboard_snapshots_semester_at
    ON leaderboard_snapshots(semester_id, generated_at DESC);
`

const migration004Down = `
DROP TABLE IF EXISTS leaderboard_snapshots;
`
