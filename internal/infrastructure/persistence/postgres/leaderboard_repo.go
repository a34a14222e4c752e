package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/otis-hub/otis-rpg/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRepository implements leaderboard.RowSource and
// leaderboard.SnapshotRepository for PostgreSQL.
type LeaderboardRepository struct {
	conn *Connection
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(conn *Connection) *LeaderboardRepository {
	return &LeaderboardRepository{conn: conn}
}

// Compile-time interface checks.
var (
	_ leaderboard.RowSource          = (*LeaderboardRepository)(nil)
	_ leaderboard.SnapshotRepository = (*LeaderboardRepository)(nil)
)

// rawScoresQuery gathers every meter ingredient for all students of a
// semester in a single round trip. Club, heart, diamond and spade sums
// are grouped per user (they span enrollments); the pset difficulty
// histogram is grouped per enrollment and, unlike the level-up path,
// counts eligible psets only.
const rawScoresQuery = `
	WITH pset_user AS (
		SELECT user_id,
			COALESCE(SUM(clubs), 0) AS clubs_any,
			COALESCE(SUM(clubs) FILTER (WHERE LEFT(unit_code, 1) = 'D'), 0) AS clubs_d,
			COALESCE(SUM(clubs) FILTER (WHERE LEFT(unit_code, 1) = 'Z'), 0) AS clubs_z,
			COALESCE(SUM(hours), 0) AS hearts
		FROM psets
		WHERE status = 'A' AND eligible
		GROUP BY user_id
	),
	pset_hist AS (
		SELECT student_id,
			COUNT(*) FILTER (WHERE LEFT(unit_code, 1) = 'B') AS b,
			COUNT(*) FILTER (WHERE LEFT(unit_code, 1) = 'D') AS d,
			COUNT(*) FILTER (WHERE LEFT(unit_code, 1) = 'Z') AS z
		FROM psets
		WHERE eligible
		GROUP BY student_id
	),
	diamonds AS (
		SELECT ul.user_id, COALESCE(SUM(a.diamonds), 0) AS total
		FROM achievement_unlocks ul
		JOIN achievements a ON a.id = ul.achievement_id
		GROUP BY ul.user_id
	),
	exams AS (
		SELECT user_id, COALESCE(SUM(score), 0) AS total
		FROM exam_attempts GROUP BY user_id
	),
	quests AS (
		SELECT user_id, COALESCE(SUM(spades), 0) AS total
		FROM quest_completes GROUP BY user_id
	),
	mocks AS (
		SELECT user_id, COUNT(*) AS total
		FROM mock_completeds GROUP BY user_id
	),
	guesses AS (
		SELECT user_id, COALESCE(SUM(score), 0) AS total
		FROM market_guesses WHERE market_ends_at < NOW() GROUP BY user_id
	),
	suggestions AS (
		SELECT user_id, COUNT(DISTINCT unit_id) AS total
		FROM problem_suggestions
		WHERE eligible AND status IN ('SUGG_OK', 'SUGG_NOK')
		GROUP BY user_id
	),
	jobs AS (
		SELECT user_id, COALESCE(SUM(spades_bounty), 0) AS total
		FROM job_tasks WHERE progress = 'JOB_VFD' GROUP BY user_id
	),
	hanabi AS (
		SELECT user_id, COALESCE(SUM(spades_score), 0) AS total
		FROM hanabi_replays WHERE contest_processed GROUP BY user_id
	)
	SELECT
		s.id, s.user_id, s.first_name, s.last_name, s.semester_id, s.legit,
		COALESCE(pu.clubs_any, 0), COALESCE(pu.clubs_d, 0), COALESCE(pu.clubs_z, 0),
		COALESCE(pu.hearts, 0),
		COALESCE(di.total, 0),
		COALESCE(e.total, 0), COALESCE(q.total, 0), COALESCE(m.total, 0),
		COALESCE(g.total, 0), COALESCE(su.total, 0), COALESCE(j.total, 0),
		COALESCE(h.total, 0),
		COALESCE(ph.b, 0), COALESCE(ph.d, 0), COALESCE(ph.z, 0),
		p.last_seen_at
	FROM students s
	LEFT JOIN pset_user pu ON pu.user_id = s.user_id
	LEFT JOIN pset_hist ph ON ph.student_id = s.id
	LEFT JOIN diamonds di ON di.user_id = s.user_id
	LEFT JOIN exams e ON e.user_id = s.user_id
	LEFT JOIN quests q ON q.user_id = s.user_id
	LEFT JOIN mocks m ON m.user_id = s.user_id
	LEFT JOIN guesses g ON g.user_id = s.user_id
	LEFT JOIN suggestions su ON su.user_id = s.user_id
	LEFT JOIN jobs j ON j.user_id = s.user_id
	LEFT JOIN hanabi h ON h.user_id = s.user_id
	LEFT JOIN user_profiles p ON p.user_id = s.user_id
	WHERE $1 = 0 OR s.semester_id = $1
`

// RawScores returns the raw aggregates for students of a semester.
// A zero semesterID covers every semester.
func (r *LeaderboardRepository) RawScores(ctx context.Context, semesterID int64) ([]leaderboard.RawScore, error) {
	rows, err := r.conn.Query(ctx, rawScoresQuery, semesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query raw scores: %w", err)
	}
	defer rows.Close()

	var raws []leaderboard.RawScore
	for rows.Next() {
		var raw leaderboard.RawScore
		var lastSeen *time.Time
		err := rows.Scan(
			&raw.StudentID,
			&raw.UserID,
			&raw.FirstName,
			&raw.LastName,
			&raw.SemesterID,
			&raw.Legit,
			&raw.ClubsAny,
			&raw.ClubsD,
			&raw.ClubsZ,
			&raw.Hearts,
			&raw.Diamonds,
			&raw.ExamScore,
			&raw.QuestSpades,
			&raw.MockCount,
			&raw.MarketScore,
			&raw.SuggestionUnits,
			&raw.JobBounties,
			&raw.HanabiScore,
			&raw.PSetB,
			&raw.PSetD,
			&raw.PSetZ,
			&lastSeen,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raw score: %w", err)
		}
		if lastSeen != nil {
			raw.LastSeen = *lastSeen
		}
		raws = append(raws, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raw scores: %w", err)
	}
	return raws, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Snapshots
// ─────────────────────────────────────────────────────────────────────────────

// SaveSnapshot stores a snapshot with its rows as one JSONB document.
func (r *LeaderboardRepository) SaveSnapshot(ctx context.Context, snapshot *leaderboard.Snapshot) error {
	rowsJSON, err := json.Marshal(snapshot.Rows)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot rows: %w", err)
	}

	query := `
		INSERT INTO leaderboard_snapshots (id, semester_id, generated_at, rows)
		VALUES ($1, $2, $3, $4)
	`

	_, err = r.conn.Exec(ctx, query, snapshot.ID, snapshot.SemesterID, snapshot.GeneratedAt, rowsJSON)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// GetLatestSnapshot returns the most recent snapshot for a semester.
func (r *LeaderboardRepository) GetLatestSnapshot(ctx context.Context, semesterID int64) (*leaderboard.Snapshot, error) {
	query := `
		SELECT id, semester_id, generated_at, rows
		FROM leaderboard_snapshots
		WHERE semester_id = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`

	var snap leaderboard.Snapshot
	var rowsJSON []byte
	err := r.conn.QueryRow(ctx, query, semesterID).Scan(&snap.ID, &snap.SemesterID, &snap.GeneratedAt, &rowsJSON)
	if err != nil {
		if IsNoRows(err) {
			return nil, leaderboard.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if err := json.Unmarshal(rowsJSON, &snap.Rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot rows: %w", err)
	}
	snap.RebuildIndex()
	return &snap, nil
}

// DeleteOldSnapshots removes snapshots generated before olderThan and
// returns how many were deleted.
func (r *LeaderboardRepository) DeleteOldSnapshots(ctx context.Context, olderThan time.Time) (int, error) {
	query := `DELETE FROM leaderboard_snapshots WHERE generated_at < $1`

	tag, err := r.conn.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
