package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/otis-hub/otis-rpg/internal/domain/ledger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER READER IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements ledger.Reader for PostgreSQL.
// The sums mirror the aggregation helpers of the ledger package; keeping
// both in sync is what lets the in-memory adapter stand in for this one
// in tests.
type LedgerRepository struct {
	conn *Connection
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

var _ ledger.Reader = (*LedgerRepository)(nil)

// PSetAggregateForUser sums clubs and hours over the user's accepted
// eligible psets across all enrollments.
func (r *LedgerRepository) PSetAggregateForUser(ctx context.Context, userID int64) (ledger.PSetAggregate, error) {
	query := `
		SELECT
			COALESCE(SUM(clubs), 0),
			COALESCE(SUM(clubs) FILTER (WHERE LEFT(unit_code, 1) = 'D'), 0),
			COALESCE(SUM(clubs) FILTER (WHERE LEFT(unit_code, 1) = 'Z'), 0),
			COALESCE(SUM(hours), 0),
			COUNT(*)
		FROM psets
		WHERE user_id = $1 AND status = 'A' AND eligible
	`

	var agg ledger.PSetAggregate
	err := r.conn.QueryRow(ctx, query, userID).Scan(
		&agg.ClubsAny,
		&agg.ClubsD,
		&agg.ClubsZ,
		&agg.Hearts,
		&agg.Count,
	)
	if err != nil {
		return ledger.PSetAggregate{}, fmt.Errorf("failed to aggregate psets: %w", err)
	}
	return agg, nil
}

// SpadeAggregateForUser sums every spade source for the user in one
// round trip. Market guesses count only when closed before now.
func (r *LedgerRepository) SpadeAggregateForUser(ctx context.Context, userID int64, now time.Time) (ledger.SpadeAggregate, error) {
	query := `
		SELECT
			(SELECT COALESCE(SUM(score), 0) FROM exam_attempts WHERE user_id = $1),
			(SELECT COALESCE(SUM(spades), 0) FROM quest_completes WHERE user_id = $1),
			(SELECT COUNT(*) FROM mock_completeds WHERE user_id = $1),
			(SELECT COALESCE(SUM(score), 0) FROM market_guesses WHERE user_id = $1 AND market_ends_at < $2),
			(SELECT COUNT(DISTINCT unit_id) FROM problem_suggestions
				WHERE user_id = $1 AND eligible AND status IN ('SUGG_OK', 'SUGG_NOK')),
			(SELECT COALESCE(SUM(spades_bounty), 0) FROM job_tasks WHERE user_id = $1 AND progress = 'JOB_VFD'),
			(SELECT COALESCE(SUM(spades_score), 0) FROM hanabi_replays WHERE user_id = $1 AND contest_processed)
	`

	var agg ledger.SpadeAggregate
	err := r.conn.QueryRow(ctx, query, userID, now).Scan(
		&agg.ExamScore,
		&agg.QuestSpades,
		&agg.MockCount,
		&agg.MarketScore,
		&agg.SuggestionUnits,
		&agg.JobBounties,
		&agg.HanabiScore,
	)
	if err != nil {
		return ledger.SpadeAggregate{}, fmt.Errorf("failed to aggregate spades: %w", err)
	}
	return agg, nil
}

// DifficultyCountsForStudent builds the pset difficulty histogram for one
// enrollment. Every pset counts here, whatever its status or eligibility.
func (r *LedgerRepository) DifficultyCountsForStudent(ctx context.Context, studentID int64) (ledger.DifficultyCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE LEFT(unit_code, 1) = 'B'),
			COUNT(*) FILTER (WHERE LEFT(unit_code, 1) = 'D'),
			COUNT(*) FILTER (WHERE LEFT(unit_code, 1) = 'Z')
		FROM psets
		WHERE student_id = $1
	`

	var counts ledger.DifficultyCounts
	err := r.conn.QueryRow(ctx, query, studentID).Scan(&counts.B, &counts.D, &counts.Z)
	if err != nil {
		return ledger.DifficultyCounts{}, fmt.Errorf("failed to count difficulties: %w", err)
	}
	return counts, nil
}

// ListPSetsForUser returns the user's accepted eligible psets in upload
// order.
func (r *LedgerRepository) ListPSetsForUser(ctx context.Context, userID int64) ([]ledger.PSet, error) {
	query := `
		SELECT id, student_id, user_id, unit_id, unit_code, status, eligible, clubs, hours, created_at
		FROM psets
		WHERE user_id = $1 AND status = 'A' AND eligible
		ORDER BY created_at, id
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list psets: %w", err)
	}
	defer rows.Close()

	var psets []ledger.PSet
	for rows.Next() {
		var p ledger.PSet
		var status string
		err := rows.Scan(
			&p.ID,
			&p.StudentID,
			&p.UserID,
			&p.UnitID,
			&p.UnitCode,
			&status,
			&p.Eligible,
			&p.Clubs,
			&p.Hours,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pset: %w", err)
		}
		p.Status = ledger.PSetStatus(status)
		psets = append(psets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate psets: %w", err)
	}
	return psets, nil
}
