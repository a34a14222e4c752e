package query

import (
	"context"
	"errors"
	"time"

	"github.com/otis-hub/otis-rpg/internal/domain/leaderboard"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT RANK QUERY
// Возвращает позицию студента в последнем снапшоте лидерборда вместе
// с соседями сверху и снизу. Читает только снапшоты - живой пересчёт
// остаётся за GetLeaderboard и фоновой пересборкой.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentRankQuery содержит параметры запроса позиции.
type GetStudentRankQuery struct {
	// StudentID - идентификатор студенческой записи.
	StudentID int64

	// SemesterID - семестр снапшота (0 = все семестры).
	SemesterID int64

	// NeighborCount - сколько соседей показать с каждой стороны
	// (по умолчанию 2, максимум 10).
	NeighborCount int
}

// Validate проверяет корректность параметров запроса.
func (q *GetStudentRankQuery) Validate() error {
	if q.StudentID <= 0 {
		return errors.New("get_student_rank: student_id is required")
	}
	if q.NeighborCount < 0 {
		return errors.New("get_student_rank: neighbor_count cannot be negative")
	}
	if q.NeighborCount == 0 {
		q.NeighborCount = 2
	}
	if q.NeighborCount > 10 {
		q.NeighborCount = 10
	}
	return nil
}

// StudentRankResult содержит позицию студента в лидерборде.
type StudentRankResult struct {
	// Row - строка студента с рангом.
	Row LeaderboardRowDTO `json:"row"`

	// TotalCount - количество студентов в снапшоте.
	TotalCount int `json:"total_count"`

	// Above - соседи выше по списку, в порядке показа.
	Above []LeaderboardRowDTO `json:"above"`

	// Below - соседи ниже по списку, в порядке показа.
	Below []LeaderboardRowDTO `json:"below"`

	// SnapshotAt - время генерации снапшота.
	SnapshotAt time.Time `json:"snapshot_at"`
}

// GetStudentRankHandler обрабатывает запросы позиции студента.
type GetStudentRankHandler struct {
	snapshots leaderboard.SnapshotRepository
}

// NewGetStudentRankHandler создаёт новый обработчик запроса позиции.
func NewGetStudentRankHandler(snapshots leaderboard.SnapshotRepository) *GetStudentRankHandler {
	return &GetStudentRankHandler{snapshots: snapshots}
}

// Handle выполняет запрос позиции.
func (h *GetStudentRankHandler) Handle(ctx context.Context, query GetStudentRankQuery) (*StudentRankResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetStudentRank", shared.ErrValidation, err.Error(), err)
	}

	snapshot, err := h.snapshots.GetLatestSnapshot(ctx, query.SemesterID)
	if err != nil {
		if errors.Is(err, leaderboard.ErrSnapshotNotFound) || shared.IsNotFound(err) {
			return nil, shared.WrapError("query", "GetStudentRank", shared.ErrNotFound, "no leaderboard snapshot yet", err)
		}
		return nil, shared.WrapError("query", "GetStudentRank", shared.ErrExternalService, "failed to load snapshot", err)
	}

	row := snapshot.GetByStudent(query.StudentID)
	if row == nil {
		return nil, shared.WrapError("query", "GetStudentRank", shared.ErrNotFound, "student not in leaderboard", nil)
	}

	idx := -1
	for i := range snapshot.Rows {
		if snapshot.Rows[i].StudentID == query.StudentID {
			idx = i
			break
		}
	}

	from := idx - query.NeighborCount
	if from < 0 {
		from = 0
	}
	to := idx + query.NeighborCount + 1
	if to > len(snapshot.Rows) {
		to = len(snapshot.Rows)
	}

	above := make([]LeaderboardRowDTO, 0, idx-from)
	for _, r := range snapshot.Rows[from:idx] {
		above = append(above, toRowDTO(r))
	}
	below := make([]LeaderboardRowDTO, 0, to-idx-1)
	for _, r := range snapshot.Rows[idx+1 : to] {
		below = append(below, toRowDTO(r))
	}

	return &StudentRankResult{
		Row:        toRowDTO(*row),
		TotalCount: snapshot.Count(),
		Above:      above,
		Below:      below,
		SnapshotAt: snapshot.GeneratedAt,
	}, nil
}
