package query

import (
	"context"
	"errors"
	"time"

	"github.com/otis-hub/otis-rpg/internal/domain/leaderboard"
	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Строит лидерборд пакетным пересчётом: сырые агрегаты всех студентов
// одним запросом, затем бонусы, уровни и сортировка в памяти.
// Кеш - только ускорение; при промахе результат считается заново и
// обязан совпадать с закешированным.
// ══════════════════════════════════════════════════════════════════════════════

// Время жизни кеша лидерборда.
const leaderboardCacheTTL = 5 * time.Minute

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	// SemesterID - фильтр по семестру (0 = все семестры).
	SemesterID int64

	// Limit - количество записей (по умолчанию 50, максимум 500).
	Limit int

	// Offset - смещение для пагинации.
	Offset int

	// DisplayOrder - сортировать для показа (по очкам) вместо
	// порядка списков курса.
	DisplayOrder bool
}

// Validate проверяет корректность параметров запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("get_leaderboard: limit cannot be negative")
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	if q.Limit == 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		return errors.New("get_leaderboard: offset cannot be negative")
	}
	return nil
}

// LeaderboardRowDTO - DTO строки лидерборда.
type LeaderboardRowDTO struct {
	Rank       int     `json:"rank"`
	StudentID  int64   `json:"student_id"`
	Name       string  `json:"name"`
	SemesterID int64   `json:"semester_id"`
	Clubs      float64 `json:"clubs"`
	Hearts     float64 `json:"hearts"`
	Spades     float64 `json:"spades"`
	Diamonds   int     `json:"diamonds"`
	Level      int     `json:"level"`
	LevelName  string  `json:"level_name"`
	Insanity   float64 `json:"insanity"`
}

// GetLeaderboardResult содержит результат запроса лидерборда.
type GetLeaderboardResult struct {
	// Rows - строки лидерборда.
	Rows []LeaderboardRowDTO `json:"rows"`

	// TotalCount - общее количество студентов до пагинации.
	TotalCount int `json:"total_count"`

	// SemesterID - семестр, по которому фильтровали (0 = все).
	SemesterID int64 `json:"semester_id"`

	// FromCache - получен ли результат из кеша.
	FromCache bool `json:"from_cache"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`

	// HasMore - есть ли ещё записи после текущей страницы.
	HasMore bool `json:"has_more"`
}

// GetLeaderboardHandler обрабатывает запросы лидерборда.
type GetLeaderboardHandler struct {
	rowSource leaderboard.RowSource
	levels    rpg.LevelRepository
	rowCache  leaderboard.RowCache
}

// NewGetLeaderboardHandler создаёт новый обработчик запроса лидерборда.
// rowCache может быть nil - тогда каждый запрос считается заново.
func NewGetLeaderboardHandler(
	rowSource leaderboard.RowSource,
	levels rpg.LevelRepository,
	rowCache leaderboard.RowCache,
) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{
		rowSource: rowSource,
		levels:    levels,
		rowCache:  rowCache,
	}
}

// Handle выполняет запрос лидерборда.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrValidation, err.Error(), err)
	}

	rows, fromCache, err := h.loadRows(ctx, query.SemesterID)
	if err != nil {
		return nil, err
	}

	if query.DisplayOrder {
		leaderboard.SortForDisplay(rows)
		leaderboard.AssignRanks(rows)
	}

	total := len(rows)
	page := paginateRows(rows, query.Offset, query.Limit)

	dtos := make([]LeaderboardRowDTO, len(page))
	for i, row := range page {
		dtos[i] = toRowDTO(row)
	}

	return &GetLeaderboardResult{
		Rows:        dtos,
		TotalCount:  total,
		SemesterID:  query.SemesterID,
		FromCache:   fromCache,
		GeneratedAt: time.Now().UTC(),
		HasMore:     query.Offset+len(page) < total,
	}, nil
}

// loadRows возвращает готовые строки: из кеша или пересчётом из леджера.
func (h *GetLeaderboardHandler) loadRows(ctx context.Context, semesterID int64) ([]leaderboard.Row, bool, error) {
	if h.rowCache != nil {
		cached, err := h.rowCache.GetRows(ctx, semesterID)
		if err == nil && len(cached) > 0 {
			return cached, true, nil
		}
		// Промах и недоступность кеша равнозначны: считаем заново.
	}

	rows, err := h.ComputeRows(ctx, semesterID)
	if err != nil {
		return nil, false, err
	}

	if h.rowCache != nil {
		// Ошибка записи в кеш не влияет на результат.
		_ = h.rowCache.SetRows(ctx, semesterID, rows, leaderboardCacheTTL)
	}

	return rows, false, nil
}

// ComputeRows пересчитывает строки лидерборда из леджера, минуя кеш.
// Используется также фоновой пересборкой снапшотов.
func (h *GetLeaderboardHandler) ComputeRows(ctx context.Context, semesterID int64) ([]leaderboard.Row, error) {
	raws, err := h.rowSource.RawScores(ctx, semesterID)
	if err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrExternalService, "failed to load raw scores", err)
	}

	table, err := h.levels.GetTable(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrExternalService, "failed to load level table", err)
	}

	return leaderboard.BuildRows(raws, table), nil
}

// paginateRows применяет пагинацию к строкам.
func paginateRows(rows []leaderboard.Row, offset, limit int) []leaderboard.Row {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

// toRowDTO конвертирует доменную строку в DTO.
func toRowDTO(row leaderboard.Row) LeaderboardRowDTO {
	return LeaderboardRowDTO{
		Rank:       int(row.Rank),
		StudentID:  row.StudentID,
		Name:       row.Name,
		SemesterID: row.SemesterID,
		Clubs:      row.Clubs,
		Hearts:     row.Hearts,
		Spades:     row.Spades,
		Diamonds:   row.Diamonds,
		Level:      row.Level,
		LevelName:  row.LevelName,
		Insanity:   row.Insanity,
	}
}
