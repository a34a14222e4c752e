// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"time"

	"github.com/otis-hub/otis-rpg/internal/domain/ledger"
	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
	"github.com/otis-hub/otis-rpg/internal/domain/student"
	"github.com/otis-hub/otis-rpg/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEVEL INFO QUERY
// Пересчитывает профиль студента с нуля по леджеру: четыре метра,
// суммарный уровень, имя уровня и доступные бонусные уровни.
// Ничего не пишет - это чистое чтение, результат не зависит от кеша.
// ══════════════════════════════════════════════════════════════════════════════

// GetLevelInfoQuery содержит параметры запроса профиля.
type GetLevelInfoQuery struct {
	// StudentID - идентификатор студенческой записи.
	StudentID int64

	// At - момент времени для отсечки рынков (нулевое = сейчас).
	At time.Time
}

// Validate проверяет корректность параметров запроса.
func (q *GetLevelInfoQuery) Validate() error {
	if q.StudentID <= 0 {
		return errors.New("get_level_info: student_id is required")
	}
	if q.At.IsZero() {
		q.At = time.Now().UTC()
	}
	return nil
}

// MeterDTO - DTO одного метра профиля.
type MeterDTO struct {
	Name     string  `json:"name"`
	Emoji    string  `json:"emoji"`
	Unit     string  `json:"unit"`
	Color    string  `json:"color"`
	Value    float64 `json:"value"`
	Level    int     `json:"level"`
	StrLevel string  `json:"str_level"`
	Percent  int     `json:"percent"`
	Needed   float64 `json:"needed"`
	Thresh   int     `json:"thresh"`
}

// BonusLevelDTO - DTO доступного бонусного уровня.
type BonusLevelDTO struct {
	ID        int64  `json:"id"`
	Level     int    `json:"level"`
	GroupName string `json:"group_name"`
}

// LevelInfoResult содержит пересчитанный профиль студента.
type LevelInfoResult struct {
	StudentID int64 `json:"student_id"`

	// Meters - четыре метра профиля.
	Clubs    MeterDTO `json:"clubs"`
	Hearts   MeterDTO `json:"hearts"`
	Spades   MeterDTO `json:"spades"`
	Diamonds MeterDTO `json:"diamonds"`

	// LevelNumber - суммарный уровень по четырём метрам.
	LevelNumber int `json:"level_number"`

	// LevelName - имя наибольшего достигнутого порога.
	LevelName string `json:"level_name"`

	// StrImLevel - строковая добавка мнимого уровня ("", "+ i", "+ 2i").
	StrImLevel string `json:"str_im_level"`

	// IsMaxed - достигнут ли максимальный порог таблицы уровней.
	IsMaxed bool `json:"is_maxed"`

	// BonusLevels - бонусные уровни, доступные на текущем уровне.
	BonusLevels []BonusLevelDTO `json:"bonus_levels"`

	// Разбивка пик по источникам.
	SpadeBreakdown ledger.SpadeAggregate `json:"spade_breakdown"`

	// PSetCount - количество засчитанных псетов.
	PSetCount int `json:"pset_count"`

	// ActiveWeeks - количество различных ISO-недель с принятыми псетами.
	ActiveWeeks int `json:"active_weeks"`

	// GeneratedAt - время пересчёта.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetLevelInfoHandler обрабатывает запросы профиля.
type GetLevelInfoHandler struct {
	studentRepo  student.Repository
	profiles     student.ProfileReader
	ledgerReader ledger.Reader
	achievements rpg.AchievementRepository
	levels       rpg.LevelRepository
	bonuses      rpg.BonusLevelRepository
}

// NewGetLevelInfoHandler создаёт новый обработчик запроса профиля.
func NewGetLevelInfoHandler(
	studentRepo student.Repository,
	profiles student.ProfileReader,
	ledgerReader ledger.Reader,
	achievements rpg.AchievementRepository,
	levels rpg.LevelRepository,
	bonuses rpg.BonusLevelRepository,
) *GetLevelInfoHandler {
	return &GetLevelInfoHandler{
		studentRepo:  studentRepo,
		profiles:     profiles,
		ledgerReader: ledgerReader,
		achievements: achievements,
		levels:       levels,
		bonuses:      bonuses,
	}
}

// Handle выполняет пересчёт профиля.
func (h *GetLevelInfoHandler) Handle(ctx context.Context, query GetLevelInfoQuery) (*LevelInfoResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLevelInfo", shared.ErrValidation, err.Error(), err)
	}

	st, err := h.studentRepo.FindByID(ctx, query.StudentID)
	if err != nil {
		return nil, shared.WrapError("query", "GetLevelInfo", shared.ErrNotFound, "student not found", err)
	}
	userID := int64(st.UserID)

	psetAgg, err := h.ledgerReader.PSetAggregateForUser(ctx, userID)
	if err != nil {
		return nil, shared.WrapError("query", "GetLevelInfo", shared.ErrExternalService, "failed to aggregate psets", err)
	}

	spadeAgg, err := h.ledgerReader.SpadeAggregateForUser(ctx, userID, query.At)
	if err != nil {
		return nil, shared.WrapError("query", "GetLevelInfo", shared.ErrExternalService, "failed to aggregate spades", err)
	}

	diamonds, err := h.achievements.DiamondTotal(ctx, userID)
	if err != nil {
		return nil, shared.WrapError("query", "GetLevelInfo", shared.ErrExternalService, "failed to aggregate diamonds", err)
	}

	// Настройка прогресс-баров не критична: без профиля берём false.
	dynamicProgress, err := h.profiles.DynamicProgress(ctx, st.UserID)
	if err != nil {
		dynamicProgress = false
	}

	meters := rpg.FourMeters{
		Clubs:    rpg.ClubMeter(int(psetAgg.TotalClubs(rpg.BonusDUnit, rpg.BonusZUnit)), dynamicProgress),
		Hearts:   rpg.HeartMeter(psetAgg.Hearts, dynamicProgress),
		Spades:   rpg.SpadeMeter(spadeAgg.Total(), dynamicProgress),
		Diamonds: rpg.DiamondMeter(diamonds, dynamicProgress),
	}
	levelNumber := meters.LevelNumber()

	table, err := h.levels.GetTable(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetLevelInfo", shared.ErrExternalService, "failed to load level table", err)
	}

	bonusLevels, err := h.bonuses.ListUpTo(ctx, levelNumber)
	if err != nil {
		return nil, shared.WrapError("query", "GetLevelInfo", shared.ErrExternalService, "failed to load bonus levels", err)
	}

	bonusDTOs := make([]BonusLevelDTO, len(bonusLevels))
	for i, b := range bonusLevels {
		bonusDTOs[i] = BonusLevelDTO{
			ID:        b.ID,
			Level:     b.Level,
			GroupName: b.Group.Name,
		}
	}

	// Статистика активности не влияет на уровень, её отказ не фатален.
	activeWeeks := 0
	if psets, err := h.ledgerReader.ListPSetsForUser(ctx, userID); err == nil {
		stamps := make([]time.Time, len(psets))
		for i, p := range psets {
			stamps[i] = p.CreatedAt
		}
		activeWeeks = timeutil.DistinctISOWeeks(stamps)
	}

	return &LevelInfoResult{
		StudentID:      st.ID,
		Clubs:          toMeterDTO(meters.Clubs),
		Hearts:         toMeterDTO(meters.Hearts),
		Spades:         toMeterDTO(meters.Spades),
		Diamonds:       toMeterDTO(meters.Diamonds),
		LevelNumber:    levelNumber,
		LevelName:      table.NameFor(levelNumber),
		StrImLevel:     meters.StrImLevel(),
		IsMaxed:        table.IsMaxed(levelNumber),
		BonusLevels:    bonusDTOs,
		SpadeBreakdown: spadeAgg,
		PSetCount:      psetAgg.Count,
		ActiveWeeks:    activeWeeks,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// CurrentLevel возвращает уровень и имя уровня студента.
// Используется машиной бонусов, которой не нужен весь профиль.
func (h *GetLevelInfoHandler) CurrentLevel(ctx context.Context, studentID int64) (int, string, error) {
	result, err := h.Handle(ctx, GetLevelInfoQuery{StudentID: studentID})
	if err != nil {
		return 0, "", err
	}
	return result.LevelNumber, result.LevelName, nil
}

// toMeterDTO конвертирует метр в DTO.
func toMeterDTO(m rpg.Meter) MeterDTO {
	return MeterDTO{
		Name:     m.Name,
		Emoji:    m.Emoji,
		Unit:     m.Unit,
		Color:    m.Color,
		Value:    m.Value,
		Level:    m.Level(),
		StrLevel: m.StrLevel(),
		Percent:  m.Percent(),
		Needed:   m.Needed(),
		Thresh:   m.Thresh(),
	}
}
