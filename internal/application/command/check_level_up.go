package command

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/otis-hub/otis-rpg/internal/domain/ledger"
	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
	"github.com/otis-hub/otis-rpg/internal/domain/student"
	"github.com/otis-hub/otis-rpg/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK LEVEL UP COMMAND
// Машина повышения уровня. Сравнивает текущий уровень студента с водяным
// знаком, выдаёт ещё не открытые бонусные юниты по рейтингу безумия и
// поднимает водяной знак. Запись об открытии на пару (студент, бонус)
// создаётся не более одного раза; гонка параллельных проверок
// разрешается через get-or-create поверх уникального ограничения.
// ══════════════════════════════════════════════════════════════════════════════

// LevelProvider возвращает текущий уровень студента.
// Реализуется обработчиком запроса профиля.
type LevelProvider interface {
	CurrentLevel(ctx context.Context, studentID int64) (int, string, error)
}

// CheckLevelUpCommand содержит данные команды проверки уровня.
type CheckLevelUpCommand struct {
	// StudentID - идентификатор студенческой записи.
	StudentID int64
}

// Validate проверяет корректность команды.
func (c CheckLevelUpCommand) Validate() error {
	if c.StudentID <= 0 {
		return errors.New("check_level_up: student_id is required")
	}
	return nil
}

// UnlockedUnitDTO - юнит, добавленный в программу при повышении уровня.
type UnlockedUnitDTO struct {
	BonusID    int64  `json:"bonus_id"`
	BonusLevel int    `json:"bonus_level"`
	UnitID     int64  `json:"unit_id"`
	UnitCode   string `json:"unit_code"`
	GroupName  string `json:"group_name"`
}

// CheckLevelUpResult содержит результат проверки уровня.
type CheckLevelUpResult struct {
	// LeveledUp - было ли повышение относительно водяного знака.
	LeveledUp bool `json:"leveled_up"`

	// OldLevel - водяной знак до проверки.
	OldLevel int `json:"old_level"`

	// NewLevel - текущий уровень студента.
	NewLevel int `json:"new_level"`

	// LevelName - имя достигнутого уровня.
	LevelName string `json:"level_name"`

	// Insanity - рейтинг безумия, по которому выбиралась сложность.
	Insanity float64 `json:"insanity"`

	// UnlockedUnits - юниты, добавленные в программу этой проверкой.
	UnlockedUnits []UnlockedUnitDTO `json:"unlocked_units"`
}

// CheckLevelUpHandler обрабатывает команды проверки уровня.
type CheckLevelUpHandler struct {
	studentRepo  student.Repository
	watermarks   student.WatermarkStore
	ledgerReader ledger.Reader
	levels       LevelProvider
	bonuses      rpg.BonusLevelRepository
	unlocks      rpg.BonusUnlockRepository
	eventBus     shared.EventPublisher
	retrier      *retry.Retrier
}

// NewCheckLevelUpHandler создаёт новый обработчик проверки уровня.
// eventBus может быть nil - тогда события не публикуются.
func NewCheckLevelUpHandler(
	studentRepo student.Repository,
	watermarks student.WatermarkStore,
	ledgerReader ledger.Reader,
	levels LevelProvider,
	bonuses rpg.BonusLevelRepository,
	unlocks rpg.BonusUnlockRepository,
	eventBus shared.EventPublisher,
) *CheckLevelUpHandler {
	return &CheckLevelUpHandler{
		studentRepo:  studentRepo,
		watermarks:   watermarks,
		ledgerReader: ledgerReader,
		levels:       levels,
		bonuses:      bonuses,
		unlocks:      unlocks,
		eventBus:     eventBus,
		retrier:      retry.DatabaseRetrier(),
	}
}

// Handle выполняет проверку уровня.
func (h *CheckLevelUpHandler) Handle(ctx context.Context, cmd CheckLevelUpCommand) (*CheckLevelUpResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "CheckLevelUp", shared.ErrValidation, err.Error(), err)
	}

	st, err := h.studentRepo.FindByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, shared.WrapError("command", "CheckLevelUp", shared.ErrNotFound, "student not found", err)
	}

	watermark, err := h.watermarks.LastLevelSeen(ctx, st.ID)
	if err != nil {
		return nil, shared.WrapError("command", "CheckLevelUp", shared.ErrExternalService, "failed to load watermark", err)
	}

	level, levelName, err := h.levels.CurrentLevel(ctx, st.ID)
	if err != nil {
		return nil, err
	}

	result := &CheckLevelUpResult{
		OldLevel:  watermark,
		NewLevel:  level,
		LevelName: levelName,
	}

	// Неактивный семестр и непревышенный водяной знак выглядят
	// одинаково: проверка молча завершается без повышения.
	if !st.Semester.Active || level <= watermark {
		return result, nil
	}
	result.LeveledUp = true

	unlocked, insanity, err := h.grantBonuses(ctx, st, level)
	if err != nil {
		return nil, err
	}
	result.Insanity = insanity
	result.UnlockedUnits = unlocked

	// Водяной знак поднимается даже если ни один бонус не был выдан,
	// иначе пропущенные группы поздравляли бы студента бесконечно.
	if err := h.watermarks.Advance(ctx, st.ID, level); err != nil {
		return nil, shared.WrapError("command", "CheckLevelUp", shared.ErrExternalService, "failed to advance watermark", err)
	}

	h.publish(shared.NewLevelUpEvent(uuid.New().String(), st.ID, watermark, level, levelName))

	return result, nil
}

// grantBonuses выдаёт все ещё не открытые бонусы вплоть до уровня.
func (h *CheckLevelUpHandler) grantBonuses(ctx context.Context, st *student.Student, level int) ([]UnlockedUnitDTO, float64, error) {
	counts, err := h.ledgerReader.DifficultyCountsForStudent(ctx, st.ID)
	if err != nil {
		return nil, 0, shared.WrapError("command", "CheckLevelUp", shared.ErrExternalService, "failed to load difficulty counts", err)
	}
	insanity := rpg.ComputeInsanityRating(counts.B, counts.D, counts.Z)
	difficulty := rpg.PickBonusDifficulty(insanity)

	pending, err := h.bonuses.ListUnclaimedUpTo(ctx, int64(st.UserID), level)
	if err != nil {
		return nil, insanity, shared.WrapError("command", "CheckLevelUp", shared.ErrExternalService, "failed to load unclaimed bonuses", err)
	}

	var unlocked []UnlockedUnitDTO
	for _, bonus := range pending {
		// Группа без юнита нужной сложности пропускается молча.
		unit := bonus.Group.FirstOfDifficulty(difficulty)
		if unit == nil {
			continue
		}

		// Юнит добавляется в программу до записи об открытии. Если
		// запись не удалась, бонус остаётся незаявленным и повторная
		// проверка доводит выдачу до конца; обратный порядок оставлял
		// бы открытие без юнита навсегда.
		if err := h.studentRepo.AddUnitToCurriculum(ctx, st.ID, unit.ID); err != nil {
			return nil, insanity, shared.WrapError("command", "CheckLevelUp", shared.ErrExternalService, "failed to add unit to curriculum", err)
		}

		created, err := h.getOrCreateUnlock(ctx, rpg.BonusLevelUnlock{
			ID:        uuid.New().String(),
			BonusID:   bonus.ID,
			StudentID: st.ID,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			return nil, insanity, shared.WrapError("command", "CheckLevelUp", shared.ErrExternalService, "failed to record unlock", err)
		}
		// Параллельная проверка успела первой: юнит уже выдан.
		if !created {
			continue
		}

		unlocked = append(unlocked, UnlockedUnitDTO{
			BonusID:    bonus.ID,
			BonusLevel: bonus.Level,
			UnitID:     unit.ID,
			UnitCode:   unit.Code,
			GroupName:  bonus.Group.Name,
		})
		h.publish(shared.NewBonusUnlockedEvent(uuid.New().String(), st.ID, bonus.ID, unit.ID, unit.Code, insanity))
	}

	return unlocked, insanity, nil
}

// getOrCreateUnlock создаёт запись об открытии с ретраями на
// временных ошибках хранилища.
func (h *CheckLevelUpHandler) getOrCreateUnlock(ctx context.Context, unlock rpg.BonusLevelUnlock) (bool, error) {
	var created bool
	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		var opErr error
		created, opErr = h.unlocks.GetOrCreate(ctx, unlock)
		if opErr != nil && shared.IsRetryable(opErr) {
			return retry.Retryable(opErr)
		}
		return opErr
	})
	return created, err
}

// publish отправляет событие, если шина подключена.
func (h *CheckLevelUpHandler) publish(event shared.Event) {
	if h.eventBus == nil {
		return
	}
	// Доставка событий не влияет на результат команды.
	_ = h.eventBus.Publish(event)
}
