// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDEEM ACHIEVEMENT COMMAND
// Погашение секретного кода достижения. Повторное погашение не ошибка:
// команда сообщает, что достижение уже было открыто, и ничего не меняет.
// ══════════════════════════════════════════════════════════════════════════════

// RedeemAchievementCommand содержит данные команды погашения кода.
type RedeemAchievementCommand struct {
	// UserID - пользователь, вводящий код.
	UserID int64

	// Code - секретный код достижения.
	Code string
}

// Validate проверяет корректность команды.
func (c *RedeemAchievementCommand) Validate() error {
	if c.UserID <= 0 {
		return errors.New("redeem_achievement: user_id is required")
	}
	c.Code = strings.TrimSpace(strings.ToLower(c.Code))
	if !rpg.AchievementCode(c.Code).IsValid() {
		return rpg.ErrInvalidAchievementCode
	}
	return nil
}

// RedeemAchievementResult содержит результат погашения кода.
type RedeemAchievementResult struct {
	// AchievementID - открытое достижение.
	AchievementID int64 `json:"achievement_id"`

	// Name - название достижения.
	Name string `json:"name"`

	// Description - описание достижения.
	Description string `json:"description"`

	// Diamonds - количество бубен за достижение.
	Diamonds int `json:"diamonds"`

	// AlreadyUnlocked - было ли достижение открыто ранее.
	AlreadyUnlocked bool `json:"already_unlocked"`
}

// RedeemAchievementHandler обрабатывает команды погашения кодов.
type RedeemAchievementHandler struct {
	achievements rpg.AchievementRepository
	unlocks      rpg.AchievementUnlockRepository
	eventBus     shared.EventPublisher
}

// NewRedeemAchievementHandler создаёт новый обработчик погашения кодов.
// eventBus может быть nil - тогда события не публикуются.
func NewRedeemAchievementHandler(
	achievements rpg.AchievementRepository,
	unlocks rpg.AchievementUnlockRepository,
	eventBus shared.EventPublisher,
) *RedeemAchievementHandler {
	return &RedeemAchievementHandler{
		achievements: achievements,
		unlocks:      unlocks,
		eventBus:     eventBus,
	}
}

// Handle выполняет погашение кода.
func (h *RedeemAchievementHandler) Handle(ctx context.Context, cmd RedeemAchievementCommand) (*RedeemAchievementResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "RedeemAchievement", shared.ErrValidation, err.Error(), err)
	}

	achievement, err := h.achievements.FindByCode(ctx, rpg.AchievementCode(cmd.Code))
	if err != nil {
		if errors.Is(err, rpg.ErrAchievementNotFound) {
			return nil, shared.WrapError("command", "RedeemAchievement", shared.ErrNotFound, "unknown achievement code", err)
		}
		return nil, shared.WrapError("command", "RedeemAchievement", shared.ErrExternalService, "failed to look up achievement", err)
	}

	created, err := h.unlocks.GetOrCreate(ctx, rpg.AchievementUnlock{
		UserID:        cmd.UserID,
		AchievementID: achievement.ID,
		Timestamp:     time.Now().UTC(),
	})
	if err != nil {
		return nil, shared.WrapError("command", "RedeemAchievement", shared.ErrExternalService, "failed to record unlock", err)
	}

	if created && h.eventBus != nil {
		// Доставка событий не влияет на результат команды.
		_ = h.eventBus.Publish(shared.NewAchievementUnlockedEvent(
			uuid.New().String(), cmd.UserID, achievement.ID, achievement.Name, achievement.Diamonds))
	}

	return &RedeemAchievementResult{
		AchievementID:   achievement.ID,
		Name:            achievement.Name,
		Description:     achievement.Description,
		Diamonds:        achievement.Diamonds,
		AlreadyUnlocked: !created,
	}, nil
}
