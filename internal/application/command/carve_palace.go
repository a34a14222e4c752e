package command

import (
	"context"
	"errors"
	"strings"

	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
	"github.com/otis-hub/otis-rpg/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// CARVE PALACE COMMAND
// Создание или обновление таблички в Рубиновом дворце. Дворец доступен
// только студентам, достигшим максимального порога таблицы уровней.
// ══════════════════════════════════════════════════════════════════════════════

// maxCarvingMessageLen - предел длины сообщения на табличке.
const maxCarvingMessageLen = 1024

// CarvePalaceCommand содержит данные команды создания таблички.
type CarvePalaceCommand struct {
	// StudentID - идентификатор студенческой записи.
	StudentID int64

	// DisplayName - имя на табличке.
	DisplayName string

	// Message - сообщение потомкам.
	Message string

	// Hyperlink - внешняя ссылка по выбору владельца.
	Hyperlink string

	// Visible - показывать ли табличку.
	Visible bool
}

// Validate проверяет корректность команды.
func (c *CarvePalaceCommand) Validate() error {
	if c.StudentID <= 0 {
		return errors.New("carve_palace: student_id is required")
	}
	c.DisplayName = strings.TrimSpace(c.DisplayName)
	if c.DisplayName == "" {
		return errors.New("carve_palace: display_name is required")
	}
	if len(c.Message) > maxCarvingMessageLen {
		return errors.New("carve_palace: message is too long")
	}
	return nil
}

// CarvePalaceResult содержит результат создания таблички.
type CarvePalaceResult struct {
	// UserID - владелец таблички.
	UserID int64 `json:"user_id"`

	// DisplayName - имя на табличке.
	DisplayName string `json:"display_name"`

	// Visible - показывается ли табличка.
	Visible bool `json:"visible"`
}

// CarvePalaceHandler обрабатывает команды создания табличек.
type CarvePalaceHandler struct {
	studentRepo student.Repository
	levels      LevelProvider
	levelTable  rpg.LevelRepository
	palace      rpg.PalaceRepository
}

// NewCarvePalaceHandler создаёт новый обработчик табличек дворца.
func NewCarvePalaceHandler(
	studentRepo student.Repository,
	levels LevelProvider,
	levelTable rpg.LevelRepository,
	palace rpg.PalaceRepository,
) *CarvePalaceHandler {
	return &CarvePalaceHandler{
		studentRepo: studentRepo,
		levels:      levels,
		levelTable:  levelTable,
		palace:      palace,
	}
}

// Handle выполняет создание или обновление таблички.
func (h *CarvePalaceHandler) Handle(ctx context.Context, cmd CarvePalaceCommand) (*CarvePalaceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "CarvePalace", shared.ErrValidation, err.Error(), err)
	}

	st, err := h.studentRepo.FindByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, shared.WrapError("command", "CarvePalace", shared.ErrNotFound, "student not found", err)
	}

	level, _, err := h.levels.CurrentLevel(ctx, cmd.StudentID)
	if err != nil {
		return nil, shared.WrapError("command", "CarvePalace", shared.ErrExternalService, "failed to compute level", err)
	}

	table, err := h.levelTable.GetTable(ctx)
	if err != nil {
		return nil, shared.WrapError("command", "CarvePalace", shared.ErrExternalService, "failed to load level table", err)
	}

	if !table.IsMaxed(level) {
		return nil, shared.ErrPalaceNotMaxed
	}

	carving := rpg.PalaceCarving{
		UserID:      int64(st.UserID),
		DisplayName: cmd.DisplayName,
		Message:     cmd.Message,
		Hyperlink:   cmd.Hyperlink,
		Visible:     cmd.Visible,
	}
	if err := h.palace.Upsert(ctx, carving); err != nil {
		return nil, shared.WrapError("command", "CarvePalace", shared.ErrExternalService, "failed to save carving", err)
	}

	return &CarvePalaceResult{
		UserID:      carving.UserID,
		DisplayName: carving.DisplayName,
		Visible:     carving.Visible,
	}, nil
}
