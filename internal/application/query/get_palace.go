package query

import (
	"context"
	"errors"
	"time"

	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PALACE QUERY
// Список табличек Рубинового дворца. Дворец - комната славы: посмотреть
// её могут только студенты с максимальным уровнем.
// ══════════════════════════════════════════════════════════════════════════════

// ProfileLoader возвращает пересчитанный профиль студента.
// Реализуется обработчиком запроса профиля.
type ProfileLoader interface {
	Handle(ctx context.Context, query GetLevelInfoQuery) (*LevelInfoResult, error)
}

// GetPalaceQuery содержит параметры запроса дворца.
type GetPalaceQuery struct {
	// StudentID - идентификатор смотрящего студента.
	StudentID int64
}

// Validate проверяет корректность параметров запроса.
func (q *GetPalaceQuery) Validate() error {
	if q.StudentID <= 0 {
		return errors.New("get_palace: student_id is required")
	}
	return nil
}

// CarvingDTO - DTO одной таблички дворца.
type CarvingDTO struct {
	DisplayName string `json:"display_name"`
	Message     string `json:"message"`
	Hyperlink   string `json:"hyperlink,omitempty"`
}

// PalaceResult содержит видимые таблички дворца.
type PalaceResult struct {
	// Carvings - видимые таблички.
	Carvings []CarvingDTO `json:"carvings"`

	// GeneratedAt - время запроса.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetPalaceHandler обрабатывает запросы дворца.
type GetPalaceHandler struct {
	profiles ProfileLoader
	palace   rpg.PalaceRepository
}

// NewGetPalaceHandler создаёт новый обработчик запроса дворца.
func NewGetPalaceHandler(profiles ProfileLoader, palace rpg.PalaceRepository) *GetPalaceHandler {
	return &GetPalaceHandler{
		profiles: profiles,
		palace:   palace,
	}
}

// Handle выполняет запрос дворца.
func (h *GetPalaceHandler) Handle(ctx context.Context, query GetPalaceQuery) (*PalaceResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetPalace", shared.ErrValidation, err.Error(), err)
	}

	profile, err := h.profiles.Handle(ctx, GetLevelInfoQuery{StudentID: query.StudentID})
	if err != nil {
		return nil, err
	}
	if !profile.IsMaxed {
		return nil, shared.ErrPalaceNotMaxed
	}

	carvings, err := h.palace.ListVisible(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetPalace", shared.ErrExternalService, "failed to list carvings", err)
	}

	dtos := make([]CarvingDTO, len(carvings))
	for i, c := range carvings {
		dtos[i] = CarvingDTO{
			DisplayName: c.DisplayName,
			Message:     c.Message,
			Hyperlink:   c.Hyperlink,
		}
	}

	return &PalaceResult{
		Carvings:    dtos,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
