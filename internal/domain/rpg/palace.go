package rpg

import (
	"context"
	"errors"
)

// PalaceCarving - именная табличка в Рубиновом дворце.
// Дворец доступен только студентам с максимальным уровнем.
type PalaceCarving struct {
	// UserID - владелец таблички (у пользователя не более одной).
	UserID int64

	// DisplayName - имя, как его хочет видеть владелец.
	DisplayName string

	// Message - сообщение потомкам, до 1024 символов.
	Message string

	// Hyperlink - внешняя ссылка по выбору владельца.
	Hyperlink string

	// Visible - табличку можно спрятать, не удаляя.
	Visible bool
}

// ErrNotMaxed возвращается при попытке попасть во дворец без максимального уровня.
var ErrNotMaxed = errors.New("rpg: ruby palace requires a maxed level")

// PalaceRepository хранит таблички Рубинового дворца.
type PalaceRepository interface {
	// ListVisible возвращает видимые таблички.
	ListVisible(ctx context.Context) ([]PalaceCarving, error)

	// Upsert создаёт или обновляет табличку пользователя.
	Upsert(ctx context.Context, carving PalaceCarving) error
}
