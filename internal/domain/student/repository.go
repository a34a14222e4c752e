package student

import (
	"context"
)

// Repository определяет порт доступа к студенческим записям.
type Repository interface {
	// FindByID находит студенческую запись по идентификатору.
	FindByID(ctx context.Context, id int64) (*Student, error)

	// ListBySemester возвращает студентов семестра. При semesterID == 0
	// возвращаются студенты всех семестров.
	ListBySemester(ctx context.Context, semesterID int64) ([]*Student, error)

	// AddUnitToCurriculum добавляет юнит в программу студента.
	// Повторное добавление не является ошибкой.
	AddUnitToCurriculum(ctx context.Context, studentID, unitID int64) error
}

// WatermarkStore определяет порт хранения водяного знака уровня.
// Вынесен отдельно от Repository: машине бонусов нужен только он.
type WatermarkStore interface {
	// LastLevelSeen возвращает водяной знак студента.
	LastLevelSeen(ctx context.Context, studentID int64) (int, error)

	// Advance поднимает водяной знак до уровня. Операция идемпотентна;
	// опускание водяного знака не происходит.
	Advance(ctx context.Context, studentID int64, level int) error
}

// ProfileReader читает настройки профиля пользователя.
type ProfileReader interface {
	// DynamicProgress возвращает выбранный пользователем режим
	// прогресс-баров. Для пользователей без профиля - false.
	DynamicProgress(ctx context.Context, userID UserID) (bool, error)
}
