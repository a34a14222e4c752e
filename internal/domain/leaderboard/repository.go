// Package leaderboard содержит доменную модель лидерборда OTIS.
package leaderboard

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// ══════════════════════════════════════════════════════════════════════════════

// RowSource - порт пакетного чтения сырых агрегатов.
// Реализация в infrastructure слое собирает все суммы одним запросом.
type RowSource interface {
	// RawScores возвращает сырые агрегаты студентов семестра.
	// При semesterID == 0 возвращаются студенты всех семестров.
	RawScores(ctx context.Context, semesterID int64) ([]RawScore, error)
}

// SnapshotRepository хранит снапшоты лидерборда.
type SnapshotRepository interface {
	// SaveSnapshot сохраняет снапшот.
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error

	// GetLatestSnapshot возвращает последний снапшот семестра.
	// Возвращает ErrSnapshotNotFound, если снапшотов ещё нет.
	GetLatestSnapshot(ctx context.Context, semesterID int64) (*Snapshot, error)

	// DeleteOldSnapshots удаляет снапшоты старше указанного времени.
	// Возвращает количество удалённых снапшотов.
	DeleteOldSnapshots(ctx context.Context, olderThan time.Time) (int, error)
}

// RowCache кеширует готовые строки лидерборда.
// Кеш - только ускорение: наблюдаемое поведение при промахе и при
// попадании обязано совпадать.
type RowCache interface {
	// GetRows возвращает закешированные строки или nil при промахе.
	GetRows(ctx context.Context, semesterID int64) ([]Row, error)

	// SetRows сохраняет строки с TTL.
	SetRows(ctx context.Context, semesterID int64, rows []Row, ttl time.Duration) error

	// Invalidate сбрасывает кеш семестра.
	Invalidate(ctx context.Context, semesterID int64) error
}
