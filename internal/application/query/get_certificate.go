package query

import (
	"context"
	"errors"

	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
	"github.com/otis-hub/otis-rpg/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CERTIFICATE QUERY
// Публичная ссылка на сертификат достижений подписывается контрольной
// суммой, чтобы число открытых достижений нельзя было подделать.
// ══════════════════════════════════════════════════════════════════════════════

// GetCertificateQuery содержит параметры запроса сертификата.
type GetCertificateQuery struct {
	// StudentID - идентификатор студента.
	StudentID int64
}

// Validate проверяет корректность параметров запроса.
func (q *GetCertificateQuery) Validate() error {
	if q.StudentID <= 0 {
		return errors.New("get_certificate: student_id is required")
	}
	return nil
}

// CertificateResult содержит данные для публичной ссылки сертификата.
type CertificateResult struct {
	// UserID - пользователь, которому выписан сертификат.
	UserID int64 `json:"user_id"`

	// Unlocked - число открытых достижений.
	Unlocked int `json:"unlocked"`

	// Checksum - подпись пары (пользователь, число достижений).
	Checksum string `json:"checksum"`
}

// GetCertificateHandler обрабатывает запросы сертификата.
type GetCertificateHandler struct {
	students     student.Repository
	achievements rpg.AchievementRepository
	key          string
}

// NewGetCertificateHandler создаёт новый обработчик запроса сертификата.
// Ключ подписи приходит из конфигурации и должен совпадать с ключом,
// которым проверяются уже выданные ссылки.
func NewGetCertificateHandler(students student.Repository, achievements rpg.AchievementRepository, key string) *GetCertificateHandler {
	return &GetCertificateHandler{
		students:     students,
		achievements: achievements,
		key:          key,
	}
}

// Handle выполняет запрос сертификата.
func (h *GetCertificateHandler) Handle(ctx context.Context, query GetCertificateQuery) (*CertificateResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetCertificate", shared.ErrValidation, err.Error(), err)
	}

	st, err := h.students.FindByID(ctx, query.StudentID)
	if err != nil {
		return nil, shared.WrapError("query", "GetCertificate", shared.ErrNotFound, "student not found", err)
	}

	unlocked, err := h.achievements.ListUnlocked(ctx, int64(st.UserID))
	if err != nil {
		return nil, shared.WrapError("query", "GetCertificate", shared.ErrExternalService, "failed to list achievements", err)
	}

	return &CertificateResult{
		UserID:   int64(st.UserID),
		Unlocked: len(unlocked),
		Checksum: rpg.CertificateChecksum(h.key, int64(st.UserID), len(unlocked)),
	}, nil
}
