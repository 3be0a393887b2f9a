// audit.go — журнал действий операторов над формулярами.
// Хранилище опционально (PostgreSQL); без него записи только логируются.
// Ошибка записи журнала никогда не прерывает действие оператора.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

// AuditStore — хранилище журнала. Реализуется repository.AuditLogRepository.
type AuditStore interface {
	Insert(ctx context.Context, entry *model.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]*model.AuditEntry, error)
	ListByForm(ctx context.Context, formID string) ([]*model.AuditEntry, error)
}

// AuditService — запись и чтение журнала действий.
type AuditService struct {
	store  AuditStore
	now    func() time.Time
	logger *slog.Logger
}

// NewAuditService создаёт сервис журнала. store == nil — журнал отключён.
func NewAuditService(store AuditStore, logger *slog.Logger) *AuditService {
	return &AuditService{
		store:  store,
		now:    time.Now,
		logger: logger.With(slog.String("component", "audit_service")),
	}
}

// Enabled сообщает, настроено ли хранилище журнала.
func (s *AuditService) Enabled() bool {
	return s != nil && s.store != nil
}

// Record записывает действие оператора над формуляром.
func (s *AuditService) Record(ctx context.Context, user model.User, action model.AuditAction, rec model.FormRecord) {
	if s == nil {
		return
	}

	entry := &model.AuditEntry{
		ID:              uuid.New(),
		Action:          action,
		FormID:          rec.ID,
		ProcedureNumber: rec.ProcedureNumber,
		FormType:        rec.Type,
		Active:          rec.Active,
		UserID:          user.ID,
		Username:        user.Username,
		CreatedAt:       s.now().UTC(),
	}

	s.logger.Info("Действие над формуляром",
		slog.String("action", string(action)),
		slog.String("form_id", rec.ID),
		slog.String("username", user.Username),
	)

	if s.store == nil {
		return
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		s.logger.Warn("Ошибка записи журнала действий",
			slog.String("action", string(action)),
			slog.String("form_id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Recent возвращает последние записи журнала (новые первыми).
func (s *AuditService) Recent(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	if !s.Enabled() {
		return nil, ErrAuditDisabled
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListRecent(ctx, limit)
}

// History возвращает историю действий над одним формуляром.
func (s *AuditService) History(ctx context.Context, formID string) ([]*model.AuditEntry, error) {
	if !s.Enabled() {
		return nil, ErrAuditDisabled
	}
	return s.store.ListByForm(ctx, formID)
}
