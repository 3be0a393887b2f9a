package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

// AuditLogRepository — таблица audit_log (только добавление и чтение).
type AuditLogRepository interface {
	// Insert добавляет запись журнала.
	Insert(ctx context.Context, entry *model.AuditEntry) error
	// ListRecent возвращает последние limit записей, новые первыми.
	ListRecent(ctx context.Context, limit int) ([]*model.AuditEntry, error)
	// ListByForm возвращает историю одного формуляра, новые первыми.
	ListByForm(ctx context.Context, formID string) ([]*model.AuditEntry, error)
}

type auditLogRepo struct {
	db DBTX
}

// NewAuditLogRepository создаёт репозиторий журнала действий.
func NewAuditLogRepository(db DBTX) AuditLogRepository {
	return &auditLogRepo{db: db}
}

const auditColumns = `id, action, form_id, procedure_number, form_type, active, user_id, username, created_at`

func (r *auditLogRepo) Insert(ctx context.Context, e *model.AuditEntry) error {
	query := `INSERT INTO audit_log (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		e.ID, string(e.Action), e.FormID, e.ProcedureNumber, string(e.FormType),
		e.Active, e.UserID, e.Username, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка записи audit_log: %w", err)
	}
	return nil
}

func (r *auditLogRepo) ListRecent(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_log
		ORDER BY created_at DESC, id
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения audit_log: %w", err)
	}
	return collectEntries(rows)
}

func (r *auditLogRepo) ListByForm(ctx context.Context, formID string) ([]*model.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_log
		WHERE form_id = $1
		ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, query, formID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения истории формуляра %s: %w", formID, err)
	}
	return collectEntries(rows)
}

// collectEntries сканирует строки audit_log.
func collectEntries(rows pgx.Rows) ([]*model.AuditEntry, error) {
	defer rows.Close()

	var entries []*model.AuditEntry
	for rows.Next() {
		var (
			e        model.AuditEntry
			action   string
			formType string
		)
		if err := rows.Scan(
			&e.ID, &action, &e.FormID, &e.ProcedureNumber, &formType,
			&e.Active, &e.UserID, &e.Username, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования audit_log: %w", err)
		}
		e.Action = model.AuditAction(action)
		e.FormType = model.FormType(formType)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации audit_log: %w", err)
	}
	return entries, nil
}
