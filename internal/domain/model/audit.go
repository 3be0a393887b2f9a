package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction — действие оператора над формуляром.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditToggle AuditAction = "toggle"
	AuditPrint  AuditAction = "print"
)

// AuditEntry — запись журнала действий.
type AuditEntry struct {
	ID              uuid.UUID
	Action          AuditAction
	FormID          string
	ProcedureNumber string
	FormType        FormType
	// Active — состояние формуляра после действия
	Active    bool
	UserID    string
	Username  string
	CreatedAt time.Time
}
