// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrValidation — не заполнены обязательные поля, запрос не отправлялся.
	ErrValidation = errors.New("ошибка валидации")
	// ErrPermissionDenied — у оператора нет нужного разрешения.
	ErrPermissionDenied = errors.New("недостаточно прав")
	// ErrNotConfirmed — оператор не подтвердил действие.
	ErrNotConfirmed = errors.New("действие не подтверждено")
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrAuditDisabled — журнал действий не настроен (нет PostgreSQL).
	ErrAuditDisabled = errors.New("журнал действий отключён")
)
