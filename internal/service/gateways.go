// Пакет service — бизнес-логика портала формуляров практики.
// gateways.go — интерфейсы внешних коллабораторов (backend API) и UI.
package service

import (
	"context"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

// FormGateway — операции backend над формулярами.
// Реализуется *apiclient.Client.
type FormGateway interface {
	GetForm(ctx context.Context, id string) (*model.FormRecord, error)
	ListForms(ctx context.Context, sort model.SortState) ([]model.FormRecord, error)
	ListFormsByLocation(ctx context.Context, locationID string, sort model.SortState) ([]model.FormRecord, error)
	CreateForm(ctx context.Context, in model.FormInput, query model.ReceiptQuery) (*model.FormRecord, error)
	UpdateForm(ctx context.Context, id string, patch model.FormPatch) (*model.FormRecord, error)
	CleanupStaleForms(ctx context.Context) error
	PrintForm(ctx context.Context, payload model.PrintPayload) error
}

// PersonGateway — операции backend над людьми.
type PersonGateway interface {
	GetPerson(ctx context.Context, id string) (*model.Person, error)
	// FindPersonByNationalID возвращает nil, nil, если человек не найден.
	FindPersonByNationalID(ctx context.Context, nationalID string) (*model.Person, error)
	ListPersons(ctx context.Context, sort model.SortState) ([]model.Person, error)
	CreatePerson(ctx context.Context, draft model.PersonDraft) (*model.Person, error)
}

// LocationGateway — справочник мест работы.
type LocationGateway interface {
	ListLocations(ctx context.Context, sort model.SortState) ([]model.Location, error)
}

// Ключи сообщений, показываемых оператору. Тексты — в каталогах i18n.
const (
	MsgRequiredFields     = "forms.msg.required_fields"
	MsgNationalIDRequired = "forms.msg.dni_required"
	MsgPermissionDenied   = "forms.msg.permission_denied"
	MsgConfirmToggle      = "forms.msg.confirm_toggle"
	MsgRemoteFailure      = "forms.msg.remote_failure"
)

// Notifier — UI-коллаборатор контроллера: уведомления, подтверждение
// и открытие документа в новой вкладке.
type Notifier interface {
	// Info — информационное сообщение по ключу каталога (валидация, права).
	Info(key string)
	// Error — сообщение об ошибке backend ("" — общее сообщение об ошибке).
	Error(message string)
	// Confirm сообщает, подтвердил ли оператор действие с данным вопросом.
	Confirm(key string) bool
	// OpenDocument — открыть документ (PDF) в новой вкладке.
	OpenDocument(url string)
}
