package model

import (
	"fmt"
	"time"
)

// FormType — тип формуляра практики (транспортное средство).
type FormType string

const (
	// FormTypeAuto — автомобиль.
	FormTypeAuto FormType = "Auto"
	// FormTypeMoto — мотоцикл.
	FormTypeMoto FormType = "Moto"
)

// ParseFormType разбирает строковое значение типа.
// Пустое значение трактуется как Auto (значение по умолчанию в форме).
func ParseFormType(s string) (FormType, error) {
	switch s {
	case "", string(FormTypeAuto):
		return FormTypeAuto, nil
	case string(FormTypeMoto):
		return FormTypeMoto, nil
	default:
		return "", fmt.Errorf("недопустимый тип формуляра %q, допустимые: Auto, Moto", s)
	}
}

// PDFPath возвращает путь к статическому PDF для данного типа.
// Любой тип, кроме Auto, печатается на бланке мотоцикла.
func (t FormType) PDFPath() string {
	if t == FormTypeAuto {
		return "/pdf/formulario_auto.pdf"
	}
	return "/pdf/formulario_moto.pdf"
}

// FormRecord — формуляр практики.
// Не удаляется: только переключение активности и массовая очистка на стороне backend.
type FormRecord struct {
	// ID — идентификатор (_id)
	ID string `json:"_id"`
	// ProcedureNumber — номер процедуры (trámite)
	ProcedureNumber string `json:"nro_tramite"`
	// Type — Auto или Moto
	Type FormType `json:"tipo"`
	// Location — место работы, за которым закреплён формуляр
	Location Location `json:"lugar"`
	// Person — человек, на которого оформлен формуляр
	Person Person `json:"persona"`
	// Active — активен ли формуляр
	Active bool `json:"activo"`
	// FormattedNumber — отформатированный номер формуляра
	FormattedNumber string `json:"nro_formulario_string"`
	// CreatedAt — время создания
	CreatedAt time.Time `json:"createdAt"`
}

// FormInput — тело запроса создания/обновления формуляра.
type FormInput struct {
	ProcedureNumber string   `json:"nro_tramite"`
	Type            FormType `json:"tipo"`
	LocationID      string   `json:"lugar,omitempty"`
	PersonID        string   `json:"persona"`
}

// FormPatch — частичное обновление формуляра (PUT с неполным телом).
type FormPatch struct {
	ProcedureNumber *string   `json:"nro_tramite,omitempty"`
	Type            *FormType `json:"tipo,omitempty"`
	LocationID      *string   `json:"lugar,omitempty"`
	PersonID        *string   `json:"persona,omitempty"`
	Active          *bool     `json:"activo,omitempty"`
}

// PatchFromInput превращает полный ввод в частичное обновление.
// Пустой LocationID не отправляется.
func PatchFromInput(in FormInput) FormPatch {
	p := FormPatch{
		ProcedureNumber: &in.ProcedureNumber,
		Type:            &in.Type,
		PersonID:        &in.PersonID,
	}
	if in.LocationID != "" {
		p.LocationID = &in.LocationID
	}
	return p
}

// ReceiptQuery — денормализованные поля, передаваемые в query при создании
// (используются backend для подготовки квитанции).
type ReceiptQuery struct {
	ProcedureNumber string
	Type            FormType
	LastName        string
	FirstName       string
	NationalID      string
}

// Values возвращает параметры query string.
func (q ReceiptQuery) Values() map[string]string {
	return map[string]string{
		"nro_tramite": q.ProcedureNumber,
		"tipo":        string(q.Type),
		"apellido":    q.LastName,
		"nombre":      q.FirstName,
		"dni":         q.NationalID,
	}
}

// PrintPayload — данные для подготовки печатной формы на backend.
type PrintPayload struct {
	ProcedureNumber string    `json:"nro_tramite"`
	Type            FormType  `json:"tipo"`
	FirstName       string    `json:"nombre"`
	LastName        string    `json:"apellido"`
	NationalID      string    `json:"dni"`
	FormNumber      string    `json:"nro_formulario"`
	Date            time.Time `json:"fecha"`
}

// NewPrintPayload собирает PrintPayload из формуляра.
func NewPrintPayload(r FormRecord) PrintPayload {
	return PrintPayload{
		ProcedureNumber: r.ProcedureNumber,
		Type:            r.Type,
		FirstName:       r.Person.FirstName,
		LastName:        r.Person.LastName,
		NationalID:      r.Person.NationalID,
		FormNumber:      r.FormattedNumber,
		Date:            r.CreatedAt,
	}
}
