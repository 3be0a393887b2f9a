package model

import "strings"

// Имена полей формы для ошибок валидации.
const (
	FieldProcedureNumber = "nro_tramite"
	FieldLocation        = "lugar"
	FieldPerson          = "persona"
	FieldLastName        = "apellido"
	FieldFirstName       = "nombre"
	FieldNationalID      = "dni"
	FieldTarget          = "formulario"
)

// FieldError — ошибка валидации одного поля.
type FieldError struct {
	Field   string
	Message string
}

// ValidationInput — всё, что нужно для проверки формы перед отправкой.
type ValidationInput struct {
	Fields         FormFields
	SelectedPerson *Person
	NewPerson      bool
	Draft          PersonDraft
	// RequireLocation — место обязательно (пользователь-администратор)
	RequireLocation bool
	// RequireTarget — нужен идентификатор формуляра (режим edit)
	RequireTarget bool
	TargetID      string
}

// Validate проверяет форму и возвращает список ошибок по полям.
// Пустой результат — форма валидна. Функция чистая.
func Validate(in ValidationInput) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(in.Fields.ProcedureNumber) == "" {
		errs = append(errs, FieldError{Field: FieldProcedureNumber, Message: "обязательное поле"})
	}
	if in.RequireLocation && strings.TrimSpace(in.Fields.LocationID) == "" {
		errs = append(errs, FieldError{Field: FieldLocation, Message: "обязательное поле"})
	}

	if in.NewPerson {
		if strings.TrimSpace(in.Draft.LastName) == "" {
			errs = append(errs, FieldError{Field: FieldLastName, Message: "обязательное поле"})
		}
		if strings.TrimSpace(in.Draft.FirstName) == "" {
			errs = append(errs, FieldError{Field: FieldFirstName, Message: "обязательное поле"})
		}
		if strings.TrimSpace(in.Draft.NationalID) == "" {
			errs = append(errs, FieldError{Field: FieldNationalID, Message: "обязательное поле"})
		}
	} else if in.SelectedPerson == nil || in.SelectedPerson.ID == "" {
		errs = append(errs, FieldError{Field: FieldPerson, Message: "человек не выбран"})
	}

	if in.RequireTarget && in.TargetID == "" {
		errs = append(errs, FieldError{Field: FieldTarget, Message: "формуляр не выбран"})
	}

	return errs
}
