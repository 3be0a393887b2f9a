package model

import "encoding/json"

// Location — место работы (lugar). Справочные данные, только чтение.
// Пользователи без роли администратора видят формуляры только своего места.
type Location struct {
	// ID — идентификатор (_id)
	ID string `json:"_id"`
	// Description — наименование места
	Description string `json:"descripcion"`
}

// UnmarshalJSON принимает как объект, так и строку-идентификатор.
func (l *Location) UnmarshalJSON(data []byte) error {
	id, isRef, err := decodeRef(data)
	if err != nil {
		return err
	}
	if isRef {
		*l = Location{ID: id}
		return nil
	}
	type plain Location
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*l = Location(v)
	return nil
}

// ExcludeLocation возвращает список мест без места с указанным наименованием.
// Порядок сохраняется.
func ExcludeLocation(locations []Location, description string) []Location {
	result := make([]Location, 0, len(locations))
	for _, l := range locations {
		if l.Description == description {
			continue
		}
		result = append(result, l)
	}
	return result
}
