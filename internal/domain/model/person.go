// Пакет model — доменные модели портала формуляров практики.
// JSON-теги соответствуют контракту backend API (испанские имена полей).
package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Person — человек, на которого оформляется формуляр.
// Backend возвращает ссылку на Person либо строкой (только _id),
// либо развёрнутым объектом — декодируются оба варианта.
type Person struct {
	// ID — идентификатор записи в backend (_id)
	ID string `json:"_id"`
	// FirstName — имя
	FirstName string `json:"nombre"`
	// LastName — фамилия
	LastName string `json:"apellido"`
	// NationalID — DNI (ключ поиска)
	NationalID string `json:"dni"`
}

// FullName возвращает "фамилия имя" — в том же порядке, что и поиск по списку.
func (p Person) FullName() string {
	return strings.TrimSpace(p.LastName + " " + p.FirstName)
}

// IsZero сообщает, что ссылка на человека не заполнена.
func (p Person) IsZero() bool {
	return p.ID == "" && p.NationalID == "" && p.LastName == "" && p.FirstName == ""
}

// UnmarshalJSON принимает как объект, так и строку-идентификатор.
func (p *Person) UnmarshalJSON(data []byte) error {
	id, isRef, err := decodeRef(data)
	if err != nil {
		return err
	}
	if isRef {
		*p = Person{ID: id}
		return nil
	}
	type plain Person
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Person(v)
	return nil
}

// PersonDraft — данные нового человека, вводимые прямо в модальном окне.
type PersonDraft struct {
	LastName   string `json:"apellido"`
	FirstName  string `json:"nombre"`
	NationalID string `json:"dni"`
}

// Complete сообщает, заполнены ли все поля черновика.
func (d PersonDraft) Complete() bool {
	return strings.TrimSpace(d.LastName) != "" &&
		strings.TrimSpace(d.FirstName) != "" &&
		strings.TrimSpace(d.NationalID) != ""
}

// decodeRef распознаёт ссылку вида "id" или null.
// isRef == false означает, что data — JSON-объект.
func decodeRef(data []byte) (id string, isRef bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return "", true, nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return "", false, err
		}
		return id, true, nil
	}
	return "", false, nil
}
