// Пакет filter — фильтрация и постраничная разбивка списка формуляров
// на стороне портала. Все функции чистые: вход не изменяется,
// относительный порядок записей сохраняется.
package filter

import (
	"strings"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

// ParseActive разбирает значение фильтра активности.
// "true" → только активные, "false" → только неактивные,
// любое другое значение → nil (без фильтра).
func ParseActive(active string) *bool {
	switch active {
	case model.ActiveFilterActive:
		v := true
		return &v
	case model.ActiveFilterInactive:
		v := false
		return &v
	default:
		return nil
	}
}

// Records фильтрует формуляры по активности и строке поиска.
// Поиск без учёта регистра по номеру формуляра, номеру процедуры, DNI
// и строке "фамилия имя" (совпадение в любом из полей).
func Records(records []model.FormRecord, search, active string) []model.FormRecord {
	filtered := records

	if want := ParseActive(active); want != nil {
		filtered = make([]model.FormRecord, 0, len(records))
		for _, r := range records {
			if r.Active == *want {
				filtered = append(filtered, r)
			}
		}
	}

	search = strings.ToLower(search)
	if search == "" {
		return filtered
	}

	result := make([]model.FormRecord, 0, len(filtered))
	for _, r := range filtered {
		if matches(r, search) {
			result = append(result, r)
		}
	}
	return result
}

// State применяет FilterState к списку.
func State(records []model.FormRecord, f model.FilterState) []model.FormRecord {
	return Records(records, f.Search, f.Active)
}

// matches проверяет совпадение записи с уже приведённой к нижнему регистру строкой.
func matches(r model.FormRecord, search string) bool {
	fullName := strings.ToLower(r.Person.LastName) + " " + strings.ToLower(r.Person.FirstName)
	return strings.Contains(strings.ToLower(r.FormattedNumber), search) ||
		strings.Contains(strings.ToLower(r.ProcedureNumber), search) ||
		strings.Contains(strings.ToLower(r.Person.NationalID), search) ||
		strings.Contains(fullName, search)
}
