package filter

import "github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"

// Page — одна страница отфильтрованного списка.
type Page struct {
	Items      []model.FormRecord
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Paginate возвращает страницу page (нумерация с 1) размером size.
// Номер страницы ограничивается диапазоном [1, TotalPages].
func Paginate(records []model.FormRecord, page, size int) Page {
	if size <= 0 {
		size = model.DefaultPageSize
	}

	total := len(records)
	totalPages := (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * size
	end := min(start+size, total)

	return Page{
		Items:      records[start:end],
		Page:       page,
		PageSize:   size,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
