// export.go — выгрузка отфильтрованного списка формуляров в XLSX.
package service

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

// ExportSheetName — имя листа в выгружаемом файле.
const ExportSheetName = "Formularios"

// ExportHeader — заголовки колонок выгрузки.
var ExportHeader = []string{
	"Nro formulario",
	"Nro trámite",
	"Tipo",
	"Apellido",
	"Nombre",
	"DNI",
	"Lugar",
	"Activo",
	"Fecha",
}

var exportColumnWidths = []float64{16, 16, 8, 22, 22, 14, 28, 8, 18}

// WriteFormsXLSX записывает формуляры в w в формате XLSX.
// Порядок строк совпадает с порядком records.
func WriteFormsXLSX(w io.Writer, records []model.FormRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheetName); err != nil {
		return fmt.Errorf("переименование листа: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("создание стиля заголовка: %w", err)
	}

	for col, title := range ExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("координаты заголовка: %w", err)
		}
		if err := f.SetCellValue(ExportSheetName, cell, title); err != nil {
			return fmt.Errorf("запись заголовка %s: %w", cell, err)
		}
		if err := f.SetCellStyle(ExportSheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("стиль заголовка %s: %w", cell, err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("имя колонки: %w", err)
		}
		if err := f.SetColWidth(ExportSheetName, name, name, exportColumnWidths[col]); err != nil {
			return fmt.Errorf("ширина колонки %s: %w", name, err)
		}
	}

	for i, r := range records {
		row := []any{
			r.FormattedNumber,
			r.ProcedureNumber,
			string(r.Type),
			r.Person.LastName,
			r.Person.FirstName,
			r.Person.NationalID,
			r.Location.Description,
			activeLabel(r.Active),
			formatDate(r),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("координаты строки: %w", err)
		}
		if err := f.SetSheetRow(ExportSheetName, cell, &row); err != nil {
			return fmt.Errorf("запись строки %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("запись XLSX: %w", err)
	}
	return nil
}

func activeLabel(active bool) string {
	if active {
		return "Sí"
	}
	return "No"
}

func formatDate(r model.FormRecord) string {
	if r.CreatedAt.IsZero() {
		return ""
	}
	return r.CreatedAt.Format("02/01/2006 15:04")
}
