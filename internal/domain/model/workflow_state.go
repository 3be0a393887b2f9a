package model

// Значения фильтра активности (три состояния).
const (
	ActiveFilterActive   = "true"
	ActiveFilterInactive = "false"
	ActiveFilterAll      = ""
)

// Направления сортировки в терминах backend (параметр direccion).
const (
	SortAscending  = 1
	SortDescending = -1
)

// Значения по умолчанию для экрана формуляров.
const (
	DefaultSortColumn = "createdAt"
	DefaultPageSize   = 10
)

// ModalMode — режим модального окна формуляра.
type ModalMode string

const (
	// ModalCreate — создание нового формуляра.
	ModalCreate ModalMode = "create"
	// ModalEdit — редактирование существующего.
	ModalEdit ModalMode = "edit"
)

// FilterState — состояние фильтра списка.
// Active: "true" | "false" | "" (без фильтра по активности).
type FilterState struct {
	Active string `json:"active"`
	Search string `json:"search"`
}

// SortState — колонка и направление сортировки.
type SortState struct {
	Column    string `json:"column"`
	Direction int    `json:"direction"`
}

// Toggle переключает направление: 1 ↔ -1.
func (s *SortState) Toggle() {
	if s.Direction == SortAscending {
		s.Direction = SortDescending
		return
	}
	s.Direction = SortAscending
}

// PaginationState — текущая страница и её размер.
type PaginationState struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
}

// FormFields — поля модального окна формуляра.
type FormFields struct {
	ProcedureNumber string   `json:"procedure_number"`
	Type            FormType `json:"type"`
	LocationID      string   `json:"location_id"`
}

// ModalState — видимость и режим модального окна.
type ModalState struct {
	Open bool      `json:"open"`
	Mode ModalMode `json:"mode"`
	// TargetID — формуляр, редактируемый в режиме edit
	TargetID string `json:"target_id,omitempty"`
}

// WorkflowState — всё, что экран формуляров одного оператора хранит между запросами.
type WorkflowState struct {
	Initialized bool `json:"initialized"`

	Modal  ModalState `json:"modal"`
	Fields FormFields `json:"fields"`

	// SelectedPerson — найденный по DNI или привязанный к формуляру человек
	SelectedPerson *Person `json:"selected_person,omitempty"`
	// NewPerson — включён режим ввода нового человека
	NewPerson bool        `json:"new_person"`
	Draft     PersonDraft `json:"draft"`
	// LookupInput — поле ввода DNI для поиска
	LookupInput string `json:"lookup_input"`

	Filter     FilterState     `json:"filter"`
	Sort       SortState       `json:"sort"`
	Pagination PaginationState `json:"pagination"`

	Records   []FormRecord `json:"records"`
	Locations []Location   `json:"locations"`

	// PendingPDF — URL документа, который нужно открыть после создания/печати
	PendingPDF string `json:"pending_pdf,omitempty"`
}

// NewWorkflowState возвращает состояние со значениями по умолчанию:
// только активные, сортировка по дате создания по убыванию, первая страница.
func NewWorkflowState(pageSize int) *WorkflowState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &WorkflowState{
		Modal:      ModalState{Mode: ModalCreate},
		Fields:     FormFields{Type: FormTypeAuto},
		Filter:     FilterState{Active: ActiveFilterActive},
		Sort:       SortState{Column: DefaultSortColumn, Direction: SortDescending},
		Pagination: PaginationState{CurrentPage: 1, PageSize: pageSize},
	}
}

// ResetForm сбрасывает временное состояние модального окна:
// выбранного человека, режим нового человека, ввод DNI, черновик и поля формы.
func (s *WorkflowState) ResetForm() {
	s.SelectedPerson = nil
	s.NewPerson = false
	s.LookupInput = ""
	s.Draft = PersonDraft{}
	s.Fields = FormFields{Type: FormTypeAuto}
}

// ClearPerson снимает выбор человека и выключает режим нового человека.
func (s *WorkflowState) ClearPerson() {
	s.SelectedPerson = nil
	s.NewPerson = false
	s.LookupInput = ""
}

// FindRecord ищет формуляр в кэшированном списке.
func (s *WorkflowState) FindRecord(id string) (FormRecord, bool) {
	for _, r := range s.Records {
		if r.ID == id {
			return r, true
		}
	}
	return FormRecord{}, false
}
