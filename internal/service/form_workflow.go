// form_workflow.go — контроллер экрана формуляров практики.
//
// FormWorkflowService — общий для всех операторов: держит шлюзы backend,
// кэш людей и журнал. На каждый запрос создаётся FormWorkflow, связанный
// с оператором, его состоянием экрана и UI-коллаборатором.
//
// Состояния модального окна: закрыто → открыто (create|edit) → успешная
// отправка → закрыто. Удалённые вызовы выполняются последовательно,
// перезагрузка списка — только после успешного предыдущего вызова.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/apiclient"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/filter"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/rbac"
)

// Сортировка справочников, как их запрашивает экран.
var (
	personsSort   = model.SortState{Column: "apellido", Direction: model.SortAscending}
	locationsSort = model.SortState{Column: "descripcion", Direction: model.SortAscending}
)

// WorkflowConfig — параметры экрана формуляров.
type WorkflowConfig struct {
	// PDFBaseURL — база для /pdf/formulario_*.pdf
	PDFBaseURL string
	// ExcludedLocation — место, скрываемое из списка выбора
	ExcludedLocation string
	// CleanupTimeout — ограничение фоновой очистки
	CleanupTimeout time.Duration
}

// FormWorkflowService — зависимости контроллера экрана формуляров.
type FormWorkflowService struct {
	forms     FormGateway
	persons   PersonGateway
	locations LocationGateway
	cache     *PersonCache
	audit     *AuditService
	cfg       WorkflowConfig
	logger    *slog.Logger

	// cleanups — фоновые очистки, ожидаемые при остановке
	cleanups sync.WaitGroup
}

// NewFormWorkflowService создаёт сервис экрана формуляров.
func NewFormWorkflowService(
	forms FormGateway,
	persons PersonGateway,
	locations LocationGateway,
	cache *PersonCache,
	audit *AuditService,
	cfg WorkflowConfig,
	logger *slog.Logger,
) *FormWorkflowService {
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = 30 * time.Second
	}
	cfg.PDFBaseURL = strings.TrimRight(cfg.PDFBaseURL, "/")
	if cache == nil {
		cache = NewPersonCache(1000, 10*time.Minute)
	}
	return &FormWorkflowService{
		forms:     forms,
		persons:   persons,
		locations: locations,
		cache:     cache,
		audit:     audit,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "form_workflow")),
	}
}

// Controller создаёт контроллер для одного оператора и его состояния.
func (s *FormWorkflowService) Controller(user model.User, state *model.WorkflowState, ui Notifier) *FormWorkflow {
	return &FormWorkflow{
		svc:   s,
		user:  user,
		caps:  rbac.Compute(user),
		state: state,
		ui:    ui,
		logger: s.logger.With(
			slog.String("user_id", user.ID),
			slog.String("username", user.Username),
		),
	}
}

// Wait ожидает завершения фоновых очисток (graceful shutdown).
func (s *FormWorkflowService) Wait() {
	s.cleanups.Wait()
}

// PDFURL возвращает адрес статического PDF для типа формуляра.
func (s *FormWorkflowService) PDFURL(t model.FormType) string {
	return s.cfg.PDFBaseURL + t.PDFPath()
}

// FormWorkflow — операции экрана формуляров одного оператора.
// Не потокобезопасен: используется в рамках одного HTTP-запроса.
type FormWorkflow struct {
	svc    *FormWorkflowService
	user   model.User
	caps   rbac.Capabilities
	state  *model.WorkflowState
	ui     Notifier
	logger *slog.Logger
}

// State возвращает состояние экрана.
func (w *FormWorkflow) State() *model.WorkflowState {
	return w.state
}

// Capabilities возвращает возможности оператора.
func (w *FormWorkflow) Capabilities() rbac.Capabilities {
	return w.caps
}

// Initialize выполняется один раз на состояние оператора: запускает фоновую
// очистку устаревших формуляров, загружает места и список формуляров.
func (w *FormWorkflow) Initialize(ctx context.Context) error {
	if w.state.Initialized {
		return nil
	}
	w.state.Initialized = true

	w.startCleanup(ctx)

	locErr := w.loadLocations(ctx)
	listErr := w.List(ctx)
	return errors.Join(locErr, listErr)
}

// startCleanup запускает массовую очистку в отдельной горутине,
// отвязанной от отмены запроса и ограниченной таймаутом.
func (w *FormWorkflow) startCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.svc.cfg.CleanupTimeout)

	w.svc.cleanups.Add(1)
	go func() {
		defer w.svc.cleanups.Done()
		defer cancel()

		if err := w.svc.forms.CleanupStaleForms(cleanupCtx); err != nil {
			w.logger.Warn("Ошибка очистки устаревших формуляров",
				slog.String("error", err.Error()),
			)
			return
		}
		w.logger.Debug("Очистка устаревших формуляров выполнена")
	}()
}

// loadLocations загружает места работы без административного места.
func (w *FormWorkflow) loadLocations(ctx context.Context) error {
	locations, err := w.svc.locations.ListLocations(ctx, locationsSort)
	if err != nil {
		return w.remoteFailure("загрузка мест работы", err)
	}
	w.state.Locations = model.ExcludeLocation(locations, w.svc.cfg.ExcludedLocation)
	return nil
}

// List загружает список формуляров: администратор — все, остальные —
// только своего места. При успехе обновляет кэш людей и закрывает модальное окно.
func (w *FormWorkflow) List(ctx context.Context) error {
	var (
		records []model.FormRecord
		err     error
	)

	scope := rbac.ScopeFor(w.user)
	if scope == rbac.ScopeAll {
		records, err = w.svc.forms.ListForms(ctx, w.state.Sort)
	} else {
		records, err = w.svc.forms.ListFormsByLocation(ctx, w.user.LocationID, w.state.Sort)
	}
	if err != nil {
		return w.remoteFailure("загрузка формуляров", err)
	}
	w.state.Records = records

	w.logger.Debug("Список формуляров загружен",
		slog.String("scope", scope.String()),
		slog.Int("count", len(records)),
	)

	for _, r := range records {
		w.svc.cache.Add(r.Person)
	}

	persons, err := w.svc.persons.ListPersons(ctx, personsSort)
	if err != nil {
		return w.remoteFailure("загрузка списка людей", err)
	}
	w.svc.cache.AddAll(persons)

	w.state.Modal.Open = false
	return nil
}

// OpenCreate сбрасывает временное состояние и открывает окно создания.
func (w *FormWorkflow) OpenCreate() {
	w.state.ResetForm()
	w.state.Modal = model.ModalState{Open: true, Mode: model.ModalCreate}
}

// OpenEdit загружает формуляр, заполняет поля, находит человека
// и открывает окно редактирования.
func (w *FormWorkflow) OpenEdit(ctx context.Context, id string) error {
	w.state.ResetForm()

	rec, err := w.svc.forms.GetForm(ctx, id)
	if err != nil {
		return w.remoteFailure("загрузка формуляра", err)
	}

	w.state.Fields = model.FormFields{
		ProcedureNumber: rec.ProcedureNumber,
		Type:            rec.Type,
		LocationID:      rec.Location.ID,
	}
	w.state.Modal = model.ModalState{Open: true, Mode: model.ModalEdit, TargetID: id}

	person, err := w.resolvePerson(ctx, rec.Person)
	if err != nil {
		return w.remoteFailure("загрузка человека", err)
	}
	w.state.SelectedPerson = person
	return nil
}

// resolvePerson возвращает полные данные человека по ссылке:
// развёрнутая ссылка, затем кэш, затем backend.
func (w *FormWorkflow) resolvePerson(ctx context.Context, ref model.Person) (*model.Person, error) {
	if ref.ID == "" {
		return nil, nil
	}
	if ref.NationalID != "" {
		w.svc.cache.Add(ref)
		return &ref, nil
	}
	if p, ok := w.svc.cache.Get(ref.ID); ok {
		return &p, nil
	}

	p, err := w.svc.persons.GetPerson(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	w.svc.cache.Add(*p)
	return p, nil
}

// CloseModal скрывает окно и снимает выбор человека.
func (w *FormWorkflow) CloseModal() {
	w.state.Modal.Open = false
	w.state.ClearPerson()
}

// UpdateFields сохраняет введённые оператором поля формы и черновик человека.
func (w *FormWorkflow) UpdateFields(fields model.FormFields, draft model.PersonDraft) {
	w.state.Fields = fields
	if w.state.NewPerson {
		w.state.Draft = draft
	}
}

// Submit создаёт или обновляет формуляр в зависимости от режима окна.
func (w *FormWorkflow) Submit(ctx context.Context) error {
	if w.state.Modal.Mode == model.ModalEdit {
		return w.Update(ctx)
	}
	return w.Create(ctx)
}

// validate проверяет форму; при ошибке показывает сообщение и возвращает ErrValidation.
func (w *FormWorkflow) validate(requireTarget bool) (model.FormType, error) {
	errs := model.Validate(model.ValidationInput{
		Fields:          w.state.Fields,
		SelectedPerson:  w.state.SelectedPerson,
		NewPerson:       w.state.NewPerson,
		Draft:           w.state.Draft,
		RequireLocation: w.caps.Admin,
		RequireTarget:   requireTarget,
		TargetID:        w.state.Modal.TargetID,
	})

	formType, typeErr := model.ParseFormType(string(w.state.Fields.Type))
	if typeErr != nil {
		errs = append(errs, model.FieldError{Field: "tipo", Message: typeErr.Error()})
	}

	if len(errs) > 0 {
		w.ui.Info(MsgRequiredFields)
		fields := make([]string, 0, len(errs))
		for _, e := range errs {
			fields = append(fields, e.Field)
		}
		return "", fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
	}
	return formType, nil
}

// personForSubmit возвращает выбранного человека или создаёт нового из черновика.
func (w *FormWorkflow) personForSubmit(ctx context.Context) (model.Person, error) {
	if !w.state.NewPerson {
		return *w.state.SelectedPerson, nil
	}

	draft := model.PersonDraft{
		LastName:   strings.TrimSpace(w.state.Draft.LastName),
		FirstName:  strings.TrimSpace(w.state.Draft.FirstName),
		NationalID: strings.TrimSpace(w.state.Draft.NationalID),
	}
	p, err := w.svc.persons.CreatePerson(ctx, draft)
	if err != nil {
		return model.Person{}, w.remoteFailure("создание человека", err)
	}
	w.svc.cache.Add(*p)
	return *p, nil
}

// locationForSubmit — место из формы для администратора, иначе место оператора.
func (w *FormWorkflow) locationForSubmit() string {
	if w.caps.Admin {
		return w.state.Fields.LocationID
	}
	return w.user.LocationID
}

// Create создаёт формуляр. Ветка нового человека сначала создаёт человека,
// затем формуляр со ссылкой на его _id. После успеха — перезагрузка списка
// и открытие PDF для типа формуляра.
func (w *FormWorkflow) Create(ctx context.Context) error {
	formType, err := w.validate(false)
	if err != nil {
		return err
	}

	person, err := w.personForSubmit(ctx)
	if err != nil {
		return err
	}

	procedure := strings.TrimSpace(w.state.Fields.ProcedureNumber)
	in := model.FormInput{
		ProcedureNumber: procedure,
		Type:            formType,
		LocationID:      w.locationForSubmit(),
		PersonID:        person.ID,
	}
	query := model.ReceiptQuery{
		ProcedureNumber: procedure,
		Type:            formType,
		LastName:        person.LastName,
		FirstName:       person.FirstName,
		NationalID:      person.NationalID,
	}

	rec, err := w.svc.forms.CreateForm(ctx, in, query)
	if err != nil {
		return w.remoteFailure("создание формуляра", err)
	}
	if rec.ProcedureNumber == "" {
		rec.ProcedureNumber = procedure
		rec.Type = formType
		rec.Active = true
	}
	w.svc.audit.Record(ctx, w.user, model.AuditCreate, *rec)

	w.state.ClearPerson()
	listErr := w.List(ctx)
	w.ui.OpenDocument(w.svc.PDFURL(formType))
	return listErr
}

// Update обновляет формуляр из окна редактирования. Тело запроса
// одинаково для обеих веток (существующий или новый человек):
// nro_tramite, tipo, lugar и persona. lugar отправляется и для нового
// человека, чтобы место формуляра не зависело от ветки.
func (w *FormWorkflow) Update(ctx context.Context) error {
	formType, err := w.validate(true)
	if err != nil {
		return err
	}

	person, err := w.personForSubmit(ctx)
	if err != nil {
		return err
	}

	id := w.state.Modal.TargetID
	patch := model.PatchFromInput(model.FormInput{
		ProcedureNumber: strings.TrimSpace(w.state.Fields.ProcedureNumber),
		Type:            formType,
		LocationID:      w.locationForSubmit(),
		PersonID:        person.ID,
	})

	rec, err := w.svc.forms.UpdateForm(ctx, id, patch)
	if err != nil {
		return w.remoteFailure("обновление формуляра", err)
	}
	if rec.ID == "" {
		rec.ID = id
	}
	w.svc.audit.Record(ctx, w.user, model.AuditUpdate, *rec)

	w.state.ClearPerson()
	return w.List(ctx)
}

// ToggleActive переключает активность формуляра. Требует права
// "управление всеми" и подтверждения оператора.
func (w *FormWorkflow) ToggleActive(ctx context.Context, id string) error {
	if !w.caps.ManageAll {
		w.ui.Info(MsgPermissionDenied)
		return ErrPermissionDenied
	}

	rec, err := w.record(ctx, id)
	if err != nil {
		return err
	}

	if !w.ui.Confirm(MsgConfirmToggle) {
		return ErrNotConfirmed
	}

	active := !rec.Active
	updated, err := w.svc.forms.UpdateForm(ctx, id, model.FormPatch{Active: &active})
	if err != nil {
		return w.remoteFailure("переключение активности", err)
	}
	audited := rec
	audited.Active = active
	if updated != nil && updated.ProcedureNumber != "" {
		audited = *updated
	}
	w.svc.audit.Record(ctx, w.user, model.AuditToggle, audited)

	return w.List(ctx)
}

// record возвращает формуляр из кэшированного списка или из backend.
func (w *FormWorkflow) record(ctx context.Context, id string) (model.FormRecord, error) {
	if rec, ok := w.state.FindRecord(id); ok {
		return rec, nil
	}
	rec, err := w.svc.forms.GetForm(ctx, id)
	if err != nil {
		return model.FormRecord{}, w.remoteFailure("загрузка формуляра", err)
	}
	return *rec, nil
}

// LookupPerson ищет человека по DNI: сначала в кэше, затем в backend.
// Найден — становится выбранным; не найден — включается режим нового
// человека с подставленным DNI. Поле поиска очищается в любом случае.
func (w *FormWorkflow) LookupPerson(ctx context.Context, nationalID string) error {
	dni := strings.TrimSpace(nationalID)
	if dni == "" {
		w.ui.Info(MsgNationalIDRequired)
		return fmt.Errorf("%w: DNI не указан", ErrValidation)
	}
	defer func() { w.state.LookupInput = "" }()

	if p, ok := w.svc.cache.ByNationalID(dni); ok {
		w.selectPerson(p)
		return nil
	}

	p, err := w.svc.persons.FindPersonByNationalID(ctx, dni)
	if err != nil {
		return w.remoteFailure("поиск человека", err)
	}
	if p == nil {
		w.state.SelectedPerson = nil
		w.state.Draft.NationalID = dni
		w.state.NewPerson = true
		return nil
	}

	w.svc.cache.Add(*p)
	w.selectPerson(*p)
	return nil
}

func (w *FormWorkflow) selectPerson(p model.Person) {
	w.state.SelectedPerson = &p
	w.state.NewPerson = false
}

// ClearPerson снимает выбор человека и режим нового человека.
func (w *FormWorkflow) ClearPerson() {
	w.state.ClearPerson()
}

// SortBy задаёт колонку, переключает направление и перезагружает список.
func (w *FormWorkflow) SortBy(ctx context.Context, column string) error {
	w.state.Sort.Column = column
	w.state.Sort.Toggle()
	return w.List(ctx)
}

// SetActiveFilter меняет фильтр активности и возвращает на первую страницу.
func (w *FormWorkflow) SetActiveFilter(active string) {
	w.state.Filter.Active = active
	w.state.Pagination.CurrentPage = 1
}

// SetSearch меняет строку поиска и возвращает на первую страницу.
func (w *FormWorkflow) SetSearch(search string) {
	w.state.Filter.Search = search
	w.state.Pagination.CurrentPage = 1
}

// SetPage переходит на страницу n в пределах отфильтрованного списка.
func (w *FormWorkflow) SetPage(n int) {
	page := filter.Paginate(w.Filtered(), n, w.state.Pagination.PageSize)
	w.state.Pagination.CurrentPage = page.Page
}

// Print отправляет данные печатной формы существующего формуляра
// и открывает PDF для его типа.
func (w *FormWorkflow) Print(ctx context.Context, id string) error {
	rec, err := w.record(ctx, id)
	if err != nil {
		return err
	}

	person, err := w.resolvePerson(ctx, rec.Person)
	if err != nil {
		return w.remoteFailure("загрузка человека", err)
	}
	if person != nil {
		rec.Person = *person
	}

	if err := w.svc.forms.PrintForm(ctx, model.NewPrintPayload(rec)); err != nil {
		return w.remoteFailure("печать формуляра", err)
	}
	w.svc.audit.Record(ctx, w.user, model.AuditPrint, rec)

	w.ui.OpenDocument(w.svc.PDFURL(rec.Type))
	return nil
}

// Filtered возвращает кэшированный список с применённым фильтром (все страницы).
func (w *FormWorkflow) Filtered() []model.FormRecord {
	return filter.State(w.state.Records, w.state.Filter)
}

// Visible возвращает текущую страницу отфильтрованного списка.
func (w *FormWorkflow) Visible() filter.Page {
	return filter.Paginate(w.Filtered(), w.state.Pagination.CurrentPage, w.state.Pagination.PageSize)
}

// Export записывает отфильтрованный список в XLSX.
func (w *FormWorkflow) Export(out io.Writer) error {
	return WriteFormsXLSX(out, w.Filtered())
}

// remoteFailure показывает оператору сообщение backend и возвращает обёрнутую ошибку.
// Ответ 404 дополнительно помечается ErrNotFound.
func (w *FormWorkflow) remoteFailure(op string, err error) error {
	var apiErr *apiclient.APIError
	message := ""
	if errors.As(err, &apiErr) {
		message = apiErr.Message
	}
	w.ui.Error(message)

	w.logger.Warn("Ошибка операции экрана формуляров",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	if apiclient.StatusOf(err) == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
