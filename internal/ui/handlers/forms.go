// forms.go — экран формуляров практики.
// Каждое действие: состояние оператора из statestore → операция контроллера →
// сохранение состояния → redirect на экран (нечего показать) или страница
// с уведомлениями, вопросом подтверждения или ссылкой на PDF.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/apiclient"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/rbac"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/service"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/statestore"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/auth"
	uimiddleware "github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/middleware"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/pages"
)

const formsPath = "/formularios"

// xlsxContentType — MIME-тип выгрузки.
const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// sortColumns — колонки, по которым backend умеет сортировать список.
var sortColumns = map[string]bool{
	"createdAt":      true,
	"nro_formulario": true,
	"nro_tramite":    true,
	"tipo":           true,
	"activo":         true,
}

// formActionsTotal — действия операторов на экране формуляров.
var formActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pc_form_actions_total",
		Help: "Действия операторов на экране формуляров.",
	},
	[]string{"action", "result"},
)

// FormsHandler — обработчики экрана формуляров.
type FormsHandler struct {
	svc            *service.FormWorkflowService
	audit          *service.AuditService
	store          statestore.Store
	sessionManager *auth.SessionManager
	pageSize       int
	logger         *slog.Logger
}

// NewFormsHandler создаёт новый FormsHandler.
func NewFormsHandler(
	svc *service.FormWorkflowService,
	audit *service.AuditService,
	store statestore.Store,
	sessionManager *auth.SessionManager,
	pageSize int,
	logger *slog.Logger,
) *FormsHandler {
	return &FormsHandler{
		svc:            svc,
		audit:          audit,
		store:          store,
		sessionManager: sessionManager,
		pageSize:       pageSize,
		logger:         logger.With(slog.String("component", "ui.forms")),
	}
}

// Routes регистрирует маршруты экрана, монтируется на /formularios
// за middleware сессии.
func (h *FormsHandler) Routes(r chi.Router) {
	r.Get("/", h.HandleIndex)
	r.Get("/export.xlsx", h.HandleExport)
	r.Get("/activity", h.HandleActivity)

	r.Post("/filter", h.HandleFilter)
	r.Post("/page", h.HandlePage)
	r.Post("/sort", h.HandleSort)
	r.Post("/new", h.HandleNew)
	r.Post("/close", h.HandleClose)
	r.Post("/submit", h.HandleSubmit)
	r.Post("/person/lookup", h.HandleLookupPerson)
	r.Post("/person/clear", h.HandleClearPerson)

	r.Post("/{id}/edit", h.HandleEdit)
	r.Post("/{id}/toggle", h.HandleToggle)
	r.Post("/{id}/print", h.HandlePrint)
}

// operation — действие над экраном оператора.
type operation func(ctx context.Context, wf *service.FormWorkflow, n *notices) error

// HandleIndex — GET /formularios.
// Первый визит инициализирует экран, ?reload=1 перезагружает список.
func (h *FormsHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	reload := r.URL.Query().Get("reload") == "1"
	h.run(w, r, "index", false, func(ctx context.Context, wf *service.FormWorkflow, _ *notices) error {
		if reload && wf.State().Initialized {
			return wf.List(ctx)
		}
		return wf.Initialize(ctx)
	})
}

// HandleFilter — POST /formularios/filter.
func (h *FormsHandler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	active := r.FormValue("active")
	switch active {
	case model.ActiveFilterActive, model.ActiveFilterInactive, model.ActiveFilterAll:
	default:
		http.Error(w, "Недопустимое значение фильтра активности", http.StatusBadRequest)
		return
	}
	search := r.FormValue("search")

	h.run(w, r, "filter", true, func(_ context.Context, wf *service.FormWorkflow, _ *notices) error {
		wf.SetActiveFilter(active)
		wf.SetSearch(search)
		return nil
	})
}

// HandlePage — POST /formularios/page.
func (h *FormsHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.FormValue("page"))
	if err != nil {
		http.Error(w, "Некорректный номер страницы", http.StatusBadRequest)
		return
	}

	h.run(w, r, "page", true, func(_ context.Context, wf *service.FormWorkflow, _ *notices) error {
		wf.SetPage(page)
		return nil
	})
}

// HandleSort — POST /formularios/sort.
func (h *FormsHandler) HandleSort(w http.ResponseWriter, r *http.Request) {
	column := r.FormValue("column")
	if !sortColumns[column] {
		http.Error(w, "Недопустимая колонка сортировки", http.StatusBadRequest)
		return
	}

	h.run(w, r, "sort", true, func(ctx context.Context, wf *service.FormWorkflow, _ *notices) error {
		return wf.SortBy(ctx, column)
	})
}

// HandleNew — POST /formularios/new.
func (h *FormsHandler) HandleNew(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "new", true, func(_ context.Context, wf *service.FormWorkflow, _ *notices) error {
		wf.OpenCreate()
		return nil
	})
}

// HandleEdit — POST /formularios/{id}/edit.
func (h *FormsHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.run(w, r, "edit", true, func(ctx context.Context, wf *service.FormWorkflow, _ *notices) error {
		return wf.OpenEdit(ctx, id)
	})
}

// HandleClose — POST /formularios/close.
func (h *FormsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "close", true, func(_ context.Context, wf *service.FormWorkflow, _ *notices) error {
		wf.CloseModal()
		return nil
	})
}

// HandleLookupPerson — POST /formularios/person/lookup.
// Введённые поля формы сохраняются до поиска.
func (h *FormsHandler) HandleLookupPerson(w http.ResponseWriter, r *http.Request) {
	fields, draft := readFields(r)
	dni := r.FormValue("dni")

	h.run(w, r, "lookup", true, func(ctx context.Context, wf *service.FormWorkflow, _ *notices) error {
		wf.UpdateFields(fields, draft)
		return wf.LookupPerson(ctx, dni)
	})
}

// HandleClearPerson — POST /formularios/person/clear.
func (h *FormsHandler) HandleClearPerson(w http.ResponseWriter, r *http.Request) {
	fields, draft := readFields(r)
	h.run(w, r, "clear_person", true, func(_ context.Context, wf *service.FormWorkflow, _ *notices) error {
		wf.UpdateFields(fields, draft)
		wf.ClearPerson()
		return nil
	})
}

// HandleSubmit — POST /formularios/submit: создание или обновление по режиму окна.
func (h *FormsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	fields, draft := readFields(r)
	h.run(w, r, "submit", true, func(ctx context.Context, wf *service.FormWorkflow, _ *notices) error {
		if !wf.State().Modal.Open {
			return nil
		}
		wf.UpdateFields(fields, draft)
		return wf.Submit(ctx)
	})
}

// HandleToggle — POST /formularios/{id}/toggle.
// Без confirmed=true показывает вопрос подтверждения.
func (h *FormsHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	confirmed := r.FormValue("confirmed") == "true"

	h.run(w, r, "toggle", true, func(ctx context.Context, wf *service.FormWorkflow, n *notices) error {
		n.confirmed = confirmed
		n.target = id
		return wf.ToggleActive(ctx, id)
	})
}

// HandlePrint — POST /formularios/{id}/print.
func (h *FormsHandler) HandlePrint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.run(w, r, "print", true, func(ctx context.Context, wf *service.FormWorkflow, _ *notices) error {
		return wf.Print(ctx, id)
	})
}

// HandleExport — GET /formularios/export.xlsx: выгрузка отфильтрованного списка.
func (h *FormsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	session := uimiddleware.SessionFromContext(r.Context())
	if session == nil {
		http.Redirect(w, r, uimiddleware.LoginPath, http.StatusFound)
		return
	}

	state, err := statestore.LoadOrNew(r.Context(), h.store, session.ID, h.pageSize)
	if err != nil {
		h.stateError(w, err)
		return
	}
	if !state.Initialized {
		http.Redirect(w, r, formsPath, http.StatusFound)
		return
	}

	wf := h.svc.Controller(session.User, state, &notices{})
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="formularios.xlsx"`)
	if err := wf.Export(w); err != nil {
		formActionsTotal.WithLabelValues("export", "error").Inc()
		h.logger.Error("Ошибка выгрузки формуляров",
			slog.String("username", session.User.Username),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Ошибка выгрузки", http.StatusInternalServerError)
		return
	}
	formActionsTotal.WithLabelValues("export", "ok").Inc()
}

// run выполняет операцию над экраном оператора и отвечает.
// redirect — после успешной операции без уведомлений вернуться на экран (PRG).
func (h *FormsHandler) run(w http.ResponseWriter, r *http.Request, action string, redirect bool, op operation) {
	ctx := r.Context()
	session := uimiddleware.SessionFromContext(ctx)
	if session == nil {
		http.Redirect(w, r, uimiddleware.LoginPath, http.StatusFound)
		return
	}

	state, err := statestore.LoadOrNew(ctx, h.store, session.ID, h.pageSize)
	if err != nil {
		h.stateError(w, err)
		return
	}

	n := &notices{}
	wf := h.svc.Controller(session.User, state, n)

	err = op(ctx, wf, n)
	formActionsTotal.WithLabelValues(action, resultLabel(err)).Inc()

	if err != nil && apiclient.IsUnauthorized(err) {
		h.expire(w, r, session)
		return
	}
	if err != nil {
		h.logger.Debug("Действие оператора не выполнено",
			slog.String("action", action),
			slog.String("username", session.User.Username),
			slog.String("error", err.Error()),
		)
	}

	if doc := n.lastDocument(); doc != "" {
		state.PendingPDF = doc
	}

	if redirect && n.empty() {
		h.save(ctx, session, state)
		http.Redirect(w, r, formsPath, http.StatusSeeOther)
		return
	}
	h.render(w, r, session, wf, n)
}

// render показывает экран; ожидающий PDF выдаётся один раз.
func (h *FormsHandler) render(w http.ResponseWriter, r *http.Request, session *auth.SessionData, wf *service.FormWorkflow, n *notices) {
	state := wf.State()
	caps := wf.Capabilities()

	data := pages.FormsData{
		Layout:       layoutFor(session, caps),
		State:        state,
		Page:         wf.Visible(),
		Caps:         caps,
		Infos:        n.infos,
		Errors:       n.errors,
		Document:     state.PendingPDF,
		AuditEnabled: h.audit.Enabled(),
	}
	if n.asked != "" && n.target != "" {
		data.Confirm = &pages.ConfirmData{FormID: n.target, Question: n.asked}
	}

	state.PendingPDF = ""
	h.save(r.Context(), session, state)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.Forms(data).Render(r.Context(), w); err != nil {
		h.logger.Error("Ошибка рендеринга экрана формуляров",
			slog.String("error", err.Error()),
			slog.String("username", session.User.Username),
		)
		http.Error(w, "Ошибка рендеринга страницы", http.StatusInternalServerError)
	}
}

func (h *FormsHandler) save(ctx context.Context, session *auth.SessionData, state *model.WorkflowState) {
	if err := h.store.Save(ctx, session.ID, state); err != nil {
		h.logger.Error("Ошибка сохранения состояния экрана",
			slog.String("username", session.User.Username),
			slog.String("error", err.Error()),
		)
	}
}

// expire завершает сессию, токен которой отклонил backend.
func (h *FormsHandler) expire(w http.ResponseWriter, r *http.Request, session *auth.SessionData) {
	h.logger.Info("Токен отклонён backend, сессия завершена",
		slog.String("username", session.User.Username),
	)
	if err := h.store.Delete(r.Context(), session.ID); err != nil {
		h.logger.Warn("Ошибка удаления состояния экрана", slog.String("error", err.Error()))
	}
	h.sessionManager.ClearSessionCookie(w)
	http.Redirect(w, r, uimiddleware.LoginPath, http.StatusSeeOther)
}

func (h *FormsHandler) stateError(w http.ResponseWriter, err error) {
	h.logger.Error("Ошибка загрузки состояния экрана", slog.String("error", err.Error()))
	http.Error(w, "Состояние экрана недоступно", http.StatusServiceUnavailable)
}

// readFields читает поля модального окна из формы.
func readFields(r *http.Request) (model.FormFields, model.PersonDraft) {
	fields := model.FormFields{
		ProcedureNumber: r.FormValue("nro_tramite"),
		Type:            model.FormType(r.FormValue("tipo")),
		LocationID:      r.FormValue("lugar"),
	}
	draft := model.PersonDraft{
		LastName:   r.FormValue("apellido"),
		FirstName:  r.FormValue("nombre"),
		NationalID: r.FormValue("dni_nuevo"),
	}
	return fields, draft
}

// resultLabel — значение лейбла result для метрики действий.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, service.ErrValidation):
		return "invalid"
	case errors.Is(err, service.ErrPermissionDenied):
		return "denied"
	case errors.Is(err, service.ErrNotConfirmed):
		return "unconfirmed"
	case errors.Is(err, service.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// layoutFor — шапка страницы для оператора.
func layoutFor(session *auth.SessionData, caps rbac.Capabilities) pages.Layout {
	name := session.User.Username
	if session.User.FirstName != "" {
		name = strings.TrimSpace(session.User.FirstName + " " + session.User.LastName)
	}
	return pages.Layout{
		Username:     name,
		ShowActivity: caps.ManageAll,
	}
}
