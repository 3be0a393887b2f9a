package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/apiclient"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// apiErr возвращает ошибку backend в том виде, как её оборачивает apiclient.
func apiErr(status int, message string) error {
	return fmt.Errorf("backend: %w", &apiclient.APIError{Status: status, Message: message})
}

// callLog — общий журнал вызовов фейковых шлюзов (порядок важен).
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(name string) int {
	n := 0
	for _, c := range l.list() {
		if c == name {
			n++
		}
	}
	return n
}

// fakeForms — фейковый FormGateway.
type fakeForms struct {
	log *callLog

	records   []model.FormRecord
	byID      map[string]model.FormRecord
	listErr   error
	createErr error
	updateErr error
	printErr  error

	lastCreate      model.FormInput
	lastQuery       model.ReceiptQuery
	lastUpdateID    string
	lastPatch       model.FormPatch
	lastPrint       model.PrintPayload
	lastSort        model.SortState
	lastLocationID  string
	cleanupFinished chan struct{}
}

func (f *fakeForms) GetForm(_ context.Context, id string) (*model.FormRecord, error) {
	f.log.add("GetForm")
	rec, ok := f.byID[id]
	if !ok {
		return nil, apiErr(404, "formulario no encontrado")
	}
	return &rec, nil
}

func (f *fakeForms) ListForms(_ context.Context, sort model.SortState) ([]model.FormRecord, error) {
	f.log.add("ListForms")
	f.lastSort = sort
	return f.records, f.listErr
}

func (f *fakeForms) ListFormsByLocation(_ context.Context, locationID string, sort model.SortState) ([]model.FormRecord, error) {
	f.log.add("ListFormsByLocation")
	f.lastSort = sort
	f.lastLocationID = locationID
	return f.records, f.listErr
}

func (f *fakeForms) CreateForm(_ context.Context, in model.FormInput, q model.ReceiptQuery) (*model.FormRecord, error) {
	f.log.add("CreateForm")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.lastCreate = in
	f.lastQuery = q
	return &model.FormRecord{ID: "f-new", ProcedureNumber: in.ProcedureNumber, Type: in.Type, Active: true}, nil
}

func (f *fakeForms) UpdateForm(_ context.Context, id string, patch model.FormPatch) (*model.FormRecord, error) {
	f.log.add("UpdateForm")
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.lastUpdateID = id
	f.lastPatch = patch
	return &model.FormRecord{ID: id}, nil
}

func (f *fakeForms) CleanupStaleForms(_ context.Context) error {
	f.log.add("CleanupStaleForms")
	if f.cleanupFinished != nil {
		close(f.cleanupFinished)
	}
	return nil
}

func (f *fakeForms) PrintForm(_ context.Context, payload model.PrintPayload) error {
	f.log.add("PrintForm")
	f.lastPrint = payload
	return f.printErr
}

// fakePersons — фейковый PersonGateway.
type fakePersons struct {
	log *callLog

	persons   []model.Person
	byDNI     map[string]model.Person
	byID      map[string]model.Person
	createErr error
	findErr   error
	created   model.PersonDraft
}

func (f *fakePersons) GetPerson(_ context.Context, id string) (*model.Person, error) {
	f.log.add("GetPerson")
	p, ok := f.byID[id]
	if !ok {
		return nil, apiErr(404, "persona no encontrada")
	}
	return &p, nil
}

func (f *fakePersons) FindPersonByNationalID(_ context.Context, dni string) (*model.Person, error) {
	f.log.add("FindPersonByNationalID")
	if f.findErr != nil {
		return nil, f.findErr
	}
	p, ok := f.byDNI[dni]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakePersons) ListPersons(_ context.Context, _ model.SortState) ([]model.Person, error) {
	f.log.add("ListPersons")
	return f.persons, nil
}

func (f *fakePersons) CreatePerson(_ context.Context, d model.PersonDraft) (*model.Person, error) {
	f.log.add("CreatePerson")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = d
	return &model.Person{ID: "p-new", LastName: d.LastName, FirstName: d.FirstName, NationalID: d.NationalID}, nil
}

// fakeLocations — фейковый LocationGateway.
type fakeLocations struct {
	log       *callLog
	locations []model.Location
	err       error
}

func (f *fakeLocations) ListLocations(_ context.Context, _ model.SortState) ([]model.Location, error) {
	f.log.add("ListLocations")
	return f.locations, f.err
}

// fakeNotifier — UI-коллаборатор, запоминающий уведомления.
type fakeNotifier struct {
	infos     []string
	errors    []string
	confirm   bool
	asked     []string
	documents []string
}

func (n *fakeNotifier) Info(key string)       { n.infos = append(n.infos, key) }
func (n *fakeNotifier) Error(message string)  { n.errors = append(n.errors, message) }
func (n *fakeNotifier) OpenDocument(u string) { n.documents = append(n.documents, u) }
func (n *fakeNotifier) Confirm(key string) bool {
	n.asked = append(n.asked, key)
	return n.confirm
}

// fakeAuditStore — хранилище журнала в памяти.
type fakeAuditStore struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
}

func (s *fakeAuditStore) Insert(_ context.Context, e *model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *fakeAuditStore) ListRecent(_ context.Context, limit int) ([]*model.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.AuditEntry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *fakeAuditStore) ListByForm(_ context.Context, formID string) ([]*model.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.AuditEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].FormID == formID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

// testEnv — собранный контроллер с фейками.
type testEnv struct {
	log       *callLog
	forms     *fakeForms
	persons   *fakePersons
	locations *fakeLocations
	audit     *fakeAuditStore
	svc       *FormWorkflowService
	ui        *fakeNotifier
	state     *model.WorkflowState
}

func newTestEnv() *testEnv {
	log := &callLog{}
	env := &testEnv{
		log:       log,
		forms:     &fakeForms{log: log, byID: map[string]model.FormRecord{}},
		persons:   &fakePersons{log: log, byDNI: map[string]model.Person{}, byID: map[string]model.Person{}},
		locations: &fakeLocations{log: log},
		audit:     &fakeAuditStore{},
		ui:        &fakeNotifier{},
		state:     model.NewWorkflowState(10),
	}
	env.svc = NewFormWorkflowService(
		env.forms, env.persons, env.locations,
		NewPersonCache(100, time.Minute),
		NewAuditService(env.audit, testLogger()),
		WorkflowConfig{PDFBaseURL: "https://api.test/", ExcludedLocation: "DIRECCION DE TRANSPORTE", CleanupTimeout: time.Second},
		testLogger(),
	)
	return env
}

func (e *testEnv) controller(user model.User) *FormWorkflow {
	return e.svc.Controller(user, e.state, e.ui)
}

var (
	adminUser    = model.User{ID: "u-admin", Username: "admin", Role: model.RoleAdmin}
	operatorUser = model.User{ID: "u-op", Username: "op", Role: "USER_ROLE", LocationID: "l-op"}
	managerUser  = model.User{ID: "u-mgr", Username: "mgr", Role: "USER_ROLE", LocationID: "l-op", Permissions: []string{model.PermissionFormsAll}}
)
