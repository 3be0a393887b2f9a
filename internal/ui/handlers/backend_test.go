package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/apiclient"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/service"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/statestore"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/auth"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/i18n"
	uimiddleware "github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/middleware"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Операторы тестов.
var (
	operatorUser = model.User{ID: "u-op", Username: "op", Role: "USER_ROLE", LocationID: "l1"}
	managerUser  = model.User{ID: "u-mgr", Username: "mgr", Role: "USER_ROLE", LocationID: "l1",
		Permissions: []string{model.PermissionFormsAll}}
	adminUser = model.User{ID: "u-admin", Username: "admin", Role: model.RoleAdmin}
)

// fakeBackend — in-memory backend API формуляров.
type fakeBackend struct {
	mu      sync.Mutex
	forms   []model.FormRecord
	persons []model.Person
	calls   []string
	// lastBody — тело последнего POST/PUT по ключу "METHOD path"
	lastBody map[string][]byte
	// rejectToken — отвечать 401 на все авторизованные запросы
	rejectToken bool
	// forbidUpdate — отвечать 403 с сообщением на PUT формуляра
	forbidUpdate bool
}

func newFakeBackend() *fakeBackend {
	ana := model.Person{ID: "p1", LastName: "Diaz", FirstName: "Ana", NationalID: "111"}
	return &fakeBackend{
		persons: []model.Person{ana},
		forms: []model.FormRecord{
			{
				ID: "f1", ProcedureNumber: "T-100", Type: model.FormTypeAuto, Active: true,
				FormattedNumber: "00000001", Person: ana,
				Location:  model.Location{ID: "l1", Description: "CENTRO"},
				CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			},
		},
		lastBody: make(map[string][]byte),
	}
}

func (b *fakeBackend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := r.Method + " " + r.URL.Path
	b.calls = append(b.calls, key)
	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut) {
		data, _ := io.ReadAll(r.Body)
		b.lastBody[key] = data
	}
}

// called сообщает, был ли вызов "METHOD path".
func (b *fakeBackend) called(call string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if c == call {
			return true
		}
	}
	return false
}

// calledPrefix сообщает, был ли вызов, начинающийся с prefix.
func (b *fakeBackend) calledPrefix(prefix string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (b *fakeBackend) body(call string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastBody[call]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	authorized := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			b.record(r)
			b.mu.Lock()
			reject := b.rejectToken
			b.mu.Unlock()
			if reject || r.Header.Get("Authorization") == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Token inválido"})
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		_ = json.Unmarshal(b.body("POST /auth/login"), &body)
		if body.Password != "secret" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "Datos incorrectos"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": "tok-" + body.Username})
	})
	mux.HandleFunc("GET /auth", authorized(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"usuario": map[string]any{
				"_id": "u-op", "usuario": "op", "nombre": "Juan", "apellido": "Perez",
				"role": "USER_ROLE", "permisos": []string{}, "lugar": "l1",
			},
			"token": r.Header.Get("Authorization") + "-renewed",
		})
	}))

	mux.HandleFunc("GET /lugares", authorized(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"lugares": []model.Location{
			{ID: "l0", Description: "DIRECCION DE TRANSPORTE"},
			{ID: "l1", Description: "CENTRO"},
		}})
	}))

	mux.HandleFunc("GET /formulario-practica/antiguos/limpiar/todos", authorized(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"msg": "ok"})
	}))
	mux.HandleFunc("GET /formulario-practica", authorized(func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"formularios": b.forms})
	}))
	mux.HandleFunc("GET /formulario-practica/lugar/{location}", authorized(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		out := []model.FormRecord{}
		for _, f := range b.forms {
			if f.Location.ID == r.PathValue("location") {
				out = append(out, f)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"formularios": out})
	}))
	mux.HandleFunc("GET /formulario-practica/{id}", authorized(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, f := range b.forms {
			if f.ID == r.PathValue("id") {
				writeJSON(w, http.StatusOK, map[string]any{"formulario": f})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "El formulario no existe"})
	}))
	mux.HandleFunc("POST /formulario-practica", authorized(func(w http.ResponseWriter, r *http.Request) {
		var in model.FormInput
		_ = json.Unmarshal(b.body("POST /formulario-practica"), &in)

		b.mu.Lock()
		defer b.mu.Unlock()
		if in.ProcedureNumber == "DUP" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "El trámite ya tiene formulario"})
			return
		}
		rec := model.FormRecord{
			ID: "f-new", ProcedureNumber: in.ProcedureNumber, Type: in.Type, Active: true,
			Location: model.Location{ID: in.LocationID}, Person: model.Person{ID: in.PersonID},
		}
		b.forms = append(b.forms, rec)
		writeJSON(w, http.StatusCreated, map[string]any{"formulario": rec})
	}))
	mux.HandleFunc("PUT /formulario-practica/{id}", authorized(func(w http.ResponseWriter, r *http.Request) {
		var patch model.FormPatch
		_ = json.Unmarshal(b.body("PUT "+r.URL.Path), &patch)

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.forbidUpdate {
			writeJSON(w, http.StatusForbidden, map[string]string{"msg": "No tiene permisos para modificar el formulario"})
			return
		}
		for i, f := range b.forms {
			if f.ID != r.PathValue("id") {
				continue
			}
			if patch.Active != nil {
				b.forms[i].Active = *patch.Active
			}
			if patch.ProcedureNumber != nil {
				b.forms[i].ProcedureNumber = *patch.ProcedureNumber
			}
			writeJSON(w, http.StatusOK, map[string]any{"formulario": b.forms[i]})
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "El formulario no existe"})
	}))
	mux.HandleFunc("POST /formulario-practica/imprimir", authorized(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"msg": "ok"})
	}))

	mux.HandleFunc("GET /personas", authorized(func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"personas": b.persons})
	}))
	mux.HandleFunc("GET /personas/{id}", authorized(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, p := range b.persons {
			if p.ID == r.PathValue("id") {
				writeJSON(w, http.StatusOK, map[string]any{"persona": p})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "La persona no existe"})
	}))
	mux.HandleFunc("GET /personas/dni/{dni}", authorized(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, p := range b.persons {
			if p.NationalID == r.PathValue("dni") {
				writeJSON(w, http.StatusOK, map[string]any{"persona": p})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"persona": nil})
	}))
	mux.HandleFunc("POST /personas", authorized(func(w http.ResponseWriter, _ *http.Request) {
		var draft model.PersonDraft
		_ = json.Unmarshal(b.body("POST /personas"), &draft)

		b.mu.Lock()
		defer b.mu.Unlock()
		p := model.Person{ID: "p-new", LastName: draft.LastName, FirstName: draft.FirstName, NationalID: draft.NationalID}
		b.persons = append(b.persons, p)
		writeJSON(w, http.StatusCreated, map[string]any{"persona": p})
	}))

	return mux
}

// testEnv — портал, подключённый к fakeBackend.
type testEnv struct {
	backend  *fakeBackend
	router   http.Handler
	sessions *auth.SessionManager
	store    *statestore.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()

	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	client, err := apiclient.New(apiclient.Options{BaseURL: srv.URL, Timeout: 5 * time.Second},
		uimiddleware.TokenFromContext, logger)
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	sessions, err := auth.NewSessionManager("test-secret", false)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	store := statestore.NewMemoryStore(100, time.Hour)
	audit := service.NewAuditService(nil, logger)

	svc := service.NewFormWorkflowService(client, client, client,
		service.NewPersonCache(100, time.Minute), audit,
		service.WorkflowConfig{
			PDFBaseURL:       "https://api.test",
			ExcludedLocation: "DIRECCION DE TRANSPORTE",
		}, logger)
	// фоновая очистка должна завершиться до остановки backend
	t.Cleanup(svc.Wait)

	authHandler := NewAuthHandler(client, sessions, store, logger)
	formsHandler := NewFormsHandler(svc, audit, store, sessions, 10, logger)

	r := chi.NewRouter()
	r.Use(i18n.Middleware())
	r.Get("/login", authHandler.HandleLoginPage)
	r.Post("/login", authHandler.HandleLogin)
	r.Post("/logout", authHandler.HandleLogout)
	r.Post("/set-language", HandleSetLanguage)
	r.Group(func(r chi.Router) {
		r.Use(uimiddleware.NewUIAuth(sessions, logger).Middleware())
		r.Route("/formularios", formsHandler.Routes)
	})

	return &testEnv{backend: backend, router: r, sessions: sessions, store: store}
}

// session создаёт сессию оператора с фиксированным идентификатором.
func (e *testEnv) session(t *testing.T, user model.User) *http.Cookie {
	t.Helper()
	value, err := e.sessions.Encrypt(&auth.SessionData{ID: "s-" + user.ID, Token: "tok-" + user.Username, User: user})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookieName, Value: value}
}

// do выполняет запрос к порталу; form != nil — POST с формой.
func (e *testEnv) do(t *testing.T, method, path string, cookie *http.Cookie, form map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		vals := url.Values{}
		for k, v := range form {
			vals.Set(k, v)
		}
		body = strings.NewReader(vals.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept-Language", "es")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// state возвращает сохранённое состояние экрана оператора.
func (e *testEnv) state(t *testing.T, user model.User) *model.WorkflowState {
	t.Helper()
	st, err := e.store.Load(t.Context(), "s-"+user.ID)
	if err != nil {
		t.Fatalf("Load state: %v", err)
	}
	return st
}
