package pages

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/filter"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/rbac"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/i18n"
)

func TestMain(m *testing.M) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := i18n.LoadFromEmbedFS(i18n.Init(logger), logger); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func render(t *testing.T, lang string, fn func(ctx context.Context, w io.Writer) error) string {
	t.Helper()
	var buf bytes.Buffer
	if err := fn(i18n.WithLang(context.Background(), lang), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func assertContains(t *testing.T, html string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(html, w) {
			t.Errorf("страница не содержит %q", w)
		}
	}
}

func assertNotContains(t *testing.T, html string, unwanted ...string) {
	t.Helper()
	for _, w := range unwanted {
		if strings.Contains(html, w) {
			t.Errorf("страница содержит лишнее %q", w)
		}
	}
}

func sampleForms() FormsData {
	state := model.NewWorkflowState(10)
	state.Records = []model.FormRecord{
		{
			ID: "f1", ProcedureNumber: "T-100", Type: model.FormTypeAuto, Active: true,
			FormattedNumber: "00000001",
			Person:          model.Person{ID: "p1", LastName: "Diaz", FirstName: "Ana", NationalID: "111"},
			Location:        model.Location{ID: "l1", Description: "CENTRO"},
			CreatedAt:       time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}
	return FormsData{
		Layout: Layout{Username: "op"},
		State:  state,
		Page:   filter.Paginate(state.Records, 1, 10),
	}
}

func TestLogin(t *testing.T) {
	html := render(t, "es", Login(LoginData{Username: "juan", Error: "login.error.invalid"}).Render)

	assertContains(t, html,
		`action="/login"`,
		`value="juan"`,
		"Usuario o contraseña incorrectos",
		`lang="es"`,
	)
	assertNotContains(t, html, `action="/logout"`)
}

func TestForms_Table(t *testing.T) {
	html := render(t, "es", Forms(sampleForms()).Render)

	assertContains(t, html,
		"Formularios de práctica",
		"T-100",
		"Diaz Ana",
		"CENTRO",
		"/formularios/f1/edit",
		"/formularios/f1/print",
		"Página 1 de 1 (1 formularios)",
	)
	// без права управления нет переключателя активности
	assertNotContains(t, html, "/formularios/f1/toggle", "/formularios/activity")
}

func TestForms_ManageAll(t *testing.T) {
	data := sampleForms()
	data.Caps = rbac.Capabilities{ManageAll: true}
	data.ShowActivity = true
	data.AuditEnabled = true

	html := render(t, "en", Forms(data).Render)

	assertContains(t, html,
		"/formularios/f1/toggle",
		"Deactivate",
		"/formularios/activity?form=f1",
		`lang="en"`,
	)
}

func TestForms_Empty(t *testing.T) {
	data := sampleForms()
	data.State.Records = nil
	data.Page = filter.Paginate(nil, 1, 10)

	html := render(t, "es", Forms(data).Render)
	assertContains(t, html, "No hay formularios para mostrar")
}

func TestForms_Notices(t *testing.T) {
	data := sampleForms()
	data.Infos = []string{"forms.msg.required_fields"}
	data.Errors = []string{"El trámite ya existe", ""}
	data.Document = "https://api.test/pdf/formulario_auto.pdf"

	html := render(t, "es", Forms(data).Render)

	assertContains(t, html,
		"Completar los campos obligatorios",
		"El trámite ya existe",
		"Ha ocurrido un error",
		`href="https://api.test/pdf/formulario_auto.pdf"`,
		`target="_blank"`,
		"window.open(",
	)
}

func TestForms_Confirm(t *testing.T) {
	data := sampleForms()
	data.Confirm = &ConfirmData{FormID: "f1", Question: "forms.msg.confirm_toggle"}

	html := render(t, "es", Forms(data).Render)

	assertContains(t, html,
		"¿Quieres actualizar el estado?",
		`name="confirmed" value="true"`,
		"Actualizar",
	)
}

func TestForms_Modal(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(*FormsData)
		want     []string
		unwanted []string
	}{
		{
			name: "создание, поиск по DNI",
			prepare: func(d *FormsData) {
				d.State.Modal = model.ModalState{Open: true, Mode: model.ModalCreate}
			},
			want:     []string{"Nuevo formulario", "/formularios/person/lookup", "Crear formulario"},
			unwanted: []string{`name="lugar"`, `name="apellido"`},
		},
		{
			name: "администратор выбирает место",
			prepare: func(d *FormsData) {
				d.Caps = rbac.Capabilities{Admin: true, ManageAll: true}
				d.State.Modal = model.ModalState{Open: true, Mode: model.ModalCreate}
				d.State.Locations = []model.Location{{ID: "l1", Description: "CENTRO"}, {ID: "l2", Description: "NORTE"}}
				d.State.Fields.LocationID = "l2"
			},
			want: []string{`name="lugar"`, `<option value="l2" selected>NORTE</option>`},
		},
		{
			name: "новый человек",
			prepare: func(d *FormsData) {
				d.State.Modal = model.ModalState{Open: true, Mode: model.ModalCreate}
				d.State.NewPerson = true
				d.State.Draft = model.PersonDraft{NationalID: "222"}
			},
			want:     []string{`name="apellido"`, `name="dni_nuevo" value="222"`},
			unwanted: []string{"/formularios/person/lookup"},
		},
		{
			name: "редактирование с выбранным человеком",
			prepare: func(d *FormsData) {
				d.State.Modal = model.ModalState{Open: true, Mode: model.ModalEdit, TargetID: "f1"}
				d.State.Fields = model.FormFields{ProcedureNumber: "T-100", Type: model.FormTypeMoto}
				d.State.SelectedPerson = &model.Person{ID: "p1", LastName: "Diaz", FirstName: "Ana", NationalID: "111"}
			},
			want: []string{
				"Editando formulario",
				"Diaz Ana (111)",
				`<option value="Moto" selected>`,
				"Actualizar formulario",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := sampleForms()
			tt.prepare(&data)
			html := render(t, "es", Forms(data).Render)
			assertContains(t, html, tt.want...)
			assertNotContains(t, html, tt.unwanted...)
		})
	}
}

func TestActivity(t *testing.T) {
	entries := []*model.AuditEntry{
		{Action: model.AuditToggle, FormID: "f1", ProcedureNumber: "T-100", FormType: model.FormTypeAuto, Username: "admin"},
	}

	html := render(t, "es", Activity(ActivityData{Layout: Layout{Username: "admin", ShowActivity: true}, Entries: entries, FormID: "f1"}).Render)
	assertContains(t, html, "Historial del formulario f1", "Cambio de estado", "admin", "T-100")

	html = render(t, "es", Activity(ActivityData{Error: "activity.disabled"}).Render)
	assertContains(t, html, "El registro de actividad no está habilitado")

	html = render(t, "en", Activity(ActivityData{}).Render)
	assertContains(t, html, "No activity recorded")
}

func TestLayout_Navigation(t *testing.T) {
	tests := []struct {
		name     string
		layout   Layout
		want     []string
		unwanted []string
	}{
		{
			name:     "без оператора",
			layout:   Layout{},
			want:     []string{`action="/set-language"`},
			unwanted: []string{`action="/logout"`, `href="/formularios"`},
		},
		{
			name:     "оператор без журнала",
			layout:   Layout{Username: "Ana Diaz"},
			want:     []string{`action="/logout"`, `href="/formularios"`, "<span>Ana Diaz</span>"},
			unwanted: []string{`href="/formularios/activity"`},
		},
		{
			name:   "администратор с журналом",
			layout: Layout{Username: "admin", ShowActivity: true},
			want:   []string{`href="/formularios/activity"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := render(t, "es", Activity(ActivityData{Layout: tt.layout}).Render)
			assertContains(t, html, tt.want...)
			assertNotContains(t, html, tt.unwanted...)
		})
	}
}

func TestForms_EscapesBackendText(t *testing.T) {
	data := sampleForms()
	data.Errors = []string{`<script>alert("x")</script>`}
	data.State.Filter.Search = `"><b>`

	html := render(t, "es", Forms(data).Render)

	assertContains(t, html, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;", `value="&#34;&gt;&lt;b&gt;"`)
	assertNotContains(t, html, `<script>alert("x")</script>`)
}

func TestRender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(i18n.WithLang(context.Background(), "es"))
	cancel()

	var buf bytes.Buffer
	err := Forms(sampleForms()).Render(ctx, &buf)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render() = %v, ожидается %v", err, context.Canceled)
	}
	if buf.Len() != 0 {
		t.Errorf("len(html) = %d, ожидается 0", buf.Len())
	}
}
