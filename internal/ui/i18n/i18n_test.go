package i18n

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBundle_TranslateFallback(t *testing.T) {
	b := NewBundle(testLogger())
	if err := b.LoadMessages("es", []byte(`{"a": "uno", "b": "dos"}`)); err != nil {
		t.Fatalf("LoadMessages(es): %v", err)
	}
	if err := b.LoadMessages("en", []byte(`{"a": "one"}`)); err != nil {
		t.Fatalf("LoadMessages(en): %v", err)
	}

	tests := []struct {
		lang, key, want string
	}{
		{"en", "a", "one"},
		{"en", "b", "dos"},
		{"es", "a", "uno"},
		{"fr", "a", "uno"},
		{"en", "missing", "missing"},
	}
	for _, tt := range tests {
		if got := b.Translate(tt.lang, tt.key); got != tt.want {
			t.Errorf("Translate(%s, %s) = %q, ожидается %q", tt.lang, tt.key, got, tt.want)
		}
	}
}

func TestBundle_Translatef(t *testing.T) {
	b := NewBundle(testLogger())
	if err := b.LoadMessages("es", []byte(`{"p": "Página %d de %d"}`)); err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}

	if got := b.Translatef("es", "p", 2, 5); got != "Página 2 de 5" {
		t.Errorf("Translatef = %q", got)
	}
	if got := b.Translatef("es", "p"); got != "Página %d de %d" {
		t.Errorf("Translatef без аргументов = %q", got)
	}
}

func TestBundle_LoadMessagesInvalid(t *testing.T) {
	b := NewBundle(testLogger())
	if err := b.LoadMessages("es", []byte(`{"a": 1`)); err == nil {
		t.Error("LoadMessages с битым JSON не вернул ошибку")
	}
}

// TestEmbeddedCatalogs проверяет, что оба каталога содержат одинаковый набор ключей.
func TestEmbeddedCatalogs(t *testing.T) {
	b := NewBundle(testLogger())
	if err := LoadFromEmbedFS(b, testLogger()); err != nil {
		t.Fatalf("LoadFromEmbedFS: %v", err)
	}

	keys := func(lang string) map[string]string {
		data, err := LocaleFS.ReadFile("locales/" + lang + ".json")
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", lang, err)
		}
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("Unmarshal(%s): %v", lang, err)
		}
		return m
	}
	es, en := keys("es"), keys("en")

	for k := range es {
		if _, ok := en[k]; !ok {
			t.Errorf("ключ %q отсутствует в en.json", k)
		}
	}
	for k := range en {
		if _, ok := es[k]; !ok {
			t.Errorf("ключ %q отсутствует в es.json", k)
		}
	}

	if got := b.Translate("es", "forms.msg.required_fields"); got != "Completar los campos obligatorios" {
		t.Errorf("forms.msg.required_fields = %q", got)
	}
	if got := b.Translate("es", "forms.msg.permission_denied"); got != "Usted no tiene permiso para realizar esta acción" {
		t.Errorf("forms.msg.permission_denied = %q", got)
	}
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"en-US,en;q=0.9", "en"},
		{"es-AR,es;q=0.9,en;q=0.8", "es"},
		{"de-DE", "es"},
		{"", "es"},
	}
	for _, tt := range tests {
		if got := MatchLanguage(tt.header); got != tt.want {
			t.Errorf("MatchLanguage(%q) = %q, ожидается %q", tt.header, got, tt.want)
		}
	}
}

func TestLangFromContext(t *testing.T) {
	if got := LangFromContext(context.Background()); got != DefaultLang {
		t.Errorf("LangFromContext(пустой) = %q, ожидается %q", got, DefaultLang)
	}
	if got := LangFromContext(WithLang(context.Background(), "en")); got != "en" {
		t.Errorf("LangFromContext = %q, ожидается en", got)
	}
}

func TestMiddleware_DetectLanguage(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		accept string
		want   string
	}{
		{"cookie en", "en", "es", "en"},
		{"неподдерживаемый cookie", "fr", "en-GB", "en"},
		{"accept-language", "", "en", "en"},
		{"по умолчанию", "", "", "es"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = LangFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: LangCookieName, Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("язык = %q, ожидается %q", got, tt.want)
			}
		})
	}
}
