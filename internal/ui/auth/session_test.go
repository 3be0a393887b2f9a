package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

// signedToken создаёт токен backend с заданным exp (nil — без exp).
func signedToken(t *testing.T, exp *time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"uid": "u1"}
	if exp != nil {
		claims["exp"] = exp.Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("подпись токена: %v", err)
	}
	return token
}

func TestSessionEncryptDecryptRoundTrip(t *testing.T) {
	sm, err := NewSessionManager("", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}

	original := &SessionData{
		ID:        "sess-1",
		Token:     "token-123",
		ExpiresAt: time.Now().Add(5 * time.Minute).Unix(),
		User: model.User{
			ID: "u1", Username: "op", Role: "USER_ROLE",
			Permissions: []string{model.PermissionFormsAll}, LocationID: "l1",
		},
	}

	encrypted, err := sm.Encrypt(original)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}
	decrypted, err := sm.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Ошибка дешифрования: %v", err)
	}

	if decrypted.ID != original.ID || decrypted.Token != original.Token {
		t.Errorf("ID/Token = %q/%q, ожидается %q/%q", decrypted.ID, decrypted.Token, original.ID, original.Token)
	}
	if decrypted.ExpiresAt != original.ExpiresAt {
		t.Errorf("ExpiresAt = %d, ожидается %d", decrypted.ExpiresAt, original.ExpiresAt)
	}
	if decrypted.User.LocationID != "l1" || len(decrypted.User.Permissions) != 1 {
		t.Errorf("User = %+v", decrypted.User)
	}
}

func TestSessionDecryptWithWrongKey(t *testing.T) {
	sm1, _ := NewSessionManager("key-one", false)
	sm2, _ := NewSessionManager("key-two", false)

	encrypted, err := sm1.Encrypt(&SessionData{Token: "secret"})
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}
	if _, err := sm2.Decrypt(encrypted); err == nil {
		t.Error("Ожидалась ошибка при дешифровании чужим ключом")
	}
}

func TestSessionDecryptGarbage(t *testing.T) {
	sm, _ := NewSessionManager("key", false)
	for _, in := range []string{"", "!!!", "c2hvcnQ="} {
		if _, err := sm.Decrypt(in); err == nil {
			t.Errorf("Decrypt(%q) не вернул ошибку", in)
		}
	}
}

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt int64
		want      bool
	}{
		{"без срока", 0, false},
		{"в прошлом", time.Now().Add(-time.Minute).Unix(), true},
		{"через минуту", time.Now().Add(time.Minute).Unix(), false},
		{"в буферной зоне", time.Now().Add(20 * time.Second).Unix(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &SessionData{ExpiresAt: tt.expiresAt}
			if got := s.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, ожидается %v", got, tt.want)
			}
		})
	}
}

func TestSessionCookieSetAndGet(t *testing.T) {
	sm, _ := NewSessionManager("test-key", true)
	data := &SessionData{ID: "sess-1", Token: "access-123", User: model.User{Username: "op"}}

	w := httptest.NewRecorder()
	if err := sm.SetSessionCookie(w, data); err != nil {
		t.Fatalf("Ошибка установки cookie: %v", err)
	}

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Cookie не установлен")
	}
	cookie := cookies[0]
	if cookie.Name != SessionCookieName || cookie.Path != "/" {
		t.Errorf("cookie = %s path %s, ожидается %s path /", cookie.Name, cookie.Path, SessionCookieName)
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("атрибуты cookie: HttpOnly=%v Secure=%v SameSite=%v", cookie.HttpOnly, cookie.Secure, cookie.SameSite)
	}

	req := httptest.NewRequest(http.MethodGet, "/formularios", nil)
	req.AddCookie(cookie)
	got, err := sm.GetSessionFromRequest(req)
	if err != nil {
		t.Fatalf("Ошибка чтения сессии: %v", err)
	}
	if got == nil || got.Token != "access-123" {
		t.Errorf("сессия = %+v", got)
	}
}

func TestSessionCookieMissing(t *testing.T) {
	sm, _ := NewSessionManager("test-key", false)
	req := httptest.NewRequest(http.MethodGet, "/formularios", nil)

	got, err := sm.GetSessionFromRequest(req)
	if err != nil || got != nil {
		t.Errorf("GetSessionFromRequest = %+v, %v; ожидается nil, nil", got, err)
	}
}

func TestClearSessionCookie(t *testing.T) {
	sm, _ := NewSessionManager("test-key", false)
	w := httptest.NewRecorder()
	sm.ClearSessionCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("cookies = %+v, ожидается удаление", cookies)
	}
}

func TestNewSessionData(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	s := NewSessionData(signedToken(t, &exp), model.User{Username: "op"})
	if s.ID == "" {
		t.Error("ID не сгенерирован")
	}
	if s.ExpiresAt != exp.Unix() {
		t.Errorf("ExpiresAt = %d, ожидается %d", s.ExpiresAt, exp.Unix())
	}

	// токен без exp и непрозрачный токен не ограничивают сессию
	if s := NewSessionData(signedToken(t, nil), model.User{}); s.ExpiresAt != 0 {
		t.Errorf("ExpiresAt = %d для токена без exp", s.ExpiresAt)
	}
	if s := NewSessionData("opaque-token", model.User{}); s.ExpiresAt != 0 {
		t.Errorf("ExpiresAt = %d для непрозрачного токена", s.ExpiresAt)
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)

	got, err := TokenExpiry(signedToken(t, &exp))
	if err != nil {
		t.Fatalf("TokenExpiry: %v", err)
	}
	if !got.Equal(exp) {
		t.Errorf("TokenExpiry = %v, ожидается %v", got, exp)
	}

	if _, err := TokenExpiry("not-a-jwt"); err == nil {
		t.Error("TokenExpiry не вернул ошибку для некорректного токена")
	}
}
