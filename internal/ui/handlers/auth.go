// Пакет handlers — HTTP-обработчики экранов портала.
// auth.go — вход по логину и паролю через backend, выход.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/apiclient"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/statestore"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/auth"
	uimiddleware "github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/middleware"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/pages"
)

// Ключи сообщений страницы входа.
const (
	msgLoginRequired = "login.error.required"
	msgLoginInvalid  = "login.error.invalid"
	msgLoginBackend  = "login.error.backend"
)

// Authenticator — операции backend, нужные для входа.
// Реализуется *apiclient.Client.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Profile(ctx context.Context) (*apiclient.Profile, error)
}

// AuthHandler — обработчики входа и выхода.
type AuthHandler struct {
	authn          Authenticator
	sessionManager *auth.SessionManager
	store          statestore.Store
	logger         *slog.Logger
}

// NewAuthHandler создаёт новый AuthHandler.
func NewAuthHandler(
	authn Authenticator,
	sessionManager *auth.SessionManager,
	store statestore.Store,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authn:          authn,
		sessionManager: sessionManager,
		store:          store,
		logger:         logger.With(slog.String("component", "ui_auth")),
	}
}

// HandleLoginPage — GET /login.
// Оператор с действующей сессией сразу попадает на экран формуляров.
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if session, err := h.sessionManager.GetSessionFromRequest(r); err == nil && session != nil && !session.IsExpired() {
		http.Redirect(w, r, formsPath, http.StatusFound)
		return
	}
	h.renderLogin(w, r, http.StatusOK, pages.LoginData{})
}

// HandleLogin — POST /login.
// 1. POST /auth/login → токен; 2. GET /auth → профиль; 3. cookie сессии.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		h.renderLogin(w, r, http.StatusBadRequest, pages.LoginData{Username: username, Error: msgLoginRequired})
		return
	}

	// 1. Токен
	token, err := h.authn.Login(r.Context(), username, password)
	if err != nil {
		status, key := http.StatusBadGateway, msgLoginBackend
		switch apiclient.StatusOf(err) {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			status, key = http.StatusUnauthorized, msgLoginInvalid
		}
		h.logger.Warn("Вход отклонён",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		h.renderLogin(w, r, status, pages.LoginData{Username: username, Error: key})
		return
	}

	// 2. Профиль оператора по новому токену
	ctx := uimiddleware.WithSession(r.Context(), &auth.SessionData{Token: token})
	profile, err := h.authn.Profile(ctx)
	if err != nil {
		h.logger.Error("Ошибка получения профиля оператора",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		h.renderLogin(w, r, http.StatusBadGateway, pages.LoginData{Username: username, Error: msgLoginBackend})
		return
	}
	if profile.Token != "" {
		token = profile.Token
	}

	// 3. Сессия
	session := auth.NewSessionData(token, profile.User)
	if err := h.sessionManager.SetSessionCookie(w, session); err != nil {
		h.logger.Error("Ошибка установки session cookie",
			slog.String("error", err.Error()),
		)
		http.Error(w, "Ошибка создания сессии", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Оператор вошёл в систему",
		slog.String("username", profile.User.Username),
		slog.String("role", profile.User.Role),
	)
	http.Redirect(w, r, formsPath, http.StatusSeeOther)
}

// HandleLogout — POST /logout.
// Удаляет состояние экрана оператора и cookie сессии.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if session, err := h.sessionManager.GetSessionFromRequest(r); err == nil && session != nil {
		if err := h.store.Delete(r.Context(), session.ID); err != nil {
			h.logger.Warn("Ошибка удаления состояния экрана",
				slog.String("error", err.Error()),
			)
		}
		h.logger.Info("Оператор вышел из системы",
			slog.String("username", session.User.Username),
		)
	}

	h.sessionManager.ClearSessionCookie(w)
	http.Redirect(w, r, uimiddleware.LoginPath, http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data pages.LoginData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.Login(data).Render(r.Context(), w); err != nil {
		h.logger.Error("Ошибка рендеринга страницы входа",
			slog.String("error", err.Error()),
		)
	}
}
