// Пакет middleware — HTTP middleware экранов портала.
// auth.go — проверка сессии оператора (cookie-based).
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/apiclient"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/auth"
)

type contextKey string

// ContextKeyUISession — сессия оператора в контексте запроса.
const ContextKeyUISession contextKey = "ui_session"

// LoginPath — страница входа, на которую перенаправляются запросы без сессии.
const LoginPath = "/login"

// UIAuth — middleware проверки сессии оператора.
type UIAuth struct {
	sessionManager *auth.SessionManager
	logger         *slog.Logger
}

// NewUIAuth создаёт middleware.
func NewUIAuth(sessionManager *auth.SessionManager, logger *slog.Logger) *UIAuth {
	return &UIAuth{
		sessionManager: sessionManager,
		logger:         logger.With(slog.String("component", "ui_auth_middleware")),
	}
}

// Middleware пропускает запрос с действующей сессией и кладёт её в контекст.
// Нет сессии, повреждённый cookie или истёкший токен — redirect на /login.
func (ua *UIAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := ua.sessionManager.GetSessionFromRequest(r)
			if err != nil {
				ua.logger.Debug("Ошибка чтения сессии",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				ua.sessionManager.ClearSessionCookie(w)
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}

			if session == nil {
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}

			if session.IsExpired() {
				ua.logger.Info("Токен сессии истёк, redirect на login",
					slog.String("username", session.User.Username),
				)
				ua.sessionManager.ClearSessionCookie(w)
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// WithSession помещает сессию в контекст.
func WithSession(ctx context.Context, session *auth.SessionData) context.Context {
	return context.WithValue(ctx, ContextKeyUISession, session)
}

// SessionFromContext возвращает сессию из контекста или nil.
func SessionFromContext(ctx context.Context) *auth.SessionData {
	session, ok := ctx.Value(ContextKeyUISession).(*auth.SessionData)
	if !ok {
		return nil
	}
	return session
}

// TokenFromContext — apiclient.TokenProvider поверх сессии в контексте.
func TokenFromContext(ctx context.Context) (string, error) {
	session := SessionFromContext(ctx)
	if session == nil || session.Token == "" {
		return "", apiclient.ErrNoToken
	}
	return session.Token, nil
}
