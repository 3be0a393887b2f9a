package apiclient

import (
	"context"
	"net/http"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

// loginRequest — тело POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Profile — ответ GET /auth: оператор и обновлённый токен.
type Profile struct {
	User  model.User `json:"usuario"`
	Token string     `json:"token"`
}

// Login проверяет учётные данные и возвращает токен.
// POST /auth/login
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	req := c.public(ctx).SetBody(loginRequest{Username: username, Password: password})
	if err := c.execute(req, "login", http.MethodPost, "/auth/login", &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &APIError{Status: http.StatusUnauthorized, Message: "respuesta sin token"}
	}
	return out.Token, nil
}

// Profile возвращает оператора по токену сессии.
// GET /auth
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := c.execute(req, "profile", http.MethodGet, "/auth", &p); err != nil {
		return nil, err
	}
	return &p, nil
}
