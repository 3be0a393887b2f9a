// Пакет apiclient — HTTP-клиент backend API формуляров практики.
// Каждая операция соответствует одному endpoint; заголовок Authorization
// берётся из сессии оператора через TokenProvider. Повторов, кэша и
// объединения запросов нет.
package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

// Prometheus-метрики запросов к backend.
var (
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pc_backend_requests_total",
			Help: "Общее количество запросов к backend API.",
		},
		[]string{"operation", "status"},
	)
	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pc_backend_request_duration_seconds",
			Help:    "Длительность запросов к backend API.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// ErrNoToken — в контексте нет токена сессии.
var ErrNoToken = errors.New("токен сессии отсутствует")

// TokenProvider — функция, возвращающая токен авторизации для запроса.
// Обычно читает токен из сессии, помещённой в context middleware.
type TokenProvider func(ctx context.Context) (string, error)

// APIError — ответ backend со статусом не 2xx.
type APIError struct {
	// Status — HTTP-статус ответа
	Status int
	// Message — сообщение из тела ответа (msg, message или error.message)
	Message string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend вернул статус %d", e.Status)
	}
	return fmt.Sprintf("backend вернул статус %d: %s", e.Status, e.Message)
}

// Options — параметры клиента.
type Options struct {
	// BaseURL — базовый URL backend API
	BaseURL string
	// Timeout — таймаут одного запроса
	Timeout time.Duration
	// AuthScheme — префикс заголовка Authorization ("" — токен как есть)
	AuthScheme string
	// CACertPath — путь к CA-сертификату (пустая строка — системный пул)
	CACertPath string
}

// Client — клиент backend API.
type Client struct {
	http          *resty.Client
	tokenProvider TokenProvider
	authScheme    string
	logger        *slog.Logger
}

// New создаёт клиент backend API.
// tokenProvider может быть nil — тогда доступны только публичные операции (Login).
func New(opts Options, tokenProvider TokenProvider, logger *slog.Logger) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	if opts.CACertPath != "" {
		tlsConfig, err := buildTLSConfig(opts.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата backend: %w", err)
		}
		rc.SetTLSClientConfig(tlsConfig)
		logger.Info("CA-сертификат backend добавлен в пул доверия",
			slog.String("ca_cert", opts.CACertPath),
		)
	}

	return &Client{
		http:          rc,
		tokenProvider: tokenProvider,
		authScheme:    strings.TrimSpace(opts.AuthScheme),
		logger:        logger.With(slog.String("component", "api_client")),
	}, nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// authorized создаёт запрос с заголовком Authorization.
func (c *Client) authorized(ctx context.Context) (*resty.Request, error) {
	if c.tokenProvider == nil {
		return nil, ErrNoToken
	}
	token, err := c.tokenProvider(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение токена: %w", err)
	}
	if token == "" {
		return nil, ErrNoToken
	}

	header := token
	if c.authScheme != "" {
		header = c.authScheme + " " + token
	}
	return c.http.R().SetContext(ctx).SetHeader("Authorization", header), nil
}

// public создаёт запрос без авторизации.
func (c *Client) public(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

// execute выполняет запрос, учитывает метрики и преобразует не-2xx ответ в *APIError.
// При успехе тело декодируется в out (если out != nil).
func (c *Client) execute(req *resty.Request, operation, method, path string, out any) error {
	start := time.Now()
	resp, err := req.Execute(method, path)
	backendRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if err != nil {
		backendRequestsTotal.WithLabelValues(operation, "error").Inc()
		c.logger.Warn("Запрос к backend не выполнен",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s: %w", operation, err)
	}

	status := resp.StatusCode()
	backendRequestsTotal.WithLabelValues(operation, strconv.Itoa(status)).Inc()

	if status < 200 || status > 299 {
		apiErr := &APIError{Status: status, Message: extractMessage(resp.Body())}
		c.logger.Warn("Backend вернул ошибку",
			slog.String("operation", operation),
			slog.Int("status", status),
			slog.String("message", apiErr.Message),
		)
		return fmt.Errorf("%s: %w", operation, apiErr)
	}

	if out == nil || len(bytes.TrimSpace(resp.Body())) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s: декодирование ответа: %w", operation, err)
	}
	return nil
}

// errorBody — варианты тела ошибки backend.
type errorBody struct {
	Msg     string          `json:"msg"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// extractMessage достаёт сообщение из тела ошибки.
// Порядок: msg, message, error.message, error (строка).
func extractMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return strings.TrimSpace(string(body))
	}
	if eb.Msg != "" {
		return eb.Msg
	}
	if eb.Message != "" {
		return eb.Message
	}
	if len(eb.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
			Msg     string `json:"msg"`
		}
		if err := json.Unmarshal(eb.Error, &nested); err == nil {
			if nested.Message != "" {
				return nested.Message
			}
			return nested.Msg
		}
		var s string
		if err := json.Unmarshal(eb.Error, &s); err == nil {
			return s
		}
	}
	return ""
}

// sortParams — параметры сортировки списка (direccion, columna).
func sortParams(s model.SortState) map[string]string {
	return map[string]string{
		"direccion": strconv.Itoa(s.Direction),
		"columna":   s.Column,
	}
}

// StatusOf возвращает HTTP-статус из *APIError в цепочке err (0, если его нет).
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized сообщает, что backend отклонил токен.
// 403 сюда не относится: это ответ с сообщением для оператора.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized || errors.Is(err, ErrNoToken)
}
