// metrics.go — Prometheus HTTP метрики портала.
// Регистрирует метрики: pc_http_requests_total, pc_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pc_http_requests_total",
			Help: "Общее количество HTTP-запросов к порталу",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pc_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к порталу в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// staticPaths — маршруты без параметров.
var staticPaths = map[string]bool{
	"/":                          true,
	"/health/live":               true,
	"/health/ready":              true,
	"/metrics":                   true,
	"/login":                     true,
	"/logout":                    true,
	"/set-language":              true,
	"/formularios":               true,
	"/formularios/filter":        true,
	"/formularios/page":          true,
	"/formularios/sort":          true,
	"/formularios/new":           true,
	"/formularios/close":         true,
	"/formularios/submit":        true,
	"/formularios/person/lookup": true,
	"/formularios/person/clear":  true,
	"/formularios/export.xlsx":   true,
	"/formularios/activity":      true,
}

// normalizePath заменяет идентификатор формуляра на {id}, а неизвестные
// пути сводит к "other", ограничивая кардинальность метрик.
// /formularios/65f0c.../toggle → /formularios/{id}/toggle
func normalizePath(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if staticPaths[path] {
		return path
	}

	rest, ok := strings.CutPrefix(path, "/formularios/")
	if ok {
		id, action, found := strings.Cut(rest, "/")
		if found && id != "" {
			switch action {
			case "edit", "toggle", "print":
				return "/formularios/{id}/" + action
			}
		}
	}

	return "other"
}
