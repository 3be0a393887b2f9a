// dephealth.go — мониторинг зависимостей портала через topologymetrics SDK.
//
// Портал проверяет:
//   - backend API — HTTP checker (critical), без него экран не работает;
//   - PostgreSQL журнала действий — SQL checker через pgxpool (не critical),
//     только если журнал включён.
//
// Метрики app_dependency_* публикуются на /metrics.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// Имена зависимостей в метриках.
const (
	DepBackendAPI = "backend-api"
	DepPostgreSQL = "postgresql"
)

// DephealthParams — параметры мониторинга зависимостей.
type DephealthParams struct {
	// ServiceID — имя вершины графа портала
	ServiceID string
	// Group — группа в метриках (PC_DEPHEALTH_GROUP)
	Group string
	// APIBaseURL и APIHealthPath — проверяемый endpoint backend
	APIBaseURL    string
	APIHealthPath string
	// DB — *sql.DB из pgxpool (stdlib.OpenDBFromPool); nil — журнал выключен
	DB *sql.DB
	// DBURL — URL PostgreSQL для лейблов метрик
	DBURL string
	// CheckInterval — интервал проверки
	CheckInterval time.Duration
}

// DephealthService — сервис мониторинга зависимостей.
type DephealthService struct {
	dh     *dephealth.DepHealth
	deps   []string
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(p DephealthParams, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(p, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(p DephealthParams, logger *slog.Logger, registerer prometheus.Registerer) (*DephealthService, error) {
	return newDephealthService(p, logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(p DephealthParams, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	healthPath := p.APIHealthPath
	if healthPath == "" {
		healthPath = "/"
	}

	apiOpts := []dephealth.DependencyOption{
		dephealth.FromURL(p.APIBaseURL),
		dephealth.WithHTTPHealthPath(healthPath),
		dephealth.CheckInterval(p.CheckInterval),
		dephealth.Critical(true),
	}
	if parsed, err := url.Parse(p.APIBaseURL); err == nil && parsed.Scheme == "https" {
		apiOpts = append(apiOpts, dephealth.WithHTTPTLSSkipVerify(false))
	}

	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.HTTP(DepBackendAPI, apiOpts...),
	}
	deps := []string{DepBackendAPI}

	if p.DB != nil {
		opts = append(opts, dephealth.AddDependency(DepPostgreSQL, dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(p.DB)),
			dephealth.FromURL(p.DBURL),
			dephealth.CheckInterval(p.CheckInterval),
			dephealth.Critical(false),
		))
		deps = append(deps, DepPostgreSQL)
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(p.ServiceID, p.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		deps:   deps,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Dependencies возвращает имена отслеживаемых зависимостей.
func (ds *DephealthService) Dependencies() []string {
	return ds.deps
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен", slog.Any("dependencies", ds.deps))
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей (имя → ok).
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
