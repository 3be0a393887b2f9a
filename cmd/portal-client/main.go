// Точка входа портала формуляров практики.
// Загружает конфигурацию, при наличии PostgreSQL применяет миграции журнала
// действий, выбирает хранилище состояний (Redis или память), создаёт клиент
// backend API, сервисный слой и UI handlers, запускает topologymetrics
// и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/api/handlers"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/apiclient"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/config"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/database"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/repository"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/server"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/service"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/statestore"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/auth"
	uihandlers "github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/handlers"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/i18n"
	uimiddleware "github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/middleware"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Портал формуляров запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	// 3. Каталоги переводов
	if err := i18n.LoadFromEmbedFS(i18n.Init(logger), logger); err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	// 4. PostgreSQL журнала действий (опционально)
	var (
		pool       *pgxpool.Pool
		pgDB       *sql.DB
		auditStore service.AuditStore
	)
	if cfg.AuditEnabled() {
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		pool, err = database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		// Адаптер pgxpool → *sql.DB для topologymetrics
		pgDB = stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()

		auditStore = repository.NewAuditLogRepository(pool)
	} else {
		logger.Info("PC_DB_HOST не задан, журнал действий отключён")
	}

	// 5. Хранилище состояний экранов
	var (
		stateStore  statestore.Store
		redisClient *redis.Client
	)
	if cfg.RedisEnabled() {
		redisClient = statestore.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisClient.Close()

		stateStore = statestore.NewRedisStore(redisClient, cfg.StateTTL)
		if err := stateStore.Ping(ctx); err != nil {
			logger.Warn("Redis недоступен при старте",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
		}
		logger.Info("Состояние экранов хранится в Redis", slog.String("addr", cfg.RedisAddr))
	} else {
		stateStore = statestore.NewMemoryStore(cfg.StateMaxEntries, cfg.StateTTL)
		logger.Info("Состояние экранов хранится в памяти процесса",
			slog.Int("max_entries", cfg.StateMaxEntries),
		)
	}

	// 6. Клиент backend API (токен берётся из сессии запроса)
	client, err := apiclient.New(apiclient.Options{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout,
		AuthScheme: cfg.APIAuthScheme,
		CACertPath: cfg.APICACertPath,
	}, uimiddleware.TokenFromContext, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента backend API", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. Services
	auditSvc := service.NewAuditService(auditStore, logger)
	workflowSvc := service.NewFormWorkflowService(
		client, client, client,
		service.NewPersonCache(cfg.PersonCacheSize, cfg.PersonCacheTTL),
		auditSvc,
		service.WorkflowConfig{
			PDFBaseURL:       cfg.PDFBaseURL,
			ExcludedLocation: cfg.ExcludedLocation,
			CleanupTimeout:   cfg.CleanupTimeout,
		},
		logger,
	)

	// 8. Session Manager — шифрование cookie сессии (AES-256-GCM)
	sessionMgr, err := auth.NewSessionManager(cfg.SessionSecret, cfg.SecureCookie)
	if err != nil {
		logger.Error("Ошибка создания Session Manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.SessionSecret == "" {
		logger.Warn("PC_SESSION_SECRET не задан, сессии не сохраняются между рестартами")
	}

	// 9. topologymetrics — мониторинг зависимостей
	if os.Getenv("PC_DEPHEALTH_GROUP") == "" {
		logger.Warn("PC_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}
	dephealthSvc, err := service.NewDephealthService(service.DephealthParams{
		ServiceID:     "portal-client",
		Group:         cfg.DephealthGroup,
		APIBaseURL:    cfg.APIBaseURL,
		APIHealthPath: cfg.APIHealthPath,
		DB:            pgDB,
		DBURL:         cfg.DatabaseURL(),
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	}

	// 10. Readiness checks
	checks := []handlers.Check{
		{Name: "state_store", Checker: database.NewPingChecker("Хранилище состояний", stateStore), Critical: true},
	}
	if dephealthSvc != nil {
		checks = append(checks, handlers.Check{
			Name:     service.DepBackendAPI,
			Checker:  handlers.NewDependencyChecker(dephealthSvc, service.DepBackendAPI),
			Critical: true,
		})
	}
	if pool != nil {
		checks = append(checks, handlers.Check{
			Name:    service.DepPostgreSQL,
			Checker: database.NewReadinessChecker(pool),
		})
	}

	// 11. HTTP-сервер
	srv := server.New(cfg, logger, server.Components{
		Health:         handlers.NewHealthHandler(checks...),
		Auth:           uihandlers.NewAuthHandler(client, sessionMgr, stateStore, logger),
		Forms:          uihandlers.NewFormsHandler(workflowSvc, auditSvc, stateStore, sessionMgr, cfg.PageSize, logger),
		AuthMiddleware: uimiddleware.NewUIAuth(sessionMgr, logger),
	})
	runErr := srv.Run()

	// 12. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	workflowSvc.Wait()

	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
	logger.Info("Портал формуляров остановлен")
}
