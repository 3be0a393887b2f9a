// Пакет server — HTTP-сервер портала с graceful shutdown.
// Без TLS — TLS termination на ingress.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/inglucasmoreno/examen-conducir-portal-client/internal/api/errors"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/api/handlers"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/api/middleware"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/config"
	uihandlers "github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/handlers"
	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/i18n"
	uimiddleware "github.com/inglucasmoreno/examen-conducir-portal-client/internal/ui/middleware"
)

// Components — обработчики, из которых собирается маршрутизатор.
type Components struct {
	Health         *handlers.HealthHandler
	Auth           *uihandlers.AuthHandler
	Forms          *uihandlers.FormsHandler
	AuthMiddleware *uimiddleware.UIAuth
}

// Server — HTTP-сервер портала.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, c Components) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, c),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты портала.
func NewRouter(logger *slog.Logger, c Components) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.NotFound(w, "маршрут не найден")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.MethodNotAllowed(w, "метод не поддерживается")
	})

	// Пробы Kubernetes — без сессии и без i18n
	router.Get("/health/live", c.Health.HealthLive)
	router.Get("/health/ready", c.Health.HealthReady)
	router.Get("/metrics", c.Health.GetMetrics)

	router.Group(func(r chi.Router) {
		r.Use(i18n.Middleware())

		r.Get("/login", c.Auth.HandleLoginPage)
		r.Post("/login", c.Auth.HandleLogin)
		r.Post("/logout", c.Auth.HandleLogout)
		r.Post("/set-language", uihandlers.HandleSetLanguage)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/formularios", http.StatusFound)
		})

		r.Group(func(r chi.Router) {
			r.Use(c.AuthMiddleware.Middleware())
			r.Route("/formularios", c.Forms.Routes)
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
