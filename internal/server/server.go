// Пакет server — HTTP-сервер Mod Store с graceful shutdown.
// Без TLS — TLS termination на балансировщике.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/api/handlers"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/api/middleware"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/config"
)

// readHeaderTimeout — таймаут чтения заголовков запроса.
// WriteTimeout не задаётся: поток событий загрузки может длиться минуты.
const readHeaderTimeout = 10 * time.Second

// Server — HTTP-сервер Mod Store.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, h *handlers.APIHandler, sessionAuth *middleware.SessionAuth) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           NewRouter(cfg, logger, h, sessionAuth),
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       2 * time.Minute,
		},
		logger: logger,
		cfg:    cfg,
	}
}

// NewRouter собирает маршруты:
// /health/*, /metrics — эксплуатация;
// /api/v1/* — публичная витрина (CORS);
// /admin/login, /admin/logout, /admin/api/* — администрирование.
func NewRouter(cfg *config.Config, logger *slog.Logger, h *handlers.APIHandler, sessionAuth *middleware.SessionAuth) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.RequestLogger(logger))

	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)
	r.Get("/metrics", h.GetMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			MaxAge:         300,
		}).Handler)

		r.Get("/items", h.ListItems)
		r.Get("/items/{id}", h.GetItem)
		r.Get("/items/{id}/download", h.DownloadItem)
		r.Get("/catalog", h.GetCatalog)
		r.Get("/stats", h.GetStats)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Route("/api", func(r chi.Router) {
			r.Use(sessionAuth.Middleware())

			r.Get("/session", h.GetSession)
			r.Get("/dashboard", h.GetDashboard)
			r.Get("/items", h.ListManageItems)
			r.Patch("/items/{id}", h.UpdateItem)
			r.Delete("/items/{id}", h.DeleteItem)
			r.Post("/uploads", h.StartUpload)
			r.Get("/uploads/{id}", h.GetUpload)
			r.Get("/uploads/{id}/events", h.UploadEvents)
			r.Delete("/uploads/{id}", h.CancelUpload)
		})
	})

	return r
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM)
// или отмены ctx. После этого выполняется graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("Контекст сервера отменён")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
