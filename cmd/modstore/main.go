// main.go — точка входа Mod Store.
// Витрина модов и административный каталог поверх PostgreSQL и S3.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/api/auth"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/api/handlers"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/api/middleware"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/bootstrap"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/config"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/database"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/server"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/service"
)

// uploadTrackerSize — максимальное количество отслеживаемых задач загрузки.
const uploadTrackerSize = 256

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Mod Store запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Применение миграций БД
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка применения миграций", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Адаптеры бэкенда: PostgreSQL, S3, аутентификация
	be, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к бэкенду", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer be.Close()

	// 5. Учётная запись администратора из конфигурации
	if cfg.AdminEmail != "" {
		if err := be.Auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Error("Ошибка создания администратора", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// 6. Каталог: начальная загрузка и фоновое обновление
	catalog := service.NewCatalogStore(be.Items, cfg.CatalogRefreshInterval, logger)
	if _, err := catalog.Refresh(ctx); err != nil {
		// Витрина стартует с пустым каталогом, следующее обновление повторит попытку
		logger.Warn("Начальная загрузка каталога не удалась", slog.String("error", err.Error()))
	}
	catalog.Start(ctx)
	defer catalog.Stop()

	// 7. Services
	limits := service.UploadLimits{
		PreviewMaxBytes: cfg.PreviewMaxBytes,
		PayloadMaxBytes: cfg.PayloadMaxBytes,
	}
	items := service.NewItemService(be.Items, catalog, logger)
	uploads := service.NewUploadWorkflow(be.Client, catalog, limits, logger)
	tracker := service.NewUploadTracker(uploadTrackerSize, cfg.UploadTrackerTTL)

	// 8. Cookie сессий администратора
	sessions, err := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionSecure)
	if err != nil {
		logger.Error("Ошибка инициализации сессий", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. Readiness checkers (PostgreSQL + объектное хранилище)
	health := handlers.NewHealthHandler(database.NewReadinessChecker(be.Pool), be.Blobs)

	// 10. API handler
	apiHandler := handlers.NewAPIHandler(
		catalog, items, uploads, tracker,
		be.Auth, sessions, health,
		handlers.Options{
			PageSize:       cfg.PageSize,
			SearchDebounce: cfg.SearchDebounce,
			Limits:         limits,
			UploadTimeout:  cfg.UploadTimeout,
			QueryCacheSize: cfg.QueryCacheSize,
		},
		logger,
	)

	// 11. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, middleware.NewSessionAuth(sessions, be.Auth, logger))
	start := time.Now()
	if err := srv.Run(ctx); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Mod Store остановлен", slog.Duration("uptime", time.Since(start)))
}
