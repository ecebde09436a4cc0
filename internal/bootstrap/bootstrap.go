// Пакет bootstrap — сборка адаптеров бэкенда из конфигурации.
// Используется сервером и CLI: PostgreSQL (записи, администраторы),
// S3 (файлы), authn (сессии).
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend/authn"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend/objectstore"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend/postgres"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/config"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/database"
)

// Backend — подключённые адаптеры бэкенда.
type Backend struct {
	Pool   *pgxpool.Pool
	Auth   *authn.Authenticator
	Items  *postgres.ItemStore
	Blobs  *objectstore.Store
	Client backend.Client
}

// Open подключается к PostgreSQL и объектному хранилищу.
// Миграции не применяются.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	items := postgres.NewItemStore(pool)
	admins := postgres.NewAdminRepository(pool)

	a, err := authn.New(admins, cfg.AuthTokenSecret, cfg.AuthTokenTTL, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка инициализации аутентификации: %w", err)
	}

	blobs, err := objectstore.New(objectstore.Options{
		Endpoint:     cfg.S3Endpoint,
		Region:       cfg.S3Region,
		Bucket:       cfg.S3Bucket,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		PublicURL:    cfg.S3PublicURL,
		UsePathStyle: cfg.S3UsePathStyle,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка инициализации объектного хранилища: %w", err)
	}

	return &Backend{
		Pool:  pool,
		Auth:  a,
		Items: items,
		Blobs: blobs,
		Client: backend.Client{
			Auth:      a,
			Documents: items,
			Blobs:     blobs,
		},
	}, nil
}

// Close закрывает пул подключений.
func (b *Backend) Close() {
	b.Pool.Close()
}
