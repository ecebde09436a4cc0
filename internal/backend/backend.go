// Пакет backend — интерфейсы внешнего бэкенда каталога:
// аутентификация, документное хранилище записей и blob-хранилище файлов.
// Реализации: postgres (документы), objectstore (S3), authn (сессии),
// stub (in-memory для тестов).
package backend

import (
	"context"
	"errors"
	"time"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

// Ошибки бэкенда.
var (
	// ErrInvalidCredentials — неверный email или пароль.
	ErrInvalidCredentials = errors.New("неверные учётные данные")
	// ErrSessionInvalid — сессия отозвана, истекла или неизвестна.
	ErrSessionInvalid = errors.New("сессия недействительна")
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
)

// Session — аутентифицированная сессия администратора.
type Session struct {
	// Token — непрозрачный токен сессии.
	Token string
	// UserID — идентификатор администратора.
	UserID string
	// Email — email администратора.
	Email string
	// ExpiresAt — время истечения сессии.
	ExpiresAt time.Time
}

// Auth — аутентификация администраторов.
type Auth interface {
	// SignIn проверяет учётные данные и открывает сессию.
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// Verify возвращает сессию по токену или ErrSessionInvalid.
	Verify(ctx context.Context, token string) (*Session, error)
	// SignOut отзывает сессию.
	SignOut(ctx context.Context, token string) error
}

// DocumentStore — хранилище записей каталога.
type DocumentStore interface {
	// ListItems возвращает все записи, упорядоченные по createdAt по убыванию.
	ListItems(ctx context.Context) ([]model.ItemRecord, error)
	// CreateItem сохраняет запись и возвращает назначенный ID.
	CreateItem(ctx context.Context, item model.ItemRecord) (string, error)
	// UpdateItem изменяет разрешённые поля записи.
	UpdateItem(ctx context.Context, id string, patch model.ItemPatch) error
	// DeleteItem удаляет запись. Связанные blob-объекты не удаляются.
	DeleteItem(ctx context.Context, id string) error
}

// ProgressFunc получает количество переданных байт и общий размер.
type ProgressFunc func(sent, total int64)

// BlobStore — хранилище файлов.
type BlobStore interface {
	// Upload сохраняет данные по пути и возвращает URL для чтения.
	// onProgress может быть nil.
	Upload(ctx context.Context, path string, data []byte, contentType string, onProgress ProgressFunc) (string, error)
}

// Client — полный набор зависимостей бэкенда.
type Client struct {
	Auth      Auth
	Documents DocumentStore
	Blobs     BlobStore
}
