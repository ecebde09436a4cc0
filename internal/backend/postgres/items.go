package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

const itemColumns = `id, title, category, character, tags, description,
	preview_url, download_url, file_size, file_name, created_at, updated_at`

// ItemStore — реализация backend.DocumentStore над таблицей items.
type ItemStore struct {
	db DBTX
}

// NewItemStore создаёт хранилище записей каталога.
func NewItemStore(db DBTX) *ItemStore {
	return &ItemStore{db: db}
}

// scanItem сканирует строку результата в модель ItemRecord.
func scanItem(row pgx.Row) (model.ItemRecord, error) {
	var it model.ItemRecord
	err := row.Scan(
		&it.ID, &it.Title, &it.Category, &it.Character, &it.Tags, &it.Description,
		&it.PreviewURL, &it.DownloadURL, &it.FileSize, &it.FileName, &it.CreatedAt, &it.UpdatedAt,
	)
	return it, err
}

// ListItems возвращает все записи, новые первыми.
func (s *ItemStore) ListItems(ctx context.Context) ([]model.ItemRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM items ORDER BY created_at DESC, id`, itemColumns)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка записей: %w", err)
	}
	defer rows.Close()

	result := make([]model.ItemRecord, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		if it.Tags == nil {
			it.Tags = []string{}
		}
		result = append(result, it)
	}
	return result, rows.Err()
}

// CreateItem сохраняет новую запись и возвращает присвоенный ID.
// Переданный item.ID игнорируется.
func (s *ItemStore) CreateItem(ctx context.Context, item model.ItemRecord) (string, error) {
	if err := item.Validate(); err != nil {
		return "", fmt.Errorf("некорректная запись: %w", err)
	}

	id := uuid.NewString()
	query := `
		INSERT INTO items (id, title, category, character, tags, description,
			preview_url, download_url, file_size, file_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.Exec(ctx, query,
		id, item.Title, item.Category, item.Character, tagsOrEmpty(item.Tags), item.Description,
		item.PreviewURL, item.DownloadURL, item.FileSize, item.FileName, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: запись %s", ErrConflict, id)
		}
		return "", fmt.Errorf("ошибка создания записи: %w", err)
	}
	return id, nil
}

// UpdateItem изменяет разрешённые поля записи.
func (s *ItemStore) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) error {
	query := `
		UPDATE items
		SET title = $2, category = $3, character = $4, tags = $5,
			description = $6, updated_at = $7
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query,
		id, patch.Title, patch.Category, patch.Character, tagsOrEmpty(patch.Tags),
		patch.Description, patch.UpdatedAt,
	)
	if err != nil {
		if isInvalidID(err) {
			return backend.ErrNotFound
		}
		return fmt.Errorf("ошибка обновления записи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return backend.ErrNotFound
	}
	return nil
}

// DeleteItem удаляет запись. Объекты в blob-хранилище не затрагиваются.
func (s *ItemStore) DeleteItem(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		if isInvalidID(err) {
			return backend.ErrNotFound
		}
		return fmt.Errorf("ошибка удаления записи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return backend.ErrNotFound
	}
	return nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
