// items.go — редактирование и удаление записей каталога.
// После каждого изменения каталог обновляется целиком.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/query"
)

// DashboardStats — агрегаты каталога для административной панели.
type DashboardStats struct {
	Count          int
	TotalBytes     int64
	Recent         []model.ItemRecord
	CategoryCounts map[string]int
}

// ItemService — административные операции над записями.
type ItemService struct {
	docs    backend.DocumentStore
	catalog *CatalogStore
	now     func() time.Time
	logger  *slog.Logger
}

// NewItemService создаёт сервис записей.
func NewItemService(docs backend.DocumentStore, catalog *CatalogStore, logger *slog.Logger) *ItemService {
	return &ItemService{
		docs:    docs,
		catalog: catalog,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "item_service")),
	}
}

// Update изменяет разрешённые поля записи: title, category, character, tags,
// description и updatedAt. Остальные поля не изменяются.
func (s *ItemService) Update(ctx context.Context, guard *Guard, id string, form model.ItemForm) (model.ItemRecord, error) {
	if _, err := guard.Require(); err != nil {
		return model.ItemRecord{}, err
	}

	form = form.Normalize()
	if err := validateForm(form); err != nil {
		return model.ItemRecord{}, err
	}
	form.Category = strings.ToLower(form.Category)
	form.Character = strings.ToLower(form.Character)

	current, ok := s.catalog.Get(id)
	if !ok {
		return model.ItemRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	// updatedAt не может быть меньше createdAt
	updatedAt := max(s.now().UnixMilli(), current.CreatedAt)
	if err := s.docs.UpdateItem(ctx, id, form.Patch(updatedAt)); err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return model.ItemRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return model.ItemRecord{}, network("обновление записи", err)
	}

	if _, err := s.catalog.Refresh(ctx); err != nil {
		return model.ItemRecord{}, err
	}
	updated, ok := s.catalog.Get(id)
	if !ok {
		// Удалена другой сессией между записью и обновлением каталога
		return model.ItemRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.logger.Info("Запись обновлена",
		slog.String("item_id", id),
		slog.String("title", updated.Title),
	)
	return updated, nil
}

// Delete удаляет запись. Файлы превью и загрузки остаются в blob-хранилище.
func (s *ItemService) Delete(ctx context.Context, guard *Guard, id string) error {
	if _, err := guard.Require(); err != nil {
		return err
	}

	if err := s.docs.DeleteItem(ctx, id); err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return network("удаление записи", err)
	}

	if _, err := s.catalog.Refresh(ctx); err != nil {
		return err
	}

	s.logger.Info("Запись удалена", slog.String("item_id", id))
	return nil
}

// ManageList возвращает записи административного списка, отобранные по term.
func (s *ItemService) ManageList(term string) []model.ItemRecord {
	return query.ManageSearch(s.catalog.Items(), term)
}

// Dashboard возвращает агрегаты текущего снимка каталога.
func (s *ItemService) Dashboard() DashboardStats {
	return DashboardStats{
		Count:          s.catalog.Count(),
		TotalBytes:     s.catalog.TotalBytes(),
		Recent:         s.catalog.Recent(model.RecentItemsLimit),
		CategoryCounts: s.catalog.CategoryCounts(),
	}
}
