package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/config"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/database"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер и применяет миграции.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("modstore_test"),
		postgres.WithUsername("modstore"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}
	portNum, _ := strconv.Atoi(port.Port())

	cfg := &config.Config{
		DBHost: host, DBPort: portNum, DBName: "modstore_test",
		DBUser: "modstore", DBPassword: "test-password", DBSSLMode: "disable",
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

func strPtr(s string) *string { return &s }

// --- Тесты ItemStore ---

func TestItemStoreCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	store := NewItemStore(pool)

	older := model.ItemRecord{
		Title: "Red Cape", Category: "texture", Character: strPtr("shogun"),
		Tags: []string{"red", "cape"}, PreviewURL: "https://cdn/p.png",
		DownloadURL: "https://cdn/f.zip", FileSize: 1000, FileName: "cape.zip",
		CreatedAt: 1000, UpdatedAt: 1000,
	}
	newer := model.ItemRecord{
		Title: "Axe", Category: "weapon", CreatedAt: 2000, UpdatedAt: 2000,
	}

	// Create
	olderID, err := store.CreateItem(ctx, older)
	if err != nil {
		t.Fatalf("CreateItem() ошибка: %v", err)
	}
	newerID, err := store.CreateItem(ctx, newer)
	if err != nil {
		t.Fatalf("CreateItem() ошибка: %v", err)
	}

	// List — новые первыми
	items, err := store.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems() ошибка: %v", err)
	}
	if len(items) != 2 || items[0].ID != newerID || items[1].ID != olderID {
		t.Fatalf("ListItems() = %+v", items)
	}
	if items[0].Character != nil || items[0].Description != nil || items[0].Tags == nil {
		t.Errorf("пустые поля: character=%v description=%v tags=%v",
			items[0].Character, items[0].Description, items[0].Tags)
	}
	if items[1].CharacterValue() != "shogun" || len(items[1].Tags) != 2 {
		t.Errorf("поля записи: %+v", items[1])
	}

	// Update — меняются только разрешённые поля
	patch := model.ItemPatch{
		Title: "Blue Cape", Category: "armor", Tags: []string{"blue"},
		Description: strPtr("cloth"), UpdatedAt: 3000,
	}
	if err := store.UpdateItem(ctx, olderID, patch); err != nil {
		t.Fatalf("UpdateItem() ошибка: %v", err)
	}
	got, ok := findItem(t, store, olderID)
	if !ok {
		t.Fatalf("запись %s не найдена после UpdateItem", olderID)
	}
	want := patch.Apply(items[1])
	if got.Title != want.Title || got.Category != want.Category || got.Character != nil ||
		got.DescriptionValue() != "cloth" || got.UpdatedAt != 3000 ||
		got.CreatedAt != 1000 || got.FileSize != 1000 || got.DownloadURL != older.DownloadURL {
		t.Errorf("после UpdateItem: %+v", got)
	}

	// Delete
	if err := store.DeleteItem(ctx, olderID); err != nil {
		t.Fatalf("DeleteItem() ошибка: %v", err)
	}
	if _, ok := findItem(t, store, olderID); ok {
		t.Error("запись осталась в ListItems() после удаления")
	}
}

// findItem ищет запись в ListItems.
func findItem(t *testing.T, store *ItemStore, id string) (model.ItemRecord, bool) {
	t.Helper()
	items, err := store.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems() ошибка: %v", err)
	}
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return model.ItemRecord{}, false
}

func TestItemStoreNotFound(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	store := NewItemStore(pool)

	for _, id := range []string{"00000000-0000-0000-0000-000000000000", "not-a-uuid"} {
		if err := store.UpdateItem(ctx, id, model.ItemPatch{Title: "x", Category: "zip"}); !errors.Is(err, backend.ErrNotFound) {
			t.Errorf("UpdateItem(%s) = %v, ожидалась ErrNotFound", id, err)
		}
		if err := store.DeleteItem(ctx, id); !errors.Is(err, backend.ErrNotFound) {
			t.Errorf("DeleteItem(%s) = %v, ожидалась ErrNotFound", id, err)
		}
	}
}

func TestItemStoreRejectsInvalidRecord(t *testing.T) {
	pool := setupTestDB(t)
	store := NewItemStore(pool)

	_, err := store.CreateItem(context.Background(), model.ItemRecord{Title: "x", Category: "sound", CreatedAt: 1, UpdatedAt: 1})
	if !errors.Is(err, model.ErrUnknownCategory) {
		t.Errorf("CreateItem() = %v, ожидалась ErrUnknownCategory", err)
	}
}

// --- Тесты AdminRepository ---

func TestAdminRepository(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewAdminRepository(pool)

	created, err := repo.Upsert(ctx, "Admin@Example.com", "hash-1")
	if err != nil {
		t.Fatalf("Upsert() ошибка: %v", err)
	}

	// Повторный Upsert с другим регистром — та же запись, новый хэш
	updated, err := repo.Upsert(ctx, "admin@example.com", "hash-2")
	if err != nil {
		t.Fatalf("повторный Upsert() ошибка: %v", err)
	}
	if updated.ID != created.ID || updated.PasswordHash != "hash-2" {
		t.Errorf("Upsert() = %+v, ожидалась запись %s с hash-2", updated, created.ID)
	}

	got, err := repo.GetByEmail(ctx, "ADMIN@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() ошибка: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByEmail() ID = %s, ожидался %s", got.ID, created.ID)
	}

	if _, err := repo.GetByID(ctx, created.ID); err != nil {
		t.Errorf("GetByID() ошибка: %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("GetByEmail(nobody) = %v, ожидалась ErrNotFound", err)
	}
}
