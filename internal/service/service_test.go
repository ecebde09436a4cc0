package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"testing"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend/stub"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

// --- Общие вспомогательные функции тестов сервисного слоя ---

const (
	testEmail    = "admin@example.com"
	testPassword = "secret"
)

// env — окружение теста: stub-бэкенд, каталог и вошедший администратор.
type env struct {
	be      *stub.Backend
	catalog *CatalogStore
	guard   *Guard
}

func newEnv(t *testing.T) *env {
	t.Helper()

	be := stub.New()
	be.AddUser(testEmail, testPassword)
	logger := slog.Default()

	e := &env{
		be:      be,
		catalog: NewCatalogStore(be, 0, logger),
		guard:   NewGuard(be, logger),
	}
	if _, err := e.guard.SignIn(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("SignIn ошибка: %v", err)
	}
	return e
}

// pngBytes возвращает корректное PNG-изображение.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func previewFile(t *testing.T) *FileUpload {
	return &FileUpload{Name: "cape.png", ContentType: "image/png", Data: pngBytes(t)}
}

func payloadFile(n int) *FileUpload {
	return &FileUpload{Name: "cape.zip", ContentType: "application/zip", Data: bytes.Repeat([]byte{'z'}, n)}
}

func strPtr(s string) *string { return &s }

func seedItems() []model.ItemRecord {
	return []model.ItemRecord{
		{ID: "old", Title: "Old", Category: "zip", FileSize: 10, CreatedAt: 100, UpdatedAt: 100},
		{ID: "new", Title: "New", Category: "weapon", FileSize: 30, CreatedAt: 300, UpdatedAt: 300},
		{ID: "mid", Title: "Mid", Category: "weapon", FileSize: 20, CreatedAt: 200, UpdatedAt: 250},
	}
}
