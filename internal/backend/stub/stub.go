// Пакет stub — in-memory реализация бэкенда для тестов.
// Считает вызовы каждой операции и позволяет подставлять ошибки.
package stub

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

// Операции бэкенда для счётчиков и подстановки ошибок.
const (
	OpSignIn  = "signIn"
	OpVerify  = "verify"
	OpSignOut = "signOut"
	OpList    = "listItems"
	OpCreate  = "createItem"
	OpUpdate  = "updateItem"
	OpDelete  = "deleteItem"
	OpUpload  = "upload"
)

// Blob — сохранённый объект.
type Blob struct {
	Path        string
	ContentType string
	Data        []byte
}

// Backend — in-memory бэкенд: учётные записи, записи каталога, blob-объекты.
type Backend struct {
	mu       sync.Mutex
	users    map[string]string
	sessions map[string]*backend.Session
	items    []model.ItemRecord
	blobs    map[string]Blob
	calls    map[string]int
	failures map[string]error
	seq      int

	// ChunkSize — размер порции для вызовов onProgress (по умолчанию 64 KiB).
	ChunkSize int
	// BeforeUpload вызывается перед загрузкой каждого объекта (для синхронизации в тестах).
	BeforeUpload func(path string)
}

// New создаёт пустой бэкенд.
func New() *Backend {
	return &Backend{
		users:     make(map[string]string),
		sessions:  make(map[string]*backend.Session),
		blobs:     make(map[string]Blob),
		calls:     make(map[string]int),
		failures:  make(map[string]error),
		ChunkSize: 64 * 1024,
	}
}

// Client возвращает backend.Client, все части которого обслуживает b.
func (b *Backend) Client() backend.Client {
	return backend.Client{Auth: b, Documents: b, Blobs: b}
}

// AddUser регистрирует администратора.
func (b *Backend) AddUser(email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[email] = password
}

// Seed добавляет записи как есть (ID должен быть задан).
// Записи хранятся в порядке добавления, ListItems сортирует их по createdAt.
func (b *Backend) Seed(items ...model.ItemRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, items...)
}

// Fail заставляет операцию op возвращать err. nil снимает подстановку.
func (b *Backend) Fail(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

// Calls возвращает количество вызовов операции.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// WriteCalls возвращает суммарное количество вызовов пишущих операций.
func (b *Backend) WriteCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[OpCreate] + b.calls[OpUpdate] + b.calls[OpDelete] + b.calls[OpUpload]
}

// Blobs возвращает копию сохранённых объектов.
func (b *Backend) Blobs() map[string]Blob {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]Blob, len(b.blobs))
	for k, v := range b.blobs {
		out[k] = v
	}
	return out
}

// InvalidateSessions отзывает все сессии (имитация отзыва на стороне бэкенда).
func (b *Backend) InvalidateSessions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.sessions)
}

// begin регистрирует вызов и возвращает подставленную ошибку. Вызывается под mu.
func (b *Backend) begin(op string) error {
	b.calls[op]++
	return b.failures[op]
}

// SignIn реализует backend.Auth.
func (b *Backend) SignIn(_ context.Context, email, password string) (*backend.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpSignIn); err != nil {
		return nil, err
	}
	pw, ok := b.users[email]
	if !ok || pw != password {
		return nil, backend.ErrInvalidCredentials
	}
	b.seq++
	s := &backend.Session{
		Token:     fmt.Sprintf("stub-token-%d", b.seq),
		UserID:    "user-" + email,
		Email:     email,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	b.sessions[s.Token] = s
	cp := *s
	return &cp, nil
}

// Verify реализует backend.Auth.
func (b *Backend) Verify(_ context.Context, token string) (*backend.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpVerify); err != nil {
		return nil, err
	}
	s, ok := b.sessions[token]
	if !ok {
		return nil, backend.ErrSessionInvalid
	}
	cp := *s
	return &cp, nil
}

// SignOut реализует backend.Auth.
func (b *Backend) SignOut(_ context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpSignOut); err != nil {
		return err
	}
	delete(b.sessions, token)
	return nil
}

// ListItems реализует backend.DocumentStore.
func (b *Backend) ListItems(_ context.Context) ([]model.ItemRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpList); err != nil {
		return nil, err
	}
	out := make([]model.ItemRecord, len(b.items))
	for i, it := range b.items {
		out[i] = cloneItem(it)
	}
	slices.SortStableFunc(out, func(x, y model.ItemRecord) int {
		switch {
		case x.CreatedAt > y.CreatedAt:
			return -1
		case x.CreatedAt < y.CreatedAt:
			return 1
		}
		return 0
	})
	return out, nil
}

// CreateItem реализует backend.DocumentStore.
func (b *Backend) CreateItem(_ context.Context, item model.ItemRecord) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpCreate); err != nil {
		return "", err
	}
	b.seq++
	item.ID = fmt.Sprintf("item-%d", b.seq)
	b.items = append(b.items, cloneItem(item))
	return item.ID, nil
}

// UpdateItem реализует backend.DocumentStore.
func (b *Backend) UpdateItem(_ context.Context, id string, patch model.ItemPatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpUpdate); err != nil {
		return err
	}
	for i := range b.items {
		if b.items[i].ID == id {
			b.items[i] = patch.Apply(b.items[i])
			return nil
		}
	}
	return backend.ErrNotFound
}

// DeleteItem реализует backend.DocumentStore.
func (b *Backend) DeleteItem(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpDelete); err != nil {
		return err
	}
	for i := range b.items {
		if b.items[i].ID == id {
			b.items = slices.Delete(b.items, i, i+1)
			return nil
		}
	}
	return backend.ErrNotFound
}

// Upload реализует backend.BlobStore. onProgress вызывается порциями по ChunkSize
// вне блокировки, поэтому обработчик может обращаться к бэкенду.
func (b *Backend) Upload(ctx context.Context, path string, data []byte, contentType string, onProgress backend.ProgressFunc) (string, error) {
	b.mu.Lock()
	err := b.begin(OpUpload)
	hook := b.BeforeUpload
	chunk := b.ChunkSize
	b.mu.Unlock()

	if hook != nil {
		hook(path)
	}
	if err != nil {
		return "", err
	}
	if chunk <= 0 {
		chunk = len(data)
	}

	total := int64(len(data))
	for sent := 0; sent < len(data); {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		sent = min(sent+chunk, len(data))
		if onProgress != nil {
			onProgress(int64(sent), total)
		}
	}

	b.mu.Lock()
	b.blobs[path] = Blob{Path: path, ContentType: contentType, Data: append([]byte(nil), data...)}
	b.mu.Unlock()

	return "stub://blobs/" + path, nil
}

func cloneItem(it model.ItemRecord) model.ItemRecord {
	it.Tags = append([]string(nil), it.Tags...)
	return it
}
