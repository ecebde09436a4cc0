// uploads.go — реестр задач загрузки для HTTP-слоя.
// Обёртка над hashicorp/golang-lru/v2/expirable: завершённые задачи
// доступны для чтения статуса в течение TTL.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// UploadTracker — реестр задач загрузки по ID.
type UploadTracker struct {
	tasks *expirable.LRU[string, *UploadTask]
}

// NewUploadTracker создаёт реестр с ограничением размера и TTL.
func NewUploadTracker(maxSize int, ttl time.Duration) *UploadTracker {
	return &UploadTracker{
		tasks: expirable.NewLRU[string, *UploadTask](maxSize, nil, ttl),
	}
}

// Add регистрирует задачу.
func (t *UploadTracker) Add(task *UploadTask) {
	t.tasks.Add(task.ID(), task)
}

// Get возвращает задачу по ID.
func (t *UploadTracker) Get(id string) (*UploadTask, bool) {
	return t.tasks.Get(id)
}

// Cancel отменяет задачу. Возвращает false, если задача не найдена.
func (t *UploadTracker) Cancel(id string) bool {
	task, ok := t.tasks.Get(id)
	if !ok {
		return false
	}
	task.Cancel()
	return true
}

// Len возвращает количество задач в реестре.
func (t *UploadTracker) Len() int {
	return t.tasks.Len()
}
