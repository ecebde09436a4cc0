// upload_task.go — задача загрузки записи с потоком событий прогресса.
package service

import (
	"context"
	"sync"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

// Stage — этап загрузки.
type Stage string

const (
	StagePreview Stage = "preview"
	StagePayload Stage = "payload"
	StageRecord  Stage = "record"
	StageDone    Stage = "done"
)

// Сообщения этапов для отображения пользователю.
const (
	msgPreview = "Uploading preview image..."
	msgPayload = "Uploading download file..."
	msgRecord  = "Saving to database..."
	msgDone    = "Upload complete!"
)

// TaskState — состояние задачи загрузки.
type TaskState string

const (
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
	TaskCancelled TaskState = "cancelled"
)

// Progress — событие прогресса. Percent не убывает в пределах задачи.
type Progress struct {
	Stage   Stage  `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// TaskSnapshot — текущее состояние задачи.
type TaskSnapshot struct {
	ID       string            `json:"id"`
	State    TaskState         `json:"state"`
	Progress Progress          `json:"progress"`
	Item     *model.ItemRecord `json:"item,omitempty"`
	Err      error             `json:"-"`
}

// progressBuffer вмещает все возможные события задачи: проценты 0..100
// плюс смены этапов. Отправка в канал подписчика никогда не блокируется.
const progressBuffer = 128

// UploadTask — отменяемая задача загрузки.
// События прогресса доступны через Events (полный поток) и Subscribe (с текущего снимка).
type UploadTask struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	events chan Progress

	mu      sync.Mutex
	last    Progress
	started bool
	state   TaskState
	item    *model.ItemRecord
	err     error
	subs    []chan Progress
}

func newUploadTask(id string, cancel context.CancelFunc) *UploadTask {
	t := &UploadTask{
		id:     id,
		cancel: cancel,
		done:   make(chan struct{}),
		events: make(chan Progress, progressBuffer),
		state:  TaskRunning,
	}
	t.subs = append(t.subs, t.events)
	return t
}

// ID возвращает идентификатор задачи.
func (t *UploadTask) ID() string {
	return t.id
}

// Events возвращает полный поток событий. Канал закрывается по завершении задачи.
func (t *UploadTask) Events() <-chan Progress {
	return t.events
}

// Subscribe возвращает поток событий, начиная с текущего снимка.
// Для завершённой задачи канал содержит последнее событие и сразу закрыт.
func (t *UploadTask) Subscribe() <-chan Progress {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Progress, progressBuffer)
	if t.started {
		ch <- t.last
	}
	if t.state != TaskRunning {
		close(ch)
		return ch
	}
	t.subs = append(t.subs, ch)
	return ch
}

// Snapshot возвращает текущее состояние задачи.
func (t *UploadTask) Snapshot() TaskSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TaskSnapshot{
		ID:       t.id,
		State:    t.state,
		Progress: t.last,
		Item:     t.item,
		Err:      t.err,
	}
}

// Done закрывается по завершении задачи.
func (t *UploadTask) Done() <-chan struct{} {
	return t.done
}

// Cancel отменяет задачу. Уже загруженные объекты остаются в хранилище.
func (t *UploadTask) Cancel() {
	t.cancel()
}

// Wait ожидает завершения задачи и возвращает созданную запись.
// Отмена ctx прекращает ожидание, но не саму задачу.
func (t *UploadTask) Wait(ctx context.Context) (model.ItemRecord, error) {
	select {
	case <-ctx.Done():
		return model.ItemRecord{}, ctx.Err()
	case <-t.done:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return model.ItemRecord{}, t.err
	}
	return *t.item, nil
}

// report публикует событие. Процент не опускается ниже предыдущего,
// повторы без изменения этапа и процента не публикуются.
func (t *UploadTask) report(stage Stage, percent int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TaskRunning {
		return
	}
	percent = min(max(percent, t.last.Percent), 100)
	if t.started && stage == t.last.Stage && percent == t.last.Percent {
		return
	}
	t.started = true
	t.last = Progress{Stage: stage, Percent: percent, Message: message}
	for _, ch := range t.subs {
		select {
		case ch <- t.last:
		default:
		}
	}
}

// scaled возвращает ProgressFunc, отображающую долю переданных байт на [base, base+span].
func (t *UploadTask) scaled(stage Stage, base, span int, message string) func(sent, total int64) {
	return func(sent, total int64) {
		p := base + span
		if total > 0 {
			p = base + int(int64(span)*min(sent, total)/total)
		}
		t.report(stage, p, message)
	}
}

// finish фиксирует результат и закрывает все потоки событий.
func (t *UploadTask) finish(state TaskState, item *model.ItemRecord, err error) {
	t.mu.Lock()
	if t.state != TaskRunning {
		t.mu.Unlock()
		return
	}
	t.state = state
	t.item = item
	t.err = err
	for _, ch := range t.subs {
		close(ch)
	}
	t.subs = nil
	t.mu.Unlock()

	close(t.done)
}
