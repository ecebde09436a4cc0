// upload.go — добавление записи: превью, файл, затем запись каталога.
// Шаги строго последовательны, прогресс 0→40→80→100.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

// Prometheus-метрики загрузок.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ms_uploads_total",
		Help: "Количество задач загрузки по результату.",
	}, []string{"result"})
	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ms_upload_bytes_total",
		Help: "Объём данных, отправленных в blob-хранилище.",
	})
)

// FileUpload — файл из формы.
type FileUpload struct {
	// Name — исходное имя файла.
	Name string
	// ContentType — заявленный MIME-тип (может быть пустым).
	ContentType string
	// Data — содержимое.
	Data []byte
}

// Size возвращает размер файла.
func (f *FileUpload) Size() int64 {
	if f == nil {
		return 0
	}
	return int64(len(f.Data))
}

// UploadLimits — ограничения размеров файлов.
type UploadLimits struct {
	PreviewMaxBytes int64
	PayloadMaxBytes int64
}

// DefaultUploadLimits — лимиты каталога по умолчанию.
var DefaultUploadLimits = UploadLimits{
	PreviewMaxBytes: model.PreviewMaxBytes,
	PayloadMaxBytes: model.PayloadMaxBytes,
}

// UploadWorkflow — сценарий добавления записи администратором.
type UploadWorkflow struct {
	docs    backend.DocumentStore
	blobs   backend.BlobStore
	catalog *CatalogStore
	limits  UploadLimits
	now     func() time.Time
	logger  *slog.Logger
}

// NewUploadWorkflow создаёт сценарий загрузки.
func NewUploadWorkflow(client backend.Client, catalog *CatalogStore, limits UploadLimits, logger *slog.Logger) *UploadWorkflow {
	return &UploadWorkflow{
		docs:    client.Documents,
		blobs:   client.Blobs,
		catalog: catalog,
		limits:  limits,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "upload_workflow")),
	}
}

// Validate проверяет форму и файлы без обращения к бэкенду.
// Возвращает нормализованную форму или ValidationError.
func (w *UploadWorkflow) Validate(form model.ItemForm, preview, payload *FileUpload) (model.ItemForm, error) {
	form = form.Normalize()

	if err := validateForm(form); err != nil {
		return form, err
	}
	if preview == nil || len(preview.Data) == 0 {
		return form, invalid("preview", "превью обязательно")
	}
	if payload == nil || len(payload.Data) == 0 {
		return form, invalid("file", "файл обязателен")
	}
	if _, err := previewContentType(preview); err != nil {
		return form, err
	}
	if preview.Size() > w.limits.PreviewMaxBytes {
		return form, invalid("preview", fmt.Sprintf("превью больше %d байт", w.limits.PreviewMaxBytes))
	}
	// Проверяем, что превью действительно декодируется как изображение
	if _, err := imaging.Decode(bytes.NewReader(preview.Data)); err != nil {
		return form, invalid("preview", "превью не является корректным изображением")
	}
	if payload.Size() > w.limits.PayloadMaxBytes {
		return form, invalid("file", fmt.Sprintf("файл больше %d байт", w.limits.PayloadMaxBytes))
	}
	return form, nil
}

// Start проверяет сессию и входные данные, затем запускает задачу загрузки.
// Ошибки сессии и валидации возвращаются сразу, до обращения к бэкенду.
func (w *UploadWorkflow) Start(ctx context.Context, guard *Guard, form model.ItemForm, preview, payload *FileUpload) (*UploadTask, error) {
	// 1. Сессия администратора
	if _, err := guard.Require(); err != nil {
		return nil, err
	}

	// 2. Валидация формы и файлов
	form, err := w.Validate(form, preview, payload)
	if err != nil {
		uploadsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	previewType, _ := previewContentType(preview)
	payloadType := payload.ContentType
	if payloadType == "" {
		payloadType = http.DetectContentType(payload.Data)
	}

	// 3. Задача выполняется в отдельной горутине
	taskCtx, cancel := context.WithCancel(ctx)
	task := newUploadTask(uuid.NewString(), cancel)

	w.logger.Info("Загрузка записи начата",
		slog.String("upload_id", task.ID()),
		slog.String("title", form.Title),
		slog.Int64("preview_bytes", preview.Size()),
		slog.Int64("file_bytes", payload.Size()),
	)

	go w.run(taskCtx, task, form,
		&FileUpload{Name: preview.Name, ContentType: previewType, Data: preview.Data},
		&FileUpload{Name: payload.Name, ContentType: payloadType, Data: payload.Data},
	)
	return task, nil
}

// AddItem запускает загрузку и ожидает её завершения.
func (w *UploadWorkflow) AddItem(ctx context.Context, guard *Guard, form model.ItemForm, preview, payload *FileUpload) (model.ItemRecord, error) {
	task, err := w.Start(ctx, guard, form, preview, payload)
	if err != nil {
		return model.ItemRecord{}, err
	}
	return task.Wait(ctx)
}

// run выполняет шаги загрузки. Ошибка любого шага прерывает сценарий;
// уже загруженные объекты не удаляются.
func (w *UploadWorkflow) run(ctx context.Context, task *UploadTask, form model.ItemForm, preview, payload *FileUpload) {
	defer task.cancel()

	logger := w.logger.With(slog.String("upload_id", task.ID()))

	// 1. Превью: 0..40
	task.report(StagePreview, 0, msgPreview)
	previewURL, err := w.blobs.Upload(ctx, w.blobPath(model.PreviewsFolder, preview.Name),
		preview.Data, preview.ContentType, task.scaled(StagePreview, 0, 40, msgPreview))
	if err != nil {
		w.fail(ctx, task, logger, "загрузка превью", err)
		return
	}
	uploadBytesTotal.Add(float64(preview.Size()))

	// 2. Файл: 40..80
	task.report(StagePayload, 40, msgPayload)
	downloadURL, err := w.blobs.Upload(ctx, w.blobPath(model.FilesFolder, payload.Name),
		payload.Data, payload.ContentType, task.scaled(StagePayload, 40, 40, msgPayload))
	if err != nil {
		w.fail(ctx, task, logger, "загрузка файла", err)
		return
	}
	uploadBytesTotal.Add(float64(payload.Size()))

	// 3. Запись каталога: 80, затем 100 после появления в обновлённом каталоге
	task.report(StageRecord, 80, msgRecord)
	now := w.now().UnixMilli()
	record := model.ItemRecord{
		Title:       form.Title,
		Category:    strings.ToLower(form.Category),
		Character:   lowerPtr(form.CharacterPtr()),
		Tags:        form.Tags,
		Description: form.DescriptionPtr(),
		PreviewURL:  previewURL,
		DownloadURL: downloadURL,
		FileSize:    payload.Size(),
		FileName:    payload.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := w.docs.CreateItem(ctx, record)
	if err != nil {
		w.fail(ctx, task, logger, "создание записи", err)
		return
	}

	if _, err := w.catalog.Refresh(ctx); err != nil {
		w.fail(ctx, task, logger, "обновление каталога", err)
		return
	}
	stored, ok := w.catalog.Get(id)
	if !ok {
		w.fail(ctx, task, logger, "обновление каталога", fmt.Errorf("запись %s отсутствует после обновления", id))
		return
	}

	task.report(StageDone, 100, msgDone)
	task.finish(TaskSucceeded, &stored, nil)
	uploadsTotal.WithLabelValues("ok").Inc()

	logger.Info("Запись добавлена",
		slog.String("item_id", stored.ID),
		slog.String("title", stored.Title),
		slog.Int64("file_size", stored.FileSize),
	)
}

// fail завершает задачу ошибкой. Отмена контекста даёт состояние cancelled.
func (w *UploadWorkflow) fail(ctx context.Context, task *UploadTask, logger *slog.Logger, op string, err error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		task.finish(TaskCancelled, nil, fmt.Errorf("%s: %w", op, context.Canceled))
		uploadsTotal.WithLabelValues("cancelled").Inc()
		logger.Info("Загрузка отменена", slog.String("step", op))
		return
	}

	// NetworkError от Refresh не оборачиваем повторно
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		err = network(op, err)
	}
	task.finish(TaskFailed, nil, err)
	uploadsTotal.WithLabelValues("error").Inc()
	logger.Error("Ошибка загрузки записи",
		slog.String("step", op),
		slog.String("error", err.Error()),
	)
}

// blobPath формирует путь объекта: <folder>/<unix-ms>_<имя файла>.
func (w *UploadWorkflow) blobPath(folder, name string) string {
	return fmt.Sprintf("%s/%d_%s", folder, w.now().UnixMilli(), safeFileName(name))
}

// validateForm проверяет обязательные поля и перечисления.
func validateForm(form model.ItemForm) error {
	if form.Title == "" {
		return invalid("title", "название обязательно")
	}
	if form.Category == "" {
		return invalid("category", "категория обязательна")
	}
	if !model.IsCategory(form.Category) {
		return invalid("category", fmt.Sprintf("неизвестная категория %q", form.Category))
	}
	if form.Character != "" && !model.IsCharacter(form.Character) {
		return invalid("character", fmt.Sprintf("неизвестный персонаж %q", form.Character))
	}
	return nil
}

// previewContentType проверяет заявленный и фактический тип превью (PNG или JPEG).
func previewContentType(f *FileUpload) (string, error) {
	sniffed := http.DetectContentType(f.Data)
	if !slices.Contains(model.PreviewContentTypes, sniffed) {
		return "", invalid("preview", "превью должно быть PNG или JPEG")
	}
	if f.ContentType != "" {
		declared, _, err := mime.ParseMediaType(f.ContentType)
		if err != nil || !slices.Contains(model.PreviewContentTypes, strings.ToLower(declared)) {
			return "", invalid("preview", "превью должно быть PNG или JPEG")
		}
	}
	return sniffed, nil
}

// safeFileName оставляет только базовое имя файла.
func safeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}

func lowerPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToLower(*s)
	return &v
}
