// uploads.go — загрузка записей администратором.
// POST /admin/api/uploads — запуск задачи (multipart), 202 + ID задачи.
// GET /admin/api/uploads/{id} — состояние задачи.
// GET /admin/api/uploads/{id}/events — поток прогресса (Server-Sent Events).
// DELETE /admin/api/uploads/{id} — отмена задачи.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/SHIV-31-60/Sf2-modded-store/internal/api/errors"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/service"
)

// multipartOverhead — запас на поля формы и заголовки частей.
const multipartOverhead = 1 << 20

// multipartMemory — объём multipart, хранимый в памяти (остальное во временных файлах).
const multipartMemory = 8 << 20

// uploadResponse — состояние задачи загрузки.
type uploadResponse struct {
	ID       string            `json:"id"`
	State    service.TaskState `json:"state"`
	Progress service.Progress  `json:"progress"`
	Item     *model.ItemRecord `json:"item,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func uploadResponseOf(s service.TaskSnapshot) uploadResponse {
	resp := uploadResponse{
		ID:       s.ID,
		State:    s.State,
		Progress: s.Progress,
		Item:     s.Item,
	}
	if s.Err != nil && s.State == service.TaskFailed {
		resp.Error = uploadErrorMessage(s.Err)
	}
	return resp
}

// uploadErrorMessage — сообщение об ошибке задачи для клиента.
func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNetwork):
		return "Upload failed: storage backend unavailable. Please try again."
	case errors.Is(err, service.ErrAuth):
		return "Upload failed: session expired. Please sign in again."
	default:
		return "Upload failed. Please try again."
	}
}

// StartUpload — POST /admin/api/uploads.
// Поля формы: title, category, character, tags, description, preview, file.
func (h *APIHandler) StartUpload(w http.ResponseWriter, r *http.Request) {
	g, ok := h.guard(w, r)
	if !ok {
		return
	}

	maxBody := h.opts.Limits.PreviewMaxBytes + h.opts.Limits.PayloadMaxBytes + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.ValidationError(w, fmt.Sprintf("Размер запроса превышает %d байт", maxBody))
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	preview, err := formFile(r, "preview", h.opts.Limits.PreviewMaxBytes)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	payload, err := formFile(r, "file", h.opts.Limits.PayloadMaxBytes)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	form := model.ItemForm{
		Title:       r.FormValue("title"),
		Category:    r.FormValue("category"),
		Character:   r.FormValue("character"),
		Tags:        model.ParseTags(r.FormValue("tags")),
		Description: r.FormValue("description"),
	}

	// Задача переживает HTTP-запрос и ограничена таймаутом загрузки
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.opts.UploadTimeout)
	task, err := h.uploads.Start(ctx, g, form, preview, payload)
	if err != nil {
		cancel()
		h.handleServiceError(w, err, "start_upload")
		return
	}
	go func() {
		<-task.Done()
		cancel()
	}()
	h.tracker.Add(task)

	w.Header().Set("Location", "/admin/api/uploads/"+task.ID())
	writeJSON(w, http.StatusAccepted, uploadResponseOf(task.Snapshot()))
}

// GetUpload — GET /admin/api/uploads/{id}.
func (h *APIHandler) GetUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	task, ok := h.tracker.Get(chi.URLParam(r, "id"))
	if !ok {
		apierrors.NotFound(w, "Задача загрузки не найдена")
		return
	}
	writeJSON(w, http.StatusOK, uploadResponseOf(task.Snapshot()))
}

// CancelUpload — DELETE /admin/api/uploads/{id}.
// Уже загруженные файлы остаются в хранилище.
func (h *APIHandler) CancelUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if !h.tracker.Cancel(id) {
		apierrors.NotFound(w, "Задача загрузки не найдена")
		return
	}
	h.logger.Info("Загрузка отменена администратором", slog.String("upload_id", id))
	w.WriteHeader(http.StatusAccepted)
}

// UploadEvents — GET /admin/api/uploads/{id}/events.
// Событие progress на каждое изменение, финальное событие done с состоянием задачи.
func (h *APIHandler) UploadEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	task, ok := h.tracker.Get(chi.URLParam(r, "id"))
	if !ok {
		apierrors.NotFound(w, "Задача загрузки не найдена")
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events := task.Subscribe()
	for {
		select {
		case <-r.Context().Done():
			return
		case p, open := <-events:
			if !open {
				_ = writeEvent(w, "done", uploadResponseOf(task.Snapshot()))
				_ = rc.Flush()
				return
			}
			if err := writeEvent(w, "progress", p); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				h.logger.Debug("Flush SSE не поддерживается", slog.String("error", err.Error()))
			}
		}
	}
}

// writeEvent записывает одно SSE-событие с JSON-данными.
func writeEvent(w io.Writer, event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	return err
}

// formFile читает файл из формы. Отсутствующее поле — nil.
// Читается не более limit+1 байт: превышение лимита обнаруживает валидация.
func formFile(r *http.Request, field string, limit int64) (*service.FileUpload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения поля %q: %w", field, err)
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения поля %q: %w", field, err)
	}
	return &service.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
