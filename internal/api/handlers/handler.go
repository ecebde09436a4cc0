// handler.go — основной обработчик API Mod Store.
// Объединяет витрину, административные операции, загрузки и health.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/api/auth"
	apierrors "github.com/SHIV-31-60/Sf2-modded-store/internal/api/errors"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/query"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/service"
)

// Options — параметры витрины и загрузок.
type Options struct {
	// PageSize — размер страницы витрины (сообщается клиенту).
	PageSize int
	// SearchDebounce — окно debounce поиска (сообщается клиенту).
	SearchDebounce time.Duration
	// Limits — ограничения размеров файлов.
	Limits service.UploadLimits
	// UploadTimeout — максимальная длительность задачи загрузки.
	UploadTimeout time.Duration
	// QueryCacheSize — количество кэшируемых выборок витрины.
	QueryCacheSize int
}

// APIHandler — основной обработчик API Mod Store.
type APIHandler struct {
	catalog  *service.CatalogStore
	items    *service.ItemService
	uploads  *service.UploadWorkflow
	tracker  *service.UploadTracker
	auth     backend.Auth
	sessions *auth.SessionManager
	health   *HealthHandler
	cache    *query.Cache
	opts     Options
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	catalog *service.CatalogStore,
	items *service.ItemService,
	uploads *service.UploadWorkflow,
	tracker *service.UploadTracker,
	authBackend backend.Auth,
	sessions *auth.SessionManager,
	health *HealthHandler,
	opts Options,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		catalog:  catalog,
		items:    items,
		uploads:  uploads,
		tracker:  tracker,
		auth:     authBackend,
		sessions: sessions,
		health:   health,
		cache:    query.NewCache(opts.QueryCacheSize),
		opts:     opts,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// handleServiceError маппит ошибки сервисного слоя в HTTP-ответы.
func (h *APIHandler) handleServiceError(w http.ResponseWriter, err error, op string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		apierrors.ValidationError(w, ve.Error())
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrAuth):
		apierrors.Unauthorized(w, "Требуется вход администратора")
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Запись не найдена")
	case errors.Is(err, service.ErrNetwork):
		h.logger.Error("Ошибка бэкенда",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		apierrors.BackendUnavailable(w, "Бэкенд каталога недоступен, повторите попытку")
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
