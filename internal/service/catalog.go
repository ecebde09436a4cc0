// catalog.go — in-memory каталог записей.
// Снимок заменяется целиком при каждом Refresh, читатели не видят частичный список.
package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

// Prometheus-метрики каталога.
var (
	catalogItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ms_catalog_items",
		Help: "Количество записей в текущем снимке каталога.",
	})
	catalogRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ms_catalog_refresh_total",
		Help: "Количество обновлений каталога.",
	}, []string{"result"})
	catalogRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ms_catalog_refresh_duration_seconds",
		Help:    "Длительность обновления каталога.",
		Buckets: prometheus.DefBuckets,
	})
)

// snapshot — неизменяемый снимок каталога.
type snapshot struct {
	items      []model.ItemRecord
	index      map[string]int
	totalBytes int64
	version    uint64
}

// CatalogStore — кэш всех записей каталога.
// Источник данных для поиска, фильтрации и сортировки.
type CatalogStore struct {
	docs    backend.DocumentStore
	logger  *slog.Logger
	current atomic.Pointer[snapshot]

	// refreshMu сериализует обращения к бэкенду при обновлении,
	// чтобы более старый ответ не перезаписал более новый.
	refreshMu sync.Mutex

	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCatalogStore создаёт пустой каталог.
// interval — период фонового обновления (0 — без фонового обновления).
func NewCatalogStore(docs backend.DocumentStore, interval time.Duration, logger *slog.Logger) *CatalogStore {
	s := &CatalogStore{
		docs:     docs,
		interval: interval,
		logger:   logger.With(slog.String("component", "catalog_store")),
	}
	s.current.Store(&snapshot{index: map[string]int{}})
	return s
}

// Refresh загружает все записи из бэкенда и атомарно заменяет снимок.
// При ошибке предыдущий снимок сохраняется.
func (s *CatalogStore) Refresh(ctx context.Context) ([]model.ItemRecord, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	items, err := s.docs.ListItems(ctx)
	catalogRefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		catalogRefreshTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка обновления каталога", slog.String("error", err.Error()))
		return nil, network("загрузка каталога", err)
	}

	// Бэкенд возвращает записи по убыванию createdAt; порядок закрепляем
	// стабильной сортировкой, равные createdAt сохраняют порядок выдачи.
	slices.SortStableFunc(items, func(a, b model.ItemRecord) int {
		switch {
		case a.CreatedAt > b.CreatedAt:
			return -1
		case a.CreatedAt < b.CreatedAt:
			return 1
		}
		return 0
	})

	next := &snapshot{
		items:   items,
		index:   make(map[string]int, len(items)),
		version: s.current.Load().version + 1,
	}
	for i, it := range items {
		next.index[it.ID] = i
		next.totalBytes += it.FileSize
	}
	s.current.Store(next)

	catalogRefreshTotal.WithLabelValues("ok").Inc()
	catalogItems.Set(float64(len(items)))
	s.logger.Debug("Каталог обновлён",
		slog.Int("items", len(items)),
		slog.Uint64("version", next.version),
	)

	return slices.Clone(items), nil
}

// Items возвращает копию текущего списка записей (по убыванию createdAt).
func (s *CatalogStore) Items() []model.ItemRecord {
	return slices.Clone(s.current.Load().items)
}

// Count возвращает количество записей.
func (s *CatalogStore) Count() int {
	return len(s.current.Load().items)
}

// TotalBytes возвращает суммарный размер файлов.
func (s *CatalogStore) TotalBytes() int64 {
	return s.current.Load().totalBytes
}

// Version возвращает номер снимка. Увеличивается при каждом успешном Refresh.
func (s *CatalogStore) Version() uint64 {
	return s.current.Load().version
}

// Get возвращает запись по ID.
func (s *CatalogStore) Get(id string) (model.ItemRecord, bool) {
	snap := s.current.Load()
	i, ok := snap.index[id]
	if !ok {
		return model.ItemRecord{}, false
	}
	return snap.items[i], true
}

// Recent возвращает до n последних записей.
func (s *CatalogStore) Recent(n int) []model.ItemRecord {
	items := s.current.Load().items
	if n > len(items) {
		n = len(items)
	}
	return slices.Clone(items[:n])
}

// CategoryCounts возвращает количество записей по каждой категории.
// Все категории присутствуют, записи с неизвестной категорией не учитываются.
func (s *CatalogStore) CategoryCounts() map[string]int {
	counts := make(map[string]int, len(model.Categories))
	for _, c := range model.Categories {
		counts[c.Value] = 0
	}
	for _, it := range s.current.Load().items {
		if _, ok := counts[it.Category]; ok {
			counts[it.Category]++
		}
	}
	return counts
}

// Start запускает фоновое обновление каталога с заданным интервалом.
func (s *CatalogStore) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Фоновое обновление каталога запущено",
			slog.String("interval", s.interval.String()),
		)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Фоновое обновление каталога остановлено")
				return
			case <-ticker.C:
				// Ошибка уже залогирована в Refresh, снимок остаётся прежним
				_, _ = s.Refresh(ctx)
			}
		}
	}()
}

// Stop останавливает фоновое обновление и ждёт завершения горутины.
func (s *CatalogStore) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}
