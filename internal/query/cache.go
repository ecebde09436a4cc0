// cache.go — кэш результатов выборки витрины.
// Ключ включает версию снимка каталога: после Refresh старые записи
// перестают запрашиваться и вытесняются LRU.
package query

import (
	"strconv"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

var cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ms_query_cache_requests_total",
	Help: "Обращения к кэшу выборок витрины по результату (hit, miss).",
}, []string{"result"})

// Cache — LRU-кэш результатов Run.
type Cache struct {
	lru *expirable.LRU[string, []model.ItemRecord]
}

// NewCache создаёт кэш на size выборок. size <= 0 отключает кэширование.
func NewCache(size int) *Cache {
	if size <= 0 {
		return &Cache{}
	}
	// ttl 0 — записи живут до вытеснения
	return &Cache{lru: expirable.NewLRU[string, []model.ItemRecord](size, nil, 0)}
}

// Run возвращает выборку для версии каталога version.
// items вызывается только при промахе. Результат нельзя изменять.
func (c *Cache) Run(version uint64, items func() []model.ItemRecord, p Params) []model.ItemRecord {
	p = p.Normalize()
	if c.lru == nil {
		return Run(items(), p)
	}

	key := cacheKey(version, p)
	if view, ok := c.lru.Get(key); ok {
		cacheRequests.WithLabelValues("hit").Inc()
		return view
	}
	cacheRequests.WithLabelValues("miss").Inc()

	view := Run(items(), p)
	c.lru.Add(key, view)
	return view
}

// Len возвращает количество выборок в кэше.
func (c *Cache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

func cacheKey(version uint64, p Params) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(version, 10))
	for _, part := range []string{strings.ToLower(p.Search), strings.ToLower(p.Category), strings.ToLower(p.Character), string(p.Sort)} {
		b.WriteByte(0)
		b.WriteString(part)
	}
	return b.String()
}
