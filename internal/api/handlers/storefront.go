// storefront.go — публичные endpoints витрины /api/v1.
// Выборка выполняется над in-memory снимком каталога, бэкенд не вызывается.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/SHIV-31-60/Sf2-modded-store/internal/api/errors"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/query"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/view"
)

// itemsResponse — ответ GET /api/v1/items.
type itemsResponse struct {
	Items      []view.Card  `json:"items"`
	Total      int          `json:"total"`
	CountLabel string       `json:"countLabel"`
	Query      query.Params `json:"query"`
}

// catalogResponse — справочник витрины для построения фильтров.
type catalogResponse struct {
	Categories      []model.Category `json:"categories"`
	Characters      []string         `json:"characters"`
	SortKeys        []query.SortKey  `json:"sortKeys"`
	PageSize        int              `json:"pageSize"`
	SearchDebounce  int64            `json:"searchDebounceMs"`
	PreviewMaxBytes int64            `json:"previewMaxBytes"`
	PayloadMaxBytes int64            `json:"payloadMaxBytes"`
	PreviewTypes    []string         `json:"previewTypes"`
}

// statsResponse — сводка витрины.
type statsResponse struct {
	Items       int    `json:"items"`
	ItemsLabel  string `json:"itemsLabel"`
	TotalBytes  int64  `json:"totalBytes"`
	StorageUsed string `json:"storageUsed"`
}

// ListItems — GET /api/v1/items?search=&category=&character=&sort=.
func (h *APIHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sortKey, err := query.ParseSortKey(q.Get("sort"))
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	params := query.Params{
		Search:    q.Get("search"),
		Category:  q.Get("category"),
		Character: q.Get("character"),
		Sort:      sortKey,
	}.Normalize()

	items := h.cache.Run(h.catalog.Version(), h.catalog.Items, params)

	writeJSON(w, http.StatusOK, itemsResponse{
		Items:      view.Cards(items),
		Total:      len(items),
		CountLabel: view.CountLabel(len(items)),
		Query:      params,
	})
}

// GetItem — GET /api/v1/items/{id}.
func (h *APIHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	it, ok := h.catalog.Get(chi.URLParam(r, "id"))
	if !ok {
		apierrors.NotFound(w, "Запись не найдена")
		return
	}
	writeJSON(w, http.StatusOK, view.DetailOf(it))
}

// DownloadItem — GET /api/v1/items/{id}/download. Redirect на URL файла.
func (h *APIHandler) DownloadItem(w http.ResponseWriter, r *http.Request) {
	it, ok := h.catalog.Get(chi.URLParam(r, "id"))
	if !ok || it.DownloadURL == "" {
		apierrors.NotFound(w, "Файл не найден")
		return
	}
	http.Redirect(w, r, it.DownloadURL, http.StatusFound)
}

// GetCatalog — GET /api/v1/catalog.
func (h *APIHandler) GetCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalogResponse{
		Categories:      model.Categories,
		Characters:      model.Characters,
		SortKeys:        query.SortKeys,
		PageSize:        h.opts.PageSize,
		SearchDebounce:  h.opts.SearchDebounce.Milliseconds(),
		PreviewMaxBytes: h.opts.Limits.PreviewMaxBytes,
		PayloadMaxBytes: h.opts.Limits.PayloadMaxBytes,
		PreviewTypes:    model.PreviewContentTypes,
	})
}

// GetStats — GET /api/v1/stats.
func (h *APIHandler) GetStats(w http.ResponseWriter, _ *http.Request) {
	n := h.catalog.Count()
	total := h.catalog.TotalBytes()
	writeJSON(w, http.StatusOK, statsResponse{
		Items:       n,
		ItemsLabel:  view.CountLabel(n),
		TotalBytes:  total,
		StorageUsed: view.FormatFileSize(total),
	})
}
