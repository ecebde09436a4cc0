// admin.go — административные endpoints /admin/api.
// Сессия проверяется middleware SessionAuth, Guard передаётся через контекст.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/SHIV-31-60/Sf2-modded-store/internal/api/errors"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/api/middleware"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/service"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/view"
)

// manageResponse — ответ GET /admin/api/items.
type manageResponse struct {
	Items []view.ManageRow `json:"items"`
	Total int              `json:"total"`
}

// itemFormRequest — тело PATCH /admin/api/items/{id}.
// Tags — теги через запятую, как в форме.
type itemFormRequest struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Character   string `json:"character"`
	Tags        string `json:"tags"`
	Description string `json:"description"`
}

func (f itemFormRequest) form() model.ItemForm {
	return model.ItemForm{
		Title:       f.Title,
		Category:    f.Category,
		Character:   f.Character,
		Tags:        model.ParseTags(f.Tags),
		Description: f.Description,
	}
}

// guard возвращает Guard запроса или пишет 401.
func (h *APIHandler) guard(w http.ResponseWriter, r *http.Request) (*service.Guard, bool) {
	g := middleware.GuardFromContext(r.Context())
	if g == nil {
		apierrors.Unauthorized(w, "Требуется вход администратора")
		return nil, false
	}
	return g, true
}

// GetSession — GET /admin/api/session.
func (h *APIHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	g, ok := h.guard(w, r)
	if !ok {
		return
	}
	s, err := g.Require()
	if err != nil {
		h.handleServiceError(w, err, "session")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		State:     g.State().String(),
		Email:     s.Email,
		ExpiresAt: s.ExpiresAt.UTC(),
	})
}

// GetDashboard — GET /admin/api/dashboard.
func (h *APIHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	d := h.items.Dashboard()
	writeJSON(w, http.StatusOK, view.BuildDashboard(d.Count, d.TotalBytes, d.Recent, d.CategoryCounts))
}

// ListManageItems — GET /admin/api/items?q=.
func (h *APIHandler) ListManageItems(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	items := h.items.ManageList(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, manageResponse{
		Items: view.ManageRows(items),
		Total: len(items),
	})
}

// UpdateItem — PATCH /admin/api/items/{id}.
func (h *APIHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	g, ok := h.guard(w, r)
	if !ok {
		return
	}

	var req itemFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	updated, err := h.items.Update(r.Context(), g, chi.URLParam(r, "id"), req.form())
	if err != nil {
		h.handleServiceError(w, err, "update_item")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteItem — DELETE /admin/api/items/{id}.
func (h *APIHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	g, ok := h.guard(w, r)
	if !ok {
		return
	}
	if err := h.items.Delete(r.Context(), g, chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, err, "delete_item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
