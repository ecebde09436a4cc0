// auth.go — вход и выход администратора.
// POST /admin/login — проверка учётных данных, установка cookie сессии.
// POST /admin/logout — отзыв сессии и удаление cookie.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/api/auth"
	apierrors "github.com/SHIV-31-60/Sf2-modded-store/internal/api/errors"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/service"
)

// loginRequest — тело POST /admin/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse — описание сессии администратора.
type sessionResponse struct {
	State     string    `json:"state"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Login — POST /admin/login.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	guard := service.NewGuard(h.auth, h.logger)
	s, err := guard.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAuth) {
			apierrors.Unauthorized(w, service.InvalidCredentialsMessage)
			return
		}
		h.handleServiceError(w, err, "login")
		return
	}

	if err := h.sessions.SetSessionCookie(w, &auth.SessionData{
		Token:     s.Token,
		Email:     s.Email,
		ExpiresAt: s.ExpiresAt.Unix(),
	}); err != nil {
		h.logger.Error("Ошибка установки cookie сессии", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Не удалось открыть сессию")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		State:     service.StateLoggedIn.String(),
		Email:     s.Email,
		ExpiresAt: s.ExpiresAt.UTC(),
	})
}

// Logout — POST /admin/logout. Cookie удаляется в любом случае.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	data, err := h.sessions.GetSessionFromRequest(r)
	h.sessions.ClearSessionCookie(w)
	if err != nil || data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	guard := service.NewGuard(h.auth, h.logger)
	if err := guard.Resume(r.Context(), data.Token); err == nil {
		if err := guard.SignOut(r.Context()); err != nil {
			h.logger.Warn("Ошибка отзыва сессии", slog.String("error", err.Error()))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
