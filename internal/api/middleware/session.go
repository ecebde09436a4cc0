// Пакет middleware — HTTP middleware Mod Store.
// session.go — проверка сессии администратора (cookie-based) для /admin/api/*.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/api/auth"
	apierrors "github.com/SHIV-31-60/Sf2-modded-store/internal/api/errors"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/service"
)

// contextKey — тип для ключей контекста.
type contextKey string

const (
	// ContextKeyGuard — Guard сессии администратора в контексте запроса.
	ContextKeyGuard contextKey = "session_guard"
)

// SessionAuth — middleware аутентификации администратора.
// Извлекает токен из зашифрованного cookie и восстанавливает сессию через бэкенд.
// Каждый запрос получает собственный Guard в состоянии LoggedIn.
type SessionAuth struct {
	sessionManager *auth.SessionManager
	auth           backend.Auth
	logger         *slog.Logger
	now            func() time.Time
}

// NewSessionAuth создаёт middleware аутентификации администратора.
func NewSessionAuth(sessionManager *auth.SessionManager, a backend.Auth, logger *slog.Logger) *SessionAuth {
	return &SessionAuth{
		sessionManager: sessionManager,
		auth:           a,
		logger:         logger.With(slog.String("component", "session_auth_middleware")),
		now:            time.Now,
	}
}

// Middleware возвращает HTTP middleware. Без действующей сессии — 401,
// при недоступности бэкенда аутентификации — 502.
func (sa *SessionAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Извлекаем сессию из cookie
			data, err := sa.sessionManager.GetSessionFromRequest(r)
			if err != nil {
				sa.logger.Debug("Ошибка чтения cookie сессии",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				sa.sessionManager.ClearSessionCookie(w)
				apierrors.Unauthorized(w, "Сессия недействительна")
				return
			}
			if data == nil {
				apierrors.Unauthorized(w, "Требуется вход администратора")
				return
			}
			if data.IsExpired(sa.now()) {
				sa.sessionManager.ClearSessionCookie(w)
				apierrors.Unauthorized(w, "Срок действия сессии истёк")
				return
			}

			// 2. Восстанавливаем сессию в бэкенде
			guard := service.NewGuard(sa.auth, sa.logger)
			if err := guard.Resume(r.Context(), data.Token); err != nil {
				if errors.Is(err, service.ErrAuth) {
					sa.logger.Info("Сессия отозвана",
						slog.String("email", data.Email),
					)
					sa.sessionManager.ClearSessionCookie(w)
					apierrors.Unauthorized(w, "Сессия недействительна")
					return
				}
				sa.logger.Error("Ошибка проверки сессии",
					slog.String("error", err.Error()),
				)
				apierrors.BackendUnavailable(w, "Сервис аутентификации недоступен")
				return
			}

			// 3. Помещаем Guard в контекст
			ctx := context.WithValue(r.Context(), ContextKeyGuard, guard)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GuardFromContext извлекает Guard из контекста запроса.
// Возвращает nil если запрос не прошёл через SessionAuth.
func GuardFromContext(ctx context.Context) *service.Guard {
	guard, ok := ctx.Value(ContextKeyGuard).(*service.Guard)
	if !ok {
		return nil
	}
	return guard
}
