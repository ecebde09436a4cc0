// session.go — состояние сессии администратора.
// Все пишущие операции каталога требуют состояния LoggedIn.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
)

// SessionState — состояние Guard.
type SessionState int

const (
	// StateLoggedOut — сессии нет.
	StateLoggedOut SessionState = iota
	// StateLoggedIn — сессия открыта.
	StateLoggedIn
)

func (s SessionState) String() string {
	if s == StateLoggedIn {
		return "logged_in"
	}
	return "logged_out"
}

// Guard — явный объект сессии администратора: LoggedOut или LoggedIn(session).
// Безопасен для конкурентного использования.
type Guard struct {
	auth   backend.Auth
	logger *slog.Logger

	mu        sync.RWMutex
	session   *backend.Session
	listeners []func(*backend.Session)
}

// NewGuard создаёт Guard в состоянии LoggedOut.
func NewGuard(auth backend.Auth, logger *slog.Logger) *Guard {
	return &Guard{
		auth:   auth,
		logger: logger.With(slog.String("component", "session_guard")),
	}
}

// SignIn открывает сессию: LoggedOut → LoggedIn.
// Неверные учётные данные — ErrAuth с общим сообщением, сбой бэкенда — NetworkError.
func (g *Guard) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: %s", ErrAuth, InvalidCredentialsMessage)
	}

	s, err := g.auth.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, backend.ErrInvalidCredentials) {
			g.logger.Info("Неудачная попытка входа", slog.String("email", email))
			return nil, fmt.Errorf("%w: %s", ErrAuth, InvalidCredentialsMessage)
		}
		return nil, network("вход", err)
	}

	g.transition(s)
	g.logger.Info("Администратор вошёл", slog.String("email", s.Email))
	return s, nil
}

// Resume восстанавливает сессию по ранее выданному токену.
// Недействительный токен переводит Guard в LoggedOut и возвращает ErrAuth.
func (g *Guard) Resume(ctx context.Context, token string) error {
	if token == "" {
		g.transition(nil)
		return fmt.Errorf("%w: нет токена сессии", ErrAuth)
	}
	s, err := g.auth.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, backend.ErrSessionInvalid) {
			g.transition(nil)
			return fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return network("проверка сессии", err)
	}
	g.transition(s)
	return nil
}

// Check перепроверяет текущую сессию в бэкенде.
// Если бэкенд сообщает о недействительности — переход в LoggedOut.
func (g *Guard) Check(ctx context.Context) error {
	s, ok := g.Session()
	if !ok {
		return fmt.Errorf("%w: сессия не открыта", ErrAuth)
	}
	if _, err := g.auth.Verify(ctx, s.Token); err != nil {
		if errors.Is(err, backend.ErrSessionInvalid) {
			g.logger.Info("Сессия отозвана бэкендом", slog.String("email", s.Email))
			g.transition(nil)
			return fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return network("проверка сессии", err)
	}
	return nil
}

// SignOut закрывает сессию: LoggedIn → LoggedOut.
// Guard переходит в LoggedOut даже при ошибке отзыва токена в бэкенде.
func (g *Guard) SignOut(ctx context.Context) error {
	s, ok := g.Session()
	if !ok {
		return nil
	}
	g.transition(nil)
	if err := g.auth.SignOut(ctx, s.Token); err != nil {
		return network("выход", err)
	}
	g.logger.Info("Администратор вышел", slog.String("email", s.Email))
	return nil
}

// Invalidate переводит Guard в LoggedOut без обращения к бэкенду.
func (g *Guard) Invalidate() {
	g.transition(nil)
}

// State возвращает текущее состояние.
func (g *Guard) State() SessionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return StateLoggedOut
	}
	return StateLoggedIn
}

// Session возвращает копию текущей сессии.
func (g *Guard) Session() (*backend.Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return nil, false
	}
	cp := *g.session
	return &cp, true
}

// Require возвращает сессию или ErrAuth в состоянии LoggedOut.
// Вызывается перед любым обращением к пишущим операциям бэкенда.
func (g *Guard) Require() (*backend.Session, error) {
	s, ok := g.Session()
	if !ok {
		return nil, fmt.Errorf("%w: требуется вход администратора", ErrAuth)
	}
	return s, nil
}

// OnChange регистрирует обработчик смены сессии.
// Обработчик получает nil при переходе в LoggedOut.
func (g *Guard) OnChange(fn func(*backend.Session)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// transition меняет состояние и уведомляет обработчиков при фактической смене.
func (g *Guard) transition(s *backend.Session) {
	g.mu.Lock()
	prev := g.session
	if s != nil {
		cp := *s
		s = &cp
	}
	g.session = s
	listeners := slices.Clone(g.listeners)
	g.mu.Unlock()

	if prev == nil && s == nil {
		return
	}
	if prev != nil && s != nil && prev.Token == s.Token {
		return
	}
	for _, fn := range listeners {
		fn(s)
	}
}
