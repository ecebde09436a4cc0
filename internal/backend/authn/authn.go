// Пакет authn — аутентификация администраторов каталога.
// Пароли проверяются по bcrypt-хэшу, сессия — подписанный HS256 токен
// с уникальным jti. Отозванные токены хранятся до истечения срока жизни.
package authn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/bcrypt"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

// issuer — значение iss выдаваемых токенов.
const issuer = "modstore"

// maxRevoked — ёмкость списка отозванных токенов.
const maxRevoked = 10000

// AdminStore — хранилище учётных записей администраторов.
// Реализуется postgres.AdminRepository.
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	GetByID(ctx context.Context, id string) (*model.Admin, error)
	Upsert(ctx context.Context, email, passwordHash string) (*model.Admin, error)
}

// sessionClaims — claims токена сессии.
type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Authenticator — реализация backend.Auth.
type Authenticator struct {
	admins  AdminStore
	secret  []byte
	ttl     time.Duration
	revoked *expirable.LRU[string, struct{}]
	now     func() time.Time
	logger  *slog.Logger

	// dummyHash сравнивается с паролем при неизвестном email
	dummyHash []byte
}

// New создаёт Authenticator.
func New(admins AdminStore, secret string, ttl time.Duration, logger *slog.Logger) (*Authenticator, error) {
	if len(secret) < 32 {
		return nil, errors.New("секрет подписи токенов короче 32 символов")
	}
	if ttl <= 0 {
		return nil, errors.New("время жизни сессии должно быть положительным")
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации хэша: %w", err)
	}
	return &Authenticator{
		admins:    admins,
		secret:    []byte(secret),
		ttl:       ttl,
		revoked:   expirable.NewLRU[string, struct{}](maxRevoked, nil, ttl),
		now:       time.Now,
		logger:    logger.With(slog.String("component", "authn")),
		dummyHash: dummy,
	}, nil
}

// SignIn проверяет учётные данные и выдаёт токен сессии.
func (a *Authenticator) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	admin, err := a.admins.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
			return nil, backend.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, backend.ErrInvalidCredentials
	}

	now := a.now()
	expiresAt := now.Add(a.ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   admin.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: admin.Email,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("ошибка подписи токена: %w", err)
	}

	return &backend.Session{
		Token:     token,
		UserID:    admin.ID,
		Email:     admin.Email,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify проверяет токен сессии. Просроченный, отозванный, поддельный токен
// или удалённая учётная запись — backend.ErrSessionInvalid.
func (a *Authenticator) Verify(ctx context.Context, token string) (*backend.Session, error) {
	claims, err := a.parse(token)
	if err != nil {
		return nil, backend.ErrSessionInvalid
	}
	if a.revoked.Contains(claims.ID) {
		return nil, backend.ErrSessionInvalid
	}

	admin, err := a.admins.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, backend.ErrSessionInvalid
		}
		return nil, err
	}

	return &backend.Session{
		Token:     token,
		UserID:    admin.ID,
		Email:     admin.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SignOut отзывает токен. Недействительный токен игнорируется.
func (a *Authenticator) SignOut(_ context.Context, token string) error {
	claims, err := a.parse(token)
	if err != nil {
		return nil
	}
	a.revoked.Add(claims.ID, struct{}{})
	a.logger.Debug("Сессия отозвана", slog.String("subject", claims.Subject))
	return nil
}

// EnsureAdmin создаёт учётную запись администратора или обновляет её пароль.
func (a *Authenticator) EnsureAdmin(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("ошибка хэширования пароля: %w", err)
	}
	admin, err := a.admins.Upsert(ctx, strings.TrimSpace(email), string(hash))
	if err != nil {
		return err
	}
	a.logger.Info("Учётная запись администратора готова", slog.String("email", admin.Email))
	return nil
}

func (a *Authenticator) parse(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("в токене нет jti или sub")
	}
	return claims, nil
}
