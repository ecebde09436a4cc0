package authn

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// mockAdminStore — мок AdminStore с function fields.
type mockAdminStore struct {
	getByEmailFn func(ctx context.Context, email string) (*model.Admin, error)
	getByIDFn    func(ctx context.Context, id string) (*model.Admin, error)
	upsertFn     func(ctx context.Context, email, hash string) (*model.Admin, error)
}

func (m *mockAdminStore) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return m.getByEmailFn(ctx, email)
}

func (m *mockAdminStore) GetByID(ctx context.Context, id string) (*model.Admin, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockAdminStore) Upsert(ctx context.Context, email, hash string) (*model.Admin, error) {
	return m.upsertFn(ctx, email, hash)
}

// newTestAuth создаёт Authenticator с одним администратором admin@example.com / secret.
func newTestAuth(t *testing.T) (*Authenticator, *mockAdminStore) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	admin := &model.Admin{ID: "admin-1", Email: "admin@example.com", PasswordHash: string(hash)}

	store := &mockAdminStore{
		getByEmailFn: func(_ context.Context, email string) (*model.Admin, error) {
			if strings.EqualFold(email, admin.Email) {
				return admin, nil
			}
			return nil, backend.ErrNotFound
		},
		getByIDFn: func(_ context.Context, id string) (*model.Admin, error) {
			if id == admin.ID {
				return admin, nil
			}
			return nil, backend.ErrNotFound
		},
	}

	a, err := New(store, testSecret, time.Hour, slog.Default())
	if err != nil {
		t.Fatalf("New() ошибка: %v", err)
	}
	return a, store
}

func TestSignInVerify(t *testing.T) {
	a, _ := newTestAuth(t)
	ctx := context.Background()

	s, err := a.SignIn(ctx, " admin@example.com ", "secret")
	if err != nil {
		t.Fatalf("SignIn() ошибка: %v", err)
	}
	if s.UserID != "admin-1" || s.Email != "admin@example.com" || s.Token == "" {
		t.Errorf("сессия: %+v", s)
	}

	v, err := a.Verify(ctx, s.Token)
	if err != nil {
		t.Fatalf("Verify() ошибка: %v", err)
	}
	if v.UserID != s.UserID || !v.ExpiresAt.Equal(s.ExpiresAt.Truncate(time.Second)) {
		t.Errorf("Verify() = %+v, ожидалось %+v", v, s)
	}
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	a, _ := newTestAuth(t)

	for _, tc := range []struct{ email, password string }{
		{"admin@example.com", "wrong"},
		{"nobody@example.com", "secret"},
	} {
		if _, err := a.SignIn(context.Background(), tc.email, tc.password); !errors.Is(err, backend.ErrInvalidCredentials) {
			t.Errorf("SignIn(%s) = %v, ожидалась ErrInvalidCredentials", tc.email, err)
		}
	}
}

func TestSignIn_StoreFailure(t *testing.T) {
	a, store := newTestAuth(t)
	store.getByEmailFn = func(context.Context, string) (*model.Admin, error) {
		return nil, errors.New("connection refused")
	}

	_, err := a.SignIn(context.Background(), "admin@example.com", "secret")
	if err == nil || errors.Is(err, backend.ErrInvalidCredentials) {
		t.Errorf("SignIn() = %v, ожидалась ошибка хранилища", err)
	}
}

func TestSignOut_RevokesToken(t *testing.T) {
	a, _ := newTestAuth(t)
	ctx := context.Background()

	s, err := a.SignIn(ctx, "admin@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn() ошибка: %v", err)
	}
	other, err := a.SignIn(ctx, "admin@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn() ошибка: %v", err)
	}

	if err := a.SignOut(ctx, s.Token); err != nil {
		t.Fatalf("SignOut() ошибка: %v", err)
	}
	if _, err := a.Verify(ctx, s.Token); !errors.Is(err, backend.ErrSessionInvalid) {
		t.Errorf("Verify() после SignOut = %v, ожидалась ErrSessionInvalid", err)
	}
	if _, err := a.Verify(ctx, other.Token); err != nil {
		t.Errorf("другая сессия отозвана: %v", err)
	}
	if err := a.SignOut(ctx, "garbage"); err != nil {
		t.Errorf("SignOut(garbage) = %v, ожидался nil", err)
	}
}

func TestVerify_Invalid(t *testing.T) {
	a, store := newTestAuth(t)
	ctx := context.Background()

	s, err := a.SignIn(ctx, "admin@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn() ошибка: %v", err)
	}

	// Чужая подпись
	forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: issuer, Subject: "admin-1", ID: "x",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("another-secret-another-secret-xx"))

	// Алгоритм none
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: issuer, Subject: "admin-1", ID: "y",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, token := range map[string]string{"пустой": "", "мусор": "abc", "чужая подпись": forged, "none": unsigned} {
		if _, err := a.Verify(ctx, token); !errors.Is(err, backend.ErrSessionInvalid) {
			t.Errorf("Verify(%s) = %v, ожидалась ErrSessionInvalid", name, err)
		}
	}

	// Истёкший токен
	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := a.Verify(ctx, s.Token); !errors.Is(err, backend.ErrSessionInvalid) {
		t.Errorf("Verify(истёкший) = %v, ожидалась ErrSessionInvalid", err)
	}
	a.now = time.Now

	// Учётная запись удалена
	store.getByIDFn = func(context.Context, string) (*model.Admin, error) { return nil, backend.ErrNotFound }
	if _, err := a.Verify(ctx, s.Token); !errors.Is(err, backend.ErrSessionInvalid) {
		t.Errorf("Verify(удалённый) = %v, ожидалась ErrSessionInvalid", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	a, store := newTestAuth(t)

	var gotEmail, gotHash string
	store.upsertFn = func(_ context.Context, email, hash string) (*model.Admin, error) {
		gotEmail, gotHash = email, hash
		return &model.Admin{ID: "admin-2", Email: email, PasswordHash: hash}, nil
	}

	if err := a.EnsureAdmin(context.Background(), " new@example.com ", "pw"); err != nil {
		t.Fatalf("EnsureAdmin() ошибка: %v", err)
	}
	if gotEmail != "new@example.com" {
		t.Errorf("email = %q", gotEmail)
	}
	if bcrypt.CompareHashAndPassword([]byte(gotHash), []byte("pw")) != nil {
		t.Error("сохранён некорректный bcrypt-хэш")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(&mockAdminStore{}, "short", time.Hour, slog.Default()); err == nil {
		t.Error("New() с коротким секретом не вернул ошибку")
	}
	if _, err := New(&mockAdminStore{}, testSecret, 0, slog.Default()); err == nil {
		t.Error("New() с нулевым TTL не вернул ошибку")
	}
}
