package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

// AdminRepository — учётные записи администраторов (таблица admins).
type AdminRepository struct {
	db DBTX
}

// NewAdminRepository создаёт репозиторий администраторов.
func NewAdminRepository(db DBTX) *AdminRepository {
	return &AdminRepository{db: db}
}

const adminColumns = `id, email, password_hash, created_at, updated_at`

func scanAdmin(row pgx.Row) (*model.Admin, error) {
	a := &model.Admin{}
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// GetByEmail возвращает администратора по email (без учёта регистра).
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	query := fmt.Sprintf(`SELECT %s FROM admins WHERE lower(email) = lower($1)`, adminColumns)
	a, err := scanAdmin(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения администратора: %w", err)
	}
	return a, nil
}

// GetByID возвращает администратора по UUID.
func (r *AdminRepository) GetByID(ctx context.Context, id string) (*model.Admin, error) {
	query := fmt.Sprintf(`SELECT %s FROM admins WHERE id = $1`, adminColumns)
	a, err := scanAdmin(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения администратора: %w", err)
	}
	return a, nil
}

// Upsert создаёт администратора или обновляет хэш пароля существующего.
func (r *AdminRepository) Upsert(ctx context.Context, email, passwordHash string) (*model.Admin, error) {
	query := fmt.Sprintf(`
		INSERT INTO admins (id, email, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (lower(email)) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, updated_at = now()
		RETURNING %s`, adminColumns)

	a, err := scanAdmin(r.db.QueryRow(ctx, query, uuid.NewString(), email, passwordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: администратор %s", ErrConflict, email)
		}
		return nil, fmt.Errorf("ошибка сохранения администратора: %w", err)
	}
	return a, nil
}
