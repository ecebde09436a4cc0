package model

import "time"

// Admin — учётная запись администратора каталога.
// Хранится в таблице admins, пароль — только в виде bcrypt-хэша.
type Admin struct {
	// ID — UUID записи
	ID string
	// Email — адрес для входа (уникален без учёта регистра)
	Email string
	// PasswordHash — bcrypt-хэш пароля
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
