// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation — некорректные входные данные (до обращения к бэкенду).
	ErrValidation = errors.New("ошибка валидации")
	// ErrAuth — нет действующей сессии или неверные учётные данные.
	ErrAuth = errors.New("ошибка аутентификации")
	// ErrNetwork — сбой обращения к бэкенду.
	ErrNetwork = errors.New("бэкенд недоступен")
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
)

// InvalidCredentialsMessage — сообщение для пользователя при неверном входе.
const InvalidCredentialsMessage = "Invalid email or password"

// ValidationError — ошибка валидации конкретного поля.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is позволяет сравнивать через errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NetworkError — сбой операции бэкенда. Операция считается не выполненной.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap возвращает исходную ошибку бэкенда.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать через errors.Is(err, ErrNetwork).
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func network(op string, err error) error {
	return &NetworkError{Op: op, Err: err}
}
