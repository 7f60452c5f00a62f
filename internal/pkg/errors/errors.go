package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken используется, когда токен истек.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict используется для конфликтов состояния (повторный ответ,
	// завершенная викторина, исчерпанные попытки и т.п.).
	ErrConflict = errors.New("resource state conflict")

	// ErrCapacity используется при превышении лимитов комнаты
	// (подключения, частота подключений, максимум участников).
	ErrCapacity = errors.New("capacity limit exceeded")
)
