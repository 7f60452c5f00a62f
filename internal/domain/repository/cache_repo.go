package repository

import (
	"time"
)

// CacheRepository определяет методы для работы с внешним кешем (Redis).
// Все операции best-effort: ошибки кеша никогда не эскалируются вызывающему
// кодом уровнем выше (QuizCache), хранилище документов остается источником истины.
type CacheRepository interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string) (string, error)
	Delete(keys ...string) error
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	Exists(key string) (bool, error)
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)
}
