package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Admin представляет учетную запись администратора.
// Пароль хранится как SHA-256 hex от сконфигурированного пароля.
type Admin struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Username  string    `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Password  string    `gorm:"size:64;not null" json:"-"`
	Role      string    `gorm:"size:20;not null;default:'admin'" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName определяет имя таблицы для GORM
func (Admin) TableName() string {
	return "admins"
}

// HashPassword возвращает SHA-256 hex пароля
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// CheckPassword сравнивает пароль с сохраненным хешем
func (a *Admin) CheckPassword(password string) bool {
	return a.Password == HashPassword(password)
}
