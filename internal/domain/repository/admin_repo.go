package repository

import (
	"github.com/yourusername/prashnify-api/internal/domain/entity"
)

// AdminRepository определяет методы для работы с учетными записями администраторов
type AdminRepository interface {
	GetByUsername(username string) (*entity.Admin, error)
	// Upsert создает администратора или обновляет хеш пароля при его смене
	Upsert(admin *entity.Admin) error
}
