package postgres

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/prashnify-api/internal/domain/entity"
	apperrors "github.com/yourusername/prashnify-api/internal/pkg/errors"
)

// AdminRepo реализует repository.AdminRepository
type AdminRepo struct {
	db *gorm.DB
}

// NewAdminRepo создает новый репозиторий администраторов
func NewAdminRepo(db *gorm.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

// GetByUsername возвращает администратора по имени
func (r *AdminRepo) GetByUsername(username string) (*entity.Admin, error) {
	var admin entity.Admin
	err := r.db.Where("username = ?", username).First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// Upsert создает администратора или обновляет хеш пароля при его смене
func (r *AdminRepo) Upsert(admin *entity.Admin) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"password"}),
	}).Create(admin).Error
}
