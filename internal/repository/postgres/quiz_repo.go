package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/yourusername/prashnify-api/internal/domain/entity"
	"github.com/yourusername/prashnify-api/internal/domain/repository"
	apperrors "github.com/yourusername/prashnify-api/internal/pkg/errors"
)

// QuizRepo реализует repository.QuizRepository
type QuizRepo struct {
	db *gorm.DB
}

// NewQuizRepo создает новый репозиторий викторин
func NewQuizRepo(db *gorm.DB) *QuizRepo {
	return &QuizRepo{db: db}
}

// Create создает новую викторину
func (r *QuizRepo) Create(quiz *entity.Quiz) error {
	if err := r.db.Create(quiz).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return err
	}
	return nil
}

// GetByCode возвращает викторину по коду
func (r *QuizRepo) GetByCode(code string) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.Where("code = ?", code).First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// CodeExists проверяет, занят ли код
func (r *QuizRepo) CodeExists(code string) (bool, error) {
	var count int64
	err := r.db.Model(&entity.Quiz{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// List возвращает список викторин с фильтром по статусу и пагинацией,
// новые первыми
func (r *QuizRepo) List(filters repository.QuizFilters, limit, offset int) ([]entity.Quiz, error) {
	var quizzes []entity.Quiz

	query := r.db.Model(&entity.Quiz{})
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&quizzes).Error
	return quizzes, err
}

// UpdateStatus обновляет статус викторины
func (r *QuizRepo) UpdateStatus(code string, status string) error {
	result := r.db.Model(&entity.Quiz{}).
		Where("code = ?", code).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RegisterJoin атомарно увеличивает participant_count и обновляет last_played
func (r *QuizRepo) RegisterJoin(code string) error {
	return r.db.Model(&entity.Quiz{}).
		Where("code = ?", code).
		Updates(map[string]interface{}{
			"participant_count": gorm.Expr("participant_count + 1"),
			"last_played":       gorm.Expr("NOW()"),
		}).Error
}

// DecrementParticipantCount атомарно уменьшает participant_count
func (r *QuizRepo) DecrementParticipantCount(code string) error {
	return r.db.Model(&entity.Quiz{}).
		Where("code = ? AND participant_count > 0", code).
		Update("participant_count", gorm.Expr("participant_count - 1")).Error
}

// Delete удаляет викторину по коду
func (r *QuizRepo) Delete(code string) error {
	result := r.db.Where("code = ?", code).Delete(&entity.Quiz{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
