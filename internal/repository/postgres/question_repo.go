package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/prashnify-api/internal/domain/entity"
	apperrors "github.com/yourusername/prashnify-api/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// CreateBatch сохраняет вопросы одним запросом
func (r *QuestionRepo) CreateBatch(questions []entity.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.db.Create(&questions).Error
}

// GetByQuiz возвращает вопросы викторины строго в порядке индекса
func (r *QuestionRepo) GetByQuiz(quizCode string) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.Where("quiz_code = ?", quizCode).
		Order("index ASC").
		Find(&questions).Error
	return questions, err
}

// GetByIndex возвращает вопрос по (код викторины, индекс)
func (r *QuestionRepo) GetByIndex(quizCode string, index int) (*entity.Question, error) {
	var question entity.Question
	err := r.db.Where("quiz_code = ? AND index = ?", quizCode, index).
		First(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}

// DeleteByQuiz удаляет все вопросы викторины
func (r *QuestionRepo) DeleteByQuiz(quizCode string) error {
	return r.db.Where("quiz_code = ?", quizCode).Delete(&entity.Question{}).Error
}
