package repository

import (
	"github.com/yourusername/prashnify-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с хранилищем вопросов
type QuestionRepository interface {
	CreateBatch(questions []entity.Question) error
	// GetByQuiz возвращает вопросы викторины строго в порядке индекса
	GetByQuiz(quizCode string) ([]entity.Question, error)
	GetByIndex(quizCode string, index int) (*entity.Question, error)
	DeleteByQuiz(quizCode string) error
}
