package repository

import (
	"github.com/yourusername/prashnify-api/internal/domain/entity"
)

// QuizFilters - фильтры для списка викторин
type QuizFilters struct {
	Status string
}

// QuizRepository определяет методы для работы с хранилищем викторин
type QuizRepository interface {
	Create(quiz *entity.Quiz) error
	GetByCode(code string) (*entity.Quiz, error)
	CodeExists(code string) (bool, error)
	List(filters QuizFilters, limit, offset int) ([]entity.Quiz, error)
	UpdateStatus(code string, status string) error
	// RegisterJoin атомарно увеличивает participant_count и обновляет last_played
	RegisterJoin(code string) error
	// DecrementParticipantCount атомарно уменьшает participant_count (kick)
	DecrementParticipantCount(code string) error
	Delete(code string) error
}
