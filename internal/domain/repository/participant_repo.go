package repository

import (
	"time"

	"github.com/yourusername/prashnify-api/internal/domain/entity"
)

// AnswerUpdate - атомарное обновление участника при ответе на вопрос:
// инкремент score/total_time, добавление записи ответа, отметка активности
// и (опционально) завершения.
type AnswerUpdate struct {
	ParticipantID string
	Record        entity.AnswerRecord
	CompletedAt   *time.Time
}

// ParticipantRepository определяет методы для работы с хранилищем участников
type ParticipantRepository interface {
	Create(p *entity.Participant) error
	GetByID(id string, quizCode string) (*entity.Participant, error)
	// GetByQuiz возвращает участников викторины, отсортированных по score DESC, total_time ASC
	GetByQuiz(quizCode string) ([]entity.Participant, error)
	// GetRoster возвращает участников в порядке joined_at для лобби
	GetRoster(quizCode string) ([]entity.Participant, error)
	CountByName(quizCode string, name string) (int64, error)
	AvatarSeedTaken(quizCode string, seed string, excludeID string) (bool, error)
	UpdateAvatarSeed(id string, seed string) error
	TouchLastActive(id string) error
	// ApplyAnswer выполняет атомарный $inc-эквивалент и добавление записи ответа
	ApplyAnswer(upd AnswerUpdate) error
	// Delete удаляет участника и возвращает удаленную запись (kick)
	Delete(id string, quizCode string) (*entity.Participant, error)
	DeleteByQuiz(quizCode string) error
}
