package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/prashnify-api/internal/domain/entity"
	"github.com/yourusername/prashnify-api/internal/domain/repository"
	apperrors "github.com/yourusername/prashnify-api/internal/pkg/errors"
)

// ParticipantRepo реализует repository.ParticipantRepository
type ParticipantRepo struct {
	db *gorm.DB
}

// NewParticipantRepo создает новый репозиторий участников
func NewParticipantRepo(db *gorm.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// Create создает нового участника
func (r *ParticipantRepo) Create(p *entity.Participant) error {
	return r.db.Create(p).Error
}

// GetByID возвращает участника по (id, код викторины)
func (r *ParticipantRepo) GetByID(id string, quizCode string) (*entity.Participant, error) {
	var p entity.Participant
	err := r.db.Where("id = ? AND quiz_code = ?", id, quizCode).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetByQuiz возвращает участников, отсортированных для лидерборда:
// score DESC, total_time ASC. Использует индекс (quiz_code, score DESC).
func (r *ParticipantRepo) GetByQuiz(quizCode string) ([]entity.Participant, error) {
	var parts []entity.Participant
	err := r.db.Where("quiz_code = ?", quizCode).
		Order("score DESC, total_time ASC").
		Find(&parts).Error
	return parts, err
}

// GetRoster возвращает участников в порядке joined_at для лобби
func (r *ParticipantRepo) GetRoster(quizCode string) ([]entity.Participant, error) {
	var parts []entity.Participant
	err := r.db.Where("quiz_code = ?", quizCode).
		Order("joined_at ASC").
		Find(&parts).Error
	return parts, err
}

// CountByName возвращает число участников с данным именем в викторине
// (для подсчета использованных попыток)
func (r *ParticipantRepo) CountByName(quizCode string, name string) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Participant{}).
		Where("quiz_code = ? AND name = ?", quizCode, name).
		Count(&count).Error
	return count, err
}

// AvatarSeedTaken проверяет занятость avatar seed внутри викторины
func (r *ParticipantRepo) AvatarSeedTaken(quizCode string, seed string, excludeID string) (bool, error) {
	query := r.db.Model(&entity.Participant{}).
		Where("quiz_code = ? AND avatar_seed = ?", quizCode, seed)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateAvatarSeed обновляет avatar seed участника
func (r *ParticipantRepo) UpdateAvatarSeed(id string, seed string) error {
	return r.db.Model(&entity.Participant{}).
		Where("id = ?", id).
		Update("avatar_seed", seed).Error
}

// TouchLastActive обновляет отметку активности участника
func (r *ParticipantRepo) TouchLastActive(id string) error {
	return r.db.Model(&entity.Participant{}).
		Where("id = ?", id).
		Update("last_active", gorm.Expr("NOW()")).Error
}

// ApplyAnswer атомарно применяет результат ответа: инкремент score и
// total_time, добавление записи в JSONB-массив answers, отметка
// активности и (при завершении всех вопросов) completed_at.
func (r *ParticipantRepo) ApplyAnswer(upd repository.AnswerUpdate) error {
	recordJSON, err := json.Marshal(upd.Record)
	if err != nil {
		return fmt.Errorf("marshal answer record: %w", err)
	}

	updates := map[string]interface{}{
		"score":       gorm.Expr("score + ?", upd.Record.Points),
		"total_time":  gorm.Expr("total_time + ?", upd.Record.TimeTaken),
		"answers":     gorm.Expr("answers || ?::jsonb", string(recordJSON)),
		"last_active": gorm.Expr("NOW()"),
	}
	if upd.CompletedAt != nil {
		updates["completed_at"] = *upd.CompletedAt
	}

	result := r.db.Model(&entity.Participant{}).
		Where("id = ?", upd.ParticipantID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete удаляет участника и возвращает удаленную запись (kick)
func (r *ParticipantRepo) Delete(id string, quizCode string) (*entity.Participant, error) {
	p, err := r.GetByID(id, quizCode)
	if err != nil {
		return nil, err
	}
	if err := r.db.Where("id = ? AND quiz_code = ?", id, quizCode).
		Delete(&entity.Participant{}).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteByQuiz удаляет всех участников викторины
func (r *ParticipantRepo) DeleteByQuiz(quizCode string) error {
	return r.db.Where("quiz_code = ?", quizCode).Delete(&entity.Participant{}).Error
}
