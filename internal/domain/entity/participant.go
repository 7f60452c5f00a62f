package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Максимальная длина имени участника
const MaxNameLength = 50

// AnswerRecord - запись об ответе участника на один вопрос
type AnswerRecord struct {
	QuestionIndex  int       `json:"questionIndex"`
	SelectedOption int       `json:"selectedOption"`
	IsCorrect      bool      `json:"isCorrect"`
	TimeTaken      float64   `json:"timeTaken"` // секунды, округлено до 2 знаков
	Points         int       `json:"points"`
	BasePoints     int       `json:"basePoints"`
	TimeBonus      int       `json:"timeBonus"`
	StreakBonus    int       `json:"streakBonus"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// AnswerList - список ответов участника, хранится в JSONB
type AnswerList []AnswerRecord

// Scan реализует интерфейс sql.Scanner для AnswerList
func (a *AnswerList) Scan(value interface{}) error {
	if value == nil {
		*a = AnswerList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	if len(bytes) == 0 {
		*a = AnswerList{}
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// Value реализует интерфейс driver.Valuer для AnswerList
func (a AnswerList) Value() (driver.Value, error) {
	if len(a) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// HasAnswered проверяет, есть ли уже ответ на вопрос с данным индексом.
// Инвариант участника: не более одной записи на индекс вопроса.
func (a AnswerList) HasAnswered(questionIndex int) bool {
	for _, rec := range a {
		if rec.QuestionIndex == questionIndex {
			return true
		}
	}
	return false
}

// CurrentStreak возвращает длину серии правильных ответов в хвосте списка
func (a AnswerList) CurrentStreak() int {
	streak := 0
	for i := len(a) - 1; i >= 0; i-- {
		if !a[i].IsCorrect {
			break
		}
		streak++
	}
	return streak
}

// Participant представляет участника викторины
type Participant struct {
	PK          uint       `gorm:"primaryKey;column:pk" json:"-"`
	ID          string     `gorm:"size:36;not null;index:idx_participants_id_quiz" json:"id"`
	Name        string     `gorm:"size:50;not null" json:"name"`
	QuizCode    string     `gorm:"size:6;not null;index;index:idx_participants_id_quiz" json:"quizCode"`
	AvatarSeed  string     `gorm:"size:100;not null" json:"avatarSeed"`
	JoinedAt    time.Time  `json:"joinedAt"`
	Score       int        `gorm:"not null;default:0" json:"score"`
	TotalTime   float64    `gorm:"not null;default:0" json:"totalTime"`
	Answers     AnswerList `gorm:"type:jsonb;not null;default:'[]'" json:"answers"`
	LastActive  time.Time  `json:"lastActive"`
	AttemptNum  int        `gorm:"column:attempt_number;not null;default:1" json:"attemptNumber"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Participant) TableName() string {
	return "participants"
}

// RosterView возвращает представление участника для списков комнаты
func (p *Participant) RosterView() map[string]interface{} {
	return map[string]interface{}{
		"id":         p.ID,
		"name":       p.Name,
		"avatarSeed": p.AvatarSeed,
		"joinedAt":   p.JoinedAt,
		"score":      p.Score,
	}
}
