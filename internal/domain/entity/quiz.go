package entity

import (
	"time"
)

// Константы статусов викторины
const (
	QuizStatusActive   = "active"
	QuizStatusInactive = "inactive"
	QuizStatusEnded    = "ended"
)

// CodeLength - длина кода викторины
const CodeLength = 6

// CodeAlphabet - алфавит для генерации кода викторины.
// Исключены визуально неоднозначные символы: O, 0, I, 1.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Quiz представляет викторину
type Quiz struct {
	ID                 uint       `gorm:"primaryKey" json:"-"`
	Code               string     `gorm:"size:6;not null;uniqueIndex" json:"code"`
	Title              string     `gorm:"size:200;not null" json:"title"`
	Description        string     `gorm:"size:1000;not null;default:''" json:"description"`
	Duration           int        `gorm:"not null;default:0" json:"duration"`
	Status             string     `gorm:"size:20;not null;default:'active';index" json:"status"`
	CreatedAt          time.Time  `json:"createdAt"`
	QuestionsCount     int        `gorm:"not null;default:0" json:"questionsCount"`
	ParticipantCount   int        `gorm:"not null;default:0" json:"participantCount"`
	StartTime          *time.Time `json:"startTime,omitempty"`
	EndTime            *time.Time `json:"endTime,omitempty"`
	AllowedAttempts    int        `gorm:"not null;default:1" json:"allowedAttempts"`
	ShuffleQuestions   bool       `gorm:"not null;default:false" json:"shuffleQuestions"`
	ShowCorrectAnswers bool       `gorm:"not null;default:true" json:"showCorrectAnswers"`
	LastPlayed         *time.Time `json:"lastPlayed,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// IsActive проверяет, активна ли викторина
func (q *Quiz) IsActive() bool {
	return q.Status == QuizStatusActive
}

// IsEnded проверяет, завершена ли викторина
func (q *Quiz) IsEnded() bool {
	return q.Status == QuizStatusEnded
}

// IsValidStatus проверяет, допустим ли статус
func IsValidStatus(status string) bool {
	switch status {
	case QuizStatusActive, QuizStatusInactive, QuizStatusEnded:
		return true
	}
	return false
}
