package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Веса вопросов по умолчанию
const (
	PointsStandard = 1000
	PointsDouble   = 2000
)

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
func (o *StringArray) Scan(value interface{}) error {
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// CorrectAnswer - тегированный вариант для поля correctAnswer исходного формата:
// либо одиночный индекс варианта, либо множество индексов.
// На проводе сериализуется в точности как пришел: int или [int].
type CorrectAnswer struct {
	Single int
	Multi  []int
}

// IsMulti сообщает, допускает ли вопрос несколько правильных вариантов
func (ca CorrectAnswer) IsMulti() bool {
	return ca.Multi != nil
}

// Matches проверяет, является ли выбранный вариант правильным
func (ca CorrectAnswer) Matches(selected int) bool {
	if ca.IsMulti() {
		for _, idx := range ca.Multi {
			if idx == selected {
				return true
			}
		}
		return false
	}
	return ca.Single == selected
}

// Validate проверяет, что все индексы попадают в границы списка вариантов
func (ca CorrectAnswer) Validate(optionCount int) error {
	if ca.IsMulti() {
		if len(ca.Multi) == 0 {
			return fmt.Errorf("correctAnswer: empty index set")
		}
		for _, idx := range ca.Multi {
			if idx < 0 || idx >= optionCount {
				return fmt.Errorf("correctAnswer: index %d out of bounds [0,%d)", idx, optionCount)
			}
		}
		return nil
	}
	if ca.Single < 0 || ca.Single >= optionCount {
		return fmt.Errorf("correctAnswer: index %d out of bounds [0,%d)", ca.Single, optionCount)
	}
	return nil
}

// UnmarshalJSON принимает int или [int]
func (ca *CorrectAnswer) UnmarshalJSON(data []byte) error {
	var single int
	if err := json.Unmarshal(data, &single); err == nil {
		ca.Single = single
		ca.Multi = nil
		return nil
	}

	var multi []int
	if err := json.Unmarshal(data, &multi); err == nil {
		ca.Single = 0
		ca.Multi = multi
		return nil
	}

	return fmt.Errorf("correctAnswer must be an index or a list of indices, got %s", string(data))
}

// MarshalJSON сериализует вариант в исходную форму
func (ca CorrectAnswer) MarshalJSON() ([]byte, error) {
	if ca.IsMulti() {
		return json.Marshal(ca.Multi)
	}
	return json.Marshal(ca.Single)
}

// Scan реализует sql.Scanner (JSONB)
func (ca *CorrectAnswer) Scan(value interface{}) error {
	if value == nil {
		*ca = CorrectAnswer{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	return ca.UnmarshalJSON(bytes)
}

// Value реализует driver.Valuer (JSONB)
func (ca CorrectAnswer) Value() (driver.Value, error) {
	return ca.MarshalJSON()
}

// Points - тегированный вариант для поля points исходного формата:
// "standard" | "double" | "noPoints" | явное число.
// Прочие строки отклоняются при создании викторины, а не молча
// подменяются дефолтом при подсчете очков.
type Points struct {
	// Label хранит строковую форму ("standard", "double", "noPoints");
	// пустой Label означает явное число в Custom.
	Label  string
	Custom int
}

// Weight возвращает максимальный вес вопроса в очках
func (p Points) Weight() int {
	switch p.Label {
	case "", "custom":
		return p.Custom
	case "standard":
		return PointsStandard
	case "double":
		return PointsDouble
	case "noPoints":
		return 0
	}
	return PointsStandard
}

// UnmarshalJSON принимает строковую метку или число
func (p *Points) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		switch label {
		case "standard", "double", "noPoints":
			p.Label = label
			p.Custom = 0
			return nil
		}
		return fmt.Errorf("unknown points value %q", label)
	}

	var custom int
	if err := json.Unmarshal(data, &custom); err == nil {
		if custom < 0 {
			return fmt.Errorf("points must be non-negative, got %d", custom)
		}
		p.Label = ""
		p.Custom = custom
		return nil
	}

	return fmt.Errorf("points must be a label or an integer, got %s", string(data))
}

// MarshalJSON сериализует вариант в исходную форму
func (p Points) MarshalJSON() ([]byte, error) {
	if p.Label != "" {
		return json.Marshal(p.Label)
	}
	return json.Marshal(p.Custom)
}

// Scan реализует sql.Scanner (JSONB)
func (p *Points) Scan(value interface{}) error {
	if value == nil {
		*p = Points{Label: "standard"}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	return p.UnmarshalJSON(bytes)
}

// Value реализует driver.Valuer (JSONB)
func (p Points) Value() (driver.Value, error) {
	return p.MarshalJSON()
}

// Question представляет вопрос викторины.
// Порядок по Index авторитетен: клиенты видят вопросы ровно в этом порядке,
// чтобы экраны админа и участников не расходились.
type Question struct {
	ID            uint          `gorm:"primaryKey" json:"-"`
	QuizCode      string        `gorm:"size:6;not null;index:idx_questions_quiz_index,unique" json:"quizCode"`
	Index         int           `gorm:"not null;index:idx_questions_quiz_index,unique" json:"index"`
	Question      string        `gorm:"size:1000;not null" json:"question"`
	Options       StringArray   `gorm:"type:jsonb;not null" json:"options"`
	CorrectAnswer CorrectAnswer `gorm:"type:jsonb;not null" json:"correctAnswer"`
	TimeLimit     int           `gorm:"not null;default:30" json:"timeLimit"`
	Points        Points        `gorm:"type:jsonb;not null" json:"points"`
	Type          string        `gorm:"size:20;not null;default:'quiz'" json:"type"`
	Media         *string       `gorm:"size:500" json:"media,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// Validate проверяет вопрос при создании викторины
func (q *Question) Validate() error {
	if q.Question == "" {
		return errors.New("question text is required")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("question must have at least 2 options, got %d", len(q.Options))
	}
	if q.TimeLimit < 0 {
		return fmt.Errorf("timeLimit must be non-negative, got %d", q.TimeLimit)
	}
	return q.CorrectAnswer.Validate(len(q.Options))
}

// IsValidOption проверяет, является ли выбранный вариант допустимым
func (q *Question) IsValidOption(selectedOption int) bool {
	return selectedOption >= 0 && selectedOption < len(q.Options)
}

// SafeView возвращает представление вопроса без правильного ответа
// для отправки участникам.
func (q *Question) SafeView() map[string]interface{} {
	view := map[string]interface{}{
		"quizCode":  q.QuizCode,
		"index":     q.Index,
		"question":  q.Question,
		"options":   q.Options,
		"timeLimit": q.TimeLimit,
		"points":    q.Points,
		"type":      q.Type,
	}
	if q.Media != nil {
		view["media"] = *q.Media
	}
	return view
}
