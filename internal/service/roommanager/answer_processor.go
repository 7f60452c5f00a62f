package roommanager

import (
	"fmt"
	"log"
	"math"

	"github.com/yourusername/prashnify-api/internal/domain/entity"
	"github.com/yourusername/prashnify-api/internal/domain/repository"
	apperrors "github.com/yourusername/prashnify-api/internal/pkg/errors"
	"github.com/yourusername/prashnify-api/internal/service"
	"github.com/yourusername/prashnify-api/internal/websocket"
)

// AnswerSubmit - полезная нагрузка отправки ответа
type AnswerSubmit struct {
	ParticipantID  string  `json:"participantId" binding:"required"`
	QuizCode       string  `json:"quizCode" binding:"required"`
	QuestionIndex  int     `json:"questionIndex"`
	SelectedOption int     `json:"selectedOption"`
	TimeTaken      float64 `json:"timeTaken"`
}

// AnswerResult - результат обработки ответа
type AnswerResult struct {
	Correct     bool                  `json:"correct"`
	Points      int                   `json:"points"`
	BasePoints  int                   `json:"basePoints"`
	TimeBonus   int                   `json:"timeBonus"`
	StreakBonus int                   `json:"streakBonus"`
	IsCompleted bool                  `json:"isCompleted"`
	Ignored     bool                  `json:"ignored,omitempty"`
	Reason      string                `json:"reason,omitempty"`
	// CorrectAnswer возвращается только при showCorrectAnswers у викторины
	CorrectAnswer *entity.CorrectAnswer `json:"correctAnswer,omitempty"`
}

// SubmitAnswer - конвейер обработки ответа: проверки фазы и дубликатов,
// подсчет очков, атомарная запись в store, обновление состояния комнаты
// и рассылка счетчиков. В фазах подиума и завершения ответ мягко
// игнорируется; в фазах показа ответа и лидерборда поздний ответ
// принимается, если участник еще не отвечал на вопрос.
func (c *Controller) SubmitAnswer(req *AnswerSubmit) (*AnswerResult, error) {
	// Быстрые проверки по состоянию комнаты, без обращения к store.
	// Участник резервирует место в Answered под мьютексом комнаты:
	// из двух конкурентных отправок одного ответа резервацию получает
	// ровно одна, вторая видит дубликат. Позиция ответа фиксируется
	// в тот же критический участок.
	var ignored bool
	var duplicate bool
	var reserved bool
	answerPosition := 0
	c.hub.WithRoom(req.QuizCode, func(state *websocket.RoomState) {
		if state.CurrentQuestion == req.QuestionIndex && state.HasAnswered(req.ParticipantID) {
			duplicate = true
			return
		}
		if state.Phase == websocket.PhaseEnded || state.Phase == websocket.PhasePodium {
			ignored = true
			return
		}
		if state.CurrentQuestion == req.QuestionIndex {
			answerPosition = len(state.Answered)
			state.MarkAnswered(req.ParticipantID)
			reserved = true
		}
	})
	if duplicate {
		return nil, fmt.Errorf("%w: already answered this question", apperrors.ErrConflict)
	}
	if ignored {
		return &AnswerResult{Ignored: true, Reason: "Quiz has ended"}, nil
	}

	// Откат резервации, если ответ не дошел до записи в store
	release := func() {
		if !reserved {
			return
		}
		c.hub.WithRoom(req.QuizCode, func(state *websocket.RoomState) {
			if state.CurrentQuestion == req.QuestionIndex {
				state.UnmarkAnswered(req.ParticipantID)
			}
		})
	}

	quiz, err := c.quizService.GetQuiz(req.QuizCode)
	if err != nil {
		release()
		return nil, err
	}
	if quiz.IsEnded() {
		release()
		return nil, fmt.Errorf("%w: quiz has ended", apperrors.ErrValidation)
	}

	p, err := c.participantService.Verify(req.ParticipantID, req.QuizCode)
	if err != nil {
		release()
		return nil, apperrors.ErrForbidden
	}

	questions, err := c.quizService.GetQuestions(req.QuizCode)
	if err != nil {
		release()
		return nil, err
	}
	if req.QuestionIndex < 0 || req.QuestionIndex >= len(questions) {
		release()
		return nil, fmt.Errorf("%w: question %d not found", apperrors.ErrNotFound, req.QuestionIndex)
	}
	question := &questions[req.QuestionIndex]

	// Дубликаты по персистентной истории ответов: не более одной записи
	// на индекс вопроса
	if p.Answers.HasAnswered(req.QuestionIndex) {
		release()
		return nil, fmt.Errorf("%w: already answered this question", apperrors.ErrConflict)
	}

	correct := question.CorrectAnswer.Matches(req.SelectedOption)

	breakdown := service.CalculatePoints(question, correct, req.TimeTaken, p.Answers, answerPosition)
	totalPoints := breakdown.Total()

	record := entity.AnswerRecord{
		QuestionIndex:  req.QuestionIndex,
		SelectedOption: req.SelectedOption,
		IsCorrect:      correct,
		TimeTaken:      math.Round(req.TimeTaken*100) / 100,
		Points:         totalPoints,
		BasePoints:     breakdown.BasePoints,
		TimeBonus:      breakdown.TimeBonus,
		StreakBonus:    breakdown.StreakBonus,
		SubmittedAt:    c.clk.Now(),
	}

	isCompleted := len(p.Answers)+1 >= len(questions)
	upd := repository.AnswerUpdate{
		ParticipantID: req.ParticipantID,
		Record:        record,
	}
	if isCompleted {
		completedAt := c.clk.Now()
		upd.CompletedAt = &completedAt
	}
	if err := c.participantRepo.ApplyAnswer(upd); err != nil {
		release()
		return nil, fmt.Errorf("apply answer: %w", err)
	}

	// Отмечаем ответившего и рассылаем счетчики под мьютексом комнаты
	c.hub.WithRoom(req.QuizCode, func(state *websocket.RoomState) {
		state.MarkAnswered(req.ParticipantID)
		state.RecordAnswerStat(req.QuestionIndex, fmt.Sprintf("%d", req.SelectedOption))
		answered, totalParts := state.AnswerCount()

		// Копия статистики: воркер сериализует сообщение уже вне мьютекса
		stats := make(map[string]int)
		for option, count := range state.QuestionStats(req.QuestionIndex) {
			stats[option] = count
		}

		c.hub.Broadcast(req.QuizCode, websocket.Message{
			"type":              websocket.TypeAnswerCount,
			"answeredCount":     answered,
			"totalParticipants": totalParts,
		})
		c.hub.Broadcast(req.QuizCode, websocket.Message{
			"type":              websocket.TypeAnswerStats,
			"questionIndex":     req.QuestionIndex,
			"stats":             stats,
			"answeredCount":     answered,
			"totalParticipants": totalParts,
		})
	})

	c.quizService.InvalidateLeaderboard(req.QuizCode)

	result := &AnswerResult{
		Correct:     correct,
		Points:      totalPoints,
		BasePoints:  breakdown.BasePoints,
		TimeBonus:   breakdown.TimeBonus,
		StreakBonus: breakdown.StreakBonus,
		IsCompleted: isCompleted,
	}
	if quiz.ShowCorrectAnswers {
		ca := question.CorrectAnswer
		result.CorrectAnswer = &ca
	}

	log.Printf("[RoomManager] Ответ: %s Q%d -> %t (%d очков)", req.ParticipantID, req.QuestionIndex, correct, totalPoints)
	return result, nil
}
