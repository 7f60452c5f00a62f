package roommanager

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/prashnify-api/internal/domain/entity"
	"github.com/yourusername/prashnify-api/internal/domain/repository"
	apperrors "github.com/yourusername/prashnify-api/internal/pkg/errors"
	"github.com/yourusername/prashnify-api/internal/websocket"
)

func twoQuestions() []entity.Question {
	return []entity.Question{
		{
			QuizCode:      "ABCD23",
			Index:         0,
			Question:      "Столица Франции?",
			Options:       entity.StringArray{"Париж", "Лондон"},
			CorrectAnswer: entity.CorrectAnswer{Single: 0},
			TimeLimit:     30,
			Points:        entity.Points{Label: "standard"},
		},
		{
			QuizCode:      "ABCD23",
			Index:         1,
			Question:      "2+2?",
			Options:       entity.StringArray{"3", "4"},
			CorrectAnswer: entity.CorrectAnswer{Single: 1},
			TimeLimit:     30,
			Points:        entity.Points{Label: "standard"},
		},
	}
}

func setupAnswerTest(e *testEnv, answers entity.AnswerList) {
	e.quizRepo.On("GetByCode", "ABCD23").Return(&entity.Quiz{
		Code:               "ABCD23",
		Status:             entity.QuizStatusActive,
		ShowCorrectAnswers: true,
	}, nil)
	e.questionRepo.On("GetByQuiz", "ABCD23").Return(twoQuestions(), nil)
	e.participantRepo.On("GetByID", "p1", "ABCD23").Return(&entity.Participant{
		ID:       "p1",
		Name:     "Алиса",
		QuizCode: "ABCD23",
		Answers:  answers,
	}, nil)
	e.participantRepo.On("TouchLastActive", "p1").Return(nil)
}

func TestSubmitAnswer_FastCorrect(t *testing.T) {
	e := newTestEnv()
	e.openRoom("ABCD23")
	e.controller.Hub().WithRoom("ABCD23", func(state *websocket.RoomState) {
		state.TotalQuestions = 2
		state.SetQuestion(0, 30, e.clk.NowMs())
	})

	setupAnswerTest(e, entity.AnswerList{})

	var applied repository.AnswerUpdate
	e.participantRepo.On("ApplyAnswer", mock.Anything).Run(func(args mock.Arguments) {
		applied = args.Get(0).(repository.AnswerUpdate)
	}).Return(nil)

	result, err := e.controller.SubmitAnswer(&AnswerSubmit{
		ParticipantID:  "p1",
		QuizCode:       "ABCD23",
		QuestionIndex:  0,
		SelectedOption: 0,
		TimeTaken:      0.2,
	})
	require.NoError(t, err)

	assert.True(t, result.Correct)
	assert.Equal(t, 500, result.BasePoints)
	// Максимальный бонус за скорость плюс +5 первому ответившему
	assert.Equal(t, 505, result.TimeBonus)
	assert.Equal(t, 1005, result.Points)
	assert.False(t, result.IsCompleted)
	// showCorrectAnswers включен: правильный ответ возвращается
	require.NotNil(t, result.CorrectAnswer)
	assert.True(t, result.CorrectAnswer.Matches(0))

	// Запись ушла в store, completedAt не проставлен (остался второй вопрос)
	assert.Equal(t, "p1", applied.ParticipantID)
	assert.Equal(t, 1005, applied.Record.Points)
	assert.Nil(t, applied.CompletedAt)

	// Состояние комнаты обновлено
	e.controller.Hub().WithRoom("ABCD23", func(state *websocket.RoomState) {
		assert.True(t, state.HasAnswered("p1"))
	})
	assert.Equal(t, map[string]int{"0": 1}, e.controller.QuestionStats("ABCD23", 0))
}

func TestSubmitAnswer_WrongAnswer(t *testing.T) {
	e := newTestEnv()
	e.openRoom("ABCD23")
	e.controller.Hub().WithRoom("ABCD23", func(state *websocket.RoomState) {
		state.TotalQuestions = 2
		state.SetQuestion(0, 30, e.clk.NowMs())
	})

	setupAnswerTest(e, entity.AnswerList{})
	e.participantRepo.On("ApplyAnswer", mock.Anything).Return(nil)

	result, err := e.controller.SubmitAnswer(&AnswerSubmit{
		ParticipantID:  "p1",
		QuizCode:       "ABCD23",
		QuestionIndex:  0,
		SelectedOption: 1,
		TimeTaken:      2.0,
	})
	require.NoError(t, err)

	assert.False(t, result.Correct)
	assert.Equal(t, 0, result.Points)
}

func TestSubmitAnswer_DuplicateInRoom(t *testing.T) {
	e := newTestEnv()
	e.openRoom("ABCD23")
	e.controller.Hub().WithRoom("ABCD23", func(state *websocket.RoomState) {
		state.TotalQuestions = 2
		state.SetQuestion(0, 30, e.clk.NowMs())
		state.MarkAnswered("p1")
	})

	_, err := e.controller.SubmitAnswer(&AnswerSubmit{
		ParticipantID: "p1",
		QuizCode:      "ABCD23",
		QuestionIndex: 0,
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestSubmitAnswer_DuplicateInHistory(t *testing.T) {
	// После переподключения комната не помнит ответившего, но
	// персистентная история ответов все равно блокирует дубликат
	e := newTestEnv()
	e.openRoom("ABCD23")
	e.controller.Hub().WithRoom("ABCD23", func(state *websocket.RoomState) {
		state.TotalQuestions = 2
		state.SetQuestion(0, 30, e.clk.NowMs())
	})

	setupAnswerTest(e, entity.AnswerList{
		{QuestionIndex: 0, IsCorrect: true},
	})

	_, err := e.controller.SubmitAnswer(&AnswerSubmit{
		ParticipantID: "p1",
		QuizCode:      "ABCD23",
		QuestionIndex: 0,
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestSubmitAnswer_ConcurrentDuplicateScoredOnce(t *testing.T) {
	// Две одновременные отправки одного ответа: резервацию в Answered
	// получает ровно одна, вторая завершается конфликтом, в store уходит
	// одна запись
	e := newTestEnv()
	e.openRoom("ABCD23")
	e.controller.Hub().WithRoom("ABCD23", func(state *websocket.RoomState) {
		state.TotalQuestions = 2
		state.SetQuestion(0, 30, e.clk.NowMs())
	})

	setupAnswerTest(e, entity.AnswerList{})
	e.participantRepo.On("ApplyAnswer", mock.Anything).Return(nil)

	submit := &AnswerSubmit{
		ParticipantID:  "p1",
		QuizCode:       "ABCD23",
		QuestionIndex:  0,
		SelectedOption: 0,
		TimeTaken:      1.0,
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.controller.SubmitAnswer(submit)
		}(i)
	}
	wg.Wait()

	var conflicts, successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, apperrors.ErrConflict):
			conflicts++
		default:
			t.Fatalf("неожиданная ошибка: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	e.participantRepo.AssertNumberOfCalls(t, "ApplyAnswer", 1)
}

func TestSubmitAnswer_FailedWriteReleasesReservation(t *testing.T) {
	// Ошибка записи в store откатывает резервацию: участник может
	// повторить отправку
	e := newTestEnv()
	e.openRoom("ABCD23")
	e.controller.Hub().WithRoom("ABCD23", func(state *websocket.RoomState) {
		state.TotalQuestions = 2
		state.SetQuestion(0, 30, e.clk.NowMs())
	})

	setupAnswerTest(e, entity.AnswerList{})
	e.participantRepo.On("ApplyAnswer", mock.Anything).Return(errors.New("store down"))

	_, err := e.controller.SubmitAnswer(&AnswerSubmit{
		ParticipantID:  "p1",
		QuizCode:       "ABCD23",
		QuestionIndex:  0,
		SelectedOption: 0,
		TimeTaken:      1.0,
	})
	require.Error(t, err)

	e.controller.Hub().WithRoom("ABCD23", func(state *websocket.RoomState) {
		assert.False(t, state.HasAnswered("p1"))
	})
}

func TestSubmitAnswer_IgnoredAfterPodium(t *testing.T) {
	e := newTestEnv()
	e.openRoom("ABCD23")
	e.controller.Hub().WithRoom("ABCD23", func(state *websocket.RoomState) {
		state.Phase = websocket.PhasePodium
	})

	result, err := e.controller.SubmitAnswer(&AnswerSubmit{
		ParticipantID: "p1",
		QuizCode:      "ABCD23",
		QuestionIndex: 1,
	})
	require.NoError(t, err)

	assert.True(t, result.Ignored)
	assert.Equal(t, "Quiz has ended", result.Reason)
}

func TestSubmitAnswer_UnknownParticipant(t *testing.T) {
	e := newTestEnv()
	e.openRoom("ABCD23")
	e.controller.Hub().WithRoom("ABCD23", func(state *websocket.RoomState) {
		state.TotalQuestions = 2
		state.SetQuestion(0, 30, e.clk.NowMs())
	})

	e.quizRepo.On("GetByCode", "ABCD23").Return(&entity.Quiz{
		Code:   "ABCD23",
		Status: entity.QuizStatusActive,
	}, nil)
	e.participantRepo.On("GetByID", "ghost", "ABCD23").Return(nil, apperrors.ErrNotFound)

	_, err := e.controller.SubmitAnswer(&AnswerSubmit{
		ParticipantID: "ghost",
		QuizCode:      "ABCD23",
		QuestionIndex: 0,
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestSubmitAnswer_LastQuestionCompletes(t *testing.T) {
	e := newTestEnv()
	e.openRoom("ABCD23")
	e.controller.Hub().WithRoom("ABCD23", func(state *websocket.RoomState) {
		state.TotalQuestions = 2
		state.SetQuestion(1, 30, e.clk.NowMs())
	})

	setupAnswerTest(e, entity.AnswerList{
		{QuestionIndex: 0, IsCorrect: true},
	})

	var applied repository.AnswerUpdate
	e.participantRepo.On("ApplyAnswer", mock.Anything).Run(func(args mock.Arguments) {
		applied = args.Get(0).(repository.AnswerUpdate)
	}).Return(nil)

	result, err := e.controller.SubmitAnswer(&AnswerSubmit{
		ParticipantID:  "p1",
		QuizCode:       "ABCD23",
		QuestionIndex:  1,
		SelectedOption: 1,
		TimeTaken:      0.2,
	})
	require.NoError(t, err)

	assert.True(t, result.IsCompleted)
	require.NotNil(t, applied.CompletedAt)
	// Вторая подряд правильная: +5% от базы и скорости
	assert.Equal(t, 50, result.StreakBonus)
}
