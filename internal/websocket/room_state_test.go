package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomState_InitialPhase(t *testing.T) {
	s := NewRoomState()

	assert.Equal(t, PhaseLobby, s.Phase)
	assert.Equal(t, 0, s.TimeRemaining(1_000_000))

	answered, total := s.AnswerCount()
	assert.Equal(t, 0, answered)
	assert.Equal(t, 0, total)
}

func TestRoomState_SetQuestionResetsAnswered(t *testing.T) {
	s := NewRoomState()
	s.AddParticipant(map[string]interface{}{"id": "p1", "name": "Алиса"})
	s.AddParticipant(map[string]interface{}{"id": "p2", "name": "Боб"})

	s.SetQuestion(0, 30, 1000)
	s.MarkAnswered("p1")
	s.MarkAnswered("p2")
	s.ShowAnswers = true

	s.SetQuestion(1, 20, 2000)

	assert.Equal(t, PhaseQuestion, s.Phase)
	assert.Equal(t, 1, s.CurrentQuestion)
	assert.False(t, s.ShowAnswers)
	assert.False(t, s.HasAnswered("p1"))

	answered, total := s.AnswerCount()
	assert.Equal(t, 0, answered)
	assert.Equal(t, 2, total)
}

func TestRoomState_TimeRemaining(t *testing.T) {
	s := NewRoomState()
	s.SetQuestion(0, 30, 10_000)

	assert.Equal(t, 30, s.TimeRemaining(10_000))
	assert.Equal(t, 18, s.TimeRemaining(22_000))
	// Часы не идут назад и не уходят в минус
	assert.Equal(t, 0, s.TimeRemaining(50_000))

	s.Phase = PhaseLeaderboard
	assert.Equal(t, 0, s.TimeRemaining(12_000))
}

func TestRoomState_AnswerStats(t *testing.T) {
	s := NewRoomState()
	s.SetQuestion(0, 30, 0)

	s.RecordAnswerStat(0, "1")
	s.RecordAnswerStat(0, "1")
	s.RecordAnswerStat(0, "3")

	assert.Equal(t, map[string]int{"1": 2, "3": 1}, s.QuestionStats(0))
	assert.Empty(t, s.QuestionStats(5))
}

func TestRoomState_RemoveParticipant(t *testing.T) {
	s := NewRoomState()
	s.AddParticipant(map[string]interface{}{"id": "p1"})
	s.SetQuestion(0, 30, 0)
	s.MarkAnswered("p1")
	s.AllowReaction("p1", 1000, 2*time.Second)

	s.RemoveParticipant("p1")

	assert.False(t, s.HasAnswered("p1"))
	_, total := s.AnswerCount()
	assert.Equal(t, 0, total)
	// Кулдаун реакции тоже очищен
	assert.True(t, s.AllowReaction("p1", 1001, 2*time.Second))
}

func TestRoomState_ReactionCooldown(t *testing.T) {
	s := NewRoomState()

	assert.True(t, s.AllowReaction("p1", 10_000, 2*time.Second))
	assert.False(t, s.AllowReaction("p1", 11_500, 2*time.Second))
	assert.True(t, s.AllowReaction("p1", 12_000, 2*time.Second))
	// Независимый кулдаун для другого участника
	assert.True(t, s.AllowReaction("p2", 11_000, 2*time.Second))
}

func TestRoomState_ReactionCooldownConfigurable(t *testing.T) {
	s := NewRoomState()

	// Сконфигурированный кулдаун 500 мс вместо дефолтных 2 секунд
	assert.True(t, s.AllowReaction("p1", 10_000, 500*time.Millisecond))
	assert.False(t, s.AllowReaction("p1", 10_400, 500*time.Millisecond))
	assert.True(t, s.AllowReaction("p1", 10_600, 500*time.Millisecond))

	// Нулевой кулдаун откатывается к дефолтным 2 секундам
	assert.True(t, s.AllowReaction("p2", 10_000, 0))
	assert.False(t, s.AllowReaction("p2", 11_500, 0))
}

func TestRoomState_UnmarkAnswered(t *testing.T) {
	s := NewRoomState()
	s.SetQuestion(0, 30, 0)
	s.MarkAnswered("p1")
	require.True(t, s.HasAnswered("p1"))

	s.UnmarkAnswered("p1")

	assert.False(t, s.HasAnswered("p1"))
}

func TestRoomState_Snapshot(t *testing.T) {
	s := NewRoomState()
	s.TotalQuestions = 5
	s.AddParticipant(map[string]interface{}{"id": "p1"})
	s.SetQuestion(2, 30, 10_000)
	s.MarkAnswered("p1")

	snap := s.Snapshot(15_000)

	assert.Equal(t, string(PhaseQuestion), snap["quiz_state"])
	assert.Equal(t, 2, snap["current_question"])
	assert.Equal(t, 5, snap["total_questions"])
	assert.Equal(t, int64(10_000), snap["question_start_time"])
	assert.Equal(t, 25, snap["time_remaining"])
	assert.Equal(t, 1, snap["answered_count"])
	assert.Equal(t, 1, snap["total_participants"])
}

func TestIsCritical(t *testing.T) {
	assert.True(t, IsCritical(TypeNextQuestion))
	assert.True(t, IsCritical(TypeSyncState))
	assert.True(t, IsCritical(TypeQuizEnded))
	// Старт отсчета - приоритетный кадр, тики идут обычным батчем
	assert.True(t, IsCritical(TypeCountdownStart))
	assert.False(t, IsCritical(TypeCountdownTick))
	assert.False(t, IsCritical(TypeReaction))
	assert.False(t, IsCritical(TypeAnswerCount))
}
