package websocket

import "time"

// Phase - фаза конечного автомата комнаты
type Phase string

// Фазы комнаты. Значения идут на провод в поле quiz_state.
const (
	PhaseLobby            Phase = "lobby"
	PhaseQuestion         Phase = "question"
	PhaseAnswerReveal     Phase = "answer_reveal"
	PhaseLeaderboard      Phase = "leaderboard"
	PhaseFinalLeaderboard Phase = "final_leaderboard"
	PhasePodium           Phase = "podium"
	PhaseEnded            Phase = "ended"
)

// RoomState - авторитетное состояние комнаты. Все доступы сериализуются
// через мьютекс комнаты (Hub.WithRoom); сам RoomState не потокобезопасен.
type RoomState struct {
	Phase             Phase
	CurrentQuestion   int
	TotalQuestions    int
	CurrentTimeLimit  int
	QuestionStartTime int64 // unix-мс старта текущего вопроса, 0 в лобби
	ShowAnswers       bool

	// Participants - снимки участников по id для быстрых рассылок
	Participants map[string]map[string]interface{}

	// Answered - id участников, ответивших на текущий вопрос
	Answered map[string]struct{}

	// AnswerStats - распределение ответов {индекс вопроса: {вариант: счетчик}}.
	// Ключ варианта строковый, как в формате клиента.
	AnswerStats map[int]map[string]int

	// LastReaction - unix-мс последней реакции по id участника
	LastReaction map[string]int64
}

// NewRoomState создает состояние комнаты в фазе лобби
func NewRoomState() *RoomState {
	return &RoomState{
		Phase:        PhaseLobby,
		Participants: make(map[string]map[string]interface{}),
		Answered:     make(map[string]struct{}),
		AnswerStats:  make(map[int]map[string]int),
		LastReaction: make(map[string]int64),
	}
}

// SetQuestion переводит комнату на вопрос index: фиксирует серверную метку
// старта, сбрасывает ответивших и показ ответов, инициализирует статистику.
func (s *RoomState) SetQuestion(index, timeLimit int, nowMs int64) {
	s.Phase = PhaseQuestion
	s.CurrentQuestion = index
	s.CurrentTimeLimit = timeLimit
	s.QuestionStartTime = nowMs
	s.ShowAnswers = false
	s.Answered = make(map[string]struct{})
	s.AnswerStats[index] = make(map[string]int)
}

// MarkAnswered отмечает участника ответившим на текущий вопрос
func (s *RoomState) MarkAnswered(participantID string) {
	s.Answered[participantID] = struct{}{}
}

// HasAnswered проверяет, отвечал ли участник на текущий вопрос
func (s *RoomState) HasAnswered(participantID string) bool {
	_, ok := s.Answered[participantID]
	return ok
}

// UnmarkAnswered снимает отметку ответа - откат резервации, когда ответ
// не дошел до записи в store
func (s *RoomState) UnmarkAnswered(participantID string) {
	delete(s.Answered, participantID)
}

// RecordAnswerStat увеличивает счетчик варианта для вопроса
func (s *RoomState) RecordAnswerStat(questionIndex int, option string) {
	stats, ok := s.AnswerStats[questionIndex]
	if !ok {
		stats = make(map[string]int)
		s.AnswerStats[questionIndex] = stats
	}
	stats[option]++
}

// QuestionStats возвращает распределение ответов для вопроса
func (s *RoomState) QuestionStats(questionIndex int) map[string]int {
	stats, ok := s.AnswerStats[questionIndex]
	if !ok {
		return map[string]int{}
	}
	return stats
}

// AddParticipant сохраняет снимок участника в комнате
func (s *RoomState) AddParticipant(snapshot map[string]interface{}) {
	id, _ := snapshot["id"].(string)
	if id == "" {
		return
	}
	s.Participants[id] = snapshot
}

// RemoveParticipant убирает участника из комнаты
func (s *RoomState) RemoveParticipant(participantID string) {
	delete(s.Participants, participantID)
	delete(s.Answered, participantID)
	delete(s.LastReaction, participantID)
}

// AnswerCount возвращает (ответили, всего участников)
func (s *RoomState) AnswerCount() (int, int) {
	return len(s.Answered), len(s.Participants)
}

// AllowReaction применяет лимит реакций: не чаще одной за cooldown
// на участника. Возвращает true и фиксирует момент, если реакция разрешена.
func (s *RoomState) AllowReaction(participantID string, nowMs int64, cooldown time.Duration) bool {
	if cooldown <= 0 {
		cooldown = 2 * time.Second
	}
	if last, ok := s.LastReaction[participantID]; ok && nowMs-last < cooldown.Milliseconds() {
		return false
	}
	s.LastReaction[participantID] = nowMs
	return true
}

// TimeRemaining возвращает оставшиеся секунды текущего вопроса.
// Вне фазы вопроса всегда 0; часы назад не идут.
func (s *RoomState) TimeRemaining(nowMs int64) int {
	if s.Phase != PhaseQuestion || s.QuestionStartTime == 0 {
		return 0
	}
	elapsed := float64(nowMs-s.QuestionStartTime) / 1000
	remaining := float64(s.CurrentTimeLimit) - elapsed
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

// Snapshot возвращает состояние комнаты для синхронизации клиента
func (s *RoomState) Snapshot(nowMs int64) Message {
	return Message{
		"quiz_state":          string(s.Phase),
		"current_question":    s.CurrentQuestion,
		"total_questions":     s.TotalQuestions,
		"show_answers":        s.ShowAnswers,
		"server_time":         nowMs,
		"question_start_time": s.QuestionStartTime,
		"time_limit":          s.CurrentTimeLimit,
		"time_remaining":      s.TimeRemaining(nowMs),
		"answered_count":      len(s.Answered),
		"total_participants":  len(s.Participants),
	}
}

// EmptySnapshot - состояние по умолчанию, когда комнаты нет
func EmptySnapshot(nowMs int64) Message {
	return Message{
		"quiz_state":          string(PhaseLobby),
		"current_question":    0,
		"total_questions":     0,
		"show_answers":        false,
		"server_time":         nowMs,
		"question_start_time": int64(0),
		"time_remaining":      0,
		"answered_count":      0,
		"total_participants":  0,
	}
}
