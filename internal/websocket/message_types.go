package websocket

// Входящие команды сокета
const (
	CmdAdminJoined       = "admin_joined"
	CmdParticipantJoined = "participant_joined"
	CmdRequestStateSync  = "request_state_sync"
	CmdQuizStarting      = "quiz_starting"
	CmdAutoSubmit        = "auto_submit"
	CmdShowAnswer        = "show_answer"
	CmdShowLeaderboard   = "show_leaderboard"
	CmdNextQuestion      = "next_question"
	CmdPing              = "ping"
	CmdPong              = "pong"
	CmdReaction          = "reaction"
	CmdKickPlayer        = "kick_player"
)

// Исходящие типы сообщений
const (
	TypeBatch             = "batch"
	TypeCountdownStart    = "countdown_start"
	TypeCountdownTick     = "countdown_tick"
	TypeQuizStarting      = "quiz_starting"
	TypeNextQuestion      = "next_question"
	TypeShowAnswer        = "show_answer"
	TypeShowLeaderboard   = "show_leaderboard"
	TypeShowPodium        = "show_podium"
	TypeSyncState         = "sync_state"
	TypeQuestionTimeSync  = "question_time_sync"
	TypeAnswerCount       = "answer_count"
	TypeAnswerStats       = "answer_stats"
	TypeAllParticipants   = "all_participants"
	TypeParticipantJoined = "participant_joined"
	TypeParticipantKicked = "participant_kicked"
	TypeAvatarUpdated     = "avatar_updated"
	TypeReaction          = "reaction"
	TypeQuizEnded         = "quiz_ended"
	TypeQuizStatusChanged = "quiz_status_changed"
	TypePing              = "ping"
	TypePong              = "pong"
)

// Message - произвольное сообщение комнаты. Поле "type" обязательно.
type Message map[string]interface{}

// Type возвращает тип сообщения
func (m Message) Type() string {
	t, _ := m["type"].(string)
	return t
}

// criticalTypes - сообщения, которые сбрасывают батч немедленно:
// переходы фаз и синхронизация не должны ждать таймер батчинга.
var criticalTypes = map[string]struct{}{
	TypeCountdownStart:    {},
	TypeQuizStarting:      {},
	TypeNextQuestion:      {},
	TypeShowAnswer:        {},
	TypeShowLeaderboard:   {},
	TypeShowPodium:        {},
	TypeSyncState:         {},
	TypeQuestionTimeSync:  {},
	TypeParticipantKicked: {},
	TypeQuizEnded:         {},
}

// IsCritical сообщает, требует ли тип немедленной отправки
func IsCritical(messageType string) bool {
	_, ok := criticalTypes[messageType]
	return ok
}
