package roommanager

import (
	"fmt"
	"log"
	"time"

	"github.com/yourusername/prashnify-api/internal/domain/repository"
	"github.com/yourusername/prashnify-api/internal/pkg/clock"
	"github.com/yourusername/prashnify-api/internal/service"
	"github.com/yourusername/prashnify-api/internal/websocket"
)

// allowedReactions - разрешенные эмодзи реакций
var allowedReactions = map[string]struct{}{
	"🔥": {}, "😱": {}, "👏": {}, "💪": {},
	"🤔": {}, "😂": {}, "🎉": {}, "⚡": {},
}

// Controller управляет жизненным циклом комнат: переходами фаз,
// синхронизацией состояния и командами админа. Все мутации состояния
// комнаты идут через Hub.WithRoom и потому сериализованы.
type Controller struct {
	quizService        *service.QuizService
	participantService *service.ParticipantService
	participantRepo    repository.ParticipantRepository
	hub                *websocket.Hub
	clk                clock.Clock
	cfg                *Config
}

// NewController создает новый контроллер комнат
func NewController(deps *Dependencies) *Controller {
	cfg := deps.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Controller{
		quizService:        deps.QuizService,
		participantService: deps.ParticipantService,
		participantRepo:    deps.ParticipantRepo,
		hub:                deps.Hub,
		clk:                deps.Clock,
		cfg:                cfg,
	}
}

// Hub возвращает хаб комнат (для обработчиков)
func (c *Controller) Hub() *websocket.Hub {
	return c.hub
}

// Phase возвращает текущую фазу комнаты (лобби, если комнаты нет)
func (c *Controller) Phase(code string) websocket.Phase {
	phase := websocket.PhaseLobby
	c.hub.WithRoom(code, func(state *websocket.RoomState) {
		phase = state.Phase
	})
	return phase
}

// AdminJoined обрабатывает кадр идентификации администратора:
// загружает участников в состояние комнаты и отвечает полным снимком.
func (c *Controller) AdminJoined(client *websocket.Client) error {
	c.hub.Identify(client, fmt.Sprintf("admin_%s", client.QuizCode), true)

	questions, err := c.quizService.GetQuestions(client.QuizCode)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	parts, err := c.participantRepo.GetByQuiz(client.QuizCode)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}

	now := c.clk.NowMs()
	var snapshot websocket.Message
	c.hub.WithRoom(client.QuizCode, func(state *websocket.RoomState) {
		state.TotalQuestions = len(questions)
		for i := range parts {
			state.AddParticipant(parts[i].RosterView())
		}
		snapshot = state.Snapshot(now)
	})
	if snapshot == nil {
		snapshot = websocket.EmptySnapshot(now)
	}

	reply := websocket.Message{
		"type":         websocket.TypeAllParticipants,
		"participants": parts,
	}
	for k, v := range snapshot {
		reply[k] = v
	}
	client.Send(reply)

	log.Printf("[RoomManager] Админ вошел: %s", client.QuizCode)
	return nil
}

// ParticipantJoined обрабатывает кадр идентификации участника:
// вытесняет старый сокет, добавляет участника в комнату, шлет ему
// sync_state и анонсирует вход остальным.
func (c *Controller) ParticipantJoined(client *websocket.Client, participantID string) error {
	if participantID == "" {
		return nil
	}
	p, err := c.participantRepo.GetByID(participantID, client.QuizCode)
	if err != nil {
		log.Printf("[RoomManager] Неизвестный участник %s в %s: %v", participantID, client.QuizCode, err)
		return nil
	}

	c.hub.Identify(client, participantID, false)

	c.hub.WithRoom(client.QuizCode, func(state *websocket.RoomState) {
		state.AddParticipant(p.RosterView())
	})

	sync, err := c.BuildSyncState(client.QuizCode, false)
	if err != nil {
		return err
	}
	client.Send(sync)

	c.hub.Broadcast(client.QuizCode, websocket.Message{
		"type": websocket.TypeParticipantJoined,
		"participant": map[string]interface{}{
			"id":         p.ID,
			"name":       p.Name,
			"avatarSeed": p.AvatarSeed,
		},
	})

	log.Printf("[RoomManager] Участник %s вошел в %s", p.Name, client.QuizCode)
	return nil
}

// RequestStateSync отвечает полным sync_state (восстановление после фона)
func (c *Controller) RequestStateSync(client *websocket.Client) error {
	sync, err := c.BuildSyncState(client.QuizCode, client.IsAdmin)
	if err != nil {
		return err
	}
	client.Send(sync)
	return nil
}

// StartQuiz запускает последовательность старта в отдельной горутине:
// обратный отсчет, затем первый вопрос.
func (c *Controller) StartQuiz(code string) {
	go c.runStartSequence(code)
}

func (c *Controller) runStartSequence(code string) {
	questions, err := c.quizService.GetQuestions(code)
	if err != nil || len(questions) == 0 {
		log.Printf("[RoomManager] Нет вопросов для %s: %v", code, err)
		return
	}
	total := len(questions)

	c.hub.WithRoom(code, func(state *websocket.RoomState) {
		state.TotalQuestions = total
	})

	countdown := c.cfg.CountdownSeconds
	c.hub.Broadcast(code, websocket.Message{
		"type":            websocket.TypeCountdownStart,
		"countdown":       countdown,
		"total_questions": total,
		"server_time":     c.clk.NowMs(),
	})

	for i := countdown - 1; i > 0; i-- {
		time.Sleep(time.Second)
		c.hub.Broadcast(code, websocket.Message{
			"type":      websocket.TypeCountdownTick,
			"countdown": i,
		})
	}
	if countdown > 0 {
		time.Sleep(time.Second)
	}

	first := questions[0]
	limit := first.TimeLimit

	now := c.clk.NowMs()
	started := c.hub.WithRoom(code, func(state *websocket.RoomState) {
		state.SetQuestion(0, limit, now)
		c.hub.Broadcast(code, websocket.Message{
			"type":                websocket.TypeQuizStarting,
			"quiz_state":          string(websocket.PhaseQuestion),
			"current_question":    0,
			"question_number":     1,
			"total_questions":     total,
			"question":            first.SafeView(),
			"time_limit":          limit,
			"server_time":         now,
			"question_start_time": now,
		})
	})
	if !started {
		return
	}

	log.Printf("[RoomManager] Викторина запущена: %s Q0 limit=%ds", code, limit)
}

// AutoSubmit отмечает участника ответившим по истечении таймера клиента.
// Очки не начисляются и запись ответа не создается. Неизвестный комнате
// id игнорируется: отметка ответа возможна только для участников комнаты.
func (c *Controller) AutoSubmit(code, participantID string) {
	if participantID == "" {
		return
	}
	c.hub.WithRoom(code, func(state *websocket.RoomState) {
		if _, ok := state.Participants[participantID]; !ok {
			return
		}
		state.MarkAnswered(participantID)
		answered, totalParts := state.AnswerCount()
		c.hub.Broadcast(code, websocket.Message{
			"type":              websocket.TypeAnswerCount,
			"answeredCount":     answered,
			"totalParticipants": totalParts,
		})
	})
}

// ShowAnswer переводит комнату в фазу показа правильного ответа
func (c *Controller) ShowAnswer(code string) {
	now := c.clk.NowMs()
	c.hub.WithRoom(code, func(state *websocket.RoomState) {
		state.Phase = websocket.PhaseAnswerReveal
		state.ShowAnswers = true
		c.hub.Broadcast(code, websocket.Message{
			"type":        websocket.TypeShowAnswer,
			"quiz_state":  string(websocket.PhaseAnswerReveal),
			"server_time": now,
		})
	})
	log.Printf("[RoomManager] Показ ответов: %s", code)
}

// ShowLeaderboard переводит комнату в фазу лидерборда; после последнего
// вопроса - в финальный лидерборд.
func (c *Controller) ShowLeaderboard(code string) {
	now := c.clk.NowMs()
	c.hub.WithRoom(code, func(state *websocket.RoomState) {
		isFinal := state.CurrentQuestion >= state.TotalQuestions-1
		if isFinal {
			state.Phase = websocket.PhaseFinalLeaderboard
		} else {
			state.Phase = websocket.PhaseLeaderboard
		}
		c.hub.Broadcast(code, websocket.Message{
			"type":             websocket.TypeShowLeaderboard,
			"quiz_state":       string(state.Phase),
			"current_question": state.CurrentQuestion,
			"question_number":  state.CurrentQuestion + 1,
			"total_questions":  state.TotalQuestions,
			"is_final":         isFinal,
			"server_time":      now,
		})
		log.Printf("[RoomManager] Лидерборд: %s Q%d/%d final=%t", code, state.CurrentQuestion+1, state.TotalQuestions, isFinal)
	})
}

// NextQuestion переводит комнату на следующий вопрос; после последнего
// вопроса показывает подиум.
func (c *Controller) NextQuestion(code string) error {
	questions, err := c.quizService.GetQuestions(code)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	now := c.clk.NowMs()
	c.hub.WithRoom(code, func(state *websocket.RoomState) {
		next := state.CurrentQuestion + 1
		if next >= state.TotalQuestions || next >= len(questions) {
			state.Phase = websocket.PhasePodium
			c.hub.Broadcast(code, websocket.Message{
				"type":        websocket.TypeShowPodium,
				"quiz_state":  string(websocket.PhasePodium),
				"server_time": now,
			})
			log.Printf("[RoomManager] Подиум: %s", code)
			return
		}

		question := questions[next]
		limit := question.TimeLimit
		state.SetQuestion(next, limit, now)

		c.hub.Broadcast(code, websocket.Message{
			"type":                websocket.TypeNextQuestion,
			"quiz_state":          string(websocket.PhaseQuestion),
			"current_question":    next,
			"question_number":     next + 1,
			"total_questions":     state.TotalQuestions,
			"question":            question.SafeView(),
			"time_limit":          limit,
			"server_time":         now,
			"question_start_time": now,
		})
		log.Printf("[RoomManager] Вопрос %d: %s limit=%ds", next, code, limit)
	})
	return nil
}

// Reaction рассылает реакцию участника с лимитом частоты. Реакции от
// админских сокетов и неизвестные эмодзи игнорируются.
func (c *Controller) Reaction(client *websocket.Client, emoji string) {
	if client.IsAdmin || client.UserID == "" {
		return
	}
	if _, ok := allowedReactions[emoji]; !ok {
		return
	}
	now := c.clk.NowMs()
	c.hub.WithRoom(client.QuizCode, func(state *websocket.RoomState) {
		if !state.AllowReaction(client.UserID, now, c.cfg.ReactionCooldown) {
			return
		}
		userID := client.UserID
		if len(userID) > 8 {
			userID = userID[:8]
		}
		c.hub.Broadcast(client.QuizCode, websocket.Message{
			"type":   websocket.TypeReaction,
			"emoji":  emoji,
			"userId": userID,
		})
	})
}

// KickPlayer удаляет участника из викторины: из БД, из состояния комнаты,
// анонсирует удаление и закрывает сокет кодом 4001.
func (c *Controller) KickPlayer(code, participantID string) error {
	if participantID == "" {
		return nil
	}
	kicked, err := c.participantService.Kick(participantID, code)
	if err != nil {
		return err
	}

	c.hub.WithRoom(code, func(state *websocket.RoomState) {
		state.RemoveParticipant(participantID)
		c.hub.Broadcast(code, websocket.Message{
			"type":          websocket.TypeParticipantKicked,
			"participantId": participantID,
			"name":          kicked.Name,
		})
	})

	c.hub.CloseUser(participantID, websocket.CloseKicked, "Kicked by admin")
	log.Printf("[RoomManager] Участник %s исключен из %s", kicked.Name, code)
	return nil
}

// Pong отвечает на прикладной ping клиента (для синхронизации часов)
func (c *Controller) Pong(client *websocket.Client, clientTime interface{}) {
	now := c.clk.NowMs()
	client.Send(websocket.Message{
		"type":       websocket.TypePong,
		"t":          now,
		"clientTime": clientTime,
		"serverTime": now,
	})
}

// QuizEnded завершает комнату после смены статуса на ended: переводит
// фазу, анонсирует завершение и закрывает все сокеты. Кадр quiz_ended
// уходит в обход очереди воркера: к моменту закрытия сокетов он уже
// должен быть доставлен.
func (c *Controller) QuizEnded(code string) {
	c.hub.WithRoom(code, func(state *websocket.RoomState) {
		state.Phase = websocket.PhaseEnded
	})
	c.hub.BroadcastSync(code, websocket.Message{
		"type":    websocket.TypeQuizEnded,
		"message": "Quiz terminated by admin",
	})
	c.hub.CloseRoom(code)
}

// BroadcastStatusChanged анонсирует смену статуса викторины
func (c *Controller) BroadcastStatusChanged(code, status string) {
	c.hub.Broadcast(code, websocket.Message{
		"type":   websocket.TypeQuizStatusChanged,
		"status": status,
	})
}

// BroadcastAvatarUpdated анонсирует смену аватара участника
func (c *Controller) BroadcastAvatarUpdated(code, participantID, seed string) {
	c.hub.Broadcast(code, websocket.Message{
		"type":          websocket.TypeAvatarUpdated,
		"participantId": participantID,
		"avatarSeed":    seed,
	})
}

// QuestionStats возвращает распределение ответов на вопрос из состояния
// комнаты (пустая карта, если комнаты нет)
func (c *Controller) QuestionStats(code string, questionIndex int) map[string]int {
	stats := map[string]int{}
	c.hub.WithRoom(code, func(state *websocket.RoomState) {
		for option, count := range state.QuestionStats(questionIndex) {
			stats[option] = count
		}
	})
	return stats
}
