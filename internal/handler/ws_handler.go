package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/yourusername/prashnify-api/internal/service"
	"github.com/yourusername/prashnify-api/internal/service/roommanager"
	"github.com/yourusername/prashnify-api/internal/websocket"
)

// WSHandler обрабатывает WebSocket соединения комнат
type WSHandler struct {
	quizService *service.QuizService
	controller  *roommanager.Controller
	upgrader    gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket. allowedOrigins
// синхронизирован с CORS-конфигурацией HTTP-слоя; "*" разрешает все.
func NewWSHandler(
	quizService *service.QuizService,
	controller *roommanager.Controller,
	allowedOrigins []string,
) *WSHandler {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	allowAll := false
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		originSet[o] = struct{}{}
	}

	return &WSHandler{
		quizService: quizService,
		controller:  controller,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Пустой Origin - не браузерный клиент, разрешаем
				if origin == "" || allowAll {
					return true
				}
				if _, ok := originSet[origin]; ok {
					return true
				}
				log.Printf("[WSHandler] Отклонен неразрешенный origin: %s", origin)
				return false
			},
			EnableCompression: true,
		},
	}
}

// HandleConnection принимает входящее соединение комнаты
func (h *WSHandler) HandleConnection(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	quiz, err := h.quizService.GetQuiz(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quiz not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WSHandler] Ошибка апгрейда соединения: %v", err)
		return
	}

	// Завершенная викторина: закрываем с policy violation, чтобы клиент
	// не переподключался
	if quiz.IsEnded() {
		h.closeWith(conn, websocket.ClosePolicyQuizEnded, "Quiz has ended")
		return
	}

	hub := h.controller.Hub()
	client := websocket.NewClient(hub, conn, code, hub.ClientConfig())
	if err := hub.Connect(client); err != nil {
		log.Printf("[WSHandler] Подключение отклонено для %s: %v", code, err)
		h.closeWith(conn, websocket.CloseCapacity, err.Error())
		return
	}

	client.StartPumps(h.dispatch)
}

func (h *WSHandler) closeWith(conn *gorillaws.Conn, code int, reason string) {
	_ = conn.WriteMessage(gorillaws.CloseMessage, gorillaws.FormatCloseMessage(code, reason))
	_ = conn.Close()
}

// dispatch маршрутизирует входящие сообщения клиента в контроллер комнат.
// Неизвестные типы молча игнорируются. Админские команды принимаются
// только от сокета, представившегося как admin_joined.
// Паника в обработчике команды не должна ронять read pump соединения.
func (h *WSHandler) dispatch(raw []byte, client *websocket.Client) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WSHandler] Паника при обработке сообщения от %s: %v", client.ConnectionID, r)
			err = nil
		}
	}()
	return h.dispatchMessage(raw, client)
}

func (h *WSHandler) dispatchMessage(raw []byte, client *websocket.Client) error {
	var msg websocket.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("[WSHandler] Невалидный JSON от %s: %v", client.ConnectionID, err)
		return nil
	}

	switch msg.Type() {
	case websocket.CmdAdminJoined:
		return h.controller.AdminJoined(client)

	case websocket.CmdParticipantJoined:
		participantID, _ := msg["participantId"].(string)
		return h.controller.ParticipantJoined(client, participantID)

	case websocket.CmdRequestStateSync:
		return h.controller.RequestStateSync(client)

	case websocket.CmdQuizStarting:
		if client.IsAdmin {
			h.controller.StartQuiz(client.QuizCode)
		}

	case websocket.CmdAutoSubmit:
		// Id из кадра не принимается: отметка ставится только
		// идентифицированному сокету
		if client.UserID != "" && !client.IsAdmin {
			h.controller.AutoSubmit(client.QuizCode, client.UserID)
		}

	case websocket.CmdShowAnswer:
		if client.IsAdmin {
			h.controller.ShowAnswer(client.QuizCode)
		}

	case websocket.CmdShowLeaderboard:
		if client.IsAdmin {
			h.controller.ShowLeaderboard(client.QuizCode)
		}

	case websocket.CmdNextQuestion:
		if client.IsAdmin {
			return h.controller.NextQuestion(client.QuizCode)
		}

	case websocket.CmdPing:
		h.controller.Pong(client, msg["t"])

	case websocket.CmdPong:
		// Ответ на серверный heartbeat: дедлайн чтения уже сброшен в readPump

	case websocket.CmdReaction:
		emoji, _ := msg["emoji"].(string)
		h.controller.Reaction(client, emoji)

	case websocket.CmdKickPlayer:
		if client.IsAdmin {
			participantID, _ := msg["participantId"].(string)
			return h.controller.KickPlayer(client.QuizCode, participantID)
		}
	}

	return nil
}
