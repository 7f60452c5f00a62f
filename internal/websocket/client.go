package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Максимальный размер входящего сообщения по умолчанию
	defaultMaxMessageSize = 4096

	// Размер буфера по умолчанию для канала отправки сообщений клиенту
	defaultSendBuffer = 64
)

// Коды закрытия соединения
const (
	// CloseReplaced - у пользователя открылся новый сокет, старый вытесняется
	CloseReplaced = websocket.CloseNormalClosure // 1000

	// CloseQuizEnded - викторина завершена, комната не принимает соединения
	ClosePolicyQuizEnded = websocket.ClosePolicyViolation // 1008

	// CloseCapacity - комната переполнена или превышен темп подключений
	CloseCapacity = websocket.CloseTryAgainLater // 1013

	// CloseKicked - участник удален администратором
	CloseKicked = 4001
)

// ClientConfig содержит настройки соединения
type ClientConfig struct {
	// HeartbeatInterval - период серверных ping-кадров
	HeartbeatInterval time.Duration

	// HeartbeatTimeout - отсутствие входящих кадров дольше этого срока
	// считается потерей соединения
	HeartbeatTimeout time.Duration

	// MaxMessageSize - предел входящего кадра в байтах
	MaxMessageSize int64

	// SendBuffer - размер исходящего буфера
	SendBuffer int
}

// DefaultClientConfig возвращает конфигурацию соединения по умолчанию
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HeartbeatInterval: 15 * time.Second,
		HeartbeatTimeout:  25 * time.Second,
		MaxMessageSize:    defaultMaxMessageSize,
		SendBuffer:        defaultSendBuffer,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 15 * time.Second
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = 25 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = defaultSendBuffer
	}
	return c
}

// Client является посредником между WebSocket соединением и хабом комнаты.
type Client struct {
	// ConnectionID - уникальный id соединения
	ConnectionID string

	// QuizCode - комната, к которой подключен сокет
	QuizCode string

	// UserID заполняется после кадра идентификации
	// (admin_joined / participant_joined)
	UserID string

	// IsAdmin выставляется кадром admin_joined
	IsAdmin bool

	hub  *Hub
	conn *websocket.Conn
	cfg  ClientConfig

	send chan []byte

	// lastActivity - unix-мс последнего входящего кадра или pong
	lastActivity atomic.Int64

	// closed защищает от двойного закрытия канала send
	closed atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient создает нового клиента комнаты
func NewClient(hub *Hub, conn *websocket.Conn, quizCode string, cfg ClientConfig) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		ConnectionID: uuid.New().String(),
		QuizCode:     quizCode,
		hub:          hub,
		conn:         conn,
		cfg:          cfg,
		send:         make(chan []byte, cfg.SendBuffer),
		done:         make(chan struct{}),
	}
}

// Done возвращает канал, закрываемый при завершении соединения
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Alive сообщает, живо ли еще соединение
func (c *Client) Alive() bool {
	return !c.closed.Load()
}

// Enqueue ставит сырое сообщение в очередь отправки. Возвращает false,
// если буфер переполнен или соединение закрыто - такой сокет будет
// убран фоновой очисткой.
func (c *Client) Enqueue(data []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		log.Printf("[WS] Переполнен буфер отправки (Conn: %s, User: %s)", c.ConnectionID, c.UserID)
		return false
	}
}

// Send сериализует и ставит сообщение в очередь отправки
func (c *Client) Send(msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WS] Ошибка сериализации сообщения %q: %v", msg.Type(), err)
		return false
	}
	return c.Enqueue(data)
}

// Close закрывает соединение с указанным кодом и причиной
func (c *Client) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		if c.conn == nil {
			return
		}
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(code, reason)
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			log.Printf("[WS] Ошибка отправки close-кадра (Conn: %s): %v", c.ConnectionID, err)
		}
		c.conn.Close()
	})
}

// StartPumps запускает горутины чтения и записи
func (c *Client) StartPumps(messageHandler func(message []byte, client *Client) error) {
	go c.writePump()
	go c.readPump(messageHandler)
}

// touchActivity фиксирует момент последнего входящего кадра
func (c *Client) touchActivity() {
	c.lastActivity.Store(time.Now().UnixMilli())
}

// readDeadline - окно, после которого молчащий сокет считается мертвым.
// Вдвое больше таймаута приема: после первого таймаута молчащий клиент
// получает прикладной keep-alive ping, а не немедленный разрыв.
func (c *Client) readDeadline() time.Duration {
	return 2 * c.cfg.HeartbeatTimeout
}

// readPump читает сообщения клиента и передает их обработчику
func (c *Client) readPump(messageHandler func(message []byte, client *Client) error) {
	defer func() {
		c.hub.Disconnect(c)
		c.Close(websocket.CloseNormalClosure, "")
	}()

	c.touchActivity()
	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.readDeadline()))
	c.conn.SetPongHandler(func(string) error {
		c.touchActivity()
		c.conn.SetReadDeadline(time.Now().Add(c.readDeadline()))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[WS] Ошибка чтения (Conn: %s, User: %s): %v", c.ConnectionID, c.UserID, err)
			}
			return
		}
		// Любой входящий кадр продлевает дедлайн чтения
		c.touchActivity()
		c.conn.SetReadDeadline(time.Now().Add(c.readDeadline()))

		if handlerErr := safeHandleMessage(message, c, messageHandler); handlerErr != nil {
			log.Printf("[WS] Ошибка обработчика (Conn: %s, User: %s): %v. Закрываем соединение.", c.ConnectionID, c.UserID, handlerErr)
			return
		}
	}
}

// safeHandleMessage - обертка обработчика с recover: паника в обработчике
// одной команды не роняет процесс.
func safeHandleMessage(message []byte, client *Client, messageHandler func(message []byte, client *Client) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WS] PANIC в обработчике (Conn: %s, User: %s): %v\n%s",
				client.ConnectionID, client.UserID, r, string(debug.Stack()))
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	if messageHandler == nil {
		return nil
	}
	return messageHandler(message, client)
}

// writePump отправляет сообщения клиенту из канала send и шлет
// периодические ping-кадры
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Ошибка записи (Conn: %s, User: %s): %v", c.ConnectionID, c.UserID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			// Таймаут приема истек: молчащий клиент получает прикладной
			// keep-alive ping; разрыв только по readDeadline
			idle := time.Now().UnixMilli() - c.lastActivity.Load()
			if idle > c.cfg.HeartbeatTimeout.Milliseconds() {
				data, err := json.Marshal(Message{"type": TypePing, "keepalive": true, "t": time.Now().UnixMilli()})
				if err == nil {
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
						return
					}
				}
			}

		case <-c.done:
			return
		}
	}
}
