package websocket

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourusername/prashnify-api/internal/pkg/clock"
)

// Ошибки допуска в комнату
var (
	// ErrRoomFull - комната достигла потолка соединений
	ErrRoomFull = errors.New("room at capacity")

	// ErrTooManyConnections - превышен темп подключений в комнату
	ErrTooManyConnections = errors.New("too many connections")
)

const (
	defaultMaxConnectionsPerRoom = 250
	defaultMaxAcceptsPerSecond   = 10
	defaultBatchInterval         = 10 * time.Millisecond
	defaultSweepInterval         = 30 * time.Second
	roomQueueSize                = 256
)

// HubConfig содержит настройки хаба комнат
type HubConfig struct {
	// MaxConnectionsPerRoom - жесткий потолок сокетов в комнате
	MaxConnectionsPerRoom int

	// MaxAcceptsPerSecond - допуск новых сокетов в комнату за секунду
	MaxAcceptsPerSecond int

	// BatchInterval - окно батчинга рассылки
	BatchInterval time.Duration

	// SweepInterval - период фоновой очистки мертвых сокетов
	SweepInterval time.Duration

	// Client - настройки отдельного соединения
	Client ClientConfig
}

// DefaultHubConfig возвращает конфигурацию хаба по умолчанию
func DefaultHubConfig() HubConfig {
	return HubConfig{
		MaxConnectionsPerRoom: defaultMaxConnectionsPerRoom,
		MaxAcceptsPerSecond:   defaultMaxAcceptsPerSecond,
		BatchInterval:         defaultBatchInterval,
		SweepInterval:         defaultSweepInterval,
		Client:                DefaultClientConfig(),
	}
}

func (c HubConfig) withDefaults() HubConfig {
	if c.MaxConnectionsPerRoom <= 0 {
		c.MaxConnectionsPerRoom = defaultMaxConnectionsPerRoom
	}
	if c.MaxAcceptsPerSecond <= 0 {
		c.MaxAcceptsPerSecond = defaultMaxAcceptsPerSecond
	}
	if c.BatchInterval <= 0 {
		c.BatchInterval = defaultBatchInterval
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaultSweepInterval
	}
	c.Client = c.Client.withDefaults()
	return c
}

// room - одна комната: сокеты, очередь рассылки и авторитетное состояние.
// stateMu сериализует доступ к state; его держит контроллер комнаты на
// все время read-modify-write-broadcast. connMu защищает только набор
// сокетов, чтобы рассылка не блокировала контроллер.
type room struct {
	code string

	stateMu sync.Mutex
	state   *RoomState

	connMu  sync.RWMutex
	clients map[*Client]struct{}

	queue chan Message
	done  chan struct{}

	// acceptTimes - unix-мс последних допусков для лимита темпа
	acceptTimes []int64

	messageCount atomic.Int64
}

// Hub владеет комнатами: допуск, рассылка с батчингом, очистка,
// карта пользователь-сокет для адресных отправок и вытеснения.
type Hub struct {
	cfg HubConfig
	clk clock.Clock

	mu          sync.Mutex
	rooms       map[string]*room
	userSockets map[string]*Client
}

// NewHub создает новый хаб комнат
func NewHub(cfg HubConfig, clk clock.Clock) *Hub {
	return &Hub{
		cfg:         cfg.withDefaults(),
		clk:         clk,
		rooms:       make(map[string]*room),
		userSockets: make(map[string]*Client),
	}
}

// ClientConfig возвращает настройки соединений хаба
func (h *Hub) ClientConfig() ClientConfig {
	return h.cfg.Client
}

// Connect допускает сокет в комнату: проверяет потолок и темп, создает
// комнату при первом сокете (включая воркер рассылки и сборщик).
func (h *Hub) Connect(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[client.QuizCode]
	if !ok {
		r = &room{
			code:    client.QuizCode,
			state:   NewRoomState(),
			clients: make(map[*Client]struct{}),
			queue:   make(chan Message, roomQueueSize),
			done:    make(chan struct{}),
		}
		h.rooms[client.QuizCode] = r
		go h.runWorker(r)
		go h.runSweeper(r)
	}

	r.connMu.Lock()
	defer r.connMu.Unlock()

	if len(r.clients) >= h.cfg.MaxConnectionsPerRoom {
		return ErrRoomFull
	}

	now := h.clk.NowMs()
	recent := r.acceptTimes[:0]
	for _, t := range r.acceptTimes {
		if now-t < 1000 {
			recent = append(recent, t)
		}
	}
	r.acceptTimes = recent
	if len(r.acceptTimes) >= h.cfg.MaxAcceptsPerSecond {
		return ErrTooManyConnections
	}
	r.acceptTimes = append(r.acceptTimes, now)

	r.clients[client] = struct{}{}
	log.Printf("[Hub] Подключение: %s (%d в комнате)", client.QuizCode, len(r.clients))
	return nil
}

// Identify связывает сокет с пользователем: вытесняет старый сокет того же
// пользователя (код 1000) и запускает прикладной heartbeat.
func (h *Hub) Identify(client *Client, userID string, isAdmin bool) {
	h.mu.Lock()
	old := h.userSockets[userID]
	h.userSockets[userID] = client
	h.mu.Unlock()

	client.UserID = userID
	client.IsAdmin = isAdmin

	if old != nil && old != client {
		old.Close(CloseReplaced, "New connection")
	}

	go h.runHeartbeat(client)
}

// Disconnect убирает сокет из комнаты; последний сокет гасит комнату
// вместе с воркером, сборщиком и состоянием.
func (h *Hub) Disconnect(client *Client) {
	h.mu.Lock()
	r := h.rooms[client.QuizCode]
	if r != nil {
		r.connMu.Lock()
		delete(r.clients, client)
		empty := len(r.clients) == 0
		r.connMu.Unlock()
		if empty {
			close(r.done)
			delete(h.rooms, client.QuizCode)
			r = nil
			log.Printf("[Hub] Комната %s закрыта (нет соединений)", client.QuizCode)
		}
	}
	if client.UserID != "" && h.userSockets[client.UserID] == client {
		delete(h.userSockets, client.UserID)
	}
	h.mu.Unlock()

	client.Close(websocket.CloseNormalClosure, "")

	if r != nil && client.UserID != "" && !client.IsAdmin {
		r.stateMu.Lock()
		r.state.RemoveParticipant(client.UserID)
		r.stateMu.Unlock()
	}
	log.Printf("[Hub] Отключение: %s (User: %s)", client.QuizCode, client.UserID)
}

// WithRoom выполняет fn под мьютексом состояния комнаты. Возвращает false,
// если комнаты нет. Рассылки внутри fn безопасны: Broadcast не трогает
// мьютекс состояния.
func (h *Hub) WithRoom(code string, fn func(state *RoomState)) bool {
	h.mu.Lock()
	r := h.rooms[code]
	h.mu.Unlock()
	if r == nil {
		return false
	}
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	fn(r.state)
	return true
}

// Snapshot возвращает снимок состояния комнаты; для отсутствующей комнаты -
// дефолтное лобби.
func (h *Hub) Snapshot(code string) Message {
	now := h.clk.NowMs()
	snap := EmptySnapshot(now)
	h.WithRoom(code, func(state *RoomState) {
		snap = state.Snapshot(now)
	})
	return snap
}

// Broadcast ставит сообщение в очередь рассылки комнаты
func (h *Hub) Broadcast(code string, msg Message) {
	h.mu.Lock()
	r := h.rooms[code]
	h.mu.Unlock()
	if r == nil {
		return
	}
	select {
	case r.queue <- msg:
		r.messageCount.Add(1)
	default:
		log.Printf("[Hub] Переполнена очередь рассылки комнаты %s, сообщение %q отброшено", code, msg.Type())
	}
}

// BroadcastSync сериализует и раздает сообщение сокетам комнаты в обход
// очереди воркера. Для кадров, которые обязаны уйти до закрытия комнаты:
// остаток очереди воркер при закрытии отбрасывает.
func (h *Hub) BroadcastSync(code string, msg Message) {
	h.mu.Lock()
	r := h.rooms[code]
	h.mu.Unlock()
	if r == nil {
		return
	}
	r.messageCount.Add(1)
	h.sendBatch(r, []Message{msg})
}

// SendToUser отправляет сообщение конкретному пользователю
func (h *Hub) SendToUser(userID string, msg Message) {
	h.mu.Lock()
	client := h.userSockets[userID]
	h.mu.Unlock()
	if client != nil {
		client.Send(msg)
	}
}

// CloseUser закрывает сокет пользователя с указанным кодом
func (h *Hub) CloseUser(userID string, code int, reason string) {
	h.mu.Lock()
	client := h.userSockets[userID]
	h.mu.Unlock()
	if client != nil {
		client.Close(code, reason)
	}
}

// CloseRoom закрывает все сокеты комнаты (например, при завершении викторины)
func (h *Hub) CloseRoom(code string) {
	h.mu.Lock()
	r := h.rooms[code]
	h.mu.Unlock()
	if r == nil {
		return
	}
	r.connMu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	r.connMu.RUnlock()
	for _, c := range clients {
		c.Close(websocket.CloseNormalClosure, "Room closed")
	}
}

// Stats возвращает сводку по комнатам для /health
func (h *Hub) Stats() map[string]interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0
	details := make(map[string]interface{}, len(h.rooms))
	for code, r := range h.rooms {
		r.connMu.RLock()
		conns := len(r.clients)
		r.connMu.RUnlock()
		total += conns

		r.stateMu.Lock()
		participants := len(r.state.Participants)
		phase := string(r.state.Phase)
		r.stateMu.Unlock()

		details[code] = map[string]interface{}{
			"connections":  conns,
			"participants": participants,
			"state":        phase,
			"messages":     r.messageCount.Load(),
		}
	}

	return map[string]interface{}{
		"active_rooms":      len(h.rooms),
		"total_connections": total,
		"room_details":      details,
	}
}

// runWorker - воркер рассылки комнаты: копит сообщения в батч не дольше
// окна батчинга. Критический тип сначала сбрасывает накопленный батч,
// затем уходит отдельным кадром, не завернутым в batch.
func (h *Hub) runWorker(r *room) {
	ticker := time.NewTicker(h.cfg.BatchInterval)
	defer ticker.Stop()

	var batch []Message
	for {
		select {
		case msg := <-r.queue:
			if IsCritical(msg.Type()) {
				if len(batch) > 0 {
					h.sendBatch(r, batch)
					batch = nil
				}
				h.sendBatch(r, []Message{msg})
			} else {
				batch = append(batch, msg)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				h.sendBatch(r, batch)
				batch = nil
			}

		case <-r.done:
			// Остаток батча при закрытии комнаты отбрасывается
			return
		}
	}
}

// sendBatch сериализует батч (одиночное сообщение уходит как есть,
// несколько - батч-кадром) и раздает всем сокетам комнаты.
func (h *Hub) sendBatch(r *room, batch []Message) {
	var payload interface{}
	if len(batch) == 1 {
		payload = batch[0]
	} else {
		payload = Message{"type": TypeBatch, "messages": batch}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Hub] Ошибка сериализации батча комнаты %s: %v", r.code, err)
		return
	}

	r.connMu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	r.connMu.RUnlock()

	for _, c := range clients {
		c.Enqueue(data)
	}
}

// runSweeper периодически убирает мертвые сокеты из набора комнаты
func (h *Hub) runSweeper(r *room) {
	ticker := time.NewTicker(h.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var dead []*Client
			r.connMu.Lock()
			for c := range r.clients {
				if !c.Alive() {
					delete(r.clients, c)
					dead = append(dead, c)
				}
			}
			r.connMu.Unlock()
			if len(dead) > 0 {
				log.Printf("[Hub] Убрано %d мертвых соединений из %s", len(dead), r.code)
			}

		case <-r.done:
			return
		}
	}
}

// runHeartbeat шлет прикладной ping идентифицированному сокету
func (h *Hub) runHeartbeat(client *Client) {
	ticker := time.NewTicker(h.cfg.Client.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			client.Send(Message{"type": TypePing, "t": h.clk.NowMs()})
		case <-client.Done():
			return
		}
	}
}
