package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/prashnify-api/internal/pkg/clock"
)

func newTestHub(clk clock.Clock, maxPerRoom, maxPerSecond int) *Hub {
	return NewHub(HubConfig{
		MaxConnectionsPerRoom: maxPerRoom,
		MaxAcceptsPerSecond:   maxPerSecond,
		SweepInterval:         time.Hour, // сборщик не мешает тестам
	}, clk)
}

func newTestClient(h *Hub, code string) *Client {
	return NewClient(h, nil, code, h.ClientConfig())
}

func TestHub_ConnectionCap(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(1000, 0))
	h := newTestHub(clk, 3, 100)

	var admitted []*Client
	for i := 0; i < 3; i++ {
		c := newTestClient(h, "ROOM23")
		require.NoError(t, h.Connect(c))
		admitted = append(admitted, c)
	}

	// Четвертый сокет отклонен, существующие не затронуты
	err := h.Connect(newTestClient(h, "ROOM23"))
	assert.ErrorIs(t, err, ErrRoomFull)
	for _, c := range admitted {
		assert.True(t, c.Alive())
	}

	// Потолок действует на комнату, не на процесс
	assert.NoError(t, h.Connect(newTestClient(h, "OTHER1")))
}

func TestHub_AcceptRateLimit(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(1000, 0))
	h := newTestHub(clk, 100, 2)

	require.NoError(t, h.Connect(newTestClient(h, "ROOM23")))
	require.NoError(t, h.Connect(newTestClient(h, "ROOM23")))

	err := h.Connect(newTestClient(h, "ROOM23"))
	assert.ErrorIs(t, err, ErrTooManyConnections)

	// Окно скользящее: через секунду прием возобновляется
	clk.Advance(1100 * time.Millisecond)
	assert.NoError(t, h.Connect(newTestClient(h, "ROOM23")))
}

func TestHub_IdentifyDisplacesOldSocket(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(1000, 0))
	h := newTestHub(clk, 10, 10)

	first := newTestClient(h, "ROOM23")
	second := newTestClient(h, "ROOM23")
	require.NoError(t, h.Connect(first))
	require.NoError(t, h.Connect(second))

	h.Identify(first, "user-1", false)
	h.Identify(second, "user-1", false)

	// Старый сокет того же пользователя вытеснен, новый жив
	assert.False(t, first.Alive())
	assert.True(t, second.Alive())
}

func TestHub_DisconnectTearsDownEmptyRoom(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(1000, 0))
	h := newTestHub(clk, 10, 10)

	c := newTestClient(h, "ROOM23")
	require.NoError(t, h.Connect(c))
	assert.True(t, h.WithRoom("ROOM23", func(*RoomState) {}))

	h.Disconnect(c)
	assert.False(t, h.WithRoom("ROOM23", func(*RoomState) {}))
}

func TestHub_SnapshotFallback(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(1000, 0))
	h := newTestHub(clk, 10, 10)

	// Комнаты нет - возвращается дефолтное лобби
	snap := h.Snapshot("MISSING")
	assert.Equal(t, string(PhaseLobby), snap["quiz_state"])

	c := newTestClient(h, "ROOM23")
	require.NoError(t, h.Connect(c))
	h.WithRoom("ROOM23", func(state *RoomState) {
		state.TotalQuestions = 7
		state.SetQuestion(1, 30, clk.NowMs())
	})

	snap = h.Snapshot("ROOM23")
	assert.Equal(t, string(PhaseQuestion), snap["quiz_state"])
	assert.Equal(t, 7, snap["total_questions"])
}

// recvFrame достает следующий кадр из очереди отправки сокета
func recvFrame(t *testing.T, c *Client, timeout time.Duration) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(timeout):
		t.Fatal("кадр не получен в отведенное время")
		return nil
	}
}

func TestHub_QuizEndedDeliveredBeforeClose(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(1000, 0))
	h := newTestHub(clk, 10, 100)

	// Кадр завершения должен попасть в очередь отправки каждого сокета
	// до закрытия комнаты - при любом исходе гонки с воркером
	for i := 0; i < 10; i++ {
		c := newTestClient(h, "ROOM23")
		require.NoError(t, h.Connect(c))

		h.BroadcastSync("ROOM23", Message{"type": TypeQuizEnded, "message": "Quiz terminated by admin"})
		h.CloseRoom("ROOM23")

		assert.False(t, c.Alive())
		msg := recvFrame(t, c, time.Second)
		assert.Equal(t, TypeQuizEnded, msg.Type())

		h.Disconnect(c)
	}
}

func TestHub_CriticalFlushesUnbatched(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(1000, 0))
	// Таймер батчинга не срабатывает: кадры уходят только по критическому типу
	h := NewHub(HubConfig{
		MaxConnectionsPerRoom: 10,
		MaxAcceptsPerSecond:   100,
		BatchInterval:         time.Hour,
		SweepInterval:         time.Hour,
	}, clk)

	c := newTestClient(h, "ROOM23")
	require.NoError(t, h.Connect(c))

	h.Broadcast("ROOM23", Message{"type": TypeAnswerCount, "answeredCount": 1})
	h.Broadcast("ROOM23", Message{"type": TypeAnswerCount, "answeredCount": 2})
	h.Broadcast("ROOM23", Message{"type": TypeNextQuestion, "current_question": 1})

	// Накопленный батч сбрасывается перед критическим кадром
	first := recvFrame(t, c, 2*time.Second)
	assert.Equal(t, TypeBatch, first.Type())
	messages, ok := first["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, messages, 2)

	// Критический кадр уходит отдельно, без обертки batch
	second := recvFrame(t, c, 2*time.Second)
	assert.Equal(t, TypeNextQuestion, second.Type())
}

func TestHub_Stats(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(1000, 0))
	h := newTestHub(clk, 10, 10)

	require.NoError(t, h.Connect(newTestClient(h, "ROOM23")))
	require.NoError(t, h.Connect(newTestClient(h, "ROOM23")))
	require.NoError(t, h.Connect(newTestClient(h, "OTHER1")))

	stats := h.Stats()
	assert.Equal(t, 2, stats["active_rooms"])
	assert.Equal(t, 3, stats["total_connections"])
}
