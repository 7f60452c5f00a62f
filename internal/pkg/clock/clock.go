package clock

import (
	"sync"
	"time"
)

// Clock - единый источник времени для всех компонентов.
// Все дедлайны, пинги и server_time в сообщениях берутся отсюда,
// чтобы в тестах можно было подставить виртуальные часы.
type Clock interface {
	Now() time.Time
	// NowMs возвращает текущее время в миллисекундах Unix-эпохи.
	NowMs() int64
}

// Real - системные часы
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) NowMs() int64 { return time.Now().UnixMilli() }

// Virtual - управляемые часы для тестов
type Virtual struct {
	mu  sync.Mutex
	now time.Time
}

// NewVirtual создает виртуальные часы, установленные на указанное время
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) NowMs() int64 {
	return v.Now().UnixMilli()
}

// Advance сдвигает виртуальное время вперед
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = v.now.Add(d)
}

// Set устанавливает виртуальное время
func (v *Virtual) Set(t time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = t
}
