package roommanager

import (
	"time"

	"github.com/yourusername/prashnify-api/internal/domain/repository"
	"github.com/yourusername/prashnify-api/internal/pkg/clock"
	"github.com/yourusername/prashnify-api/internal/service"
	"github.com/yourusername/prashnify-api/internal/websocket"
)

// Config содержит настройки контроллера комнат
type Config struct {
	// CountdownSeconds - продолжительность обратного отсчета перед первым вопросом
	CountdownSeconds int

	// ReactionCooldown - минимальный интервал между реакциями участника
	ReactionCooldown time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		CountdownSeconds: 5,
		ReactionCooldown: 2 * time.Second,
	}
}

// Dependencies содержит зависимости контроллера комнат
type Dependencies struct {
	QuizService        *service.QuizService
	ParticipantService *service.ParticipantService
	ParticipantRepo    repository.ParticipantRepository
	Hub                *websocket.Hub
	Clock              clock.Clock
	Config             *Config
}
