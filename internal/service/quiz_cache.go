package service

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yourusername/prashnify-api/internal/domain/entity"
	"github.com/yourusername/prashnify-api/internal/domain/repository"
	"github.com/yourusername/prashnify-api/internal/pkg/clock"
)

// Ключи кеша
const (
	quizKeyPrefix        = "quiz:"
	questionsKeyPrefix   = "questions:"
	leaderboardKeyPrefix = "leaderboard:"
)

type memEntry struct {
	value   interface{}
	expires time.Time
}

// QuizCache - двухуровневый кеш поверх Redis: процесс-локальная карта
// поглощает повторные чтения, Redis переживает рестарт и разделяется
// между инстансами. Ошибки Redis не фатальны - кеш деградирует до
// памяти, источником истины остается БД.
type QuizCache struct {
	cache repository.CacheRepository
	clk   clock.Clock

	quizTTL        time.Duration
	leaderboardTTL time.Duration

	mu  sync.RWMutex
	mem map[string]memEntry
}

// NewQuizCache создает новый кеш викторин
func NewQuizCache(cache repository.CacheRepository, clk clock.Clock, quizTTL, leaderboardTTL time.Duration) *QuizCache {
	if quizTTL <= 0 {
		quizTTL = 30 * time.Second
	}
	if leaderboardTTL <= 0 {
		leaderboardTTL = 5 * time.Second
	}
	return &QuizCache{
		cache:          cache,
		clk:            clk,
		quizTTL:        quizTTL,
		leaderboardTTL: leaderboardTTL,
		mem:            make(map[string]memEntry),
	}
}

func (c *QuizCache) memGet(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.mem[key]
	c.mu.RUnlock()
	if !ok || c.clk.Now().After(entry.expires) {
		return nil, false
	}
	return entry.value, true
}

func (c *QuizCache) memSet(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.mem[key] = memEntry{value: value, expires: c.clk.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *QuizCache) memDelete(keys ...string) {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.mem, key)
	}
	c.mu.Unlock()
}

// GetQuiz возвращает викторину из кеша, если она там есть
func (c *QuizCache) GetQuiz(code string) (*entity.Quiz, bool) {
	key := quizKeyPrefix + code
	if v, ok := c.memGet(key); ok {
		return v.(*entity.Quiz), true
	}
	if c.cache == nil {
		return nil, false
	}
	var quiz entity.Quiz
	if err := c.cache.GetJSON(key, &quiz); err != nil {
		return nil, false
	}
	c.memSet(key, &quiz, c.quizTTL)
	return &quiz, true
}

// SetQuiz кладет викторину в оба уровня кеша
func (c *QuizCache) SetQuiz(quiz *entity.Quiz) {
	key := quizKeyPrefix + quiz.Code
	c.memSet(key, quiz, c.quizTTL)
	if c.cache == nil {
		return
	}
	if err := c.cache.SetJSON(key, quiz, c.quizTTL); err != nil {
		log.Printf("[QuizCache] Ошибка записи %s в Redis: %v", key, err)
	}
}

// GetQuestions возвращает вопросы викторины из кеша
func (c *QuizCache) GetQuestions(code string) ([]entity.Question, bool) {
	key := questionsKeyPrefix + code
	if v, ok := c.memGet(key); ok {
		return v.([]entity.Question), true
	}
	if c.cache == nil {
		return nil, false
	}
	var questions []entity.Question
	if err := c.cache.GetJSON(key, &questions); err != nil {
		return nil, false
	}
	c.memSet(key, questions, c.quizTTL)
	return questions, true
}

// SetQuestions кладет вопросы викторины в оба уровня кеша
func (c *QuizCache) SetQuestions(code string, questions []entity.Question) {
	key := questionsKeyPrefix + code
	c.memSet(key, questions, c.quizTTL)
	if c.cache == nil {
		return
	}
	if err := c.cache.SetJSON(key, questions, c.quizTTL); err != nil {
		log.Printf("[QuizCache] Ошибка записи %s в Redis: %v", key, err)
	}
}

// GetLeaderboard возвращает кешированный лидерборд (короткий TTL)
func (c *QuizCache) GetLeaderboard(code string) ([]LeaderboardEntry, bool) {
	key := leaderboardKeyPrefix + code
	if v, ok := c.memGet(key); ok {
		return v.([]LeaderboardEntry), true
	}
	if c.cache == nil {
		return nil, false
	}
	var entries []LeaderboardEntry
	if err := c.cache.GetJSON(key, &entries); err != nil {
		return nil, false
	}
	c.memSet(key, entries, c.leaderboardTTL)
	return entries, true
}

// SetLeaderboard кеширует лидерборд
func (c *QuizCache) SetLeaderboard(code string, entries []LeaderboardEntry) {
	key := leaderboardKeyPrefix + code
	c.memSet(key, entries, c.leaderboardTTL)
	if c.cache == nil {
		return
	}
	if err := c.cache.SetJSON(key, entries, c.leaderboardTTL); err != nil {
		log.Printf("[QuizCache] Ошибка записи %s в Redis: %v", key, err)
	}
}

// InvalidateLeaderboard сбрасывает только лидерборд (после принятого ответа)
func (c *QuizCache) InvalidateLeaderboard(code string) {
	key := leaderboardKeyPrefix + code
	c.memDelete(key)
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(key); err != nil {
		log.Printf("[QuizCache] Ошибка удаления %s из Redis: %v", key, err)
	}
}

// Invalidate сбрасывает все ключи викторины после мутации
func (c *QuizCache) Invalidate(code string) {
	keys := []string{
		quizKeyPrefix + code,
		questionsKeyPrefix + code,
		leaderboardKeyPrefix + code,
	}
	c.memDelete(keys...)
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(keys...); err != nil {
		log.Printf("[QuizCache] Ошибка удаления ключей %v из Redis: %v", keys, err)
	}
}

// LeaderboardKey возвращает ключ лидерборда (для тестов и отладки)
func LeaderboardKey(code string) string {
	return fmt.Sprintf("%s%s", leaderboardKeyPrefix, code)
}
