package service

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yourusername/prashnify-api/internal/domain/entity"
	"github.com/yourusername/prashnify-api/internal/domain/repository"
	"github.com/yourusername/prashnify-api/internal/pkg/clock"
	apperrors "github.com/yourusername/prashnify-api/internal/pkg/errors"
)

// avatarGenRetries - число попыток подобрать уникальный avatar seed
const avatarGenRetries = 50

// JoinRequest - полезная нагрузка входа в комнату
type JoinRequest struct {
	Name       string `json:"name" binding:"required"`
	QuizCode   string `json:"quizCode" binding:"required"`
	AvatarSeed string `json:"avatarSeed"`
}

// LeaderboardEntry - строка лидерборда
type LeaderboardEntry struct {
	Name          string     `json:"name"`
	Score         int        `json:"score"`
	TotalTime     float64    `json:"totalTime"`
	Rank          int        `json:"rank"`
	AvatarSeed    string     `json:"avatarSeed"`
	ParticipantID string     `json:"participantId"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// MyResults - персональная сводка участника
type MyResults struct {
	Name                   string            `json:"name"`
	Score                  int               `json:"score"`
	Rank                   int               `json:"rank"`
	TotalPlayers           int               `json:"totalPlayers"`
	CorrectAnswers         int               `json:"correctAnswers"`
	TotalQuestions         int               `json:"totalQuestions"`
	Accuracy               float64           `json:"accuracy"`
	AverageTimePerQuestion float64           `json:"averageTimePerQuestion"`
	Answers                entity.AnswerList `json:"answers"`
	AvatarSeed             string            `json:"avatarSeed"`
}

// FinalResults - итоги викторины: топ-3 и агрегаты
type FinalResults struct {
	Winners []LeaderboardEntry `json:"winners"`
	Stats   FinalStats         `json:"stats"`
}

// FinalStats - агрегатная статистика по завершенной викторине
type FinalStats struct {
	TotalParticipants int `json:"totalParticipants"`
	TotalQuestions    int `json:"totalQuestions"`
	AverageScore      int `json:"averageScore"`
	CompletionRate    int `json:"completionRate"`
}

// ParticipantService инкапсулирует бизнес-логику участников
type ParticipantService struct {
	participantRepo repository.ParticipantRepository
	quizRepo        repository.QuizRepository
	quizService     *QuizService
	cache           *QuizCache
	clk             clock.Clock
	maxParticipants int
}

// DefaultMaxParticipants - предел участников комнаты по умолчанию
const DefaultMaxParticipants = 1000

// NewParticipantService создает новый сервис участников
func NewParticipantService(
	participantRepo repository.ParticipantRepository,
	quizRepo repository.QuizRepository,
	quizService *QuizService,
	cache *QuizCache,
	clk clock.Clock,
	maxParticipants int,
) *ParticipantService {
	if maxParticipants <= 0 {
		maxParticipants = DefaultMaxParticipants
	}
	return &ParticipantService{
		participantRepo: participantRepo,
		quizRepo:        quizRepo,
		quizService:     quizService,
		cache:           cache,
		clk:             clk,
		maxParticipants: maxParticipants,
	}
}

// Join регистрирует участника в комнате: проверяет имя, статус викторины,
// лимит попыток и уникальность avatar seed, затем атомарно увеличивает
// счетчик участников.
func (s *ParticipantService) Join(req *JoinRequest) (*entity.Participant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	}
	// Предел длины считается в рунах по обрезанному имени
	if utf8.RuneCountInString(name) > entity.MaxNameLength {
		return nil, fmt.Errorf("%w: name too long (max %d characters)", apperrors.ErrValidation, entity.MaxNameLength)
	}

	quiz, err := s.quizService.GetQuiz(req.QuizCode)
	if err != nil {
		return nil, err
	}
	if quiz.IsEnded() {
		return nil, fmt.Errorf("%w: quiz has ended", apperrors.ErrValidation)
	}
	if !quiz.IsActive() {
		return nil, fmt.Errorf("%w: quiz is %s", apperrors.ErrValidation, quiz.Status)
	}
	if quiz.ParticipantCount >= s.maxParticipants {
		return nil, fmt.Errorf("%w: quiz is full", apperrors.ErrCapacity)
	}

	attempts, err := s.participantRepo.CountByName(req.QuizCode, name)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if attempts >= int64(quiz.AllowedAttempts) {
		return nil, fmt.Errorf("%w: maximum attempts reached", apperrors.ErrConflict)
	}

	avatarSeed := req.AvatarSeed
	if avatarSeed == "" {
		avatarSeed, err = s.GenerateUniqueAvatar(req.QuizCode, "")
		if err != nil {
			return nil, err
		}
	} else {
		unique, err := s.IsAvatarUnique(req.QuizCode, avatarSeed, "")
		if err != nil {
			return nil, err
		}
		if !unique {
			avatarSeed, err = s.GenerateUniqueAvatar(req.QuizCode, "")
			if err != nil {
				return nil, err
			}
		}
	}

	now := s.clk.Now()
	participant := &entity.Participant{
		ID:         uuid.New().String(),
		Name:       name,
		QuizCode:   req.QuizCode,
		AvatarSeed: avatarSeed,
		JoinedAt:   now,
		Answers:    entity.AnswerList{},
		LastActive: now,
		AttemptNum: int(attempts) + 1,
	}

	if err := s.participantRepo.Create(participant); err != nil {
		return nil, fmt.Errorf("create participant: %w", err)
	}
	if err := s.quizRepo.RegisterJoin(req.QuizCode); err != nil {
		log.Printf("[ParticipantService] Ошибка обновления счетчика участников %s: %v", req.QuizCode, err)
	}
	s.cache.Invalidate(req.QuizCode)

	log.Printf("[ParticipantService] Участник вошел: %s -> %s", name, req.QuizCode)
	return participant, nil
}

// Verify возвращает участника и обновляет отметку активности
func (s *ParticipantService) Verify(participantID, quizCode string) (*entity.Participant, error) {
	p, err := s.participantRepo.GetByID(participantID, quizCode)
	if err != nil {
		return nil, err
	}
	if err := s.participantRepo.TouchLastActive(participantID); err != nil {
		log.Printf("[ParticipantService] Ошибка обновления lastActive %s: %v", participantID, err)
	}
	return p, nil
}

// IsAvatarUnique проверяет уникальность avatar seed внутри комнаты
func (s *ParticipantService) IsAvatarUnique(quizCode, seed, excludeID string) (bool, error) {
	taken, err := s.participantRepo.AvatarSeedTaken(quizCode, seed, excludeID)
	if err != nil {
		// При недоступном store уникальность не блокирует вход
		log.Printf("[ParticipantService] Ошибка проверки avatar seed: %v", err)
		return true, nil
	}
	return !taken, nil
}

// GenerateUniqueAvatar подбирает avatar seed, свободный в комнате
func (s *ParticipantService) GenerateUniqueAvatar(quizCode, excludeID string) (string, error) {
	for attempt := 0; attempt < avatarGenRetries; attempt++ {
		seed := fmt.Sprintf("%s-%s-%d", quizCode, uuid.New().String()[:8], s.clk.NowMs())
		unique, err := s.IsAvatarUnique(quizCode, seed, excludeID)
		if err != nil {
			return "", err
		}
		if unique {
			return seed, nil
		}
	}
	return fmt.Sprintf("%s-fallback-%s", quizCode, strings.ReplaceAll(uuid.New().String(), "-", "")), nil
}

// RerollAvatar генерирует и сохраняет новый avatar seed участника.
// Проверка фазы комнаты выполняется вызывающей стороной.
func (s *ParticipantService) RerollAvatar(participantID, quizCode string) (string, error) {
	if _, err := s.participantRepo.GetByID(participantID, quizCode); err != nil {
		return "", apperrors.ErrForbidden
	}
	seed, err := s.GenerateUniqueAvatar(quizCode, participantID)
	if err != nil {
		return "", err
	}
	if err := s.participantRepo.UpdateAvatarSeed(participantID, seed); err != nil {
		return "", fmt.Errorf("update avatar seed: %w", err)
	}
	log.Printf("[ParticipantService] Avatar обновлен для %s в %s", participantID, quizCode)
	return seed, nil
}

// Roster возвращает участников комнаты в порядке входа (для лобби)
func (s *ParticipantService) Roster(quizCode string) ([]entity.Participant, error) {
	return s.participantRepo.GetRoster(quizCode)
}

// ByScore возвращает участников по убыванию счета (админский список)
func (s *ParticipantService) ByScore(quizCode string) ([]entity.Participant, error) {
	return s.participantRepo.GetByQuiz(quizCode)
}

// Leaderboard строит лидерборд с корректной обработкой ничьих:
// первичная сортировка score DESC, вторичная totalTime ASC; участники
// с одинаковыми score И totalTime (с точностью до сотых) делят ранг.
func (s *ParticipantService) Leaderboard(quizCode string) ([]LeaderboardEntry, error) {
	if entries, ok := s.cache.GetLeaderboard(quizCode); ok {
		return entries, nil
	}

	parts, err := s.participantRepo.GetByQuiz(quizCode)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(parts))
	prevScore := math.MinInt
	prevTime := -1.0
	prevRank := 0

	for idx, p := range parts {
		totalTime := math.Round(p.TotalTime*100) / 100

		rank := idx + 1
		if p.Score == prevScore && totalTime == prevTime {
			rank = prevRank
		}
		prevScore = p.Score
		prevTime = totalTime
		prevRank = rank

		entries = append(entries, LeaderboardEntry{
			Name:          p.Name,
			Score:         p.Score,
			TotalTime:     totalTime,
			Rank:          rank,
			AvatarSeed:    p.AvatarSeed,
			ParticipantID: p.ID,
			CompletedAt:   p.CompletedAt,
		})
	}

	s.cache.SetLeaderboard(quizCode, entries)
	return entries, nil
}

// MyResults возвращает персональную сводку участника
func (s *ParticipantService) MyResults(quizCode, participantID string) (*MyResults, error) {
	p, err := s.participantRepo.GetByID(participantID, quizCode)
	if err != nil {
		return nil, err
	}

	questions, err := s.quizService.GetQuestions(quizCode)
	if err != nil {
		return nil, err
	}
	leaderboard, err := s.Leaderboard(quizCode)
	if err != nil {
		return nil, err
	}

	myRank := 0
	for _, entry := range leaderboard {
		if entry.ParticipantID == participantID {
			myRank = entry.Rank
			break
		}
	}

	correct := 0
	for _, rec := range p.Answers {
		if rec.IsCorrect {
			correct++
		}
	}
	answered := len(p.Answers)
	accuracy := 0.0
	if answered > 0 {
		accuracy = math.Round(float64(correct)/float64(answered)*1000) / 10
	}
	denominator := answered
	if denominator == 0 {
		denominator = 1
	}
	avgTime := math.Round(p.TotalTime/float64(denominator)*100) / 100

	return &MyResults{
		Name:                   p.Name,
		Score:                  p.Score,
		Rank:                   myRank,
		TotalPlayers:           len(leaderboard),
		CorrectAnswers:         correct,
		TotalQuestions:         len(questions),
		Accuracy:               accuracy,
		AverageTimePerQuestion: avgTime,
		Answers:                p.Answers,
		AvatarSeed:             p.AvatarSeed,
	}, nil
}

// FinalResults возвращает топ-3 победителей и агрегатную статистику
func (s *ParticipantService) FinalResults(quizCode string) (*FinalResults, error) {
	leaderboard, err := s.Leaderboard(quizCode)
	if err != nil {
		return nil, err
	}
	questions, err := s.quizService.GetQuestions(quizCode)
	if err != nil {
		return nil, err
	}
	parts, err := s.participantRepo.GetByQuiz(quizCode)
	if err != nil {
		return nil, err
	}

	completed := 0
	scoreSum := 0
	for _, p := range parts {
		scoreSum += p.Score
		if p.CompletedAt != nil {
			completed++
		}
	}
	avgScore := 0
	completionRate := 0
	if len(parts) > 0 {
		avgScore = scoreSum / len(parts)
		completionRate = completed * 100 / len(parts)
	}

	winners := leaderboard
	if len(winners) > 3 {
		winners = winners[:3]
	}

	return &FinalResults{
		Winners: winners,
		Stats: FinalStats{
			TotalParticipants: len(parts),
			TotalQuestions:    len(questions),
			AverageScore:      avgScore,
			CompletionRate:    completionRate,
		},
	}, nil
}

// Kick удаляет участника из комнаты и корректирует счетчик викторины
func (s *ParticipantService) Kick(participantID, quizCode string) (*entity.Participant, error) {
	p, err := s.participantRepo.Delete(participantID, quizCode)
	if err != nil {
		return nil, err
	}
	if err := s.quizRepo.DecrementParticipantCount(quizCode); err != nil {
		log.Printf("[ParticipantService] Ошибка уменьшения счетчика %s: %v", quizCode, err)
	}
	s.cache.Invalidate(quizCode)
	log.Printf("[ParticipantService] Участник %s удален из %s", participantID, quizCode)
	return p, nil
}
