package service

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/yourusername/prashnify-api/internal/domain/entity"
	"github.com/yourusername/prashnify-api/internal/domain/repository"
	"github.com/yourusername/prashnify-api/internal/pkg/clock"
	apperrors "github.com/yourusername/prashnify-api/internal/pkg/errors"
)

// Лимиты создания викторины
const (
	MaxQuestionsPerQuiz = 100
	DefaultTimeLimit    = 30

	// codeGenRetries - число попыток сгенерировать уникальный код
	codeGenRetries = 10
)

// QuestionInput - вопрос в запросе создания викторины. TimeLimit и Points
// указательные, чтобы отличать отсутствующее поле от явного нуля:
// отсутствующий timeLimit получает 30 секунд, явный 0 означает вопрос
// без таймера.
type QuestionInput struct {
	Question      string               `json:"question"`
	Options       entity.StringArray   `json:"options"`
	CorrectAnswer entity.CorrectAnswer `json:"correctAnswer"`
	TimeLimit     *int                 `json:"timeLimit"`
	Points        *entity.Points       `json:"points"`
	Type          string               `json:"type"`
	Media         *string              `json:"media"`
}

// CreateQuizRequest - полезная нагрузка создания викторины
type CreateQuizRequest struct {
	Title              string          `json:"title" binding:"required"`
	Description        string          `json:"description"`
	Duration           int             `json:"duration"`
	Questions          []QuestionInput `json:"questions"`
	StartTime          *time.Time      `json:"startTime"`
	EndTime            *time.Time      `json:"endTime"`
	AllowedAttempts    int             `json:"allowedAttempts"`
	ShuffleQuestions   bool            `json:"shuffleQuestions"`
	ShowCorrectAnswers *bool           `json:"showCorrectAnswers"`
}

// QuizService инкапсулирует бизнес-логику викторин
type QuizService struct {
	quizRepo        repository.QuizRepository
	questionRepo    repository.QuestionRepository
	participantRepo repository.ParticipantRepository
	cache           *QuizCache
	clk             clock.Clock
}

// NewQuizService создает новый сервис викторин
func NewQuizService(
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	participantRepo repository.ParticipantRepository,
	cache *QuizCache,
	clk clock.Clock,
) *QuizService {
	return &QuizService{
		quizRepo:        quizRepo,
		questionRepo:    questionRepo,
		participantRepo: participantRepo,
		cache:           cache,
		clk:             clk,
	}
}

// Create валидирует и сохраняет викторину вместе с вопросами
func (s *QuizService) Create(req *CreateQuizRequest) (*entity.Quiz, error) {
	if len(req.Questions) == 0 || len(req.Questions) > MaxQuestionsPerQuiz {
		return nil, fmt.Errorf("%w: must have 1-%d questions", apperrors.ErrValidation, MaxQuestionsPerQuiz)
	}

	questions := make([]entity.Question, len(req.Questions))
	for i, in := range req.Questions {
		q := entity.Question{
			Index:         i,
			Question:      in.Question,
			Options:       in.Options,
			CorrectAnswer: in.CorrectAnswer,
			TimeLimit:     DefaultTimeLimit,
			Points:        entity.Points{Label: "standard"},
			Type:          in.Type,
			Media:         in.Media,
		}
		if in.TimeLimit != nil {
			q.TimeLimit = *in.TimeLimit
		}
		if in.Points != nil {
			q.Points = *in.Points
		}
		if q.Type == "" {
			q.Type = "quiz"
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", apperrors.ErrValidation, i, err)
		}
		questions[i] = q
	}

	code, err := s.generateUniqueCode()
	if err != nil {
		return nil, err
	}

	allowedAttempts := req.AllowedAttempts
	if allowedAttempts <= 0 {
		allowedAttempts = 1
	}
	showCorrect := true
	if req.ShowCorrectAnswers != nil {
		showCorrect = *req.ShowCorrectAnswers
	}

	quiz := &entity.Quiz{
		Code:               code,
		Title:              req.Title,
		Description:        req.Description,
		Duration:           req.Duration,
		Status:             entity.QuizStatusActive,
		CreatedAt:          s.clk.Now(),
		QuestionsCount:     len(questions),
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		AllowedAttempts:    allowedAttempts,
		ShuffleQuestions:   req.ShuffleQuestions,
		ShowCorrectAnswers: showCorrect,
	}

	if err := s.quizRepo.Create(quiz); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}

	for i := range questions {
		questions[i].QuizCode = code
	}
	if err := s.questionRepo.CreateBatch(questions); err != nil {
		return nil, fmt.Errorf("create questions: %w", err)
	}

	s.cache.SetQuiz(quiz)
	s.cache.SetQuestions(code, questions)

	log.Printf("[QuizService] Викторина создана: %s - %s", code, req.Title)
	return quiz, nil
}

// GetQuiz возвращает викторину, сначала из кеша
func (s *QuizService) GetQuiz(code string) (*entity.Quiz, error) {
	if quiz, ok := s.cache.GetQuiz(code); ok {
		return quiz, nil
	}
	quiz, err := s.quizRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	s.cache.SetQuiz(quiz)
	return quiz, nil
}

// GetQuestions возвращает вопросы викторины в порядке индекса, сначала из кеша
func (s *QuizService) GetQuestions(code string) ([]entity.Question, error) {
	if questions, ok := s.cache.GetQuestions(code); ok {
		return questions, nil
	}
	questions, err := s.questionRepo.GetByQuiz(code)
	if err != nil {
		return nil, err
	}
	s.cache.SetQuestions(code, questions)
	return questions, nil
}

// List возвращает викторины с фильтром по статусу и пагинацией
func (s *QuizService) List(status string, limit, offset int) ([]entity.Quiz, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.quizRepo.List(repository.QuizFilters{Status: status}, limit, offset)
}

// UpdateStatus меняет статус викторины и сбрасывает кеш
func (s *QuizService) UpdateStatus(code string, status string) error {
	if !entity.IsValidStatus(status) {
		return fmt.Errorf("%w: invalid status %q", apperrors.ErrValidation, status)
	}
	if err := s.quizRepo.UpdateStatus(code, status); err != nil {
		return err
	}
	s.cache.Invalidate(code)
	log.Printf("[QuizService] Статус викторины %s изменен на %s", code, status)
	return nil
}

// Delete удаляет викторину вместе с вопросами и участниками
func (s *QuizService) Delete(code string) error {
	if err := s.quizRepo.Delete(code); err != nil {
		return err
	}
	if err := s.questionRepo.DeleteByQuiz(code); err != nil {
		log.Printf("[QuizService] Ошибка удаления вопросов %s: %v", code, err)
	}
	if err := s.participantRepo.DeleteByQuiz(code); err != nil {
		log.Printf("[QuizService] Ошибка удаления участников %s: %v", code, err)
	}
	s.cache.Invalidate(code)
	log.Printf("[QuizService] Викторина удалена: %s", code)
	return nil
}

// InvalidateCache сбрасывает кеш викторины (после внешних мутаций)
func (s *QuizService) InvalidateCache(code string) {
	s.cache.Invalidate(code)
}

// InvalidateLeaderboard сбрасывает только кеш лидерборда
func (s *QuizService) InvalidateLeaderboard(code string) {
	s.cache.InvalidateLeaderboard(code)
}

// generateUniqueCode генерирует код комнаты с ограниченным числом
// повторов при коллизии
func (s *QuizService) generateUniqueCode() (string, error) {
	for attempt := 0; attempt < codeGenRetries; attempt++ {
		code := RandomCode(entity.CodeLength)
		exists, err := s.quizRepo.CodeExists(code)
		if err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique code after %d attempts", codeGenRetries)
}

// RandomCode возвращает случайный код комнаты из безопасного алфавита
func RandomCode(length int) string {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = entity.CodeAlphabet[rand.Intn(len(entity.CodeAlphabet))]
	}
	return string(buf)
}
