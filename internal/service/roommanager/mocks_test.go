package roommanager

import (
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/yourusername/prashnify-api/internal/domain/entity"
	"github.com/yourusername/prashnify-api/internal/domain/repository"
	"github.com/yourusername/prashnify-api/internal/pkg/clock"
	"github.com/yourusername/prashnify-api/internal/service"
	"github.com/yourusername/prashnify-api/internal/websocket"
)

// ============================================================================
// Моки репозиториев и сборка контроллера для тестов
// ============================================================================

// MockQuizRepository реализует repository.QuizRepository
type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) Create(quiz *entity.Quiz) error {
	args := m.Called(quiz)
	return args.Error(0)
}

func (m *MockQuizRepository) GetByCode(code string) (*entity.Quiz, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepository) CodeExists(code string) (bool, error) {
	args := m.Called(code)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuizRepository) List(filters repository.QuizFilters, limit, offset int) ([]entity.Quiz, error) {
	args := m.Called(filters, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Quiz), args.Error(1)
}

func (m *MockQuizRepository) UpdateStatus(code string, status string) error {
	args := m.Called(code, status)
	return args.Error(0)
}

func (m *MockQuizRepository) RegisterJoin(code string) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockQuizRepository) DecrementParticipantCount(code string) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockQuizRepository) Delete(code string) error {
	args := m.Called(code)
	return args.Error(0)
}

// MockQuestionRepository реализует repository.QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) CreateBatch(questions []entity.Question) error {
	args := m.Called(questions)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetByQuiz(quizCode string) ([]entity.Question, error) {
	args := m.Called(quizCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) GetByIndex(quizCode string, index int) (*entity.Question, error) {
	args := m.Called(quizCode, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) DeleteByQuiz(quizCode string) error {
	args := m.Called(quizCode)
	return args.Error(0)
}

// MockParticipantRepository реализует repository.ParticipantRepository
type MockParticipantRepository struct {
	mock.Mock
}

func (m *MockParticipantRepository) Create(p *entity.Participant) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *MockParticipantRepository) GetByID(id string, quizCode string) (*entity.Participant, error) {
	args := m.Called(id, quizCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Participant), args.Error(1)
}

func (m *MockParticipantRepository) GetByQuiz(quizCode string) ([]entity.Participant, error) {
	args := m.Called(quizCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Participant), args.Error(1)
}

func (m *MockParticipantRepository) GetRoster(quizCode string) ([]entity.Participant, error) {
	args := m.Called(quizCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Participant), args.Error(1)
}

func (m *MockParticipantRepository) CountByName(quizCode string, name string) (int64, error) {
	args := m.Called(quizCode, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockParticipantRepository) AvatarSeedTaken(quizCode string, seed string, excludeID string) (bool, error) {
	args := m.Called(quizCode, seed, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockParticipantRepository) UpdateAvatarSeed(id string, seed string) error {
	args := m.Called(id, seed)
	return args.Error(0)
}

func (m *MockParticipantRepository) TouchLastActive(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockParticipantRepository) ApplyAnswer(upd repository.AnswerUpdate) error {
	args := m.Called(upd)
	return args.Error(0)
}

func (m *MockParticipantRepository) Delete(id string, quizCode string) (*entity.Participant, error) {
	args := m.Called(id, quizCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Participant), args.Error(1)
}

func (m *MockParticipantRepository) DeleteByQuiz(quizCode string) error {
	args := m.Called(quizCode)
	return args.Error(0)
}

// testEnv - собранный контроллер с моками вместо хранилища
type testEnv struct {
	controller      *Controller
	hub             *websocket.Hub
	clk             *clock.Virtual
	quizRepo        *MockQuizRepository
	questionRepo    *MockQuestionRepository
	participantRepo *MockParticipantRepository
}

func newTestEnv() *testEnv {
	return newTestEnvWithConfig(DefaultConfig())
}

func newTestEnvWithConfig(cfg *Config) *testEnv {
	clk := clock.NewVirtual(time.Unix(1700000000, 0))
	quizRepo := new(MockQuizRepository)
	questionRepo := new(MockQuestionRepository)
	participantRepo := new(MockParticipantRepository)

	cache := service.NewQuizCache(nil, clk, 30*time.Second, 5*time.Second)
	quizService := service.NewQuizService(quizRepo, questionRepo, participantRepo, cache, clk)
	participantService := service.NewParticipantService(participantRepo, quizRepo, quizService, cache, clk, 1000)

	hub := websocket.NewHub(websocket.HubConfig{SweepInterval: time.Hour}, clk)

	controller := NewController(&Dependencies{
		QuizService:        quizService,
		ParticipantService: participantService,
		ParticipantRepo:    participantRepo,
		Hub:                hub,
		Clock:              clk,
		Config:             cfg,
	})

	return &testEnv{
		controller:      controller,
		hub:             hub,
		clk:             clk,
		quizRepo:        quizRepo,
		questionRepo:    questionRepo,
		participantRepo: participantRepo,
	}
}

// openRoom создает комнату через подключение тестового сокета
func (e *testEnv) openRoom(code string) *websocket.Client {
	client := websocket.NewClient(e.hub, nil, code, e.hub.ClientConfig())
	if err := e.hub.Connect(client); err != nil {
		panic(err)
	}
	return client
}
