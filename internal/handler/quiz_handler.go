package handler

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/prashnify-api/internal/pkg/errors"
	"github.com/yourusername/prashnify-api/internal/service"
	"github.com/yourusername/prashnify-api/internal/service/roommanager"
)

// QuizHandler обрабатывает запросы, связанные с викторинами
type QuizHandler struct {
	quizService        *service.QuizService
	participantService *service.ParticipantService
	controller         *roommanager.Controller
}

// NewQuizHandler создает новый обработчик викторин
func NewQuizHandler(
	quizService *service.QuizService,
	participantService *service.ParticipantService,
	controller *roommanager.Controller,
) *QuizHandler {
	return &QuizHandler{
		quizService:        quizService,
		participantService: participantService,
		controller:         controller,
	}
}

// CreateQuiz обрабатывает запрос на создание викторины (admin)
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req service.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.Create(&req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

// ListQuizzes возвращает список викторин с пагинацией (admin)
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	status := c.Query("status")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))

	quizzes, err := h.quizService.List(status, limit, skip)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quizzes": quizzes,
		"count":   len(quizzes),
	})
}

// GetQuizWithQuestions возвращает викторину вместе с полными вопросами (admin)
func (h *QuizHandler) GetQuizWithQuestions(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	quiz, err := h.quizService.GetQuiz(code)
	if err != nil {
		handleError(c, err)
		return
	}
	questions, err := h.quizService.GetQuestions(code)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quiz":      quiz,
		"questions": questions,
	})
}

// UpdateQuizStatus меняет статус викторины (admin). При переводе в ended
// комната уведомляется и закрывается.
func (h *QuizHandler) UpdateQuizStatus(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	status := c.Query("status")

	if err := h.quizService.UpdateStatus(code, status); err != nil {
		handleError(c, err)
		return
	}

	if status == "ended" {
		h.controller.QuizEnded(code)
	}
	h.controller.BroadcastStatusChanged(code, status)

	c.JSON(http.StatusOK, gin.H{"code": code, "status": status})
}

// DeleteQuiz удаляет викторину вместе с вопросами и участниками (admin)
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	if err := h.quizService.Delete(code); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": code})
}

// GetQuizParticipants возвращает участников по убыванию счета (admin)
func (h *QuizHandler) GetQuizParticipants(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	participants, err := h.participantService.ByScore(code)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"participants": participants,
		"count":        len(participants),
	})
}

// VerifyQuiz проверяет код комнаты перед входом участника
func (h *QuizHandler) VerifyQuiz(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	quiz, err := h.quizService.GetQuiz(code)
	if err != nil {
		handleError(c, err)
		return
	}
	if quiz.IsEnded() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "This quiz has ended"})
		return
	}
	if !quiz.IsActive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "This quiz is not active"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":            true,
		"code":             quiz.Code,
		"title":            quiz.Title,
		"questionsCount":   quiz.QuestionsCount,
		"participantCount": quiz.ParticipantCount,
	})
}

// GetQuizInfo возвращает публичную информацию о викторине
func (h *QuizHandler) GetQuizInfo(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	quiz, err := h.quizService.GetQuiz(code)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":             quiz.Code,
		"title":            quiz.Title,
		"description":      quiz.Description,
		"status":           quiz.Status,
		"questionsCount":   quiz.QuestionsCount,
		"participantCount": quiz.ParticipantCount,
	})
}

// GetQuizQuestions возвращает вопросы: админ получает полные данные,
// верифицированный участник - без правильных ответов
func (h *QuizHandler) GetQuizQuestions(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	participantID := c.Query("participantId")

	// Публичный маршрут: вопросы отдаются только верифицированному
	// участнику. Админ получает полные вопросы через /api/admin/quiz/{code}.
	if participantID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "participantId is required"})
		return
	}

	if _, err := h.participantService.Verify(participantID, code); err != nil {
		handleError(c, apperrors.ErrForbidden)
		return
	}

	questions, err := h.quizService.GetQuestions(code)
	if err != nil {
		handleError(c, err)
		return
	}
	safe := make([]map[string]interface{}, len(questions))
	for i := range questions {
		safe[i] = questions[i].SafeView()
	}

	c.JSON(http.StatusOK, gin.H{"questions": safe, "count": len(safe)})
}

// GetLeaderboard возвращает лидерборд с рангами и обработкой ничьих
func (h *QuizHandler) GetLeaderboard(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	entries, err := h.participantService.Leaderboard(code)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": entries,
		"count":       len(entries),
	})
}

// GetQuestionStats возвращает распределение ответов по вариантам вопроса
func (h *QuizHandler) GetQuestionStats(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question index"})
		return
	}

	stats := h.controller.QuestionStats(code, index)

	c.JSON(http.StatusOK, gin.H{
		"questionIndex": index,
		"stats":         stats,
	})
}

// GetMyResults возвращает персональные результаты участника
func (h *QuizHandler) GetMyResults(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	participantID := c.Param("participantId")

	results, err := h.participantService.MyResults(code, participantID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetFinalResults возвращает итоги: победителей и агрегированную статистику
func (h *QuizHandler) GetFinalResults(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	results, err := h.participantService.FinalResults(code)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetQuizState возвращает снимок живого состояния комнаты для
// HTTP-восстановления (fallback при недоступном WebSocket)
func (h *QuizHandler) GetQuizState(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	participantID := c.Query("participantId")

	if _, err := h.quizService.GetQuiz(code); err != nil {
		handleError(c, err)
		return
	}

	state, err := h.controller.BuildSyncState(code, false)
	if err != nil {
		handleError(c, err)
		return
	}

	resp := gin.H{"state": state}
	if participantID != "" {
		if p, err := h.participantService.Verify(participantID, code); err == nil {
			resp["participant"] = p.RosterView()
			resp["participant_score"] = p.Score
		} else {
			log.Printf("[QuizHandler] Неизвестный участник %s в state %s", participantID, code)
		}
	}

	c.JSON(http.StatusOK, resp)
}
