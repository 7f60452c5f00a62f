package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/prashnify-api/internal/service"
	"github.com/yourusername/prashnify-api/internal/service/roommanager"
	"github.com/yourusername/prashnify-api/internal/websocket"
)

// avatarURLFormat - шаблон ссылки на сгенерированный аватар
const avatarURLFormat = "https://api.dicebear.com/7.x/fun-emoji/svg?seed=%s"

// ParticipantHandler обрабатывает запросы участников
type ParticipantHandler struct {
	participantService *service.ParticipantService
	controller         *roommanager.Controller
}

// NewParticipantHandler создает новый обработчик участников
func NewParticipantHandler(
	participantService *service.ParticipantService,
	controller *roommanager.Controller,
) *ParticipantHandler {
	return &ParticipantHandler{
		participantService: participantService,
		controller:         controller,
	}
}

// Join регистрирует участника в комнате
func (h *ParticipantHandler) Join(c *gin.Context) {
	var req service.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.QuizCode = strings.ToUpper(req.QuizCode)

	p, err := h.participantService.Join(&req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"participantId": p.ID,
		"name":          p.Name,
		"avatarSeed":    p.AvatarSeed,
		"avatarUrl":     fmt.Sprintf(avatarURLFormat, p.AvatarSeed),
		"quizCode":      p.QuizCode,
	})
}

// SubmitAnswer принимает ответ участника и возвращает разбивку очков
func (h *ParticipantHandler) SubmitAnswer(c *gin.Context) {
	var req roommanager.AnswerSubmit
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.QuizCode = strings.ToUpper(req.QuizCode)

	result, err := h.controller.SubmitAnswer(&req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPublicParticipants возвращает состав комнаты в порядке входа (лобби)
func (h *ParticipantHandler) GetPublicParticipants(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	participants, err := h.participantService.Roster(code)
	if err != nil {
		handleError(c, err)
		return
	}

	roster := make([]map[string]interface{}, len(participants))
	for i := range participants {
		roster[i] = participants[i].RosterView()
	}

	c.JSON(http.StatusOK, gin.H{
		"participants": roster,
		"count":        len(roster),
	})
}

// AvatarUniqueRequest - запрос проверки уникальности аватара
type AvatarUniqueRequest struct {
	QuizCode      string `json:"quizCode" binding:"required"`
	Seed          string `json:"seed" binding:"required"`
	ParticipantID string `json:"participantId"`
}

// CheckAvatarUnique проверяет, свободен ли seed аватара в комнате
func (h *ParticipantHandler) CheckAvatarUnique(c *gin.Context) {
	var req AvatarUniqueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.QuizCode = strings.ToUpper(req.QuizCode)

	unique, err := h.participantService.IsAvatarUnique(req.QuizCode, req.Seed, req.ParticipantID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"seed":   req.Seed,
		"unique": unique,
		"url":    fmt.Sprintf(avatarURLFormat, req.Seed),
	})
}

// AvatarRerollRequest - запрос смены аватара
type AvatarRerollRequest struct {
	QuizCode      string `json:"quizCode" binding:"required"`
	ParticipantID string `json:"participantId" binding:"required"`
}

// RerollAvatar выдает участнику новый уникальный аватар.
// Разрешено только в лобби, до старта викторины.
func (h *ParticipantHandler) RerollAvatar(c *gin.Context) {
	var req AvatarRerollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.QuizCode = strings.ToUpper(req.QuizCode)

	if phase := h.controller.Phase(req.QuizCode); phase != websocket.PhaseLobby {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Avatar can only be changed in the lobby"})
		return
	}

	seed, err := h.participantService.RerollAvatar(req.ParticipantID, req.QuizCode)
	if err != nil {
		handleError(c, err)
		return
	}

	h.controller.BroadcastAvatarUpdated(req.QuizCode, req.ParticipantID, seed)

	c.JSON(http.StatusOK, gin.H{
		"avatarSeed": seed,
		"avatarUrl":  fmt.Sprintf(avatarURLFormat, seed),
	})
}
