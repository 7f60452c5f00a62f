package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/prashnify-api/internal/domain/repository"
	"github.com/yourusername/prashnify-api/pkg/auth"
)

// AuthHandler обрабатывает вход администратора и проверку токена
type AuthHandler struct {
	adminRepo  repository.AdminRepository
	jwtService *auth.JWTService
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(adminRepo repository.AdminRepository, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		adminRepo:  adminRepo,
		jwtService: jwtService,
	}
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login проверяет учетные данные администратора и выдает JWT
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := h.adminRepo.GetByUsername(req.Username)
	if err != nil || !admin.CheckPassword(req.Password) {
		log.Printf("[AuthHandler] Неудачная попытка входа: %s", req.Username)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := h.jwtService.GenerateToken(admin.Username)
	if err != nil {
		log.Printf("[AuthHandler] Ошибка генерации токена: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"username":     admin.Username,
	})
}

// VerifyToken подтверждает валидность токена из заголовка.
// Маршрут защищен middleware, поэтому сюда попадают только валидные токены.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	username, _ := c.Get("username")
	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"username": username,
	})
}
