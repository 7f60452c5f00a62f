package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/prashnify-api/internal/config"
	"github.com/yourusername/prashnify-api/internal/domain/entity"
	"github.com/yourusername/prashnify-api/internal/domain/repository"
	"github.com/yourusername/prashnify-api/internal/handler"
	"github.com/yourusername/prashnify-api/internal/middleware"
	"github.com/yourusername/prashnify-api/internal/pkg/clock"
	pgRepo "github.com/yourusername/prashnify-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/prashnify-api/internal/repository/redis"
	"github.com/yourusername/prashnify-api/internal/service"
	"github.com/yourusername/prashnify-api/internal/service/roommanager"
	ws "github.com/yourusername/prashnify-api/internal/websocket"
	"github.com/yourusername/prashnify-api/pkg/auth"
	"github.com/yourusername/prashnify-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(
		cfg.Database.PostgresConnectionString(),
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем Redis. Недоступный Redis не фатален: кеш деградирует
	// до локального уровня в памяти
	var cacheRepo repository.CacheRepository
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Redis недоступен, кеш работает только в памяти: %v", err)
	} else {
		log.Println("Successfully connected to Redis")
		repo, err := redisRepo.NewCacheRepo(redisClient)
		if err != nil {
			log.Printf("Failed to initialize CacheRepo: %v", err)
		} else {
			cacheRepo = repo
		}
	}

	// Инициализируем репозитории
	quizRepo := pgRepo.NewQuizRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	participantRepo := pgRepo.NewParticipantRepo(db)
	adminRepo := pgRepo.NewAdminRepo(db)

	// Сидируем администратора из конфигурации
	if err := adminRepo.Upsert(&entity.Admin{
		Username: cfg.Admin.Username,
		Password: entity.HashPassword(cfg.Admin.Password),
	}); err != nil {
		log.Printf("Failed to seed admin account: %v", err)
		os.Exit(1)
	}

	clk := clock.Real{}

	// Двухуровневый кеш и сервисы
	quizCache := service.NewQuizCache(
		cacheRepo,
		clk,
		time.Duration(cfg.Cache.QuizTTL)*time.Second,
		time.Duration(cfg.Cache.LeaderboardTTL)*time.Second,
	)
	quizService := service.NewQuizService(quizRepo, questionRepo, participantRepo, quizCache, clk)
	participantService := service.NewParticipantService(
		participantRepo, quizRepo, quizService, quizCache, clk, cfg.Quiz.MaxParticipants,
	)

	// JWT
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// WebSocket hub и контроллер комнат
	hub := ws.NewHub(ws.HubConfig{
		MaxConnectionsPerRoom: cfg.WebSocket.MaxConnectionsPerRoom,
		MaxAcceptsPerSecond:   cfg.WebSocket.MaxAcceptsPerSecond,
		SweepInterval:         time.Duration(cfg.WebSocket.SweepInterval) * time.Second,
		Client: ws.ClientConfig{
			HeartbeatInterval: time.Duration(cfg.WebSocket.HeartbeatInterval) * time.Second,
			HeartbeatTimeout:  time.Duration(cfg.WebSocket.HeartbeatTimeout) * time.Second,
			MaxMessageSize:    int64(cfg.WebSocket.MaxMessageSize),
			SendBuffer:        cfg.WebSocket.SendBuffer,
		},
	}, clk)

	controller := roommanager.NewController(&roommanager.Dependencies{
		QuizService:        quizService,
		ParticipantService: participantService,
		ParticipantRepo:    participantRepo,
		Hub:                hub,
		Clock:              clk,
		Config:             roommanager.DefaultConfig(),
	})

	// Обработчики
	authHandler := handler.NewAuthHandler(adminRepo, jwtService)
	quizHandler := handler.NewQuizHandler(quizService, participantService, controller)
	participantHandler := handler.NewParticipantHandler(participantService, controller)
	wsHandler := handler.NewWSHandler(quizService, controller, cfg.CORS.Origins)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	// HTTP сервер
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	allowAll := false
	for _, o := range cfg.CORS.Origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORS.Origins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Служебные маршруты
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": "prashnify-api", "version": "1.0.0", "status": "running"})
	})
	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		sqlDB, err := database.GetSQLDB(db)
		if err != nil || sqlDB.Ping() != nil {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     status,
			"websockets": hub.Stats(),
		})
	})

	// Публичное API
	api := router.Group("/api")
	{
		api.GET("/time-sync", handler.TimeSync(clk))

		api.POST("/admin/login", authHandler.Login)

		api.POST("/join", participantHandler.Join)
		api.POST("/submit-answer", participantHandler.SubmitAnswer)
		api.POST("/avatar/unique", participantHandler.CheckAvatarUnique)
		api.POST("/avatar/reroll", participantHandler.RerollAvatar)

		api.GET("/quiz/:code/verify", quizHandler.VerifyQuiz)
		api.GET("/quiz/:code/participants/public", participantHandler.GetPublicParticipants)
		api.GET("/quiz/:code/info", quizHandler.GetQuizInfo)
		api.GET("/quiz/:code/questions", quizHandler.GetQuizQuestions)
		api.GET("/quiz/:code/question/:index/stats", quizHandler.GetQuestionStats)
		api.GET("/quiz/:code/my-results/:participantId", quizHandler.GetMyResults)
		api.GET("/quiz/:code/final-results", quizHandler.GetFinalResults)
		api.GET("/quiz/:code/state", quizHandler.GetQuizState)
		api.GET("/leaderboard/:code", quizHandler.GetLeaderboard)
	}

	// Админское API
	admin := router.Group("/api/admin")
	admin.Use(authMiddleware.RequireAdmin())
	{
		admin.GET("/verify-token", authHandler.VerifyToken)
		admin.POST("/quiz", quizHandler.CreateQuiz)
		admin.GET("/quizzes", quizHandler.ListQuizzes)
		admin.GET("/quiz/:code", quizHandler.GetQuizWithQuestions)
		admin.PATCH("/quiz/:code/status", quizHandler.UpdateQuizStatus)
		admin.DELETE("/quiz/:code", quizHandler.DeleteQuiz)
		admin.GET("/quiz/:code/participants", quizHandler.GetQuizParticipants)
	}

	// WebSocket
	router.GET("/ws/:code", wsHandler.HandleConnection)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Сервер запущен на порту %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Ошибка сервера: %v", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Получен сигнал завершения, останавливаем сервер...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Ошибка при остановке сервера: %v", err)
	}

	if redisClient != nil {
		_ = redisClient.Close()
	}
	log.Println("Сервер остановлен")
}
