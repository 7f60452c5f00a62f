package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Admin     AdminConfig
	CORS      CORSConfig
	WebSocket WebSocketConfig
	Cache     CacheConfig
	Quiz      QuizConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	// MaxOpenConns / MaxIdleConns: размеры пула соединений.
	// По умолчанию 200/20.
	MaxOpenConns int `mapstructure:"max_open_conns"`
	MaxIdleConns int `mapstructure:"max_idle_conns"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	// Для 'single', если не пуст, используется первый адрес из списка.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'.
	// Используется, если Mode="single" и Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: Максимальное количество попыток переподключения (-1 - бесконечно).
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff: Минимальный интервал между попытками (в миллисекундах).
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`

	// MaxRetryBackoff: Максимальный интервал между попытками (в миллисекундах).
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// JWTConfig содержит настройки JWT
type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpirationHrs int    `mapstructure:"expirationHrs"`
}

// AdminConfig содержит учетные данные администратора, сидируемые при старте
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CORSConfig содержит список разрешенных origin. "*" разрешает все
// (в этом случае credentials отключаются).
type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

// WebSocketConfig содержит настройки WebSocket-подсистемы
type WebSocketConfig struct {
	// HeartbeatInterval: интервал серверных ping-кадров в секундах. По умолчанию 15.
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`

	// HeartbeatTimeout: сколько секунд ждать активности до закрытия. По умолчанию 25.
	HeartbeatTimeout int `mapstructure:"heartbeat_timeout"`

	// MaxConnectionsPerRoom: жесткий потолок сокетов в комнате. По умолчанию 250.
	MaxConnectionsPerRoom int `mapstructure:"max_connections_per_room"`

	// MaxAcceptsPerSecond: лимит новых подключений в комнату за секунду. По умолчанию 10.
	MaxAcceptsPerSecond int `mapstructure:"max_accepts_per_second"`

	// SweepInterval: период фоновой очистки мертвых сокетов в секундах. По умолчанию 30.
	SweepInterval int `mapstructure:"sweep_interval"`

	// MaxMessageSize: предел входящего кадра в байтах. По умолчанию 4096.
	MaxMessageSize int `mapstructure:"max_message_size"`

	// SendBuffer: размер исходящего буфера клиента. По умолчанию 64.
	SendBuffer int `mapstructure:"send_buffer"`
}

// CacheConfig содержит TTL кеша в секундах
type CacheConfig struct {
	// QuizTTL: TTL для quiz:{code} и questions:{code}. По умолчанию 30.
	QuizTTL int `mapstructure:"quiz_ttl"`

	// LeaderboardTTL: TTL для leaderboard:{code}. По умолчанию 5.
	LeaderboardTTL int `mapstructure:"leaderboard_ttl"`
}

// QuizConfig содержит игровые лимиты
type QuizConfig struct {
	// MaxParticipants: предел участников комнаты. По умолчанию 1000.
	MaxParticipants int `mapstructure:"max_participants"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Значения по умолчанию
	vip.SetDefault("server.port", "8000")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.max_open_conns", 200)
	vip.SetDefault("database.max_idle_conns", 20)
	vip.SetDefault("jwt.expirationHrs", 24)
	vip.SetDefault("cors.origins", []string{"*"})
	vip.SetDefault("websocket.heartbeat_interval", 15)
	vip.SetDefault("websocket.heartbeat_timeout", 25)
	vip.SetDefault("websocket.max_connections_per_room", 250)
	vip.SetDefault("websocket.max_accepts_per_second", 10)
	vip.SetDefault("websocket.sweep_interval", 30)
	vip.SetDefault("websocket.max_message_size", 4096)
	vip.SetDefault("websocket.send_buffer", 64)
	vip.SetDefault("cache.quiz_ttl", 30)
	vip.SetDefault("cache.leaderboard_ttl", 5)
	vip.SetDefault("quiz.max_participants", 1000)

	// 2. Привязываем переменные окружения ЯВНО
	// Привязка для секции Database
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	vip.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")

	// Привязка для секции Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS") // Для массива строк
	vip.BindEnv("redis.addr", "REDIS_ADDR")   // Для одиночной строки
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Привязка для секции JWT
	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.expirationHrs", "JWT_EXPIRATIONHRS")

	// Привязка для секции Admin
	vip.BindEnv("admin.username", "ADMIN_USERNAME")
	vip.BindEnv("admin.password", "ADMIN_PASSWORD")

	// Привязка для CORS и Server
	vip.BindEnv("cors.origins", "CORS_ORIGINS")
	vip.BindEnv("server.port", "SERVER_PORT")

	// Привязка игровых лимитов
	vip.BindEnv("quiz.max_participants", "QUIZ_MAX_PARTICIPANTS")
	vip.BindEnv("websocket.max_connections_per_room", "WEBSOCKET_MAX_CONNECTIONS_PER_ROOM")

	// 3. Устанавливаем путь к файлу конфигурации
	if configPath != "" {
		vip.SetConfigFile(configPath)
		// 4. Пытаемся прочитать файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 5. Анмаршалим конфигурацию (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Логирование конфигурации (только в debug режиме)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Port: %s", cfg.Database.Port)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("JWT Secret Set: %t", cfg.JWT.Secret != "")
		log.Printf("JWT Expiration Hours: %d", cfg.JWT.ExpirationHrs)
		log.Printf("Admin Username: %s", cfg.Admin.Username)
		log.Printf("CORS Origins: %v", cfg.CORS.Origins)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	// 7. Проверка обязательных параметров
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required in config (check JWT_SECRET env var)")
	}
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		return nil, fmt.Errorf("admin credentials are required in config (check ADMIN_USERNAME, ADMIN_PASSWORD env vars)")
	}
	if os.Getenv("GIN_MODE") == "release" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("database password is required in production mode (check DATABASE_PASSWORD env var)")
	}

	return &cfg, nil
}
