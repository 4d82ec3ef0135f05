package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/hub"
)

// 存储后端
const (
	BackendFile  = "file"
	BackendDB    = "db"
	BackendRedis = "redis"
)

// Config 结构体用于存储从环境变量或文件加载的配置
type Config struct {
	ServerPort string
	AppEnv     string // development/production
	LogLevel   string
	DataDir    string

	HistoryBackend string // file 或 db
	ChatBackend    string // file 或 redis

	DBDriver   string
	DBPath     string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	LockPolicy         hub.LockPolicy
	RateLimitMax       int
	RateLimitWindow    time.Duration
	CheckpointSchedule string
	CORSAllowedOrigin  string
}

// RedisEnabled 表示是否配置了 Redis，限流、Redis 聊天日志和检查点任务都依赖它
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// UploadsDir 文档内容目录
func (c *Config) UploadsDir() string { return filepath.Join(c.DataDir, "uploads") }

// HistoryDir 文档历史目录
func (c *Config) HistoryDir() string { return filepath.Join(c.DataDir, "historial", "files") }

// ChatLogPath 聊天日志文件
func (c *Config) ChatLogPath() string { return filepath.Join(c.DataDir, "chat", "chat.json") }

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// LoadConfig 从环境变量加载配置
func LoadConfig() (*Config, error) {
	// 优先加载 .env 文件 (如果存在)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         envOr("SERVER_PORT", "5001"),
		AppEnv:             envOr("APP_ENV", "development"),
		LogLevel:           envOr("LOG_LEVEL", "info"),
		DataDir:            envOr("DATA_DIR", "./data"),
		HistoryBackend:     envOr("HISTORY_BACKEND", BackendFile),
		ChatBackend:        envOr("CHAT_BACKEND", BackendFile),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBUser:             os.Getenv("DB_USER"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		DBHost:             os.Getenv("DB_HOST"),
		DBPort:             os.Getenv("DB_PORT"),
		DBName:             os.Getenv("DB_NAME"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:          envOr("REDIS_KEY_PREFIX", "ce:"),
		CheckpointSchedule: envOr("CHECKPOINT_SCHEDULE", "@every 5m"),
		CORSAllowedOrigin:  envOr("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
		RateLimitMax:       100,
		RateLimitWindow:    time.Second,
	}
	cfg.DBPath = envOr("DB_PATH", filepath.Join(cfg.DataDir, "editor.db"))

	if s := os.Getenv("REDIS_DB"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", s, err)
		}
		cfg.RedisDB = n
	}
	if s := os.Getenv("RATE_LIMIT_MAX"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_MAX %q", s)
		}
		cfg.RateLimitMax = n
	}
	if s := os.Getenv("RATE_LIMIT_WINDOW"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW %q", s)
		}
		cfg.RateLimitWindow = d
	}

	policy, err := hub.ParseLockPolicy(os.Getenv("EDITOR_LOCK_POLICY"))
	if err != nil {
		return nil, err
	}
	cfg.LockPolicy = policy

	switch cfg.HistoryBackend {
	case BackendFile, BackendDB:
	default:
		return nil, fmt.Errorf("unsupported HISTORY_BACKEND %q", cfg.HistoryBackend)
	}
	switch cfg.ChatBackend {
	case BackendFile:
	case BackendRedis:
		if !cfg.RedisEnabled() {
			return nil, fmt.Errorf("CHAT_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return nil, fmt.Errorf("unsupported CHAT_BACKEND %q", cfg.ChatBackend)
	}
	switch cfg.DBDriver {
	case "sqlite", "mysql":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	// 验证日志级别
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}
