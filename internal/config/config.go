package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig PostgreSQL 连接配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN 返回 lib/pq 连接串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config 监控服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig

	// 异常检测模型配置
	Model struct {
		BundlePath          string  // 模型文件路径（JSON bundle）
		Contamination       float64 // 训练污染率
		Estimators          int     // 隔离树数量
		Seed                int64   // 随机种子
		RetrainInterval     int     // 自动重训间隔（秒），0 表示禁用
		TrainingWindowHours int     // 重训取数窗口（小时）
	}

	// 通知配置
	Notifier struct {
		Channel        string // Redis 发布频道
		CacheKeyPrefix string // 最新报警缓存键前缀，如 "incubadora:"
		CacheSuffix    string // 最新报警缓存键后缀，如 ":ultima_alerta"
		CacheTTL       int    // 缓存 TTL（秒）
		QueueSize      int    // 任务队列长度
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "incubadoras")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Model.BundlePath = getEnv("MODEL_BUNDLE_PATH", "ml_models/anomaly_detector.json")
	cfg.Model.Contamination = getEnvFloat("MODEL_CONTAMINATION", 0.10)
	cfg.Model.Estimators = getEnvInt("MODEL_ESTIMATORS", 100)
	cfg.Model.Seed = int64(getEnvInt("MODEL_SEED", 42))
	cfg.Model.RetrainInterval = getEnvInt("MODEL_RETRAIN_INTERVAL", 21600)        // 6小时
	cfg.Model.TrainingWindowHours = getEnvInt("MODEL_TRAINING_WINDOW_HOURS", 168) // 7天

	cfg.Notifier.Channel = getEnv("NOTIFIER_CHANNEL", "alertas:notificaciones")
	cfg.Notifier.CacheKeyPrefix = getEnv("NOTIFIER_CACHE_PREFIX", "incubadora:")
	cfg.Notifier.CacheSuffix = ":ultima_alerta"
	cfg.Notifier.CacheTTL = getEnvInt("NOTIFIER_CACHE_TTL", 300)
	cfg.Notifier.QueueSize = getEnvInt("NOTIFIER_QUEUE_SIZE", 100)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
