package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"vision-batch/internal/domain/entity"
)

type Config struct {
	ModelPath       string
	ModelConfigPath string
	ClassesPath     string
	InputFolder     string
	Recursive       bool

	ConfidenceThreshold float32
	NMSThreshold        float32
	InputWidth          int
	InputHeight         int
	TargetClasses       []string

	AnnotatedDir string
	ResultsDB    string
	WSAddr       string

	TelegramToken  string
	TelegramChatID int64

	LogLevel        string
	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	defaults := entity.DefaultDetectionConfig()

	cfg := &Config{
		ModelPath:       os.Getenv("MODEL_PATH"),
		ModelConfigPath: os.Getenv("MODEL_CONFIG_PATH"),
		ClassesPath:     os.Getenv("CLASSES_PATH"),
		InputFolder:     os.Getenv("INPUT_FOLDER"),
		Recursive:       getEnvAsBool("RECURSIVE", true),

		ConfidenceThreshold: getEnvAsFloat32("CONFIDENCE_THRESHOLD", defaults.ConfidenceThreshold),
		NMSThreshold:        getEnvAsFloat32("NMS_THRESHOLD", defaults.NMSThreshold),
		InputWidth:          getEnvAsInt("INPUT_WIDTH", defaults.InputWidth),
		InputHeight:         getEnvAsInt("INPUT_HEIGHT", defaults.InputHeight),
		TargetClasses:       SplitList(os.Getenv("TARGET_CLASSES")),

		AnnotatedDir: os.Getenv("ANNOTATED_DIR"),
		ResultsDB:    os.Getenv("RESULTS_DB"),
		WSAddr:       os.Getenv("WS_ADDR"),

		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: getEnvAsInt64("TELEGRAM_CHAT_ID", 0),

		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
	}

	if err := cfg.DetectionConfig().Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// DetectionConfig собирает параметры детекции
func (c *Config) DetectionConfig() entity.DetectionConfig {
	return entity.DetectionConfig{
		ConfidenceThreshold: c.ConfidenceThreshold,
		NMSThreshold:        c.NMSThreshold,
		InputWidth:          c.InputWidth,
		InputHeight:         c.InputHeight,
		TargetClasses:       append([]string(nil), c.TargetClasses...),
	}
}

// TelegramEnabled сообщает, заданы ли токен и чат для уведомлений
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// SplitList разбирает список через запятую, пустые элементы отбрасываются
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
