// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"wa-insights-service/internal/pkg/jwt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type AppConfig struct {
	// Server
	HTTPAddr            string   `validate:"required"`
	Env                 string   `validate:"oneof=development production test"`
	LogLevel            string   `validate:"oneof=debug info warn error"`
	WebhookMaxBodyBytes int64    `validate:"gt=0"`
	CORSAllowedOrigins  []string `validate:"dive,required"`

	// Storage
	DatabaseURL string `validate:"required"`
	DBMaxConns  int32  `validate:"gte=1"`
	DBMinConns  int32  `validate:"gte=0,ltefield=DBMaxConns"`
	RedisAddr   string
	RedisPass   string
	RedisDB     int `validate:"gte=0"`

	// Messaging
	AMQPURL      string
	AMQPExchange string `validate:"required_with=AMQPURL"`

	// Classifier
	LLMProvider    string `validate:"oneof=openai gemini"`
	LLMAPIKey      string `validate:"required"`
	LLMBaseURL     string `validate:"omitempty,url"`
	LLMModel       string
	LLMTemperature float32       `validate:"gte=0,lte=2"`
	LLMTimeout     time.Duration `validate:"gt=0"`

	// Pipeline
	SessionWindow       time.Duration `validate:"gt=0"`
	SummaryMessageLimit int           `validate:"gte=1,lte=100"`

	// Segmentation
	SegmentationEnabled     bool
	SegmentationCron        string        `validate:"required_if=SegmentationEnabled true"`
	SegmentationBatchSize   int           `validate:"gte=1"`
	SegmentationInterval    time.Duration `validate:"gt=0"`
	SegmentationStaleAfter  time.Duration `validate:"gt=0"`
	SegmentationMinMessages int           `validate:"gte=1"`

	// JWT
	JWT jwt.Config
}

var defaults = map[string]any{
	"HTTP_ADDR":              ":8080",
	"APP_ENV":                "production",
	"LOG_LEVEL":              "info",
	"WEBHOOK_MAX_BODY_BYTES": 1 << 20,
	"CORS_ALLOWED_ORIGINS":   "*",

	"DB_MAX_CONNS": 10,
	"DB_MIN_CONNS": 2,
	"REDIS_DB":     0,

	"AMQP_EXCHANGE": "wa-insights.events",

	"LLM_PROVIDER":    "openai",
	"LLM_TEMPERATURE": 0.2,
	"LLM_TIMEOUT":     "30s",

	"SESSION_WINDOW":        "30m",
	"SUMMARY_MESSAGE_LIMIT": 100,

	"SEGMENTATION_ENABLED":      true,
	"SEGMENTATION_CRON":         "0 */6 * * *",
	"SEGMENTATION_BATCH_SIZE":   50,
	"SEGMENTATION_INTERVAL":     "1s",
	"SEGMENTATION_STALE_AFTER":  "168h",
	"SEGMENTATION_MIN_MESSAGES": 3,
}

// Load reads defaults, an optional config.yaml and the environment, then validates the result.
func Load() (AppConfig, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (AppConfig, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return AppConfig{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := AppConfig{
		HTTPAddr:            v.GetString("HTTP_ADDR"),
		Env:                 strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:            strings.ToLower(v.GetString("LOG_LEVEL")),
		WebhookMaxBodyBytes: v.GetInt64("WEBHOOK_MAX_BODY_BYTES"),
		CORSAllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		DatabaseURL: v.GetString("DATABASE_URL"),
		DBMaxConns:  v.GetInt32("DB_MAX_CONNS"),
		DBMinConns:  v.GetInt32("DB_MIN_CONNS"),
		RedisAddr:   v.GetString("REDIS_ADDR"),
		RedisPass:   v.GetString("REDIS_PASS"),
		RedisDB:     v.GetInt("REDIS_DB"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),

		LLMProvider:    strings.ToLower(v.GetString("LLM_PROVIDER")),
		LLMAPIKey:      v.GetString("LLM_API_KEY"),
		LLMBaseURL:     v.GetString("LLM_BASE_URL"),
		LLMModel:       v.GetString("LLM_MODEL"),
		LLMTemperature: float32(v.GetFloat64("LLM_TEMPERATURE")),
		LLMTimeout:     v.GetDuration("LLM_TIMEOUT"),

		SessionWindow:       v.GetDuration("SESSION_WINDOW"),
		SummaryMessageLimit: v.GetInt("SUMMARY_MESSAGE_LIMIT"),

		SegmentationEnabled:     v.GetBool("SEGMENTATION_ENABLED"),
		SegmentationCron:        v.GetString("SEGMENTATION_CRON"),
		SegmentationBatchSize:   v.GetInt("SEGMENTATION_BATCH_SIZE"),
		SegmentationInterval:    v.GetDuration("SEGMENTATION_INTERVAL"),
		SegmentationStaleAfter:  v.GetDuration("SEGMENTATION_STALE_AFTER"),
		SegmentationMinMessages: v.GetInt("SEGMENTATION_MIN_MESSAGES"),

		JWT: jwt.Config{
			PubPath:  v.GetString("JWT_PUBLIC_KEY_PATH"),
			Issuer:   v.GetString("JWT_ISSUER"),
			Audience: v.GetString("JWT_AUDIENCE"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
