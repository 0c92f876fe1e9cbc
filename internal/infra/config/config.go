package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию шлюза ленты.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Backend struct {
		BaseURL string        `envconfig:"ANIPASS_API_URL"`
		Timeout time.Duration `envconfig:"ANIPASS_API_TIMEOUT" default:"10s"`
	} `envconfig:""`

	Images struct {
		BaseURL string `envconfig:"ANIPASS_IMAGE_URL"`
	} `envconfig:""`

	Feed struct {
		PageSize int           `envconfig:"FEED_PAGE_SIZE" default:"8"`
		CacheTTL time.Duration `envconfig:"FEED_CACHE_TTL" default:"5m"`
	} `envconfig:""`

	Sessions struct {
		IdleTTL time.Duration `envconfig:"SESSION_IDLE_TTL" default:"30m"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
