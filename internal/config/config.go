package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName        string
	AppEnv         string
	AppPort        string
	DatabaseURL    string
	RedisURL       string
	NATSURL        string
	JWTSecret      string
	EventSubject   string
	ReportCacheTTL time.Duration
	StoreTimeout   time.Duration
	SubmitRateMax  int
	SubmitRateWin  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PEEREVAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "PeerEval API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("event.subject", "peereval.evaluation.submitted")
	v.SetDefault("report.cache_ttl", "5m")
	v.SetDefault("store.timeout", "2s")
	v.SetDefault("submit.rate_max", 10)
	v.SetDefault("submit.rate_window", "1m")

	ttl, err := time.ParseDuration(v.GetString("report.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid report cache ttl: %w", err)
	}

	storeTimeout, err := time.ParseDuration(v.GetString("store.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid store timeout: %w", err)
	}

	rateWindow, err := time.ParseDuration(v.GetString("submit.rate_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid submit rate window: %w", err)
	}

	cfg := Config{
		AppName:        v.GetString("app.name"),
		AppEnv:         v.GetString("app.env"),
		AppPort:        v.GetString("app.port"),
		DatabaseURL:    v.GetString("database.url"),
		RedisURL:       v.GetString("redis.url"),
		NATSURL:        v.GetString("nats.url"),
		JWTSecret:      v.GetString("jwt.secret"),
		EventSubject:   v.GetString("event.subject"),
		ReportCacheTTL: ttl,
		StoreTimeout:   storeTimeout,
		SubmitRateMax:  v.GetInt("submit.rate_max"),
		SubmitRateWin:  rateWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.SubmitRateMax <= 0 {
		cfg.SubmitRateMax = 10
	}

	return cfg, nil
}
