// utils/config.go
package utils

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"pong-arena/services"

	"github.com/joho/godotenv"
)

// Config is everything the service reads from the environment.
type Config struct {
	Port           string
	DatabaseURL    string
	ServiceToken   string
	AllowedOrigins []string

	TickRate     int
	ScoreLimit   int
	ChallengeTTL time.Duration
	Countdown    time.Duration
	ServeDelay   time.Duration

	SweepEvery time.Duration
	GaugeEvery time.Duration

	R2 R2Config
}

// LoadConfig reads .env when present, then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := &Config{
		Port:         getenv("PORT", "5200"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		ServiceToken: os.Getenv("GAME_SERVICE_TOKEN"),
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.ServiceToken == "" {
		return nil, fmt.Errorf("GAME_SERVICE_TOKEN environment variable not set")
	}

	origins := getenv("ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	def := services.DefaultEngineConfig()
	var err error
	if cfg.TickRate, err = intEnv("TICK_RATE", def.TickRate); err != nil {
		return nil, err
	}
	if cfg.ScoreLimit, err = intEnv("SCORE_LIMIT", def.ScoreLimit); err != nil {
		return nil, err
	}
	if cfg.ChallengeTTL, err = durationEnv("CHALLENGE_TTL", def.ChallengeTTL); err != nil {
		return nil, err
	}
	if cfg.Countdown, err = durationEnv("COUNTDOWN", def.Countdown); err != nil {
		return nil, err
	}
	if cfg.ServeDelay, err = durationEnv("SERVE_DELAY", def.ServeDelay); err != nil {
		return nil, err
	}
	if cfg.SweepEvery, err = durationEnv("CHALLENGE_SWEEP_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.GaugeEvery, err = durationEnv("GAUGE_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EngineConfig overlays the tunables read from the environment on the
// engine defaults.
func (c *Config) EngineConfig() services.EngineConfig {
	ec := services.DefaultEngineConfig()
	ec.TickRate = c.TickRate
	ec.ScoreLimit = c.ScoreLimit
	ec.ChallengeTTL = c.ChallengeTTL
	ec.Countdown = c.Countdown
	ec.ServeDelay = c.ServeDelay
	return ec
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}
