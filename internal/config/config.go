package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFlushThreshold = 5
	DefaultSessionTTL     = time.Hour
	DefaultSweepInterval  = 5 * time.Minute
	DefaultAuthPerHour    = 30
)

type Config struct {
	DatabaseURL     string
	RedisURL        string
	JWTSecret       string
	JWTExpiry       time.Duration
	ServerPort      string
	BehaviorLogPath string
	ModelURL        string
	Tracker         TrackerConfig
	RateLimit       RateLimitConfig
}

type TrackerConfig struct {
	FlushThreshold int           `yaml:"flush_threshold"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
}

type RateLimitConfig struct {
	AuthPerHour int `yaml:"auth_per_hour"`
}

// fileConfig is the optional YAML overlay named by CONFIG_FILE.
type fileConfig struct {
	Tracker   TrackerConfig   `yaml:"tracker"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

func Load() (*Config, error) {
	godotenv.Load()

	expiry, err := strconv.Atoi(getEnv("JWT_EXPIRY", "3600"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY: %w", err)
	}

	cfg := &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		JWTExpiry:       time.Duration(expiry) * time.Second,
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		BehaviorLogPath: getEnv("BEHAVIOR_LOG_PATH", "logs/behavior.jsonl"),
		ModelURL:        getEnv("MODEL_URL", "http://localhost:5001"),
		Tracker: TrackerConfig{
			FlushThreshold: DefaultFlushThreshold,
			SessionTTL:     DefaultSessionTTL,
			SweepInterval:  DefaultSweepInterval,
		},
		RateLimit: RateLimitConfig{AuthPerHour: DefaultAuthPerHour},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyFile overlays non-zero values from a YAML file onto cfg.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if fc.Tracker.FlushThreshold > 0 {
		c.Tracker.FlushThreshold = fc.Tracker.FlushThreshold
	}
	if fc.Tracker.SessionTTL > 0 {
		c.Tracker.SessionTTL = fc.Tracker.SessionTTL
	}
	if fc.Tracker.SweepInterval > 0 {
		c.Tracker.SweepInterval = fc.Tracker.SweepInterval
	}
	if fc.RateLimit.AuthPerHour > 0 {
		c.RateLimit.AuthPerHour = fc.RateLimit.AuthPerHour
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
