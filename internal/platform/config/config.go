package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName         string
	HTTPPort            string
	PostgresDSN         string
	VoteLimitMax        int
	PublishTimeout      time.Duration
	SchedulerSweep      time.Duration
	EnablePhaseConsumer bool
	EnableScheduleSweep bool
}

func Load() (Config, error) {
	// Missing .env is fine; environment variables win either way.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "ballotcore"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		ServiceName:         service,
		HTTPPort:            port,
		PostgresDSN:         os.Getenv("POSTGRES_DSN"),
		VoteLimitMax:        envInt("VOTE_LIMIT_MAX", 3),
		PublishTimeout:      envDuration("PUBLISH_TIMEOUT", 5*time.Second),
		SchedulerSweep:      envDuration("SCHEDULER_SWEEP_INTERVAL", 30*time.Second),
		EnablePhaseConsumer: envBool("ENABLE_PHASE_CONSUMER", true),
		EnableScheduleSweep: envBool("ENABLE_SCHEDULE_SWEEP", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
