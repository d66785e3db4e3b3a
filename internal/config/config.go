package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mr1hm/safetrek/internal/logging"
)

type Config struct {
	Server     ServerConfig
	GRPC       GRPCConfig
	Journal    JournalConfig
	DB         DatabaseConfig
	Logging    LoggingConfig
	Simulation SimulationConfig
	Emergency  EmergencyConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	RateLimitRPS  float64
	AllowedOrigin string
}

type GRPCConfig struct {
	Enabled bool
	Port    int
}

type JournalConfig struct {
	Workers    int
	BufferSize int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type SimulationConfig struct {
	Seed             uint64
	Tourists         int
	Teams            int
	PositionInterval time.Duration
	DriftInterval    time.Duration
	StreamInterval   time.Duration
	ReconnectDelay   time.Duration
}

type EmergencyConfig struct {
	Tick              time.Duration
	ConfirmationDelay time.Duration
	DemoOpenDelay     time.Duration
	ContactDelay      time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:          getEnv("SERVER_HOST", "localhost"),
			Port:          getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS:  getEnvFloat("RATE_LIMIT_RPS", 20),
			AllowedOrigin: getEnv("CORS_ORIGIN", "*"),
		},
		GRPC: GRPCConfig{
			Enabled: getEnvBool("GRPC_ENABLED", true),
			Port:    getEnvInt("GRPC_PORT", 50051),
		},
		Journal: JournalConfig{
			Workers:    getEnvInt("JOURNAL_WORKERS", 1),
			BufferSize: getEnvInt("JOURNAL_BUFFER_SIZE", 64),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", ":memory:"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Simulation: SimulationConfig{
			Seed:             getEnvUint("SIM_SEED", 0),
			Tourists:         getEnvInt("SIM_TOURISTS", 12),
			Teams:            getEnvInt("SIM_TEAMS", 8),
			PositionInterval: getEnvDuration("SIM_POSITION_INTERVAL", 10*time.Second),
			DriftInterval:    getEnvDuration("SIM_DRIFT_INTERVAL", 30*time.Second),
			StreamInterval:   getEnvDuration("SIM_STREAM_INTERVAL", 5*time.Second),
			ReconnectDelay:   getEnvDuration("RECONNECT_DELAY", 5*time.Second),
		},
		Emergency: EmergencyConfig{
			Tick:              getEnvDuration("EMERGENCY_TICK", time.Second),
			ConfirmationDelay: getEnvDuration("CONFIRMATION_DELAY", 2*time.Second),
			DemoOpenDelay:     getEnvDuration("DEMO_OPEN_DELAY", 2*time.Second),
			ContactDelay:      getEnvDuration("CONTACT_DELAY", 3*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.GRPC.Enabled && (c.GRPC.Port < 1 || c.GRPC.Port > 65535) {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit must be positive, got %v", c.Server.RateLimitRPS)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Journal.Workers < 1 {
		return fmt.Errorf("journal needs at least 1 worker")
	}
	if c.Journal.BufferSize < 1 {
		return fmt.Errorf("journal buffer size must be at least 1")
	}

	if c.Simulation.Tourists < 1 {
		return fmt.Errorf("simulation needs at least 1 tourist")
	}
	if c.Simulation.Teams < 1 {
		return fmt.Errorf("simulation needs at least 1 team")
	}

	intervals := map[string]time.Duration{
		"SIM_POSITION_INTERVAL": c.Simulation.PositionInterval,
		"SIM_DRIFT_INTERVAL":    c.Simulation.DriftInterval,
		"SIM_STREAM_INTERVAL":   c.Simulation.StreamInterval,
		"RECONNECT_DELAY":       c.Simulation.ReconnectDelay,
		"EMERGENCY_TICK":        c.Emergency.Tick,
		"CONFIRMATION_DELAY":    c.Emergency.ConfirmationDelay,
		"DEMO_OPEN_DELAY":       c.Emergency.DemoOpenDelay,
		"CONTACT_DELAY":         c.Emergency.ContactDelay,
	}
	for name, d := range intervals {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvUint(key string, fallback uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if u, err := strconv.ParseUint(val, 10, 64); err == nil {
			return u
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
