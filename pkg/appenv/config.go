package appenv

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DriverSSE, DriverWebSocket and DriverPusher are the recognized values for
// the REALTIME_DRIVERS env var.
const (
	DriverSSE       = "sse"
	DriverWebSocket = "websocket"
	DriverPusher    = "pusher"
)

// PusherConfig holds credentials for the external push service.
type PusherConfig struct {
	AppID   string
	Key     string
	Secret  string
	Cluster string
}

// Valid reports whether all required Pusher credentials are present.
func (p PusherConfig) Valid() bool {
	return p.AppID != "" && p.Key != "" && p.Secret != ""
}

// Config is the immutable runtime configuration snapshot, read once at process
// start. Components receive it (or slices of it) by value and must not expect
// changes during the process lifetime.
type Config struct {
	DatabaseURL  string
	JWTSecret    string
	RedisAddr    string
	DirectoryURL string

	// EnabledDrivers is the subset of {sse, websocket, pusher} activated via
	// REALTIME_DRIVERS (comma separated). Unknown names are ignored; pusher is
	// silently dropped when its credentials are incomplete.
	EnabledDrivers []string
	Pusher         PusherConfig

	SSEHeartbeatInterval time.Duration
	WSPingInterval       time.Duration
	WSPongTimeout        time.Duration

	// MaxPageSize bounds perPage on notification listings.
	MaxPageSize int
}

// DriverEnabled reports whether the named realtime driver was activated.
func (c *Config) DriverEnabled(name string) bool {
	for _, d := range c.EnabledDrivers {
		if d == name {
			return true
		}
	}
	return false
}

// LoadConfig reads the configuration snapshot from the environment.
// DATABASE_URL and JWT_SECRET are mandatory; everything else has defaults
// suitable for local development.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		DirectoryURL:         os.Getenv("DIRECTORY_URL"),
		SSEHeartbeatInterval: envDuration("SSE_HEARTBEAT_INTERVAL", 15*time.Second),
		WSPingInterval:       envDuration("WS_PING_INTERVAL", 25*time.Second),
		WSPongTimeout:        envDuration("WS_PONG_TIMEOUT", 60*time.Second),
		MaxPageSize:          envInt("MAX_PAGE_SIZE", 100),
		Pusher: PusherConfig{
			AppID:   os.Getenv("PUSHER_APP_ID"),
			Key:     os.Getenv("PUSHER_KEY"),
			Secret:  os.Getenv("PUSHER_SECRET"),
			Cluster: os.Getenv("PUSHER_CLUSTER"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be set and at least 32 characters")
	}
	if cfg.MaxPageSize < 1 {
		return nil, fmt.Errorf("MAX_PAGE_SIZE must be positive")
	}

	raw := os.Getenv("REALTIME_DRIVERS")
	if raw == "" {
		raw = DriverSSE + "," + DriverWebSocket
	}
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		switch name {
		case DriverSSE, DriverWebSocket:
			cfg.EnabledDrivers = append(cfg.EnabledDrivers, name)
		case DriverPusher:
			if cfg.Pusher.Valid() {
				cfg.EnabledDrivers = append(cfg.EnabledDrivers, name)
			}
		}
	}

	return cfg, nil
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
