package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	STT      STTConfig
	Media    MediaConfig
	Alerts   AlertConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	MaxUploadBytes int64
	// TrustedProxies may set X-Forwarded-For / X-Real-IP. Empty trusts nobody.
	TrustedProxies []netip.Prefix
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// RedisConfig is shared by the result cache and the alert queue.
// An empty Addr disables both.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CacheConfig struct {
	TTL time.Duration
}

type STTConfig struct {
	Backend       string // "openai" or "local"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	LocalBaseURL  string // default: "http://localhost:8178"
}

type MediaConfig struct {
	FFmpegBinary string // empty: look up "ffmpeg" on PATH
	TempDir      string // empty: os.TempDir()
}

type AlertConfig struct {
	WebhookURL    string
	WebhookSecret string
}

type WorkerConfig struct {
	Concurrency int
}

const (
	BackendOpenAI = "openai"
	BackendLocal  = "local"
)

// Load reads configuration from the environment. A .env file in the working
// directory, when present, seeds variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", 25<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cacheTTL, err := getEnvInt("CACHE_TTL_SECONDS", 24*60*60)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL_SECONDS: %w", err)
	}

	concurrency, err := getEnvInt("WORKER_CONCURRENCY", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	proxies, err := parsePrefixes(getEnv("TRUSTED_PROXIES", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			MaxUploadBytes: int64(maxUpload),
			TrustedProxies: proxies,
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Cache: CacheConfig{
			TTL: time.Duration(cacheTTL) * time.Second,
		},
		STT: STTConfig{
			Backend:       strings.ToLower(getEnv("STT_BACKEND", BackendOpenAI)),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("STT_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("STT_OPENAI_MODEL", "whisper-1"),
			LocalBaseURL:  getEnv("STT_LOCAL_BASE_URL", "http://localhost:8178"),
		},
		Media: MediaConfig{
			FFmpegBinary: getEnv("FFMPEG_BINARY", ""),
			TempDir:      getEnv("TEMP_DIR", ""),
		},
		Alerts: AlertConfig{
			WebhookURL:    getEnv("ALERT_WEBHOOK_URL", ""),
			WebhookSecret: getEnv("ALERT_WEBHOOK_SECRET", ""),
		},
		Worker: WorkerConfig{
			Concurrency: concurrency,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	switch c.STT.Backend {
	case BackendOpenAI:
		if c.STT.OpenAIKey == "" && c.STT.OpenAIBaseURL == "" {
			return fmt.Errorf("missing required env vars: OPENAI_API_KEY")
		}
	case BackendLocal:
	default:
		return fmt.Errorf("unknown STT_BACKEND %q", c.STT.Backend)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// parsePrefixes reads a comma-separated list of CIDRs or bare addresses.
func parsePrefixes(v string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, field := range strings.Split(v, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if strings.Contains(field, "/") {
			p, err := netip.ParsePrefix(field)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(field)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
