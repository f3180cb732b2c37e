package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppName     string `json:"app_name"`
	ListenIP    string `json:"listen_ip"`
	ListenPort  int    `json:"listen_port"`
	SessionKey  string `json:"session_key"`
	DatabaseURL string `json:"database_url"`
	LogLevel    string `json:"log_level"`

	// SecureCookies marks the session cookie Secure and tells CSRF to expect TLS.
	SecureCookies  bool     `json:"secure_cookies"`
	CSRFEnabled    bool     `json:"csrf_enabled"`
	SignupCaptcha  bool     `json:"signup_captcha"`
	AllowedOrigins []string `json:"allowed_origins"`

	TokenTTL      time.Duration `json:"-"`
	TokenTTLHours int           `json:"token_ttl_hours"`

	// Requests per second and burst allowed per client IP on /api.
	APIRate  float64 `json:"api_rate"`
	APIBurst int     `json:"api_burst"`
}

func Default() Config {
	return Config{
		AppName:        "PayFlow",
		ListenIP:       "0.0.0.0",
		ListenPort:     8000,
		DatabaseURL:    "sqlite:///payflow.db",
		LogLevel:       "info",
		CSRFEnabled:    true,
		AllowedOrigins: []string{"*"},
		TokenTTLHours:  24,
		APIRate:        20,
		APIBurst:       40,
	}
}

// Load builds the configuration from defaults, the optional JSON file at path,
// a .env file in the working directory and finally the process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	applyEnv(&cfg)

	if cfg.SessionKey == "" || cfg.SessionKey == "CHANGE_ME_IN_PRODUCTION" {
		slog.Warn("No session key configured. Generating a random key. Sessions will be invalidated on restart.")
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err != nil {
			return cfg, err
		}
		cfg.SessionKey = hex.EncodeToString(randomKey)
	}

	cfg.DatabaseURL = normalizeDatabaseURL(cfg.DatabaseURL)
	cfg.TokenTTL = time.Duration(cfg.TokenTTLHours) * time.Hour

	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	cfg.AppName = getEnv("PAYFLOW_APP_NAME", cfg.AppName)
	cfg.ListenIP = getEnv("HOST", cfg.ListenIP)
	cfg.ListenPort = getEnvInt("PORT", cfg.ListenPort)
	cfg.SessionKey = getEnv("SECRET_KEY", cfg.SessionKey)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = getEnv("PAYFLOW_LOG_LEVEL", cfg.LogLevel)
	cfg.SecureCookies = getEnvBool("PAYFLOW_SECURE_COOKIES", cfg.SecureCookies)
	cfg.CSRFEnabled = getEnvBool("PAYFLOW_CSRF", cfg.CSRFEnabled)
	cfg.SignupCaptcha = getEnvBool("PAYFLOW_SIGNUP_CAPTCHA", cfg.SignupCaptcha)
	cfg.TokenTTLHours = getEnvInt("PAYFLOW_TOKEN_TTL_HOURS", cfg.TokenTTLHours)
	if v := os.Getenv("PAYFLOW_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("PAYFLOW_API_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.APIRate = f
		}
	}
	cfg.APIBurst = getEnvInt("PAYFLOW_API_BURST", cfg.APIBurst)
}

// normalizeDatabaseURL rewrites the legacy postgres:// scheme used by some hosts.
func normalizeDatabaseURL(u string) string {
	if strings.HasPrefix(u, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(u, "postgres://")
	}
	return u
}

// Addr is the listen address in host:port form.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenIP, c.ListenPort)
}

func (c Config) Validate() error {
	var errs []string

	if c.ListenPort < 1 || c.ListenPort > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.ListenPort))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, "database url cannot be empty")
	}
	if c.TokenTTLHours < 1 {
		errs = append(errs, fmt.Sprintf("invalid token ttl %dh: must be at least 1 hour", c.TokenTTLHours))
	}
	if c.APIRate <= 0 || c.APIBurst < 1 {
		errs = append(errs, "api rate and burst must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
