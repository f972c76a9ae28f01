// Package config loads the API configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the postgres connection URL.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

type Config struct {
	HTTP struct {
		Addr          string
		GinMode       string
		CORSOrigins   []string
		SecureCookies bool
	}
	Database DatabaseConfig
	JWT      struct {
		Secret     string
		AccessTTL  time.Duration
		RefreshTTL time.Duration
	}
	PermissionCacheTTL time.Duration
	Redis              struct {
		Addr     string
		Password string
		DB       int
	}
	Mail struct {
		Queue    string
		Host     string
		Port     int
		User     string
		Password string
		From     string
	}
	Pwned struct {
		Enabled bool
		URL     string
	}
	Log struct {
		Level  string
		Format string
	}
	AssociationExpiryCron string
	TokenPurgeCron        string
	Seed                  struct {
		SuperAdminEmail    string
		SuperAdminPassword string
	}
}

// Load reads envFile when it exists, then the environment. Variables already
// set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", "")
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":" + getEnv("PORT", "8080")
	}
	cfg.HTTP.GinMode = getEnv("GIN_MODE", "release")
	cfg.HTTP.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173"))
	cfg.HTTP.SecureCookies = getBool("COOKIE_SECURE", false)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnv("DB_NAME", "backoffice")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.JWT.Secret = getEnv("JWT_SECRET", "")
	cfg.JWT.AccessTTL = getDuration("JWT_ACCESS_TTL", 24*time.Hour)
	cfg.JWT.RefreshTTL = getDuration("JWT_REFRESH_TTL", 7*24*time.Hour)
	cfg.PermissionCacheTTL = getDuration("PERMISSION_CACHE_TTL", 5*time.Minute)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getInt("REDIS_DB", 0)

	cfg.Mail.Queue = getEnv("MAIL_QUEUE", "backoffice:mail")
	cfg.Mail.Host = getEnv("SMTP_HOST", "localhost")
	cfg.Mail.Port = getInt("SMTP_PORT", 1025)
	cfg.Mail.User = getEnv("SMTP_USER", "")
	cfg.Mail.Password = getEnv("SMTP_PASSWORD", "")
	cfg.Mail.From = getEnv("MAIL_FROM", "no-reply@backoffice.local")

	cfg.Pwned.Enabled = getBool("PWNED_CHECK_ENABLED", true)
	cfg.Pwned.URL = getEnv("PWNED_API_URL", "https://api.pwnedpasswords.com")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.AssociationExpiryCron = getEnv("ASSOCIATION_EXPIRY_CRON", "5 0 * * *")
	cfg.TokenPurgeCron = getEnv("TOKEN_PURGE_CRON", "30 3 * * *")

	cfg.Seed.SuperAdminEmail = getEnv("SEED_SUPERADMIN_EMAIL", "")
	cfg.Seed.SuperAdminPassword = getEnv("SEED_SUPERADMIN_PASSWORD", "")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if (c.Seed.SuperAdminEmail == "") != (c.Seed.SuperAdminPassword == "") {
		return fmt.Errorf("SEED_SUPERADMIN_EMAIL and SEED_SUPERADMIN_PASSWORD must be set together")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	i, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return def
	}
	return i
}

func getBool(key string, def bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
