// Package config reads server settings from the environment. A .env file in the
// working directory, when present, is loaded first and never overrides variables that
// are already set.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/soaringjerry/gradtrack/internal/services"
	"github.com/soaringjerry/gradtrack/internal/tabsync"
	"github.com/soaringjerry/gradtrack/internal/utils"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	Addr           string
	Backend        string
	SQLitePath     string
	MigrationsDir  string
	RedisURL       string
	RedisPrefix    string
	JWTSecret      string
	SessionKey     string
	SecureCookies  bool
	EmailDomain    string
	PollInterval   time.Duration
	LegacyDump     string
	LoginLimit     int
	LoginWindow    time.Duration
	AllowedOrigins []string
	TrustedProxies []string
}

// Load reads the .env file named by envFile (ignored when missing) and then the
// GRADTRACK_* variables.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("config: could not read %s: %v", envFile, err)
		}
	}
	c := &Config{
		Addr:          utils.SafeEnv("GRADTRACK_ADDR", ":8080"),
		Backend:       strings.ToLower(utils.SafeEnv("GRADTRACK_BACKEND", BackendSQLite)),
		SQLitePath:    utils.SafeEnv("GRADTRACK_SQLITE_PATH", "gradtrack.db"),
		MigrationsDir: utils.SafeEnv("GRADTRACK_MIGRATIONS_DIR", "migrations"),
		RedisURL:      os.Getenv("GRADTRACK_REDIS_ADDR"),
		RedisPrefix:   utils.SafeEnv("GRADTRACK_REDIS_PREFIX", "gradtrack"),
		JWTSecret:     os.Getenv("GRADTRACK_JWT_SECRET"),
		SessionKey:    os.Getenv("GRADTRACK_SESSION_KEY"),
		SecureCookies: utils.SafeEnv("GRADTRACK_SECURE_COOKIES", "false") == "true",
		EmailDomain:   utils.SafeEnv("GRADTRACK_EMAIL_DOMAIN", services.DefaultInstitutionalDomain),
		// Notifications can be dropped under load; the poll catches what they miss.
		// Zero disables it.
		PollInterval: utils.SafeEnvDuration("GRADTRACK_POLL_INTERVAL", tabsync.DefaultPollInterval),
		LegacyDump:   os.Getenv("GRADTRACK_LEGACY_DUMP"),
		LoginLimit:   utils.SafeEnvInt("GRADTRACK_LOGIN_LIMIT", 10),
		LoginWindow:  utils.SafeEnvDuration("GRADTRACK_LOGIN_WINDOW", time.Minute),
	}
	c.AllowedOrigins = envList("GRADTRACK_ALLOWED_ORIGINS")
	c.TrustedProxies = envList("GRADTRACK_TRUSTED_PROXIES")
	if !strings.HasPrefix(c.EmailDomain, "@") {
		c.EmailDomain = "@" + c.EmailDomain
	}
	return c, c.Validate()
}

func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate checks settings that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config: GRADTRACK_BACKEND=redis requires GRADTRACK_REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.JWTSecret == "" {
		return errors.New("config: GRADTRACK_JWT_SECRET is required")
	}
	if c.SessionKey == "" {
		c.SessionKey = c.JWTSecret
		log.Printf("config: GRADTRACK_SESSION_KEY not set, reusing the JWT secret")
	}
	if c.LoginWindow <= 0 {
		c.LoginWindow = time.Minute
	}
	return nil
}
