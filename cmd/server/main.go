package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soaringjerry/gradtrack/internal/api"
	"github.com/soaringjerry/gradtrack/internal/config"
	dbstore "github.com/soaringjerry/gradtrack/internal/db"
	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/middleware"
	"github.com/soaringjerry/gradtrack/internal/session"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		redisClient, err = dbstore.OpenRedis(pingCtx, cfg.RedisURL)
		cancel()
		if err != nil {
			if cfg.Backend == config.BackendRedis {
				log.Fatalf("redis: %v", err)
			}
			log.Printf("redis unavailable, login rate limiting disabled: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	backend, notifier, closer, err := openBackend(cfg, redisClient)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Printf("warning: failed to close storage: %v", err)
		}
	}()
	shared := kv.NewShared(backend, notifier)

	if err := MigrateIfNeeded(ctx, cfg.LegacyDump, shared); err != nil {
		log.Fatalf("legacy import: %v", err)
	}

	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	router := api.NewRouter(api.Options{
		Store:        shared,
		Notifier:     notifier,
		Cookies:      session.NewCookieStore([]byte(cfg.SessionKey), cfg.SecureCookies),
		JWTSecret:    []byte(cfg.JWTSecret),
		EmailDomain:  cfg.EmailDomain,
		PollInterval: cfg.PollInterval,
		Limiter:      middleware.NewRedisLimiter(redisClient, cfg.RedisPrefix),
		LoginLimit:   cfg.LoginLimit,
		LoginWindow:  cfg.LoginWindow,

		TrustedProxies: proxies,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.Handler(cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Printf("GradTrack server listening on %s (backend %s)", cfg.Addr, cfg.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openBackend selects the durable store and the change notifier. SQLite and memory
// stores notify within this process only; Redis shares both across processes.
func openBackend(cfg *config.Config, client *redis.Client) (kv.Store, kv.Notifier, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		rs := dbstore.NewRedisStore(client, cfg.RedisPrefix)
		if rs == nil {
			return nil, nil, nil, errors.New("redis backend needs a client")
		}
		return rs, rs, closerFunc(func() error { return nil }), nil
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		conn, err := dbstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := dbstore.RunMigrations(conn, cfg.MigrationsDir); err != nil {
			_ = conn.Close()
			return nil, nil, nil, err
		}
		st, err := dbstore.NewSQLiteStore(conn)
		if err != nil {
			_ = conn.Close()
			return nil, nil, nil, err
		}
		hub := kv.NewHub()
		return st, hub, closerFunc(func() error { hub.Close(); return conn.Close() }), nil
	default:
		hub := kv.NewHub()
		return kv.NewMemoryStore(), hub, closerFunc(func() error { hub.Close(); return nil }), nil
	}
}
