// ABOUTME: Entry point for chat-devserver, a local backend for the chat client
// ABOUTME: Configured from the environment; serves the API and SSE stream over HTTP

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/auth"
	"github.com/2389/coven-chat/internal/devserver"
	"github.com/2389/coven-chat/internal/store"
)

// Config is read from CHAT_DEVSERVER_* environment variables.
type Config struct {
	Addr       string        `env:"CHAT_DEVSERVER_ADDR" envDefault:"localhost:8888"`
	DBPath     string        `env:"CHAT_DEVSERVER_DB" envDefault:"run/chat.db"`
	Secret     string        `env:"CHAT_DEVSERVER_SECRET"`
	SessionTTL time.Duration `env:"CHAT_DEVSERVER_SESSION_TTL" envDefault:"24h"`
	LogLevel   string        `env:"CHAT_DEVSERVER_LOG_LEVEL" envDefault:"info"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return cfg, errors.New("CHAT_DEVSERVER_SESSION_TTL must be positive")
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		// Sessions do not survive a restart without a configured secret.
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generating session secret: %w", err)
		}
		logger.Warn("CHAT_DEVSERVER_SECRET not set, using a random secret", "fingerprint", hex.EncodeToString(secret[:4]))
	}

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	srv := devserver.New(st, auth.NewSessions(secret, cfg.SessionTTL), logger)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Listening: http://%s\n", cfg.Addr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n\n", cfg.DBPath)

	errc := make(chan error, 1)
	go func() {
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	// Streams never finish on their own, so close them before draining.
	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
