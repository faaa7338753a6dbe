// ABOUTME: Entry point for coven-chat, a terminal client for the chat server
// ABOUTME: Logs in, opens the event stream, and runs the interactive command loop

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/chatapi"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/dedupe"
	"github.com/2389/coven-chat/internal/events"
	"github.com/2389/coven-chat/internal/friends"
	"github.com/2389/coven-chat/internal/notification"
	"github.com/2389/coven-chat/internal/router"
	"github.com/2389/coven-chat/internal/stream"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const banner = `
                                      _           _
  ___ _____   _____ _ __          ___| |__   __ _| |_
 / __/ _ \ \ / / _ \ '_ \ _____  / __| '_ \ / _' | __|
| (_| (_) \ V /  __/ | | |_____|| (__| | | | (_| | |_
 \___\___/ \_/ \___|_| |_|       \___|_| |_|\__,_|\__|
`

const (
	// maxConnectTries bounds the login and initial connect retries.
	maxConnectTries = 6

	// logoutTimeout bounds the logout call on exit.
	logoutTimeout = 3 * time.Second

	// drainTimeout bounds waiting for the event stream to stop on exit.
	drainTimeout = 2 * time.Second
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config file (TOML or YAML)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

func run(ctx context.Context, configPath string) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// A missing default file is fine: the environment may carry everything.
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Server:  %s\n", cfg.Server.URL)
	green.Print("    ▶ ")
	fmt.Printf("User:    %s (%s)\n", cfg.User.ID, cfg.User.Username)
	if configPath != "" {
		green.Print("    ▶ ")
		fmt.Printf("Config:  %s\n", configPath)
	}
	fmt.Println()

	api := chatapi.New(cfg.Server.URL,
		chatapi.WithLogger(logger),
		chatapi.WithFetchTimeout(cfg.Stream.FetchTimeout),
	)

	if err := retry(ctx, logger, "login", func() error {
		err := api.Login(ctx, cfg.User.ID, cfg.User.Username)
		if errors.Is(err, chatapi.ErrUnexpectedStatus) {
			return backoff.Permanent(err)
		}
		return err
	}); err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
		defer cancel()
		if err := api.Logout(logoutCtx); err != nil {
			logger.Debug("logout failed", "error", err)
		}
	}()

	out := newConsole(os.Stdout, cfg.User.ID)
	list := friends.NewList(nil)
	if err := refreshFriends(ctx, api, list, cfg.User.ID); err != nil {
		logger.Warn("loading friends failed", "error", err)
	}

	dispatcher := events.NewDispatcher(logger)
	dropped := make(chan struct{}, 1)
	conn := stream.New(
		stream.NewSSETransport(api.Resty(), cfg.Server.EventsPath),
		dispatcher,
		notification.NewEnricher(api, cfg.Stream.ResultField, logger),
		stream.WithLogger(logger),
		stream.WithNotificationQueue(cfg.Stream.NotificationQueue),
		stream.WithStateHook(func(from, to stream.State) {
			logger.Debug("stream state changed", "from", from, "to", to)
			if to == stream.StateFailed {
				select {
				case dropped <- struct{}{}:
				default:
				}
			}
		}),
	)

	rt := router.New(router.Options{
		LocalUser: cfg.User.ID,
		History:   api,
		Poster:    api,
		Friends:   list,
		Sink:      out,
		Seen:      dedupe.New(cfg.Stream.DedupeTTL, cfg.Stream.DedupeSize),
		Logger:    logger,
	})
	if _, err := rt.Attach(ctx, dispatcher); err != nil {
		return fmt.Errorf("attaching router: %w", err)
	}
	if _, err := events.OnNotification(dispatcher, func(rec notification.Record) error {
		return handleNotification(rec, list, out, cfg.User.ID)
	}); err != nil {
		return fmt.Errorf("subscribing to notifications: %w", err)
	}

	if err := retry(ctx, logger, "connect", func() error { return conn.Connect(ctx) }); err != nil {
		return fmt.Errorf("connecting event stream: %w", err)
	}
	defer func() {
		conn.Disconnect()
		drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := conn.Wait(drainCtx); err != nil {
			logger.Debug("event stream did not stop in time", "error", err)
		}
	}()

	go reconnectOnFailure(ctx, conn, dropped, logger)

	unregister, ok := conn.AttachVisibilityMonitor(newSignalVisibility())
	defer unregister()
	if ok {
		gray.Printf("    SIGUSR1 pauses the event stream, SIGUSR2 resumes it (pid %d)\n\n", os.Getpid())
	}

	fmt.Println("Type /help for commands. Ctrl+C to quit.")
	fmt.Println()

	cmds := &commands{
		router:  rt,
		friends: list,
		conn:    conn,
		out:     out,
		refresh: func(ctx context.Context) error { return refreshFriends(ctx, api, list, cfg.User.ID) },
	}
	return cmds.loop(ctx, os.Stdin)
}

// retry runs op with exponential backoff until it succeeds, fails
// permanently, or runs out of tries.
func retry(ctx context.Context, logger *slog.Logger, what string, op func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxConnectTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn(what+" failed, retrying", "error", err, "in", next)
		}),
	)
	return err
}

// reconnectOnFailure reopens the stream after the transport drops. A
// Disconnect from the visibility monitor does not count as a drop.
func reconnectOnFailure(ctx context.Context, conn *stream.Connection, dropped <-chan struct{}, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-dropped:
		}

		err := retry(ctx, logger, "reconnect", func() error {
			err := conn.Connect(ctx)
			if errors.Is(err, stream.ErrDisconnected) {
				return backoff.Permanent(err)
			}
			return err
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("event stream lost", "error", err)
		}
	}
}

func refreshFriends(ctx context.Context, api *chatapi.Client, list *friends.List, self string) error {
	users, err := api.Friends(ctx)
	if err != nil {
		return err
	}
	list.Replace(toFriends(users, self))
	return nil
}

func toFriends(users []chatapi.User, self string) []friends.Friend {
	out := make([]friends.Friend, 0, len(users))
	for _, u := range users {
		if u.ID == self {
			continue
		}
		out = append(out, friends.Friend{ID: u.ID, Username: u.Username})
	}
	return out
}

// handleNotification applies enriched notifications. user_joined carries the
// refreshed friend list under "friends".
func handleNotification(rec notification.Record, list *friends.List, out *console, self string) error {
	switch rec.String("event") {
	case "user_joined":
		var users []chatapi.User
		if err := rec.Decode("friends", &users); err != nil {
			return fmt.Errorf("decoding friends: %w", err)
		}
		list.Replace(toFriends(users, self))
		out.notice("%s joined", rec.String("user_id"))
	default:
		out.notice("notification: %s", describe(rec))
	}
	return nil
}

// describe renders a notification as key=value pairs in arrival order.
func describe(rec notification.Record) string {
	parts := make([]string, 0, rec.Len())
	for _, e := range rec.Entries() {
		parts = append(parts, e.Key+"="+string(e.Value))
	}
	return strings.Join(parts, " ")
}
