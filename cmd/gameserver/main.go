package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/decred/slog"
	"github.com/joho/godotenv"

	"github.com/pfrances/transcendence-back/ponggame"
	"github.com/pfrances/transcendence-back/server"
	"github.com/pfrances/transcendence-back/server/gamedb"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func realMain() error {
	// A .env file is optional; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	backend := slog.NewBackend(os.Stdout)
	level := slog.LevelInfo
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		l, ok := slog.LevelFromString(s)
		if !ok {
			return fmt.Errorf("unknown LOG_LEVEL %q", s)
		}
		level = l
	}
	newLog := func(tag string) slog.Logger {
		log := backend.Logger(tag)
		log.SetLevel(level)
		return log
	}
	log := newLog("SRV")

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}
	db, err := gamedb.Open(dsn, newLog("GDB"))
	if err != nil {
		return fmt.Errorf("open game database: %w", err)
	}

	hub := server.NewHub(newLog("HUB"))
	coord := ponggame.NewCoordinator(ponggame.CoordinatorConfig{
		Gateway:      hub,
		Store:        db,
		Achievements: db,
		Log:          newLog("CORE"),
	})
	defer coord.Close()
	if err := coord.StartReaper(); err != nil {
		return fmt.Errorf("start match reaper: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		HTTPAddr:    envOr("HTTP_ADDR", ":8080"),
		WSAddr:      envOr("WS_ADDR", ":8081"),
		Coordinator: coord,
		Hub:         hub,
		History:     db,
		Log:         log,
	})
	log.Infof("game server starting")
	return srv.Run(ctx)
}

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
