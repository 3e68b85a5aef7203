// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/jpenzell/deck-live/cliparse"
	"github.com/jpenzell/deck-live/db"
	"github.com/jpenzell/deck-live/polls"
	"github.com/jpenzell/deck-live/realtime"
	"github.com/jpenzell/deck-live/router"
	"github.com/jpenzell/deck-live/sessions"
	"github.com/jpenzell/deck-live/store"
	"github.com/jpenzell/deck-live/textgen"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := cliparse.LoadDotEnv(); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server closed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server closed")
}

func run(ctx context.Context, cfg cliparse.Config) error {
	// Connect to the database
	dialect := cfg.Dialect()
	dbConn, err := db.Open(dialect, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn, dialect); err != nil {
		return err
	}
	slog.Info("Database schema ready", "type", dialect)

	g, ctx := errgroup.WithContext(ctx)

	// Realtime fan-out, relayed through Redis when configured
	hub := realtime.NewHub()
	var publisher realtime.Publisher = hub
	var limiter textgen.Limiter

	if cfg.RedisURL != "" {
		redisClient, err := realtime.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		relay := realtime.NewRedisRelay(redisClient, hub)
		publisher = relay
		g.Go(func() error { return relay.Run(ctx) })

		limiter = textgen.NewRedisLimiter(redisClient, cfg.GenerateRateLimit, cfg.GenerateRateWindow)
		slog.Info("Redis relay enabled")
	} else {
		memLimiter := textgen.NewMemoryLimiter(cfg.GenerateRateLimit, cfg.GenerateRateWindow)
		g.Go(func() error {
			memLimiter.Run(ctx, cfg.GenerateRateWindow)
			return nil
		})
		limiter = memLimiter
	}

	s := store.NewSQLStore(dbConn, dialect)
	handler := router.NewRouter(router.Deps{
		Config:    cfg,
		Directory: sessions.NewDirectory(s, publisher),
		Engine:    polls.NewEngine(s, publisher, polls.WithOpenOnCreate(cfg.PollsOpenOnCreate)),
		Hub:       hub,
		Generator: textgen.NewOllamaClient(cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout),
		Limiter:   limiter,
	})

	// Create server
	server := &http.Server{
		Handler:           handler,
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		// Wait for Ctrl-C signal or a failed sibling
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
