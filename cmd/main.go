package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log15 "github.com/inconshreveable/log15/v3"

	"pulsecheck/api"
	"pulsecheck/checkin"
	"pulsecheck/config"
	"pulsecheck/db"
	"pulsecheck/scheduler"
)

func main() {
	logger := log15.New("app", "pulsecheck")

	cfg, err := config.Load()
	if err != nil {
		logger.Crit("failed to load config", "err", err)
		os.Exit(1)
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Crit("failed to connect to database", "err", err)
		os.Exit(1)
	}
	store := db.NewStore(gdb)

	client := api.NewClient(cfg.SlackBotToken, logger.New("component", "slack"))
	sessions := checkin.NewSessionStore()
	engine := checkin.NewEngine(store, sessions, client, client, logger.New("component", "engine"))

	sched := scheduler.New(store, engine, sessions, client, cfg.WorkspaceID,
		cfg.TickInterval, cfg.SessionMaxIdle, logger.New("component", "scheduler"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sched.Run(ctx)

	events := api.NewEventsHandler(engine, logger.New("component", "events"))
	admin := api.NewAdminHandler(store, engine, cfg.WorkspaceID, logger.New("component", "admin"))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: SetupRouter(events, admin),
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Crit("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
