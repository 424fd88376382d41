package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/meet-control/internal/config"
	"github.com/AdamBeresnev/meet-control/internal/db"
	"github.com/AdamBeresnev/meet-control/internal/notify"
	"github.com/AdamBeresnev/meet-control/internal/scheduler"
	"github.com/AdamBeresnev/meet-control/internal/service"
	"github.com/AdamBeresnev/meet-control/internal/store"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB, cfg.MigrationsURL); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := notify.NewHub()
	app, err := newApplication(database, hub, cfg)
	if err != nil {
		return err
	}
	defer app.control.Close()

	if cfg.TelegramToken != "" {
		bot, err := notify.NewTelegramBot(cfg.TelegramToken)
		if err != nil {
			return err
		}
		notifications, unsubscribe := hub.Subscribe(64)
		defer unsubscribe()
		go notify.NewTelegramForwarder(bot, cfg.TelegramChatID).Run(ctx, notifications)
	}

	sched, err := scheduler.New(scheduler.Config{
		Enabled:  cfg.ResultsCronEnabled,
		CronSpec: cfg.ResultsCron,
	}, app.results.RecalculateActive)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	sched.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "addr", cfg.HTTPAddr,
			"attempt_seconds", cfg.AttemptSeconds, "attempts_per_lift", cfg.AttemptsPerLift)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Closing the hub ends the open notification streams.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	sched.Stop(shutdownCtx)
	return nil
}

type application struct {
	sessions     *scs.SessionManager
	hub          *notify.Hub
	competitions *service.CompetitionService
	control      *service.ControlService
	results      *service.ResultService
}

func newApplication(database *sqlx.DB, hub *notify.Hub, cfg config.Config, opts ...service.ControlOption) (*application, error) {
	competitionStore := store.NewCompetitionStore(database)
	enrollmentStore := store.NewEnrollmentStore(database)
	resultStore := store.NewResultStore(database)

	control, err := service.NewControlService(enrollmentStore, competitionStore, hub, service.Rules{
		AttemptSeconds:  cfg.AttemptSeconds,
		AttemptsPerLift: cfg.AttemptsPerLift,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("control service: %w", err)
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = 12 * time.Hour
	sessionManager.Store = sqlite3store.New(database.DB)

	return &application{
		sessions:     sessionManager,
		hub:          hub,
		competitions: service.NewCompetitionService(competitionStore),
		control:      control,
		results:      service.NewResultService(competitionStore, enrollmentStore, resultStore),
	}, nil
}
