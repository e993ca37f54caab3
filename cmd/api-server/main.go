package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/zelo-saude/agendamento/internal/api"
	"github.com/zelo-saude/agendamento/internal/appointment"
	"github.com/zelo-saude/agendamento/internal/availability"
	"github.com/zelo-saude/agendamento/internal/config"
	"github.com/zelo-saude/agendamento/internal/db"
	"github.com/zelo-saude/agendamento/internal/notify"
	redisclient "github.com/zelo-saude/agendamento/internal/redis"
	"github.com/zelo-saude/agendamento/internal/reminder"
)

const version = "1.2.0"

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "api-server").Logger()
	log.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configuration loaded")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	notifier := notify.NewLogNotifier(log)

	availStore := availability.NewStore(availability.NewPgRepository(pgPool), cfg.Scheduling)
	reminders := reminder.NewScheduler(reminder.NewPgRepository(pgPool), log)
	locker := redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL)
	bookings := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		availStore,
		locker,
		reminders,
		notifier,
		cfg.Scheduling,
		log,
	)

	handler := api.NewRouter(api.RouterConfig{
		Bookings:     bookings,
		Availability: availStore,
		PgPool:       pgPool,
		Redis:        rdb,
		JWTSecret:    cfg.JWTSecret,
		Env:          cfg.Env,
		Version:      version,
		Log:          log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
