package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/zelo-saude/agendamento/internal/config"
	"github.com/zelo-saude/agendamento/internal/db"
	"github.com/zelo-saude/agendamento/internal/notify"
	"github.com/zelo-saude/agendamento/internal/reminder"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "reminder-worker").Logger()
	log.Info().Msg("reminder-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("running reminder worker")

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

	dispatcher := reminder.NewDispatcher(
		reminder.NewPgRepository(pgPool),
		notify.NewLogNotifier(log),
		log,
	)

	// Run once at startup
	runOnce(rootCtx, dispatcher, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, dispatcher, log)
		}
	}
}

func runOnce(ctx context.Context, dispatcher *reminder.Dispatcher, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	sent, err := dispatcher.DispatchDue(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("dispatch run error")
		return
	}
	log.Info().Int("sent", sent).Dur("elapsed", time.Since(start)).Msg("dispatch run complete")
}
