package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/internal/events"
	"github.com/mcdev12/quizlive/internal/gateway"
	"github.com/mcdev12/quizlive/internal/quiz"
	"github.com/mcdev12/quizlive/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file loaded")
	}

	setupLogging()

	config, err := loadConfig(getEnv("CONFIG_PATH", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Authored quiz content: Postgres unless explicitly disabled.
	var repo quiz.Repository
	if getEnvAsBool("DB_DISABLE", false) {
		log.Warn().Msg("running without a database, quizzes are not persisted")
		repo = quiz.NewMemoryRepository()
	} else {
		db, err := setupDatabase()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up database")
		}
		defer db.Close()

		pgRepo := quiz.NewPostgresRepository(db)
		if err := pgRepo.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		repo = pgRepo
	}

	broadcaster, err := events.Connect(config.NATS.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer broadcaster.Close()

	// Session core.
	clock := clockwork.NewRealClock()
	store := session.NewStore(repo)
	presence := session.NewPresenceTracker(clock)
	defer presence.Stop()
	timers := session.NewTimerTable(clock, broadcaster)
	ledger := session.NewLedger()
	coordinator := session.NewCoordinator(store, presence, timers, ledger, broadcaster)

	// Transport.
	connectionManager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), coordinator)
	go connectionManager.Start(ctx)

	consumer, err := gateway.NewEventConsumer(connectionManager, config.NATS.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event consumer")
	}
	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	app := quiz.NewApp(repo, store, ledger)
	srv := setupServer(config, gateway.NewWebSocketHandler(connectionManager), quiz.NewService(app))

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("quizlive server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down server cleanly")
	}

	log.Info().Msg("quizlive server stopped")
}

func setupLogging() {
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if getEnvAsBool("LOG_PRETTY", false) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
