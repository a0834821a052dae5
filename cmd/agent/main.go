package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/config"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/events"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/events/subscribers"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/states"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/monitoring"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/trace"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/transport"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to config file")
	env := flag.String("env", os.Getenv("APP_ENV"), "Environment overlay (loads config.<env>.yaml)")
	host := flag.String("host", "", "Game server host (empty to use config default)")
	port := flag.Int("port", -1, "Game server port (-1 to use config default)")
	nickname := flag.String("nickname", "", "Nickname to join with (empty to use config default)")
	joinCode := flag.String("code", "", "Join code of the game (empty to use config default)")
	logLevel := flag.String("log-level", "", "Log level (trace, debug, info, warn, error) (empty to use config default)")
	watch := flag.Bool("watch", true, "Reload behavior weights when the config file changes")
	flag.Parse()

	// Initialize configuration
	if err := config.Init(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}
	if err := config.LoadEnvironmentConfig(*env); err != nil {
		log.Fatal().Err(err).Msg("Failed to load environment config")
	}

	cfg := config.Get()

	// Flags win over the config file
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != -1 {
		cfg.Server.Port = *port
	}
	if *nickname != "" {
		cfg.Server.Nickname = *nickname
	}
	if *joinCode != "" {
		cfg.Server.JoinCode = *joinCode
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	setupLogging(cfg.Logging.Level, cfg.Logging.Format)

	sessionID := uuid.NewString()
	logger := log.With().Str("session_id", sessionID).Logger()

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("nickname", cfg.Server.Nickname).
		Int("decision_timeout_ms", cfg.Agent.DecisionTimeoutMs).
		Str("config_file", config.ConfigFilePath()).
		Msg("Starting tank agent")

	if err := run(cfg, sessionID, logger, *watch); err != nil {
		logger.Fatal().Err(err).Msg("Agent stopped")
	}
	logger.Info().Msg("Agent shutdown complete")
}

func run(cfg *config.Config, sessionID string, logger zerolog.Logger, watch bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Event bus
	bus := events.NewEventBus(logger)
	eventLogger := subscribers.NewLoggerSubscriber("event_logger", logger, zerolog.DebugLevel)
	eventLogger.SetEventFilter(cfg.Logging.Events)
	eventLogger.SetDevMode(os.Getenv("APP_ENV") == "development")
	bus.Subscribe(eventLogger)

	// Decision trace
	var recorder *trace.Recorder
	if cfg.Trace.Enabled {
		recorder = trace.NewRecorder(cfg.Trace.Dir, sessionID, logger)
		bus.Subscribe(recorder)
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close trace")
			}
		}()
	}

	// Health endpoint
	if cfg.Health.Enabled {
		hs := monitoring.NewHealthServer(cfg.HealthOptions(), logger)
		if _, err := hs.Start(); err != nil {
			return err
		}
		bus.Subscribe(hs)
		defer hs.Stop()

		gm := monitoring.NewGoroutineMonitor(cfg.GoroutineCheckInterval(), cfg.Health.GoroutineThreshold, logger)
		gm.Start()
		defer func() {
			gm.Stop()
			m := gm.GetMetrics()
			logger.Info().Int("peak", m.Peak).Int("growth", m.Growth).Msg("Goroutine summary")
		}()
	}

	// Decision engine
	engine, err := game.NewEngine(game.EngineConfig{
		Options:   cfg.BehaviorOptions(),
		Weights:   cfg.Weights(),
		Publisher: bus,
		Logger:    logger,
		SessionID: sessionID,
	})
	if err != nil {
		return err
	}

	if watch && config.ConfigFilePath() != "" {
		config.WatchConfig(func(c *config.Config, err error) {
			if err != nil {
				logger.Error().Err(err).Msg("Ignoring config change")
				return
			}
			if err := engine.SetWeights(c.Weights()); err != nil {
				logger.Error().Err(err).Msg("Rejected new behavior weights")
			}
		})
	}

	// Match lifecycle
	sc := states.NewSessionContext(sessionID, cfg.Server.Nickname, logger)
	sc.OnMatchEnd = func() {
		if recorder == nil {
			return
		}
		if err := recorder.Flush(); err != nil {
			logger.Error().Err(err).Msg("Failed to flush trace")
		}
	}
	machine := states.NewStateMachine(sc, bus)

	client, err := transport.NewClient(
		cfg.TransportOptions(sessionID),
		transport.NewWebsocketDialer(cfg.HandshakeTimeout()),
		engine,
		machine,
		bus,
		logger,
	)
	if err != nil {
		return err
	}

	err = client.Run(ctx)

	stats := client.Stats()
	es := engine.Stats()
	logger.Info().
		Int64("received", stats.Received).
		Int64("answered", stats.Answered).
		Int64("dropped", stats.Dropped).
		Int64("timed_out", stats.TimedOut).
		Int64("invalid", stats.Invalid).
		Int("decided", es.Decided).
		Int("violations", es.Violations).
		Int("panics", es.Panics).
		Msg("Session summary")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func setupLogging(level, format string) {
	// Parse log level
	var logLevel zerolog.Level
	switch level {
	case "trace":
		logLevel = zerolog.TraceLevel
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	if os.Getenv("APP_ENV") == "production" || format == "json" {
		// JSON output for production
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Pretty console output for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}
}
