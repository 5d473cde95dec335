/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the check-in engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Read environment config, apply command-line flag overrides
  2. Initialize structured logging (zap, optional rolling file)
  3. Open the store (sqlite or memory backend)
  4. Seed the first-launch date if this is the first boot
  5. Load the reward rule file
  6. Wire ledger, makeup engine, evaluator, and API handler
  7. Start server with graceful shutdown

CONFIGURATION:
  Environment variables (flags override):
    CHECKIN_PORT       HTTP server port (default 8080)
    CHECKIN_BACKEND    Store backend: sqlite or memory (default sqlite)
    CHECKIN_DB         SQLite database path (default checkin.db)
    CHECKIN_RULES      Reward rule YAML path (default rules.yaml)
    CHECKIN_TIMEZONE   Override for the rule file's timezone
    CHECKIN_LOG_FILE   Rolling log file path (default stderr only)
    CHECKIN_LOG_LEVEL  debug, info, warn, error (default info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Drain scheduled reward effects
  4. Close the store
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/checkin.db" -rules="./rules.yaml"

  # Run fully in memory (dev)
  ./server -backend=memory

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
  - factory/rules.go: Rule file format
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/warp/checkin-engine/api"
	"github.com/warp/checkin-engine/checkin"
	memstore "github.com/warp/checkin-engine/checkin/store"
	"github.com/warp/checkin-engine/factory"
	"github.com/warp/checkin-engine/rewards"
	"github.com/warp/checkin-engine/store/sqlite"
)

// Config is read from the environment, then overridden by flags.
type Config struct {
	Port     int    `env:"CHECKIN_PORT" envDefault:"8080"`
	Backend  string `env:"CHECKIN_BACKEND" envDefault:"sqlite"`
	DBPath   string `env:"CHECKIN_DB" envDefault:"checkin.db"`
	Rules    string `env:"CHECKIN_RULES" envDefault:"rules.yaml"`
	Timezone string `env:"CHECKIN_TIMEZONE"`
	LogFile  string `env:"CHECKIN_LOG_FILE"`
	LogLevel string `env:"CHECKIN_LOG_LEVEL" envDefault:"info"`
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.Backend, "backend", cfg.Backend, "store backend: sqlite or memory")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.Rules, "rules", cfg.Rules, "reward rule YAML path")
	flag.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "override for the rule file's timezone")
	flag.Parse()

	logger := newLogger(cfg)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg Config, logger *zap.Logger) error {
	// Store
	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	// Rules
	rules, err := factory.LoadRules(cfg.Rules, logger)
	if err != nil {
		logger.Warn("rule file unavailable, rewards disabled", zap.String("path", cfg.Rules), zap.Error(err))
		rules = &rewards.Rules{Timezone: factory.DefaultTimezone}
	}
	if cfg.Timezone != "" {
		rules.Timezone = cfg.Timezone
	}

	clock := checkin.NewSystemClock(rules.Timezone)

	// First boot seeds the launch anchor for missed-day counting.
	if err := store.SeedFirstLaunch(context.Background(), clock.Today()); err != nil {
		return fmt.Errorf("seed first launch date: %w", err)
	}

	// Domain wiring
	ledger := checkin.NewLedger(store, store, clock)
	points := checkin.NewPointsAccount(store)
	slips := checkin.NewCorrectionSlipAccount(store)
	makeup := checkin.NewMakeUpEngine(ledger, store, store, clock)
	claims := checkin.NewClaimRegistry(store, clock)

	queue := rewards.NewTimerQueue()
	interp := rewards.NewInterpreter(queue, rewards.NewLogEffector(logger), points, logger)
	eval := rewards.NewEvaluator(rules, ledger, claims, interp, clock, logger)

	handler := api.NewHandler(ledger, makeup, points, slips, eval, clock, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("backend", cfg.Backend),
			zap.String("timezone", rules.Timezone))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Let already-scheduled reward effects land before the store closes.
	queue.Drain()

	logger.Info("server stopped")
	return nil
}

// openStore picks the backend. The returned func closes it.
func openStore(cfg Config, logger *zap.Logger) (checkin.Store, func(), error) {
	switch cfg.Backend {
	case "sqlite":
		s, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Warn("store close failed", zap.Error(err))
			}
		}, nil
	case "memory":
		return memstore.NewMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want sqlite or memory)", cfg.Backend)
	}
}

// newLogger builds a console logger, optionally teeing to a rolling file.
func newLogger(cfg Config) *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.Set(cfg.LogLevel); err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level),
	}
	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 7,
			MaxAge:     28, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...))
}
