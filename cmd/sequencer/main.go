// Package main is the entry point for the shared sequencer. It wires the
// receipt ledger, event emitter, cost estimator, and HTTP API together and
// runs them through the service registry.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/michaelwinczuk/erc-shared-sequencer/internal/api"
	"github.com/michaelwinczuk/erc-shared-sequencer/internal/congestion"
	"github.com/michaelwinczuk/erc-shared-sequencer/internal/events"
	"github.com/michaelwinczuk/erc-shared-sequencer/internal/fees"
	"github.com/michaelwinczuk/erc-shared-sequencer/internal/sequencer"
	"github.com/michaelwinczuk/erc-shared-sequencer/internal/storage"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/config"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/health"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/logging"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/service"
)

func main() {
	configFile := pflag.String("config", "", "Path to configuration file")
	logLevel := pflag.String("log-level", "", "Log level (debug, info, warn, error)")
	pflag.Parse()

	opts := config.DefaultLoadOptions()
	if *configFile != "" {
		opts.ConfigFile = *configFile
	}

	cfg, err := config.LoadWithOptions(opts)
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger := logging.New(logging.Config{
		Level:       logging.LogLevel(cfg.Log.Level),
		Output:      os.Stdout,
		ServiceName: "sequencer",
		Environment: cfg.Log.Environment,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: Redis in production, in-process otherwise.
	var (
		store      sequencer.ReceiptStore
		vault      sequencer.FeeVault
		redisStore *storage.RedisStore
	)
	if cfg.Redis.Address != "" {
		redisStore, err = storage.NewRedisStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
		vault = redisStore
		logger.Info("Using Redis storage", "address", cfg.Redis.Address)
	} else {
		store = sequencer.NewMemoryStore()
		vault = sequencer.NewMemoryVault()
		logger.Warn("Using in-process storage; receipts will not survive restarts")
	}

	// Events: Kafka when brokers are configured, structured log otherwise.
	var (
		emitter      events.Emitter
		kafkaEmitter *events.KafkaEmitter
	)
	if cfg.Kafka.Brokers != "" {
		kafkaEmitter, err = events.NewKafkaEmitter(cfg.Kafka.Brokers, logger)
		if err != nil {
			logger.Error("Failed to create Kafka emitter", "error", err)
			os.Exit(1)
		}
		emitter = kafkaEmitter
		logger.Info("Publishing events to Kafka", "brokers", cfg.Kafka.Brokers)
	} else {
		emitter = events.NewLogEmitter(logger)
	}

	seq, adminCap, err := sequencer.New(sequencer.Config{
		MinFee:          cfg.Sequencer.MinFee,
		AllowRefinalize: cfg.Sequencer.AllowRefinalize,
		Metadata: sequencer.Metadata{
			Version:                cfg.Sequencer.Version,
			SupportedNetworks:      cfg.Sequencer.SupportedNetworks,
			MinConfirmationLatency: cfg.Sequencer.MinConfirmationLatency,
			MaxPayloadSize:         cfg.Sequencer.MaxPayloadSize,
		},
	}, store, vault, emitter, nil)
	if err != nil {
		logger.Error("Failed to initialize sequencer", "error", err)
		os.Exit(1)
	}

	// Congestion signal: Redis-backed tracker when available.
	var (
		congSignal congestion.Signal = congestion.Static(1)
		tracker    *congestion.Tracker
	)
	if redisStore != nil {
		tracker = congestion.NewTracker(redisStore.Client, logger)
		congSignal = tracker
	}

	estimator := fees.NewEstimator(cfg.Sequencer.MinFee, cfg.Sequencer.PerByteFee, congSignal)

	server := api.NewServer(cfg, seq, adminCap, estimator, tracker)
	if redisStore != nil {
		server.RegisterHealthCheck("redis", health.PingChecker("redis", redisStore.Ping))
	}
	if kafkaEmitter != nil {
		server.RegisterHealthCheck("kafka", health.PingChecker("kafka", kafkaEmitter.Ping))
	}

	registry := service.NewRegistry(logger)

	var closer sequencer.Closer
	if kafkaEmitter != nil {
		closer = kafkaEmitter
	}
	if err := registry.Register(sequencer.NewSequencerService(seq, closer)); err != nil {
		logger.Error("Failed to register sequencer service", "error", err)
		os.Exit(1)
	}
	if tracker != nil {
		if err := registry.Register(congestion.NewTrackerService(tracker, cfg.Sequencer.CongestionDecayEvery)); err != nil {
			logger.Error("Failed to register congestion tracker", "error", err)
			os.Exit(1)
		}
	}
	if err := registry.Register(api.NewAPIService(server)); err != nil {
		logger.Error("Failed to register API service", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting all services")
	if err := registry.StartAll(ctx); err != nil {
		logger.Error("Failed to start services", "error", err)
		os.Exit(1)
	}
	logger.Info("All services started")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	logger.Info("Shutting down")
	cancel()

	if err := registry.StopAll(context.Background()); err != nil {
		logger.Error("Error during shutdown", "error", err)
	}

	logger.Info("Shutdown complete")
}
