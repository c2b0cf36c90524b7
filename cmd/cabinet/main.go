package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cqkv/filecabinet"
	"github.com/cqkv/filecabinet/config"
	"github.com/cqkv/filecabinet/console"
	"github.com/cqkv/filecabinet/metrics"
	"github.com/cqkv/filecabinet/validation"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	configPath := os.Getenv("CABINET_CONFIG")
	if configPath == "" {
		configPath = "./cabinet.yaml"
	}

	cfg, err := config.LoadConfigOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Logging.BuildLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err = run(cfg, logger); err != nil {
		logger.Error("cabinet stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	validator, err := validation.ByName(cfg.Validation.Rules)
	if err != nil {
		return err
	}

	opts := []filecabinet.Option{
		filecabinet.WithValidator(validator),
		filecabinet.WithLogger(logger),
		filecabinet.WithSyncWrites(cfg.Storage.SyncWrites),
	}

	var service filecabinet.Service
	switch cfg.Storage.Type {
	case config.StorageFile:
		fs, err := filecabinet.Open(cfg.Storage.Path, opts...)
		if err != nil {
			return err
		}
		service = fs
	default:
		service = filecabinet.NewMemoryService(opts...)
	}

	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		service = filecabinet.NewInstrumentedService(service, metrics.NewMetrics(registry))
	}

	logger.Info("configuration loaded",
		zap.String("storage", cfg.Storage.Type),
		zap.String("path", cfg.Storage.Path),
		zap.String("rules", cfg.Validation.Rules),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)

	shutdown := func() error {
		err := service.Close()
		if cfg.Metrics.Enabled && cfg.Metrics.Textfile != "" {
			if werr := prometheus.WriteToTextfile(cfg.Metrics.Textfile, registry); werr != nil {
				logger.Warn("failed to write metrics", zap.String("path", cfg.Metrics.Textfile), zap.Error(werr))
			}
		}
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		logger.Info("shutting down", zap.String("signal", sig.String()))
		if err := shutdown(); err != nil {
			logger.Error("failed to close cabinet", zap.Error(err))
		}
		_ = logger.Sync()
		os.Exit(130)
	}()

	fmt.Println("File Cabinet Application")
	fmt.Printf("Using %s validation rules, %s storage.\n", cfg.Validation.Rules, cfg.Storage.Type)
	fmt.Println("Enter your command, or enter 'help' to get help.")
	fmt.Println()

	open := func(path string) (*filecabinet.FileService, error) {
		return filecabinet.Open(path, opts...)
	}
	runErr := console.New(service, open, os.Stdout, logger).Run(os.Stdin)

	signal.Stop(signals)
	if err = shutdown(); err != nil {
		return err
	}
	return runErr
}
