package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"diet-coach/internal/config"
	"diet-coach/internal/gateway"
	"diet-coach/internal/logger"
	"diet-coach/internal/metrics"
	"diet-coach/internal/server"
	"diet-coach/internal/storage"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file")
	port       = flag.Int("port", 0, "Port for HTTP transport (overrides config)")
	host       = flag.String("host", "", "Host address (overrides config)")
	address    = flag.String("address", "", "Address (alias for host)")
	storeName  = flag.String("store", "", "Session store: sqlite, file or redis (overrides config)")
	dbPath     = flag.String("db-path", "", "SQLite database path or session directory (overrides config)")
	version    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("diet-coach version 1.0.0")
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Env)
	defer logger.Sync()
	metrics.Init()

	store, err := storage.Open(cfg.StorageConfig())
	if err != nil {
		logger.L().Fatal("Failed to open session store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}

	messenger := gateway.NewMessenger(cfg.GatewayConfig())
	if !gateway.Configured(messenger) || cfg.Line.ChannelSecret == "" {
		logger.Warn("messaging credentials missing, /callback will answer 500")
	}

	srv := server.NewCoachServer(&server.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ChannelSecret:     cfg.Line.ChannelSecret,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, store, messenger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		logger.Error("Server error", zap.Error(err))
	}

	logger.Info("Shutting down...")
	cancel()
	if err := srv.Stop(); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
}

// applyFlags lets explicit command-line flags win over file and env config.
func applyFlags(cfg *config.Config) {
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *address != "" {
		cfg.Server.Host = *address
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *storeName != "" {
		cfg.Store.Driver = *storeName
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}
}
