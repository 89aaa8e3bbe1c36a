package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kodicec/internal/api"
	"kodicec/internal/config"
	"kodicec/pkg/plugin"

	// Registers the CEC plugin with the global registry.
	_ "kodicec/internal/cec"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables")
	}

	cfg, err := config.Load(os.Getenv("KODICEC_CONFIG"), logger)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Starting kodicec",
		zap.String("host", cfg.IPAddress),
		zap.Int("port", cfg.Port))

	plugins, err := plugin.CreateAll(&plugin.Context{
		Logger: logger,
		Config: cfg,
	})
	if err != nil {
		logger.Fatal("Failed to create plugins", zap.Error(err))
	}

	started := make([]plugin.Plugin, 0, len(plugins))
	for _, p := range plugins {
		if err := p.Start(); err != nil {
			for i := len(started) - 1; i >= 0; i-- {
				started[i].Stop()
			}
			logger.Fatal("Failed to start plugin",
				zap.String("plugin", p.Name()),
				zap.Error(err))
		}
		started = append(started, p)
		logger.Info("Plugin started", zap.String("plugin", p.Name()))
	}

	apiServer := api.NewServer(plugins, logger, cfg.APIPort)
	if err := apiServer.Start(); err != nil {
		logger.Error("Failed to start API server", zap.Error(err))
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("kodicec running. Press Ctrl+C to exit.")
	<-sigChan

	logger.Info("Shutting down gracefully...")
	if err := apiServer.Stop(); err != nil {
		logger.Error("Failed to stop API server", zap.Error(err))
	}
	for i := len(started) - 1; i >= 0; i-- {
		started[i].Stop()
	}
}
