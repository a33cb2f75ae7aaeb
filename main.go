// Package main provides the entry point for the ccswitch gateway.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ccswitch/internal/app"
	"ccswitch/internal/container"
	"ccswitch/internal/types"
	"ccswitch/internal/utils"

	"github.com/sirupsen/logrus"
)

func main() {
	// Build the dependency injection container
	container, err := container.BuildContainer()
	if err != nil {
		logrus.Fatalf("Failed to build container: %v", err)
	}

	// Initialize global logger
	if err := container.Invoke(func(configManager types.ConfigManager) {
		utils.SetupLogger(configManager)
	}); err != nil {
		logrus.Fatalf("Failed to setup logger: %v", err)
	}

	// Create and run the application
	if err := container.Invoke(func(application *app.App, configManager types.ConfigManager) {
		if err := application.Start(); err != nil {
			logrus.Fatalf("Failed to start application: %v", err)
		}

		// Buffered channel so the signal is never missed.
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		sig := <-quit
		logrus.Infof("Received signal: %v, initiating graceful shutdown...", sig)

		serverConfig := configManager.GetEffectiveServerConfig()
		shutdownTimeout := time.Duration(serverConfig.GracefulShutdownTimeout) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			application.Stop(shutdownCtx)
			close(done)
		}()

		// A second signal forces exit.
		select {
		case <-done:
		case <-quit:
			logrus.Warn("Received second signal, forcing exit.")
		case <-shutdownCtx.Done():
			logrus.Warn("Graceful shutdown timed out, forcing exit.")
		}
	}); err != nil {
		logrus.Fatalf("Failed to run application: %v", err)
	}
}
