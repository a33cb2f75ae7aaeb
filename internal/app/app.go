// Package app provides the main application logic and lifecycle management.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ccswitch/internal/config"
	"ccswitch/internal/services"
	"ccswitch/internal/store"
	"ccswitch/internal/tunnel"
	"ccswitch/internal/types"
	"ccswitch/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"
	"gorm.io/gorm"
)

// App holds all services and manages the application lifecycle.
type App struct {
	engine            *gin.Engine
	configManager     types.ConfigManager
	tierStore         *config.TierStore
	tunnels           *tunnel.Manager
	requestLogService *services.RequestLogService
	storage           store.Store
	db                *gorm.DB
	httpServer        *http.Server
}

// AppParams defines the dependencies for the App.
type AppParams struct {
	dig.In
	Engine            *gin.Engine
	ConfigManager     types.ConfigManager
	TierStore         *config.TierStore
	Tunnels           *tunnel.Manager
	RequestLogService *services.RequestLogService
	Storage           store.Store
	DB                *gorm.DB
}

// NewApp is the constructor for App, with dependencies injected by dig.
func NewApp(params AppParams) *App {
	return &App{
		engine:            params.Engine,
		configManager:     params.ConfigManager,
		tierStore:         params.TierStore,
		tunnels:           params.Tunnels,
		requestLogService: params.RequestLogService,
		storage:           params.Storage,
		db:                params.DB,
	}
}

// Start runs the application. It is a non-blocking call.
func (a *App) Start() error {
	if _, err := a.tierStore.Load(); err != nil {
		return fmt.Errorf("failed to load tier configuration: %w", err)
	}
	logrus.Info("Tier configuration loaded.")

	a.requestLogService.Start()

	a.configManager.DisplayServerConfig()

	serverConfig := a.configManager.GetEffectiveServerConfig()
	a.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
		Handler:        a.engine,
		ReadTimeout:    time.Duration(serverConfig.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(serverConfig.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(serverConfig.IdleTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.Infof("ccswitch gateway started, version %s", version.Version)
		logrus.Infof("Server address: http://%s:%d", serverConfig.Host, serverConfig.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server startup failed: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the application.
func (a *App) Stop(ctx context.Context) {
	logrus.Info("Shutting down server...")

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logrus.Debug("HTTP server graceful shutdown timed out, forcing close.")
			if closeErr := a.httpServer.Close(); closeErr != nil {
				logrus.Errorf("Error forcing HTTP server to close: %v", closeErr)
			}
		}
	}
	logrus.Info("HTTP server has been shut down.")

	a.requestLogService.Stop(ctx)
	a.tunnels.StopAll()

	if err := a.storage.Close(); err != nil {
		logrus.Errorf("Error closing storage: %v", err)
	}

	closeDBConnection(a.db, "main")

	logrus.Info("Shutdown complete.")
}

// closeDBConnection closes a gorm connection, tolerating nil.
func closeDBConnection(db *gorm.DB, name string) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		logrus.Errorf("Failed to get %s sql.DB for close: %v", name, err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		logrus.Errorf("Failed to close %s database connection: %v", name, err)
	}
}
