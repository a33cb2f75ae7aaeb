// Package handler implements the admin API endpoints.
package handler

import (
	"ccswitch/internal/config"
	"ccswitch/internal/services"
	"ccswitch/internal/types"

	"gorm.io/gorm"
)

// Server holds the dependencies shared by the admin API handlers.
type Server struct {
	DB            *gorm.DB
	TierStore     *config.TierStore
	LogService    *services.RequestLogService
	configManager types.ConfigManager
}

// NewServer creates a handler server.
func NewServer(db *gorm.DB, tierStore *config.TierStore, logService *services.RequestLogService, configManager types.ConfigManager) *Server {
	return &Server{
		DB:            db,
		TierStore:     tierStore,
		LogService:    logService,
		configManager: configManager,
	}
}
