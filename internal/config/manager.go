// Package config provides environment-driven configuration management
package config

import (
	"fmt"
	"os"

	"ccswitch/internal/types"
	"ccswitch/internal/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the full application configuration loaded from the
// environment.
type Config struct {
	Server       types.ServerConfig      `json:"server"`
	Auth         types.AuthConfig        `json:"auth"`
	CORS         types.CORSConfig        `json:"cors"`
	Performance  types.PerformanceConfig `json:"performance"`
	Log          types.LogConfig         `json:"log"`
	Database     types.DatabaseConfig    `json:"database"`
	Tunnel       types.TunnelSettings    `json:"tunnel"`
	TierFilePath string                  `json:"tier_file_path"`
}

// Manager implements types.ConfigManager backed by environment variables.
type Manager struct {
	config *Config
}

// NewManager loads .env (when present), reads the environment, and validates
// the result.
func NewManager() (*Manager, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Debug("No .env file loaded")
	}

	manager := &Manager{}
	if err := manager.ReloadConfig(); err != nil {
		return nil, err
	}
	return manager, nil
}

// ReloadConfig re-reads the environment into the manager.
func (m *Manager) ReloadConfig() error {
	config := &Config{
		Server: types.ServerConfig{
			Port:                    utils.ParseInteger(os.Getenv("PORT"), 3001),
			Host:                    utils.GetEnvOrDefault("HOST", "0.0.0.0"),
			ReadTimeout:             utils.ParseInteger(os.Getenv("SERVER_READ_TIMEOUT"), 120),
			WriteTimeout:            utils.ParseInteger(os.Getenv("SERVER_WRITE_TIMEOUT"), 1800),
			IdleTimeout:             utils.ParseInteger(os.Getenv("SERVER_IDLE_TIMEOUT"), 120),
			GracefulShutdownTimeout: utils.ParseInteger(os.Getenv("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT"), 10),
		},
		Auth: types.AuthConfig{
			Key: os.Getenv("AUTH_KEY"),
		},
		CORS: types.CORSConfig{
			Enabled:          utils.ParseBoolean(os.Getenv("ENABLE_CORS"), true),
			AllowedOrigins:   utils.ParseArray(utils.GetEnvOrDefault("ALLOWED_ORIGINS", "*")),
			AllowedMethods:   utils.ParseArray(utils.GetEnvOrDefault("ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS")),
			AllowedHeaders:   utils.ParseArray(utils.GetEnvOrDefault("ALLOWED_HEADERS", "*")),
			AllowCredentials: utils.ParseBoolean(os.Getenv("ALLOW_CREDENTIALS"), false),
		},
		Performance: types.PerformanceConfig{
			MaxConcurrentRequests: utils.ParseInteger(os.Getenv("MAX_CONCURRENT_REQUESTS"), 100),
		},
		Log: types.LogConfig{
			Level:      utils.GetEnvOrDefault("LOG_LEVEL", "info"),
			Format:     utils.GetEnvOrDefault("LOG_FORMAT", "text"),
			EnableFile: utils.ParseBoolean(os.Getenv("LOG_ENABLE_FILE"), false),
			FilePath:   utils.GetEnvOrDefault("LOG_FILE_PATH", "./data/logs/app.log"),
		},
		Database: types.DatabaseConfig{
			DSN: utils.GetEnvOrDefault("DATABASE_DSN", "./data/ccswitch.db"),
		},
		Tunnel: types.TunnelSettings{
			ResponseTimeoutMs: utils.ParseInteger(os.Getenv("TUNNEL_RESPONSE_TIMEOUT_MS"), 600000),
			Verbose:           utils.ParseBoolean(os.Getenv("TUNNEL_VERBOSE"), false),
			AllowSelfSigned:   utils.ParseBoolean(os.Getenv("TUNNEL_ALLOW_SELF_SIGNED"), false),
		},
		TierFilePath: utils.GetEnvOrDefault("TIER_FILE_PATH", "./data/tiers.yaml"),
	}

	m.config = config
	return m.Validate()
}

// Validate checks the loaded configuration for obvious misconfiguration.
func (m *Manager) Validate() error {
	if m.config.Server.Port < 1 || m.config.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", m.config.Server.Port)
	}
	if m.config.Auth.Key == "" {
		return fmt.Errorf("AUTH_KEY is required")
	}
	if m.config.Performance.MaxConcurrentRequests < 1 {
		return fmt.Errorf("max concurrent requests cannot be less than 1")
	}
	if m.config.Tunnel.ResponseTimeoutMs < 0 {
		return fmt.Errorf("tunnel response timeout cannot be negative")
	}
	if m.config.TierFilePath == "" {
		return fmt.Errorf("TIER_FILE_PATH cannot be empty")
	}
	return nil
}

// GetAuthConfig returns authentication configuration
func (m *Manager) GetAuthConfig() types.AuthConfig {
	return m.config.Auth
}

// GetCORSConfig returns CORS configuration
func (m *Manager) GetCORSConfig() types.CORSConfig {
	return m.config.CORS
}

// GetPerformanceConfig returns performance configuration
func (m *Manager) GetPerformanceConfig() types.PerformanceConfig {
	return m.config.Performance
}

// GetLogConfig returns log configuration
func (m *Manager) GetLogConfig() types.LogConfig {
	return m.config.Log
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() types.DatabaseConfig {
	return m.config.Database
}

// GetEffectiveServerConfig returns the server configuration
func (m *Manager) GetEffectiveServerConfig() types.ServerConfig {
	return m.config.Server
}

// GetTunnelSettings returns the tunnel defaults
func (m *Manager) GetTunnelSettings() types.TunnelSettings {
	return m.config.Tunnel
}

// GetTierFilePath returns the tier configuration file path
func (m *Manager) GetTierFilePath() string {
	return m.config.TierFilePath
}

// DisplayServerConfig logs a human-readable summary of the effective
// configuration at startup.
func (m *Manager) DisplayServerConfig() {
	server := m.config.Server
	logrus.Info("")
	logrus.Info("======= Server Configuration =======")
	logrus.Infof("  Listen: %s:%d", server.Host, server.Port)
	logrus.Infof("  Timeouts: read=%ds write=%ds idle=%ds", server.ReadTimeout, server.WriteTimeout, server.IdleTimeout)
	logrus.Infof("  CORS: %v", m.config.CORS.Enabled)
	logrus.Infof("  Max Concurrent Requests: %d", m.config.Performance.MaxConcurrentRequests)
	logrus.Infof("  Tier File: %s", m.config.TierFilePath)
	logrus.Infof("  Database DSN: %s", utils.TruncateString(m.config.Database.DSN, 32))
	logrus.Infof("  Tunnel Timeout: %dms", m.config.Tunnel.ResponseTimeoutMs)
	logrus.Info("====================================")
	logrus.Info("")
}
