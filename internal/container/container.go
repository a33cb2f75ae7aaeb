// Package container builds the dependency injection container.
package container

import (
	"ccswitch/internal/app"
	"ccswitch/internal/config"
	"ccswitch/internal/db"
	"ccswitch/internal/handler"
	"ccswitch/internal/proxy"
	"ccswitch/internal/router"
	"ccswitch/internal/services"
	"ccswitch/internal/store"
	"ccswitch/internal/tunnel"
	"ccswitch/internal/types"

	"go.uber.org/dig"
)

// BuildContainer registers all constructors and returns the container.
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []any{
		config.NewManager,
		func(m *config.Manager) types.ConfigManager { return m },
		func(cm types.ConfigManager) *config.TierStore {
			return config.NewTierStore(cm.GetTierFilePath())
		},
		func() store.Store { return store.NewMemoryStore() },
		db.NewDB,
		services.NewRequestLogService,
		func(cm types.ConfigManager) *tunnel.Manager {
			return tunnel.NewManager(cm.GetTunnelSettings())
		},
		proxy.NewServer,
		handler.NewServer,
		router.NewRouter,
		app.NewApp,
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	return container, nil
}
