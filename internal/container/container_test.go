package container

import (
	"testing"

	"ccswitch/internal/config"
	"ccswitch/internal/tunnel"
	"ccswitch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestEnv sets up test environment variables
func setupTestEnv(t testing.TB) {
	t.Helper()
	t.Setenv("AUTH_KEY", "test-auth-key-minimum-16-chars")
	t.Setenv("DATABASE_DSN", ":memory:")
	t.Setenv("PORT", "3001")
}

func TestBuildContainer(t *testing.T) {
	setupTestEnv(t)

	container, err := BuildContainer()
	require.NoError(t, err)
	require.NotNil(t, container)
}

func TestBuildContainer_ConfigManagerResolution(t *testing.T) {
	setupTestEnv(t)

	container, err := BuildContainer()
	require.NoError(t, err)

	err = container.Invoke(func(cm types.ConfigManager) {
		assert.NotNil(t, cm)
		assert.Equal(t, 3001, cm.GetEffectiveServerConfig().Port)
	})
	require.NoError(t, err)
}

func TestBuildContainer_TierStoreAndTunnels(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("TIER_FILE_PATH", t.TempDir()+"/tiers.yaml")

	container, err := BuildContainer()
	require.NoError(t, err)

	err = container.Invoke(func(tierStore *config.TierStore, tunnels *tunnel.Manager) {
		assert.NotNil(t, tierStore)
		assert.NotNil(t, tunnels)
		t.Cleanup(tunnels.StopAll)
	})
	require.NoError(t, err)
}
