package config

import (
	"os"
	"path/filepath"
	"testing"

	"ccswitch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTierFile() *models.TierFile {
	return &models.TierFile{
		Providers: []models.ProviderConfig{
			{Name: "primary", Host: "api.anthropic.com", AuthToken: "sk-a"},
			{Name: "backup", Host: "open.bigmodel.cn", Port: 443},
		},
		Tiers: map[string]*models.TierConfig{
			"opus": {
				Provider: "primary",
				Model:    "claude-opus-4-5-20251101",
				Fallback: []*models.TierConfig{
					{Provider: "backup", Model: "glm-4.6"},
				},
			},
			"haiku": {Provider: "backup", Model: "glm-4-flash"},
		},
	}
}

func TestTierStoreRoundTripYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	store := NewTierStore(path)

	warnings, err := store.Save(testTierFile())
	require.NoError(t, err)
	assert.Empty(t, warnings)

	loaded, err := NewTierStore(path).Load()
	require.NoError(t, err)
	require.Contains(t, loaded.Tiers, "opus")
	assert.Equal(t, "primary", loaded.Tiers["opus"].Provider)
	require.Len(t, loaded.Tiers["opus"].Fallback, 1)
	assert.Equal(t, "backup", loaded.Tiers["opus"].Fallback[0].Provider)
	assert.Len(t, loaded.Providers, 2)
}

func TestTierStoreRoundTripJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.json")
	store := NewTierStore(path)

	_, err := store.Save(testTierFile())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"providers"`)

	loaded, err := NewTierStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "glm-4-flash", loaded.Tiers["haiku"].Model)
}

func TestTierStoreMissingFileStartsEmpty(t *testing.T) {
	store := NewTierStore(filepath.Join(t.TempDir(), "absent.yaml"))

	file, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, file.Providers)
	assert.Empty(t, file.Tiers)
}

func TestTierStoreSaveRejectsCycle(t *testing.T) {
	store := NewTierStore(filepath.Join(t.TempDir(), "tiers.yaml"))

	bad := testTierFile()
	bad.Tiers["opus"].Fallback[0].Fallback = []*models.TierConfig{
		{Provider: "primary", Model: "claude-opus-4-5-20251101"},
	}

	_, err := store.Save(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cyclic")

	// Nothing was written.
	_, statErr := os.Stat(store.path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestTierStoreSaveRejectsUnknownProvider(t *testing.T) {
	store := NewTierStore(filepath.Join(t.TempDir(), "tiers.yaml"))

	bad := testTierFile()
	bad.Tiers["haiku"].Provider = "missing"

	_, err := store.Save(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestTierStoreSaveRejectsInvalidHost(t *testing.T) {
	store := NewTierStore(filepath.Join(t.TempDir(), "tiers.yaml"))

	bad := testTierFile()
	bad.Providers[0].Host = "http://bad host"

	_, err := store.Save(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid remote host")

	// Nothing was written.
	_, statErr := os.Stat(store.path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestTierStoreSaveReturnsWarnings(t *testing.T) {
	store := NewTierStore(filepath.Join(t.TempDir(), "tiers.yaml"))

	file := &models.TierFile{
		Providers: []models.ProviderConfig{
			{Name: "p1", Host: "a.example.com"},
			{Name: "p2", Host: "b.example.com"},
			{Name: "p3", Host: "c.example.com"},
			{Name: "p4", Host: "d.example.com"},
			{Name: "p5", Host: "e.example.com"},
			{Name: "p6", Host: "f.example.com"},
		},
		Tiers: map[string]*models.TierConfig{
			"deep": {Provider: "p1", Model: "m", Fallback: []*models.TierConfig{
				{Provider: "p2", Model: "m", Fallback: []*models.TierConfig{
					{Provider: "p3", Model: "m", Fallback: []*models.TierConfig{
						{Provider: "p4", Model: "m", Fallback: []*models.TierConfig{
							{Provider: "p5", Model: "m", Fallback: []*models.TierConfig{
								{Provider: "p6", Model: "m"},
							}},
						}},
					}},
				}},
			}},
		},
	}

	warnings, err := store.Save(file)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "6 entries")
}

func TestTierStoreLookups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	store := NewTierStore(path)
	_, err := store.Save(testTierFile())
	require.NoError(t, err)

	provider, ok := store.FindProvider("backup")
	require.True(t, ok)
	assert.Equal(t, "open.bigmodel.cn", provider.Host)

	_, ok = store.FindProvider("nope")
	assert.False(t, ok)

	tier, ok := store.FindTier("opus")
	require.True(t, ok)
	assert.Equal(t, "claude-opus-4-5-20251101", tier.Model)

	_, ok = store.FindTier("nope")
	assert.False(t, ok)
}

func TestTierStoreLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers: [\n"), 0o600))

	_, err := NewTierStore(path).Load()
	require.Error(t, err)
}
