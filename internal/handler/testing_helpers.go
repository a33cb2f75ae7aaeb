package handler

import (
	"path/filepath"
	"testing"

	"ccswitch/internal/config"
	"ccswitch/internal/models"
	"ccswitch/internal/services"
	"ccswitch/internal/store"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing (pure Go, no CGO)
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.RequestLog{}))
	return db
}

// setupTestServer creates a handler server with minimal dependencies.
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	db := setupTestDB(t)

	st := store.NewMemoryStore()
	t.Cleanup(func() { st.Close() })

	tierStore := config.NewTierStore(filepath.Join(t.TempDir(), "tiers.yaml"))
	logService := services.NewRequestLogService(db, st)

	return NewServer(db, tierStore, logService, nil)
}
